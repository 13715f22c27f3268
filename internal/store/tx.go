package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// ErrRecordNotFound is returned by Get/Update/Delete when no live row exists.
var ErrRecordNotFound = errors.New("record not found")

// errReadOnly guards mutations attempted inside a read transaction.
var errReadOnly = errors.New("write attempted in read transaction")

// Tx is a transaction handle. Mutating methods go through the change
// tracker: every create/update/delete stamps _changed and _status, so sync
// metadata can never be skipped by a caller. The remote-apply methods at the
// bottom are the sync engine's tracker bypass.
type Tx struct {
	tx       *sql.Tx
	store    *Store
	writable bool
	touched  map[string]bool
}

func (tx *Tx) table(name string) (*TableSchema, error) {
	t := tx.store.schema.Table(name)
	if t == nil {
		return nil, fmt.Errorf("unknown table %q", name)
	}
	return t, nil
}

func (tx *Tx) markTouched(table string) {
	if tx.touched != nil {
		tx.touched[table] = true
	}
}

// Get fetches a record by id. Tombstoned rows read as absent.
func (tx *Tx) Get(table, id string) (*Record, error) {
	rec, err := tx.getAny(table, id)
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.Status == StatusDeleted {
		return nil, fmt.Errorf("%w: %s/%s", ErrRecordNotFound, table, id)
	}
	return rec, nil
}

// getAny fetches a record by id including tombstones, nil when no row exists.
func (tx *Tx) getAny(table, id string) (*Record, error) {
	t, err := tx.table(table)
	if err != nil {
		return nil, err
	}

	rows, err := tx.tx.Query(fmt.Sprintf("SELECT * FROM %s WHERE id = ?", t.Name), id)
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", table, id, err)
	}
	defer rows.Close()

	recs, err := scanRecords(rows, t)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return &recs[0], nil
}

// Create inserts a new record. The tracker stamps status=created and a fresh
// changedAt; the id must not collide with any live or tombstoned row.
func (tx *Tx) Create(table string, rec *Record) error {
	if !tx.writable {
		return errReadOnly
	}
	t, err := tx.table(table)
	if err != nil {
		return err
	}
	if rec.ID == "" {
		return fmt.Errorf("create %s: empty id", table)
	}

	existing, err := tx.getAny(table, rec.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("create %s/%s: id already exists", table, rec.ID)
	}

	stampCreate(rec, tx.store.Clock())

	stmt, args, err := insertSQL(t, rec)
	if err != nil {
		return err
	}
	if _, err := tx.tx.Exec(stmt, args...); err != nil {
		return fmt.Errorf("create %s/%s: %w", table, rec.ID, err)
	}
	tx.markTouched(table)
	return nil
}

// Update merges fields into an existing record. Absent keys keep their
// stored value; a nil value clears an optional column. A record still
// awaiting its first push stays created through any number of edits.
func (tx *Tx) Update(table, id string, fields map[string]any) error {
	if !tx.writable {
		return errReadOnly
	}
	t, err := tx.table(table)
	if err != nil {
		return err
	}

	rec, err := tx.Get(table, id)
	if err != nil {
		return err
	}

	for k, v := range fields {
		if t.Column(k) == nil {
			return fmt.Errorf("unknown column %s.%s", table, k)
		}
		if v == nil {
			delete(rec.Fields, k)
			continue
		}
		rec.Fields[k] = v
	}

	stampUpdate(rec, tx.store.Clock())

	stmt, args, err := insertSQL(t, rec)
	if err != nil {
		return err
	}
	if _, err := tx.tx.Exec(stmt, args...); err != nil {
		return fmt.Errorf("update %s/%s: %w", table, id, err)
	}
	tx.markTouched(table)
	return nil
}

// Delete tombstones a record. The row is retained until the sync engine
// confirms the remote deletion, except for records created locally and never
// pushed, which are removed outright.
func (tx *Tx) Delete(table, id string) error {
	if !tx.writable {
		return errReadOnly
	}
	t, err := tx.table(table)
	if err != nil {
		return err
	}

	rec, err := tx.Get(table, id)
	if err != nil {
		return err
	}

	if rec.Status == StatusCreated {
		// Never left the device: no tombstone needed.
		if _, err := tx.tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE id = ?", t.Name), id); err != nil {
			return fmt.Errorf("delete %s/%s: %w", table, id, err)
		}
		tx.markTouched(table)
		return nil
	}

	stampDelete(rec, tx.store.Clock())

	stmt, args, err := insertSQL(t, rec)
	if err != nil {
		return err
	}
	if _, err := tx.tx.Exec(stmt, args...); err != nil {
		return fmt.Errorf("delete %s/%s: %w", table, id, err)
	}
	tx.markTouched(table)
	return nil
}

// Pending returns every record whose status is not synced, in stable id
// order, including tombstones. The sync engine uses this to snapshot the
// dirty set at cycle start.
func (tx *Tx) Pending(table string) ([]Record, error) {
	t, err := tx.table(table)
	if err != nil {
		return nil, err
	}
	rows, err := tx.tx.Query(
		fmt.Sprintf("SELECT * FROM %s WHERE _status != ? ORDER BY id", t.Name), string(StatusSynced))
	if err != nil {
		return nil, fmt.Errorf("pending %s: %w", table, err)
	}
	defer rows.Close()
	return scanRecords(rows, t)
}

// --- sync engine write path (tracker bypass) ---

// ApplyRemote upserts a pulled record, preserving the remote changedAt and
// marking it synced. Used only by the sync engine's pull application.
func (tx *Tx) ApplyRemote(table string, rec *Record) error {
	if !tx.writable {
		return errReadOnly
	}
	t, err := tx.table(table)
	if err != nil {
		return err
	}

	applied := rec.Clone()
	applied.Status = StatusSynced

	stmt, args, err := insertSQL(t, applied)
	if err != nil {
		return err
	}
	if _, err := tx.tx.Exec(stmt, args...); err != nil {
		return fmt.Errorf("apply remote %s/%s: %w", table, rec.ID, err)
	}
	tx.markTouched(table)
	return nil
}

// Purge physically removes a row (tombstone compaction). Only the sync
// engine calls this, after the remote side has durably recorded a deletion.
func (tx *Tx) Purge(table, id string) error {
	if !tx.writable {
		return errReadOnly
	}
	t, err := tx.table(table)
	if err != nil {
		return err
	}
	if _, err := tx.tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE id = ?", t.Name), id); err != nil {
		return fmt.Errorf("purge %s/%s: %w", table, id, err)
	}
	tx.markTouched(table)
	return nil
}

// MarkSynced flips a record to synced after its push batch was acknowledged,
// but only when its changedAt still matches the pushed snapshot. An edit
// that landed mid-flight keeps the record dirty for the next cycle.
func (tx *Tx) MarkSynced(table, id string, changedAt int64) (bool, error) {
	if !tx.writable {
		return false, errReadOnly
	}
	t, err := tx.table(table)
	if err != nil {
		return false, err
	}
	res, err := tx.tx.Exec(
		fmt.Sprintf("UPDATE %s SET _status = ? WHERE id = ? AND _changed = ?", t.Name),
		string(StatusSynced), id, changedAt)
	if err != nil {
		return false, fmt.Errorf("mark synced %s/%s: %w", table, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		tx.markTouched(table)
	}
	return n > 0, nil
}

// PurgeSynced removes an acked tombstone, guarded the same way as MarkSynced.
func (tx *Tx) PurgeSynced(table, id string, changedAt int64) (bool, error) {
	if !tx.writable {
		return false, errReadOnly
	}
	t, err := tx.table(table)
	if err != nil {
		return false, err
	}
	res, err := tx.tx.Exec(
		fmt.Sprintf("DELETE FROM %s WHERE id = ? AND _changed = ? AND _status = ?", t.Name),
		id, changedAt, string(StatusDeleted))
	if err != nil {
		return false, fmt.Errorf("purge synced %s/%s: %w", table, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		tx.markTouched(table)
	}
	return n > 0, nil
}

// GetAny exposes tombstone-inclusive reads to the sync engine.
func (tx *Tx) GetAny(table, id string) (*Record, error) {
	return tx.getAny(table, id)
}
