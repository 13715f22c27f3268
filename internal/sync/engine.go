package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	gosync "sync"

	"github.com/avery/liftd/internal/store"
)

const defaultBatchSize = 100

// Engine drives the pull/push cycle against a Remote. One cycle at a time;
// local reads and writes continue concurrently and are reconciled through the
// change tracker's changedAt guards.
type Engine struct {
	store     *store.Store
	remote    Remote
	tables    []string
	batchSize int
	logger    *slog.Logger

	cycleMu gosync.Mutex

	stateMu gosync.RWMutex
	state   State
}

// Options tunes the engine. Zero values select the defaults.
type Options struct {
	// BatchSize caps the records per push request. Default 100.
	BatchSize int
	Logger    *slog.Logger
}

// New builds an engine syncing the given tables, in the given order. Parents
// must precede children so pulled foreign keys resolve.
func New(st *store.Store, remote Remote, tables []string, opts Options) *Engine {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Engine{
		store:     st,
		remote:    remote,
		tables:    tables,
		batchSize: opts.BatchSize,
		logger:    opts.Logger,
		state:     StateIdle,
	}
}

// State reports the current cycle position.
func (e *Engine) State() State {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.state
}

func (e *Engine) setState(s State) {
	e.stateMu.Lock()
	e.state = s
	e.stateMu.Unlock()
}

// PendingCounts reports per-table unsynced record counts.
func (e *Engine) PendingCounts() (map[string]int, error) {
	return e.store.PendingCounts()
}

// Sync runs one full cycle: pull, apply, push in batches, acknowledge. A push
// rejected as stale triggers a single re-pull before retrying; a second
// rejection fails the cycle. On any error the store is left consistent and
// the cycle can simply be run again.
func (e *Engine) Sync(ctx context.Context) (*Report, error) {
	e.cycleMu.Lock()
	defer e.cycleMu.Unlock()

	report := &Report{}

	for attempt := 0; ; attempt++ {
		if err := e.pullApply(ctx, report); err != nil {
			e.setState(StateFailed)
			return report, err
		}

		err := e.push(ctx, report)
		if err == nil {
			break
		}
		if errors.Is(err, ErrStalePush) && attempt == 0 {
			e.logger.Debug("push rejected as stale, re-pulling")
			continue
		}
		e.setState(StateFailed)
		return report, err
	}

	e.setState(StateIdle)
	e.logger.Info("sync complete",
		"pulled", report.Pulled, "applied", report.Applied,
		"pushed", report.Pushed, "confirmed", report.Confirmed,
		"batches", report.Batches, "checkpoint", report.Timestamp)
	return report, nil
}

// pullApply fetches remote changes since the checkpoint and applies them
// under last-write-wins, persisting the new checkpoint in the same
// transaction as the data it covers.
func (e *Engine) pullApply(ctx context.Context, report *Report) error {
	e.setState(StatePulling)

	since, err := e.store.LastPulledAt()
	if err != nil {
		return err
	}

	resp, err := e.remote.PullChanges(ctx, since, e.store.Schema().Version)
	if err != nil {
		return fmt.Errorf("pull changes: %w", err)
	}

	e.setState(StateApplying)
	return e.store.WriteTx(func(tx *store.Tx) error {
		for _, table := range e.tables {
			tc := resp.Changes[table]
			if tc.empty() {
				continue
			}
			for _, wire := range tc.Created {
				if err := e.applyUpsert(tx, table, wire, report); err != nil {
					return err
				}
			}
			for _, wire := range tc.Updated {
				if err := e.applyUpsert(tx, table, wire, report); err != nil {
					return err
				}
			}
			for _, id := range tc.Deleted {
				if err := e.applyDelete(tx, table, id, report); err != nil {
					return err
				}
			}
		}
		report.Timestamp = resp.Timestamp
		return tx.SetLastPulledAt(resp.Timestamp)
	})
}

// applyUpsert applies one pulled record. Created and updated are handled
// identically: the local row either doesn't exist or it does, regardless of
// what the server believed. The remote wins only when strictly newer; on a
// changedAt tie the local copy stands.
func (e *Engine) applyUpsert(tx *store.Tx, table string, wire WireRecord, report *Report) error {
	report.Pulled++

	rec, err := e.recordFromWire(table, wire)
	if err != nil {
		return fmt.Errorf("decode pulled %s record: %w", table, err)
	}

	local, err := tx.GetAny(table, rec.ID)
	if err != nil {
		return err
	}
	if local != nil && local.ChangedAt >= rec.ChangedAt {
		e.logger.Debug("pull: local copy newer, kept", "table", table, "id", rec.ID)
		return nil
	}

	report.Applied++
	return tx.ApplyRemote(table, rec)
}

// applyDelete applies one pulled deletion. A local pending edit survives the
// remote deletion; the next push recreates the record server-side.
func (e *Engine) applyDelete(tx *store.Tx, table, id string, report *Report) error {
	report.Pulled++

	local, err := tx.GetAny(table, id)
	if err != nil {
		return err
	}
	if local == nil {
		return nil
	}
	if local.Status == store.StatusCreated || local.Status == store.StatusUpdated {
		e.logger.Debug("pull: remote delete vs local edit, kept local", "table", table, "id", id)
		return nil
	}

	report.Applied++
	return tx.Purge(table, id)
}

// pushItem is one dirty record captured in the cycle-start snapshot.
type pushItem struct {
	table string
	rec   store.Record
}

// push ships the dirty snapshot in bounded batches and flips acknowledged
// records to synced. The snapshot is taken once, at push start: records
// edited after that point fail the changedAt guard at ack time and stay
// dirty for the next cycle.
func (e *Engine) push(ctx context.Context, report *Report) error {
	e.setState(StatePushing)

	checkpoint, err := e.store.LastPulledAt()
	if err != nil {
		return err
	}

	var items []pushItem
	err = e.store.ReadTx(func(tx *store.Tx) error {
		for _, table := range e.tables {
			pending, err := tx.Pending(table)
			if err != nil {
				return err
			}
			for _, rec := range pending {
				items = append(items, pushItem{table: table, rec: rec})
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	report.Pushed = len(items)
	if len(items) == 0 {
		return nil
	}

	for start := 0; start < len(items); start += e.batchSize {
		end := min(start+e.batchSize, len(items))
		batch := items[start:end]

		e.setState(StatePushing)
		req := &PushRequest{Changes: batchChanges(batch), LastPulledAt: checkpoint}
		if err := e.remote.PushChanges(ctx, req); err != nil {
			return fmt.Errorf("push batch %d: %w", report.Batches+1, err)
		}
		report.Batches++

		e.setState(StateAcking)
		if err := e.acknowledge(batch, report); err != nil {
			return err
		}
		e.logger.Debug("batch acknowledged", "batch", report.Batches, "records", len(batch))
	}
	return nil
}

// batchChanges regroups a flat batch into per-table change sets.
func batchChanges(batch []pushItem) Changes {
	changes := make(Changes)
	for _, item := range batch {
		tc := changes[item.table]
		if tc == nil {
			tc = &TableChanges{}
			changes[item.table] = tc
		}
		switch item.rec.Status {
		case store.StatusCreated:
			tc.Created = append(tc.Created, wireFromRecord(&item.rec))
		case store.StatusUpdated:
			tc.Updated = append(tc.Updated, wireFromRecord(&item.rec))
		case store.StatusDeleted:
			tc.Deleted = append(tc.Deleted, item.rec.ID)
		}
	}
	return changes
}

// acknowledge flips each record of an accepted batch to synced, or purges its
// tombstone. Records whose changedAt moved since the snapshot are left alone.
func (e *Engine) acknowledge(batch []pushItem, report *Report) error {
	return e.store.WriteTx(func(tx *store.Tx) error {
		for _, item := range batch {
			var flipped bool
			var err error
			if item.rec.Status == store.StatusDeleted {
				flipped, err = tx.PurgeSynced(item.table, item.rec.ID, item.rec.ChangedAt)
			} else {
				flipped, err = tx.MarkSynced(item.table, item.rec.ID, item.rec.ChangedAt)
			}
			if err != nil {
				return err
			}
			if flipped {
				report.Confirmed++
			} else {
				e.logger.Debug("ack skipped, record changed mid-flight",
					"table", item.table, "id", item.rec.ID)
			}
		}
		return nil
	})
}

// wireFromRecord flattens a record for the protocol.
func wireFromRecord(rec *store.Record) WireRecord {
	wire := make(WireRecord, len(rec.Fields)+2)
	for k, v := range rec.Fields {
		wire[k] = v
	}
	wire["id"] = rec.ID
	wire["_changed"] = rec.ChangedAt
	return wire
}

// recordFromWire decodes a pulled record, coercing values to the column types
// the local schema declares and dropping fields it does not know. A missing
// id or changedAt is a protocol violation.
func (e *Engine) recordFromWire(table string, wire WireRecord) (*store.Record, error) {
	t := e.store.Schema().Table(table)
	if t == nil {
		return nil, fmt.Errorf("unknown table %q", table)
	}

	id, _ := wire["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("record missing id")
	}
	changedAt, ok := wireInt64(wire["_changed"])
	if !ok {
		return nil, fmt.Errorf("record %s missing _changed", id)
	}

	rec := &store.Record{ID: id, ChangedAt: changedAt, Fields: make(map[string]any)}
	for name, raw := range wire {
		if name == "id" || name == "_changed" || name == "_status" {
			continue
		}
		c := t.Column(name)
		if c == nil || raw == nil {
			continue
		}
		v, err := coerceWire(raw, c.Type)
		if err != nil {
			return nil, fmt.Errorf("record %s field %s: %w", id, name, err)
		}
		rec.Fields[name] = v
	}
	return rec, nil
}

func wireInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case float64:
		return int64(n), true
	case int:
		return int64(n), true
	}
	return 0, false
}

func coerceWire(v any, t store.ColumnType) (any, error) {
	switch t {
	case store.TypeNumber:
		switch n := v.(type) {
		case float64:
			return n, nil
		case int64:
			return float64(n), nil
		case int:
			return float64(n), nil
		}
		return nil, fmt.Errorf("expected number, got %T", v)
	case store.TypeBool:
		switch b := v.(type) {
		case bool:
			return b, nil
		case float64:
			return b != 0, nil
		}
		return nil, fmt.Errorf("expected bool, got %T", v)
	default:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", v)
		}
		return s, nil
	}
}
