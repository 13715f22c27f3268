package store

import (
	"fmt"
	"time"
)

// LastPulledAt returns the pull checkpoint: the server timestamp of the last
// fully applied pull, 0 before the first sync.
func (tx *Tx) LastPulledAt() (int64, error) {
	var v int64
	err := tx.tx.QueryRow(`SELECT last_pulled_at FROM sync_state WHERE id = 1`).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("get last_pulled_at: %w", err)
	}
	return v, nil
}

// SetLastPulledAt persists the pull checkpoint. Called inside the same write
// transaction that applied the pulled changes, so checkpoint and data can
// never disagree.
func (tx *Tx) SetLastPulledAt(ts int64) error {
	if !tx.writable {
		return errReadOnly
	}
	_, err := tx.tx.Exec(
		`UPDATE sync_state SET last_pulled_at = ?, last_sync_at = ? WHERE id = 1`,
		ts, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("set last_pulled_at: %w", err)
	}
	return nil
}

// LastPulledAt is the read convenience used by status surfaces.
func (s *Store) LastPulledAt() (int64, error) {
	var v int64
	err := s.conn.QueryRow(`SELECT last_pulled_at FROM sync_state WHERE id = 1`).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("get last_pulled_at: %w", err)
	}
	return v, nil
}

// LastSyncAt returns the wall-clock time of the last successful pull, or the
// zero time before the first sync.
func (s *Store) LastSyncAt() (time.Time, error) {
	var raw string
	err := s.conn.QueryRow(`SELECT last_sync_at FROM sync_state WHERE id = 1`).Scan(&raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("get last_sync_at: %w", err)
	}
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse last_sync_at %q: %w", raw, err)
	}
	return t, nil
}
