package store

import (
	"errors"
	"fmt"
	"sort"
)

// ErrDowngrade is returned when the persisted schema version is newer than
// the version this build understands.
var ErrDowngrade = errors.New("store schema is newer than this build")

// MigrationError is fatal: the store is left unopened and the application
// must not proceed against a half-migrated database.
type MigrationError struct {
	Version int
	Err     error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("migration to version %d failed: %v", e.Version, e.Err)
}

func (e *MigrationError) Unwrap() error {
	return e.Err
}

// MigrationStep is one additive schema change. Removing or repurposing
// columns is deliberately not expressible: readers ignore unknown stored
// columns, so dropping a column from the schema needs no migration and old
// unsynced rows survive schema evolution.
type MigrationStep interface {
	sql() (string, error)
}

// AddColumn adds a column to an existing table. Required columns must carry
// a default so pre-existing rows hold a documented value.
type AddColumn struct {
	Table  string
	Column Column
}

func (s AddColumn) sql() (string, error) {
	if s.Column.Name == "" || s.Table == "" {
		return "", fmt.Errorf("add column: table and column name required")
	}
	if !s.Column.Optional && s.Column.Default == nil {
		return "", fmt.Errorf("add column %s.%s: required column needs an explicit default", s.Table, s.Column.Name)
	}
	return addColumnSQL(s.Table, s.Column), nil
}

// AddTable creates a new table with the standard id and sync metadata columns.
type AddTable struct {
	Table TableSchema
}

func (s AddTable) sql() (string, error) {
	if s.Table.Name == "" {
		return "", fmt.Errorf("add table: name required")
	}
	return createTableSQL(s.Table), nil
}

// Migration is the ordered set of steps taking the schema from version N-1
// to version N.
type Migration struct {
	Version     int
	Description string
	Steps       []MigrationStep
}

// migrate brings the persisted schema up to the code version. Each migration
// runs inside its own transaction so a failure cannot leave a version half
// applied. Index creation for the full schema runs afterwards (idempotent),
// so indexes declared on migrated columns exist either way.
func (s *Store) migrate(migrations []Migration) error {
	persisted, err := s.getSchemaVersion()
	if err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	if persisted > s.schema.Version {
		return fmt.Errorf("%w: persisted version %d, code version %d", ErrDowngrade, persisted, s.schema.Version)
	}
	if persisted == s.schema.Version {
		return nil
	}

	sorted := make([]Migration, len(migrations))
	copy(sorted, migrations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })

	return s.withWriteLock(func() error {
		current := persisted
		for _, m := range sorted {
			if m.Version <= current || m.Version > s.schema.Version {
				continue
			}
			if m.Version != current+1 {
				return &MigrationError{Version: m.Version, Err: fmt.Errorf("no migration covers version %d", current+1)}
			}
			if err := s.applyMigration(m); err != nil {
				return &MigrationError{Version: m.Version, Err: err}
			}
			current = m.Version
		}
		if current != s.schema.Version {
			return &MigrationError{Version: s.schema.Version, Err: fmt.Errorf("no migration covers version %d", current+1)}
		}

		for _, t := range s.schema.Tables {
			for _, stmt := range createIndexSQL(t) {
				if _, err := s.conn.Exec(stmt); err != nil {
					return &MigrationError{Version: s.schema.Version, Err: fmt.Errorf("create index on %s: %w", t.Name, err)}
				}
			}
		}
		return nil
	})
}

// applyMigration runs one migration's steps and the version bump atomically.
func (s *Store) applyMigration(m Migration) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, step := range m.Steps {
		stmt, err := step.sql()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("%s: %w", m.Description, err)
		}
	}

	if _, err := tx.Exec(`INSERT OR REPLACE INTO schema_info (key, value) VALUES ('version', ?)`,
		fmt.Sprintf("%d", m.Version)); err != nil {
		return fmt.Errorf("set version %d: %w", m.Version, err)
	}

	return tx.Commit()
}
