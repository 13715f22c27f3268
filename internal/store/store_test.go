package store

import (
	"errors"
	"strings"
	"testing"
)

// testSchema is a deliberately small two-table schema for store tests.
func testSchema() Schema {
	return Schema{
		Version: 1,
		Tables: []TableSchema{
			{
				Name: "notes",
				Columns: []Column{
					{Name: "author", Type: TypeString, Indexed: true},
					{Name: "body", Type: TypeString},
					{Name: "rating", Type: TypeNumber, Optional: true},
					{Name: "pinned", Type: TypeBool, Default: false},
				},
			},
			{
				Name: "tags",
				Columns: []Column{
					{Name: "note_id", Type: TypeString, Indexed: true},
					{Name: "label", Type: TypeString},
				},
			},
		},
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Initialize(t.TempDir(), testSchema(), nil)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// fixedClock replaces the store clock with a manually advanced one.
func fixedClock(s *Store, start int64) *int64 {
	now := start
	s.Clock = func() int64 { return now }
	return &now
}

func TestOpenRequiresInit(t *testing.T) {
	_, err := Open(t.TempDir(), testSchema(), nil)
	if err == nil {
		t.Fatal("expected error opening uninitialized store")
	}
}

func TestInitializeAndReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := Initialize(dir, testSchema(), nil)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	err = s.WriteTx(func(tx *Tx) error {
		return tx.Create("notes", &Record{ID: "n1", Fields: map[string]any{
			"author": "avery", "body": "hello",
		}})
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	s.Close()

	s2, err := Open(dir, testSchema(), []Migration{{Version: 1, Description: "initial"}})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s2.Close()

	rec, err := s2.Get("notes", "n1")
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if rec.String("body") != "hello" {
		t.Errorf("body = %q, want hello", rec.String("body"))
	}
}

func TestMigrateAddsColumnsWithDefaults(t *testing.T) {
	dir := t.TempDir()

	// Lay down the v1 store with a row that predates the new columns.
	s, err := Initialize(dir, testSchema(), nil)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	err = s.WriteTx(func(tx *Tx) error {
		return tx.Create("notes", &Record{ID: "old", Fields: map[string]any{
			"author": "avery", "body": "pre-migration",
		}})
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	s.Close()

	v2 := testSchema()
	v2.Version = 2
	v2.Tables[0].Columns = append(v2.Tables[0].Columns,
		Column{Name: "archived", Type: TypeBool, Default: false},
		Column{Name: "color", Type: TypeString, Optional: true})
	migrations := []Migration{
		{Version: 1, Description: "initial"},
		{Version: 2, Description: "archive flag and color", Steps: []MigrationStep{
			AddColumn{Table: "notes", Column: Column{Name: "archived", Type: TypeBool, Default: false}},
			AddColumn{Table: "notes", Column: Column{Name: "color", Type: TypeString, Optional: true}},
		}},
	}

	s2, err := Open(dir, v2, migrations)
	if err != nil {
		t.Fatalf("Open with migrations: %v", err)
	}
	defer s2.Close()

	rec, err := s2.Get("notes", "old")
	if err != nil {
		t.Fatalf("get migrated row: %v", err)
	}
	if rec.Bool("archived") {
		t.Error("archived should default false")
	}
	if _, ok := rec.Fields["color"]; ok {
		t.Error("optional column without default should read as absent")
	}
	if rec.String("body") != "pre-migration" {
		t.Errorf("pre-existing data lost: body = %q", rec.String("body"))
	}

	if v, err := s2.getSchemaVersion(); err != nil || v != 2 {
		t.Errorf("schema version = %d, %v; want 2", v, err)
	}
}

func TestMigrateRejectsDowngrade(t *testing.T) {
	dir := t.TempDir()

	v2 := testSchema()
	v2.Version = 2
	s, err := Initialize(dir, v2, nil)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	s.Close()

	_, err = Open(dir, testSchema(), []Migration{{Version: 1, Description: "initial"}})
	if !errors.Is(err, ErrDowngrade) {
		t.Fatalf("err = %v, want ErrDowngrade", err)
	}
}

func TestMigrateRejectsGap(t *testing.T) {
	dir := t.TempDir()

	s, err := Initialize(dir, testSchema(), nil)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	s.Close()

	v3 := testSchema()
	v3.Version = 3
	migrations := []Migration{
		{Version: 1, Description: "initial"},
		// Version 2 missing.
		{Version: 3, Description: "later", Steps: []MigrationStep{
			AddColumn{Table: "notes", Column: Column{Name: "extra", Type: TypeString, Optional: true}},
		}},
	}
	_, err = Open(dir, v3, migrations)
	var merr *MigrationError
	if !errors.As(err, &merr) {
		t.Fatalf("err = %v, want MigrationError for version gap", err)
	}
}

func TestTolerantReaderIgnoresUnknownColumns(t *testing.T) {
	s := newTestStore(t)

	// Simulate a future schema's column already present on disk.
	if _, err := s.Conn().Exec(`ALTER TABLE notes ADD COLUMN future_field TEXT`); err != nil {
		t.Fatalf("alter: %v", err)
	}
	if _, err := s.Conn().Exec(
		`INSERT INTO notes (id, author, body, pinned, future_field, _changed, _status)
		 VALUES ('n1', 'avery', 'hi', 0, 'from the future', 5, 'synced')`); err != nil {
		t.Fatalf("insert: %v", err)
	}

	rec, err := s.Get("notes", "n1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, ok := rec.Fields["future_field"]; ok {
		t.Error("unknown stored column leaked into record fields")
	}
	if rec.String("body") != "hi" {
		t.Errorf("body = %q, want hi", rec.String("body"))
	}
}

func TestWriteTxRollsBackOnError(t *testing.T) {
	s := newTestStore(t)

	err := s.WriteTx(func(tx *Tx) error {
		if err := tx.Create("notes", &Record{ID: "n1", Fields: map[string]any{
			"author": "avery", "body": "kept?",
		}}); err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected error")
	}

	if _, err := s.Get("notes", "n1"); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("row survived rollback: %v", err)
	}
}

func TestReadTxRejectsWrites(t *testing.T) {
	s := newTestStore(t)

	err := s.ReadTx(func(tx *Tx) error {
		return tx.Create("notes", &Record{ID: "n1", Fields: map[string]any{
			"author": "a", "body": "b",
		}})
	})
	if !errors.Is(err, errReadOnly) {
		t.Fatalf("err = %v, want errReadOnly", err)
	}
}

func TestPendingCounts(t *testing.T) {
	s := newTestStore(t)

	err := s.WriteTx(func(tx *Tx) error {
		for _, id := range []string{"a", "b", "c"} {
			if err := tx.Create("notes", &Record{ID: id, Fields: map[string]any{
				"author": "avery", "body": id,
			}}); err != nil {
				return err
			}
		}
		return tx.Create("tags", &Record{ID: "t1", Fields: map[string]any{
			"note_id": "a", "label": "x",
		}})
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	// One note acked.
	err = s.WriteTx(func(tx *Tx) error {
		rec, err := tx.Get("notes", "a")
		if err != nil {
			return err
		}
		_, err = tx.MarkSynced("notes", "a", rec.ChangedAt)
		return err
	})
	if err != nil {
		t.Fatalf("mark synced: %v", err)
	}

	counts, err := s.PendingCounts()
	if err != nil {
		t.Fatalf("PendingCounts: %v", err)
	}
	if counts["notes"] != 2 || counts["tags"] != 1 {
		t.Errorf("counts = %v, want notes:2 tags:1", counts)
	}
}

func TestCorruptSchemaVersionFailsOpen(t *testing.T) {
	dir := t.TempDir()

	s, err := Initialize(dir, testSchema(), nil)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if _, err := s.Conn().Exec(
		`UPDATE schema_info SET value = 'garbled' WHERE key = 'version'`); err != nil {
		t.Fatalf("corrupt version row: %v", err)
	}
	s.Close()

	// A version row that does not parse must fail the open, not read as a
	// fresh store.
	_, err = Open(dir, testSchema(), []Migration{{Version: 1, Description: "initial"}})
	if err == nil {
		t.Fatal("expected error opening store with corrupt version row")
	}
	if !strings.Contains(err.Error(), "schema version") {
		t.Errorf("err = %v, want a schema version parse failure", err)
	}
}
