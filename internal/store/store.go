package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const dbFile = ".liftd/workouts.db"

// Store wraps the local database: schema-versioned tables, a single-writer
// transaction path with change tracking, and the observation registry.
// It is opened once at application start and shared by every component.
type Store struct {
	conn    *sql.DB
	baseDir string
	schema  Schema

	// writeMu serializes write transactions within the process; the file
	// lock in lock.go extends the same guarantee across processes.
	writeMu sync.Mutex

	obs *registry

	// Clock returns the current time in epoch milliseconds. Tests override
	// it to drive the change tracker deterministically.
	Clock func() int64
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// Open opens an existing store and migrates it forward if the persisted
// schema version is behind the supplied schema. A persisted version ahead of
// the code fails: downgrades are unsupported. Any migration failure leaves
// the store unopened.
func Open(baseDir string, schema Schema, migrations []Migration) (*Store, error) {
	dbPath := filepath.Join(baseDir, dbFile)

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("store not found: run 'liftd init' first")
	}

	conn, err := openConn(dbPath)
	if err != nil {
		return nil, err
	}

	s := &Store{conn: conn, baseDir: baseDir, schema: schema, obs: newRegistry(), Clock: nowMillis}

	if err := s.ensureInternalTables(); err != nil {
		conn.Close()
		return nil, err
	}
	if err := s.migrate(migrations); err != nil {
		conn.Close()
		return nil, err
	}

	return s, nil
}

// Initialize creates the store directory and database, lays down the full
// schema at its current version, and returns the opened store.
func Initialize(baseDir string, schema Schema, migrations []Migration) (*Store, error) {
	dbPath := filepath.Join(baseDir, dbFile)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	conn, err := openConn(dbPath)
	if err != nil {
		return nil, err
	}

	s := &Store{conn: conn, baseDir: baseDir, schema: schema, obs: newRegistry(), Clock: nowMillis}

	if err := s.createSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	if err := s.migrate(migrations); err != nil {
		conn.Close()
		return nil, err
	}

	return s, nil
}

func openConn(dbPath string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL lets readers proceed against the last committed snapshot while a
	// write transaction is in flight.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Busy timeout as fallback protection (500ms, matches lock timeout)
	if _, err := conn.Exec("PRAGMA busy_timeout=500"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	// Slightly faster writes, still safe with WAL
	conn.Exec("PRAGMA synchronous=NORMAL")

	return conn, nil
}

// createSchema lays down the app tables plus the store's internal tables.
func (s *Store) createSchema() error {
	for _, t := range s.schema.Tables {
		if _, err := s.conn.Exec(createTableSQL(t)); err != nil {
			return fmt.Errorf("create table %s: %w", t.Name, err)
		}
		for _, stmt := range createIndexSQL(t) {
			if _, err := s.conn.Exec(stmt); err != nil {
				return fmt.Errorf("create index on %s: %w", t.Name, err)
			}
		}
	}

	if err := s.ensureInternalTables(); err != nil {
		return err
	}

	if err := s.setSchemaVersion(s.schema.Version); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	return nil
}

// ensureInternalTables creates the store's bookkeeping tables. Idempotent,
// and never touches the schema version.
func (s *Store) ensureInternalTables() error {
	if _, err := s.conn.Exec(`CREATE TABLE IF NOT EXISTS schema_info (key TEXT PRIMARY KEY, value TEXT NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_info: %w", err)
	}
	if _, err := s.conn.Exec(`
		CREATE TABLE IF NOT EXISTS sync_state (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			last_pulled_at INTEGER NOT NULL DEFAULT 0,
			last_sync_at TEXT NOT NULL DEFAULT ''
		)`); err != nil {
		return fmt.Errorf("create sync_state: %w", err)
	}
	if _, err := s.conn.Exec(`INSERT OR IGNORE INTO sync_state (id) VALUES (1)`); err != nil {
		return fmt.Errorf("seed sync_state: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	s.obs.closeAll()
	return s.conn.Close()
}

// BaseDir returns the base directory the store lives under.
func (s *Store) BaseDir() string {
	return s.baseDir
}

// Schema returns the schema the store was opened with.
func (s *Store) Schema() Schema {
	return s.schema
}

// Conn exposes the raw connection for internal tooling and tests.
func (s *Store) Conn() *sql.DB {
	return s.conn
}

// WriteTx runs fn inside a write transaction. All mutations commit or roll
// back together; writes serialize through the in-process mutex and the
// cross-process file lock. On commit, observers of every touched table are
// notified against the new snapshot.
func (s *Store) WriteTx(fn func(tx *Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var touched map[string]bool
	err := s.withWriteLock(func() error {
		sqlTx, err := s.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin write tx: %w", err)
		}

		tx := &Tx{tx: sqlTx, store: s, writable: true, touched: make(map[string]bool)}
		if err := fn(tx); err != nil {
			sqlTx.Rollback()
			return err
		}
		if err := sqlTx.Commit(); err != nil {
			return fmt.Errorf("commit write tx: %w", err)
		}
		touched = tx.touched
		return nil
	})
	if err != nil {
		return err
	}

	s.obs.notify(s, touched)
	return nil
}

// ReadTx runs fn inside a read-only transaction against the last committed
// snapshot. Mutating methods on the Tx fail.
func (s *Store) ReadTx(fn func(tx *Tx) error) error {
	sqlTx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin read tx: %w", err)
	}
	defer sqlTx.Rollback()

	tx := &Tx{tx: sqlTx, store: s, writable: false}
	return fn(tx)
}

// Query is a one-shot read outside any explicit transaction.
func (s *Store) Query(table string, conds []Cond, opts QueryOptions) ([]Record, error) {
	var out []Record
	err := s.ReadTx(func(tx *Tx) error {
		var err error
		out, err = tx.Query(table, conds, opts)
		return err
	})
	return out, err
}

// Get is a one-shot fetch by id, excluding tombstones.
func (s *Store) Get(table, id string) (*Record, error) {
	var rec *Record
	err := s.ReadTx(func(tx *Tx) error {
		var err error
		rec, err = tx.Get(table, id)
		return err
	})
	return rec, err
}

// PendingCounts returns, per table, the number of records whose status is
// not yet synced. Drives the offline/pending indicator.
func (s *Store) PendingCounts() (map[string]int, error) {
	counts := make(map[string]int)
	for _, t := range s.schema.Tables {
		var n int
		err := s.conn.QueryRow(
			fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE _status != ?`, t.Name), string(StatusSynced),
		).Scan(&n)
		if err != nil {
			return nil, fmt.Errorf("count pending %s: %w", t.Name, err)
		}
		counts[t.Name] = n
	}
	return counts, nil
}

func (s *Store) getSchemaVersion() (int, error) {
	var version string
	err := s.conn.QueryRow("SELECT value FROM schema_info WHERE key = 'version'").Scan(&version)
	if err == sql.ErrNoRows {
		// No version row yet means a fresh store; schema_info itself always
		// exists because ensureInternalTables runs before migration.
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(version)
	if err != nil {
		return 0, fmt.Errorf("schema version %q is not a number", version)
	}
	return v, nil
}

func (s *Store) setSchemaVersion(version int) error {
	_, err := s.conn.Exec(`INSERT OR REPLACE INTO schema_info (key, value) VALUES ('version', ?)`,
		fmt.Sprintf("%d", version))
	return err
}
