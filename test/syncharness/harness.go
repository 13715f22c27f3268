// Package syncharness runs multi-device sync scenarios: several stores, each
// with its own engine, converging through one in-process sync server.
package syncharness

import (
	"context"
	"database/sql"
	"fmt"
	"net/http/httptest"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/avery/liftd/internal/catalog"
	"github.com/avery/liftd/internal/models"
	"github.com/avery/liftd/internal/ops"
	"github.com/avery/liftd/internal/session"
	"github.com/avery/liftd/internal/store"
	"github.com/avery/liftd/internal/sync"
	"github.com/avery/liftd/internal/syncclient"
	"github.com/avery/liftd/internal/syncserver"
)

// sharedUserID is the account every simulated device signs in as.
const sharedUserID = "user-1"

// Device is one simulated client: its own store directory, service, and
// engine, all pointed at the harness server.
type Device struct {
	Name    string
	Dir     string
	Store   *store.Store
	Service *ops.Service
	Engine  *sync.Engine
}

// Harness wires devices to a single in-memory sync server over real HTTP.
type Harness struct {
	t       *testing.T
	Devices map[string]*Device
	order   []string
}

// NewHarness creates a server and one device per name.
func NewHarness(t *testing.T, names ...string) *Harness {
	t.Helper()

	srv := syncserver.NewServer(syncserver.Config{})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	h := &Harness{t: t, Devices: make(map[string]*Device)}
	for _, name := range names {
		dir := t.TempDir()
		st, err := store.Initialize(dir, models.Schema(), models.Migrations())
		if err != nil {
			t.Fatalf("initialize device %s: %v", name, err)
		}
		t.Cleanup(func() { st.Close() })

		remote := syncclient.New(ts.URL, "", "device-"+name)
		h.Devices[name] = &Device{
			Name:    name,
			Dir:     dir,
			Store:   st,
			Service: ops.NewService(st, session.Static(sharedUserID)),
			Engine:  sync.New(st, remote, models.SyncTables, sync.Options{}),
		}
		h.order = append(h.order, name)
	}
	return h
}

// Device returns the named device, failing the test if it does not exist.
func (h *Harness) Device(name string) *Device {
	h.t.Helper()
	d, ok := h.Devices[name]
	if !ok {
		h.t.Fatalf("unknown device %q", name)
	}
	return d
}

// Sync runs one full cycle on the named device.
func (h *Harness) Sync(name string) *sync.Report {
	h.t.Helper()
	report, err := h.Device(name).Engine.Sync(context.Background())
	if err != nil {
		h.t.Fatalf("sync %s: %v", name, err)
	}
	return report
}

// SyncAll runs one cycle per device in creation order, twice, so every device
// has seen every other device's pushes.
func (h *Harness) SyncAll() {
	h.t.Helper()
	for i := 0; i < 2; i++ {
		for _, name := range h.order {
			h.Sync(name)
		}
	}
}

// SeedCatalog imports the same catalog entries on every device, the way each
// real device loads the bundled catalog file at init. Import stamps rows with
// the device clock, so the clock is pinned during the import to keep the
// reference data byte-identical across devices.
func (h *Harness) SeedCatalog(entries ...catalog.Entry) {
	h.t.Helper()
	for _, name := range h.order {
		st := h.Device(name).Store
		clock := st.Clock
		st.Clock = func() int64 { return 1 }
		if _, err := catalog.Import(st, entries); err != nil {
			h.t.Fatalf("seed catalog on %s: %v", name, err)
		}
		st.Clock = clock
	}
}

// rawDB opens a device's database file directly, bypassing the store layer,
// to inspect tracking columns the public API hides.
func (h *Harness) rawDB(name string) *sql.DB {
	h.t.Helper()
	path := filepath.Join(h.Device(name).Dir, ".liftd", "workouts.db")
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		h.t.Fatalf("open raw db for %s: %v", name, err)
	}
	h.t.Cleanup(func() { db.Close() })
	return db
}

// RawStatus reads a row's tracking status straight from disk. Returns "" when
// the row does not exist at all, tombstones included.
func (h *Harness) RawStatus(name, table, id string) string {
	h.t.Helper()
	db := h.rawDB(name)
	var status string
	err := db.QueryRow(fmt.Sprintf("SELECT _status FROM %s WHERE id = ?", table), id).Scan(&status)
	if err == sql.ErrNoRows {
		return ""
	}
	if err != nil {
		h.t.Fatalf("raw status %s/%s on %s: %v", table, id, name, err)
	}
	return status
}

// RawCount counts physical rows in a table, tombstones included.
func (h *Harness) RawCount(name, table string) int {
	h.t.Helper()
	db := h.rawDB(name)
	var n int
	if err := db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&n); err != nil {
		h.t.Fatalf("raw count %s on %s: %v", table, name, err)
	}
	return n
}

// AssertConverged verifies every device holds identical data in every synced
// table. The _changed stamps legitimately differ per device (the pusher keeps
// its local stamp, pullers get the server's), so they are excluded; _status
// must be synced everywhere after a full exchange.
func (h *Harness) AssertConverged() {
	h.t.Helper()
	if len(h.order) < 2 {
		return
	}

	for _, table := range models.SyncTables {
		ref := h.dumpTable(h.order[0], table)
		for _, name := range h.order[1:] {
			got := h.dumpTable(name, table)
			if got != ref {
				h.t.Fatalf("divergence in %q between %s and %s:\n--- %s ---\n%s\n--- %s ---\n%s",
					table, h.order[0], name, h.order[0], ref, name, got)
			}
		}
	}
}

func (h *Harness) dumpTable(name, table string) string {
	h.t.Helper()
	db := h.rawDB(name)

	rows, err := db.Query(fmt.Sprintf("SELECT * FROM %s ORDER BY id", table))
	if err != nil {
		h.t.Fatalf("dump %s on %s: %v", table, name, err)
	}
	defer rows.Close()

	raw, err := rows.Columns()
	if err != nil {
		h.t.Fatalf("columns of %s: %v", table, err)
	}
	idx := make(map[string]int, len(raw))
	for i, c := range raw {
		idx[c] = i
	}
	// Columns may return the driver's own slice; sort a copy.
	cols := append([]string(nil), raw...)
	sort.Strings(cols)

	var sb strings.Builder
	for rows.Next() {
		vals := make([]any, len(raw))
		ptrs := make([]any, len(raw))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			h.t.Fatalf("scan %s: %v", table, err)
		}
		var parts []string
		for _, c := range cols {
			if c == "_changed" {
				continue
			}
			v := vals[idx[c]]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			parts = append(parts, fmt.Sprintf("%s=%v", c, v))
		}
		sb.WriteString(strings.Join(parts, " | "))
		sb.WriteString("\n")
	}
	return sb.String()
}
