package syncserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	gosync "sync"
	"time"

	"github.com/avery/liftd/internal/sync"
)

// Server is the reference sync server: the WatermelonDB-style pull/push
// protocol over an in-memory table set. It exists for development, tests, and
// self-hosting a single household; durability is out of scope.
type Server struct {
	config Config
	http   *http.Server

	mu gosync.Mutex
	// rows holds every record the server has ever accepted, tombstones
	// included, keyed by table then id.
	rows map[string]map[string]*serverRecord
	// lastTimestamp is the high-water mark handed out by stamp. Strictly
	// monotonic so pull checkpoints never miss a write.
	lastTimestamp int64
}

// Config configures the server.
type Config struct {
	ListenAddr string
	// APIKey, when set, is required as a Bearer token on every sync route.
	APIKey string
}

type serverRecord struct {
	fields    sync.WireRecord
	createdAt int64 // server stamp when first accepted
	changedAt int64 // server stamp of last accepted write or delete
	deleted   bool
	device    string // device whose push produced the current state
}

// NewServer creates a server with an empty dataset.
func NewServer(cfg Config) *Server {
	s := &Server{
		config: cfg,
		rows:   make(map[string]map[string]*serverRecord),
	}
	s.http = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      s.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Handler exposes the routed handler for httptest servers.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start begins listening for HTTP requests (non-blocking).
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	go func() {
		if err := s.http.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("http server", "err", err)
		}
	}()
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /v1/sync/pull_changes", s.requireAuth(s.handlePull))
	mux.HandleFunc("POST /v1/sync/push_changes", s.requireAuth(s.handlePush))
	return mux
}

func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.config.APIKey != "" && r.Header.Get("Authorization") != "Bearer "+s.config.APIKey {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid or missing API key")
			return
		}
		next(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// stamp hands out the next server timestamp. Wall clock when it is ahead,
// high-water mark plus one when it is not; two writes never share a stamp.
// Caller holds s.mu.
func (s *Server) stamp() int64 {
	now := time.Now().UnixMilli()
	if now <= s.lastTimestamp {
		now = s.lastTimestamp + 1
	}
	s.lastTimestamp = now
	return now
}

// handlePull returns every change accepted after the client's checkpoint,
// plus the current server timestamp as the next checkpoint.
func (s *Server) handlePull(w http.ResponseWriter, r *http.Request) {
	since, err := parseInt64Param(r, "last_pulled_at")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	changes := make(sync.Changes)
	for table, recs := range s.rows {
		tc := &sync.TableChanges{}
		for id, rec := range recs {
			if rec.changedAt <= since {
				continue
			}
			switch {
			case rec.deleted:
				tc.Deleted = append(tc.Deleted, id)
			case rec.createdAt > since:
				tc.Created = append(tc.Created, rec.wire(id))
			default:
				tc.Updated = append(tc.Updated, rec.wire(id))
			}
		}
		if len(tc.Created)+len(tc.Updated)+len(tc.Deleted) > 0 {
			changes[table] = tc
		}
	}

	// The checkpoint must cover everything in this response without covering
	// writes that land after it, so advance the clock and hand that out.
	ts := s.stamp()
	slog.Debug("pull served", "since", since, "tables", len(changes), "timestamp", ts)
	writeJSON(w, http.StatusOK, sync.PullResponse{Changes: changes, Timestamp: ts})
}

// handlePush accepts one batch of client changes. A client whose checkpoint
// predates the latest accepted write gets a 409 and must pull first.
func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	var req sync.PushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}

	device := r.Header.Get("X-Device-ID")

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.staleLocked(req.LastPulledAt, device) {
		writeError(w, http.StatusConflict, "stale_push",
			"server has changes the client has not pulled")
		return
	}

	var accepted int
	for table, tc := range req.Changes {
		if tc == nil {
			continue
		}
		for _, wire := range tc.Created {
			if s.upsertLocked(table, wire, device) {
				accepted++
			}
		}
		for _, wire := range tc.Updated {
			if s.upsertLocked(table, wire, device) {
				accepted++
			}
		}
		for _, id := range tc.Deleted {
			s.deleteLocked(table, id, device)
			accepted++
		}
	}

	slog.Debug("push accepted", "records", accepted)
	writeJSON(w, http.StatusOK, map[string]int{"accepted": accepted})
}

// staleLocked reports whether another device's write postdates the client's
// checkpoint. The pushing device's own writes don't count: every batch of a
// multi-batch push carries the same checkpoint, and a device already knows
// the state it pushed. A client that sends no device id sees every write as
// foreign. Caller holds s.mu.
func (s *Server) staleLocked(lastPulledAt int64, device string) bool {
	for _, recs := range s.rows {
		for _, rec := range recs {
			if rec.changedAt > lastPulledAt && (device == "" || rec.device != device) {
				return true
			}
		}
	}
	return false
}

// upsertLocked applies one pushed record, restamping it with server time. A
// push resurrects a tombstone: deletion lost against a concurrent edit is the
// resolution rule on both ends of the protocol.
func (s *Server) upsertLocked(table string, wire sync.WireRecord, device string) bool {
	id, _ := wire["id"].(string)
	if id == "" {
		return false
	}

	recs := s.rows[table]
	if recs == nil {
		recs = make(map[string]*serverRecord)
		s.rows[table] = recs
	}

	fields := make(sync.WireRecord, len(wire))
	for k, v := range wire {
		if k == "id" || k == "_changed" || k == "_status" {
			continue
		}
		fields[k] = v
	}

	ts := s.stamp()
	if existing, ok := recs[id]; ok {
		existing.fields = fields
		existing.changedAt = ts
		existing.deleted = false
		existing.device = device
		return true
	}
	recs[id] = &serverRecord{fields: fields, createdAt: ts, changedAt: ts, device: device}
	return true
}

// deleteLocked tombstones a record. Deleting what was never pushed still
// records the tombstone, so other devices converge regardless of ordering.
func (s *Server) deleteLocked(table, id, device string) {
	recs := s.rows[table]
	if recs == nil {
		recs = make(map[string]*serverRecord)
		s.rows[table] = recs
	}
	ts := s.stamp()
	if existing, ok := recs[id]; ok {
		existing.deleted = true
		existing.changedAt = ts
		existing.fields = nil
		existing.device = device
		return
	}
	recs[id] = &serverRecord{createdAt: ts, changedAt: ts, deleted: true, device: device}
}

func (rec *serverRecord) wire(id string) sync.WireRecord {
	out := make(sync.WireRecord, len(rec.fields)+2)
	for k, v := range rec.fields {
		out[k] = v
	}
	out["id"] = id
	out["_changed"] = rec.changedAt
	return out
}

func parseInt64Param(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	var v int64
	if _, err := fmt.Sscanf(raw, "%d", &v); err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return v, nil
}

// apiError is the structured error body.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, apiError{Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("write json response", "err", err)
	}
}
