package sync

import (
	"context"
	"errors"
)

// WireRecord is a record as it travels over the sync protocol: the flattened
// field map plus "id" and "_changed". The server echoes fields it does not
// know, so schema version skew degrades gracefully in both directions.
type WireRecord map[string]any

// TableChanges groups one table's changes in a pull response or push request.
// Deleted carries bare ids; a deletion has no fields left worth shipping.
type TableChanges struct {
	Created []WireRecord `json:"created"`
	Updated []WireRecord `json:"updated"`
	Deleted []string     `json:"deleted"`
}

func (tc *TableChanges) empty() bool {
	return tc == nil || (len(tc.Created) == 0 && len(tc.Updated) == 0 && len(tc.Deleted) == 0)
}

// Changes maps table name to that table's change set.
type Changes map[string]*TableChanges

// PullResponse is everything that changed on the server since the client's
// checkpoint, plus the server timestamp to persist as the next checkpoint.
type PullResponse struct {
	Changes   Changes `json:"changes"`
	Timestamp int64   `json:"timestamp"`
}

// PushRequest carries one batch of local changes. LastPulledAt lets the
// server reject pushes from a client that has not seen its latest state.
type PushRequest struct {
	Changes      Changes `json:"changes"`
	LastPulledAt int64   `json:"last_pulled_at"`
}

// Remote is the server side of the protocol. The HTTP client implements it;
// tests substitute in-memory fakes.
type Remote interface {
	PullChanges(ctx context.Context, lastPulledAt int64, schemaVersion int) (*PullResponse, error)
	PushChanges(ctx context.Context, req *PushRequest) error
}

// Sentinel errors surfaced by Remote implementations. The engine reacts to
// ErrStalePush by re-pulling; everything else fails the cycle.
var (
	// ErrStalePush means the server advanced past the client's checkpoint
	// between pull and push. Pull again, merge, push again.
	ErrStalePush = errors.New("push rejected: client state is stale")

	// ErrUnauthorized means the credentials were refused.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUnavailable wraps transport failures: the device is offline or the
	// server is unreachable. Local work is unaffected.
	ErrUnavailable = errors.New("sync server unavailable")
)

// State is the engine's cycle position, exposed for status surfaces.
type State string

const (
	StateIdle     State = "idle"
	StatePulling  State = "pulling"
	StateApplying State = "applying"
	StatePushing  State = "pushing"
	StateAcking   State = "acking"
	StateFailed   State = "failed"
)

// Report summarises a completed cycle.
type Report struct {
	// Pulled counts remote changes received, applied or not.
	Pulled int
	// Applied counts remote changes that won their conflict check locally.
	Applied int
	// Pushed counts local changes shipped to the server.
	Pushed int
	// Confirmed counts records flipped to synced or purged after their batch
	// was acknowledged. Lower than Pushed when edits landed mid-flight.
	Confirmed int
	// Batches counts push requests sent.
	Batches int
	// Timestamp is the new pull checkpoint.
	Timestamp int64
}
