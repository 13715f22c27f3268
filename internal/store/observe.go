package store

import (
	"sync"
)

// Subscription is a live query handle. Results arrives on C as a fresh
// slice; Cancel is idempotent and closes C, after which nothing is emitted.
type Subscription struct {
	// C carries the latest full result set. Emissions are conflated: a
	// consumer that falls behind sees only the newest snapshot, never a
	// stale intermediate one, and never blocks a committing writer.
	C <-chan []Record

	cancel func()
	once   sync.Once
}

// Cancel detaches the subscription and closes its channel.
func (s *Subscription) Cancel() {
	s.once.Do(s.cancel)
}

type observer struct {
	id    int64
	table string
	conds []Cond
	opts  QueryOptions
	ch    chan []Record
}

// registry holds the active observers per table. Notification runs
// synchronously on the committing goroutine, immediately after commit, so
// every observer sees commits in commit order.
type registry struct {
	mu     sync.Mutex
	nextID int64
	byTab  map[string][]*observer
}

func newRegistry() *registry {
	return &registry{byTab: make(map[string][]*observer)}
}

// Observe registers a continuous query. The current result set is emitted
// immediately, then again after every committed write touching the table.
func (s *Store) Observe(table string, conds []Cond, opts QueryOptions) (*Subscription, error) {
	// Validate eagerly so a bad predicate fails at the call site, not on
	// the first commit.
	initial, err := s.Query(table, conds, opts)
	if err != nil {
		return nil, err
	}

	s.obs.mu.Lock()
	s.obs.nextID++
	o := &observer{
		id:    s.obs.nextID,
		table: table,
		conds: conds,
		opts:  opts,
		ch:    make(chan []Record, 1),
	}
	s.obs.byTab[table] = append(s.obs.byTab[table], o)
	o.emit(initial)
	s.obs.mu.Unlock()

	sub := &Subscription{C: o.ch}
	sub.cancel = func() { s.obs.remove(o) }
	return sub, nil
}

// emit delivers a result set with conflation. Caller holds registry.mu, so
// emit never races with remove closing the channel.
func (o *observer) emit(recs []Record) {
	for {
		select {
		case o.ch <- recs:
			return
		default:
			// Channel full: drop the stale snapshot and retry.
			select {
			case <-o.ch:
			default:
			}
		}
	}
}

func (r *registry) remove(o *observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	obs := r.byTab[o.table]
	for i, cand := range obs {
		if cand.id == o.id {
			r.byTab[o.table] = append(obs[:i], obs[i+1:]...)
			close(o.ch)
			return
		}
	}
}

// notify re-runs every observer of the touched tables against the freshly
// committed snapshot. Coarse-grained by design: any write to a table
// re-evaluates all of that table's queries.
func (r *registry) notify(s *Store, touched map[string]bool) {
	if len(touched) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for table := range touched {
		for _, o := range r.byTab[table] {
			recs, err := s.Query(o.table, o.conds, o.opts)
			if err != nil {
				// The predicate validated at Observe time; a failure here
				// means the store is going away. Skip the emission.
				continue
			}
			o.emit(recs)
		}
	}
}

func (r *registry) closeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for table, obs := range r.byTab {
		for _, o := range obs {
			close(o.ch)
		}
		delete(r.byTab, table)
	}
}
