package store

import (
	"testing"
	"time"
)

func recvRecords(t *testing.T, ch <-chan []Record) []Record {
	t.Helper()
	select {
	case recs, ok := <-ch:
		if !ok {
			t.Fatal("subscription channel closed")
		}
		return recs
	case <-time.After(2 * time.Second):
		t.Fatal("no emission within timeout")
	}
	return nil
}

func TestObserveEmitsInitialResultSet(t *testing.T) {
	s := newTestStore(t)
	seedNotes(t, s)

	sub, err := s.Observe("notes", []Cond{Eq("author", "avery")}, QueryOptions{})
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	defer sub.Cancel()

	recs := recvRecords(t, sub.C)
	if got := ids(recs); len(got) != 2 {
		t.Errorf("initial emission = %v, want n1 n2", got)
	}
}

func TestObserveEmitsAfterCommit(t *testing.T) {
	s := newTestStore(t)
	seedNotes(t, s)

	sub, err := s.Observe("notes", []Cond{Eq("author", "avery")}, QueryOptions{})
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	defer sub.Cancel()
	recvRecords(t, sub.C) // initial

	createNote(t, s, "n9") // author avery

	recs := recvRecords(t, sub.C)
	found := false
	for _, r := range recs {
		if r.ID == "n9" {
			found = true
		}
	}
	if !found {
		t.Errorf("post-commit emission %v missing n9", ids(recs))
	}
}

func TestObserveDoesNotEmitForOtherTables(t *testing.T) {
	s := newTestStore(t)
	seedNotes(t, s)

	sub, err := s.Observe("tags", nil, QueryOptions{})
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	defer sub.Cancel()
	recvRecords(t, sub.C) // initial

	createNote(t, s, "n9")

	select {
	case recs := <-sub.C:
		t.Errorf("tags observer woken by notes write: %v", ids(recs))
	case <-time.After(100 * time.Millisecond):
	}
}

func TestObserveConflatesWhenConsumerLagsBehind(t *testing.T) {
	s := newTestStore(t)

	sub, err := s.Observe("notes", nil, QueryOptions{})
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	defer sub.Cancel()

	// Nobody reads while several commits land.
	for _, id := range []string{"a", "b", "c", "d"} {
		createNote(t, s, id)
	}

	// The single buffered emission must be the newest snapshot.
	recs := recvRecords(t, sub.C)
	if len(recs) != 4 {
		t.Errorf("conflated emission has %d records, want the final 4", len(recs))
	}
}

func TestObserveRejectsBadPredicateEagerly(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Observe("notes", []Cond{Eq("body", "x")}, QueryOptions{}); err == nil {
		t.Fatal("expected predicate validation error at Observe time")
	}
}

func TestCancelIsIdempotentAndClosesChannel(t *testing.T) {
	s := newTestStore(t)

	sub, err := s.Observe("notes", nil, QueryOptions{})
	if err != nil {
		t.Fatalf("observe: %v", err)
	}

	sub.Cancel()
	sub.Cancel()

	// Drain the initial emission, then expect a closed channel.
	for {
		if _, ok := <-sub.C; !ok {
			break
		}
	}

	// Writes after cancel must not panic on a closed channel.
	createNote(t, s, "after-cancel")
}

func TestCloseAllOnStoreClose(t *testing.T) {
	s, err := Initialize(t.TempDir(), testSchema(), nil)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	sub, err := s.Observe("notes", nil, QueryOptions{})
	if err != nil {
		t.Fatalf("observe: %v", err)
	}

	s.Close()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-sub.C:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("channel not closed by store Close")
		}
	}
}
