package store

import (
	"errors"
	"testing"
)

func createNote(t *testing.T, s *Store, id string) {
	t.Helper()
	err := s.WriteTx(func(tx *Tx) error {
		return tx.Create("notes", &Record{ID: id, Fields: map[string]any{
			"author": "avery", "body": "body of " + id,
		}})
	})
	if err != nil {
		t.Fatalf("create %s: %v", id, err)
	}
}

func noteAny(t *testing.T, s *Store, id string) *Record {
	t.Helper()
	var rec *Record
	err := s.ReadTx(func(tx *Tx) error {
		var err error
		rec, err = tx.GetAny("notes", id)
		return err
	})
	if err != nil {
		t.Fatalf("getAny %s: %v", id, err)
	}
	return rec
}

func TestCreateStampsMetadata(t *testing.T) {
	s := newTestStore(t)
	fixedClock(s, 1000)

	createNote(t, s, "n1")

	rec := noteAny(t, s, "n1")
	if rec.Status != StatusCreated {
		t.Errorf("status = %s, want created", rec.Status)
	}
	if rec.ChangedAt != 1000 {
		t.Errorf("changedAt = %d, want 1000", rec.ChangedAt)
	}
}

func TestChangedAtMonotonicAgainstClockSkew(t *testing.T) {
	s := newTestStore(t)
	now := fixedClock(s, 1000)

	createNote(t, s, "n1")

	// Clock goes backwards; changedAt must still advance.
	*now = 500
	for i := 0; i < 3; i++ {
		prev := noteAny(t, s, "n1").ChangedAt
		err := s.WriteTx(func(tx *Tx) error {
			return tx.Update("notes", "n1", map[string]any{"body": "edit"})
		})
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		got := noteAny(t, s, "n1").ChangedAt
		if got <= prev {
			t.Fatalf("changedAt %d not greater than previous %d", got, prev)
		}
	}
}

func TestCreatedStaysCreatedThroughEdits(t *testing.T) {
	s := newTestStore(t)
	createNote(t, s, "n1")

	err := s.WriteTx(func(tx *Tx) error {
		return tx.Update("notes", "n1", map[string]any{"body": "edited"})
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	rec := noteAny(t, s, "n1")
	if rec.Status != StatusCreated {
		t.Errorf("status = %s, want created after editing an unpushed record", rec.Status)
	}
}

func TestUpdateOfSyncedBecomesUpdated(t *testing.T) {
	s := newTestStore(t)
	createNote(t, s, "n1")

	err := s.WriteTx(func(tx *Tx) error {
		rec, err := tx.Get("notes", "n1")
		if err != nil {
			return err
		}
		if _, err := tx.MarkSynced("notes", "n1", rec.ChangedAt); err != nil {
			return err
		}
		return tx.Update("notes", "n1", map[string]any{"body": "edited"})
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	rec := noteAny(t, s, "n1")
	if rec.Status != StatusUpdated {
		t.Errorf("status = %s, want updated", rec.Status)
	}
}

func TestDeleteOfCreatedRemovesRow(t *testing.T) {
	s := newTestStore(t)
	createNote(t, s, "n1")

	err := s.WriteTx(func(tx *Tx) error {
		return tx.Delete("notes", "n1")
	})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}

	if rec := noteAny(t, s, "n1"); rec != nil {
		t.Errorf("unpushed record left a tombstone: %+v", rec)
	}
}

func TestDeleteOfSyncedLeavesTombstone(t *testing.T) {
	s := newTestStore(t)
	createNote(t, s, "n1")

	err := s.WriteTx(func(tx *Tx) error {
		rec, err := tx.Get("notes", "n1")
		if err != nil {
			return err
		}
		if _, err := tx.MarkSynced("notes", "n1", rec.ChangedAt); err != nil {
			return err
		}
		return tx.Delete("notes", "n1")
	})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}

	rec := noteAny(t, s, "n1")
	if rec == nil || rec.Status != StatusDeleted {
		t.Fatalf("expected tombstone, got %+v", rec)
	}

	// Reads must treat the tombstone as absent.
	if _, err := s.Get("notes", "n1"); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("tombstone visible to Get: %v", err)
	}

	// But the dirty set still carries it for the next push.
	var pending []Record
	s.ReadTx(func(tx *Tx) error {
		var err error
		pending, err = tx.Pending("notes")
		return err
	})
	if len(pending) != 1 || pending[0].Status != StatusDeleted {
		t.Errorf("pending = %+v, want the tombstone", pending)
	}
}

func TestCreateRejectsTombstonedID(t *testing.T) {
	s := newTestStore(t)
	createNote(t, s, "n1")

	err := s.WriteTx(func(tx *Tx) error {
		rec, err := tx.Get("notes", "n1")
		if err != nil {
			return err
		}
		if _, err := tx.MarkSynced("notes", "n1", rec.ChangedAt); err != nil {
			return err
		}
		return tx.Delete("notes", "n1")
	})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}

	err = s.WriteTx(func(tx *Tx) error {
		return tx.Create("notes", &Record{ID: "n1", Fields: map[string]any{
			"author": "avery", "body": "reborn",
		}})
	})
	if err == nil {
		t.Fatal("create over a tombstone must fail")
	}
}

func TestMarkSyncedGuardsAgainstMidFlightEdits(t *testing.T) {
	s := newTestStore(t)
	now := fixedClock(s, 1000)
	createNote(t, s, "n1")
	snapshot := noteAny(t, s, "n1").ChangedAt

	// Edit lands between push and ack.
	*now = 2000
	err := s.WriteTx(func(tx *Tx) error {
		return tx.Update("notes", "n1", map[string]any{"body": "mid-flight edit"})
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	var flipped bool
	err = s.WriteTx(func(tx *Tx) error {
		var err error
		flipped, err = tx.MarkSynced("notes", "n1", snapshot)
		return err
	})
	if err != nil {
		t.Fatalf("mark synced: %v", err)
	}
	if flipped {
		t.Error("ack flipped a record that changed after the snapshot")
	}
	if rec := noteAny(t, s, "n1"); rec.Status == StatusSynced {
		t.Error("mid-flight edit lost its dirty status")
	}
}

func TestNextChangedProperty(t *testing.T) {
	cases := []struct {
		now, prev, want int64
	}{
		{now: 100, prev: 0, want: 100},
		{now: 100, prev: 99, want: 100},
		{now: 100, prev: 100, want: 101},
		{now: 100, prev: 250, want: 251},
	}
	for _, tc := range cases {
		if got := nextChanged(tc.now, tc.prev); got != tc.want {
			t.Errorf("nextChanged(%d, %d) = %d, want %d", tc.now, tc.prev, got, tc.want)
		}
	}
}
