package store

// The change tracker lives inside the write path (tx.go) rather than as a
// separate call site, so no mutation can commit without sync metadata.

// nextChanged produces the changedAt stamp for a mutation. changedAt must
// strictly increase across successive mutations of one record even when the
// wall clock hasn't advanced past the previous stamp (clock resolution,
// rapid edits, or a clock step backwards).
func nextChanged(now, previous int64) int64 {
	if now <= previous {
		return previous + 1
	}
	return now
}

func stampCreate(rec *Record, now int64) {
	rec.Status = StatusCreated
	rec.ChangedAt = nextChanged(now, rec.ChangedAt)
}

// stampUpdate marks an edited record updated, unless it is still created:
// a record the remote has never seen stays created through any number of
// local edits and is pushed as a single create.
func stampUpdate(rec *Record, now int64) {
	if rec.Status != StatusCreated {
		rec.Status = StatusUpdated
	}
	rec.ChangedAt = nextChanged(now, rec.ChangedAt)
}

func stampDelete(rec *Record, now int64) {
	rec.Status = StatusDeleted
	rec.ChangedAt = nextChanged(now, rec.ChangedAt)
}
