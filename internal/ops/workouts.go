package ops

import (
	"github.com/avery/liftd/internal/models"
	"github.com/avery/liftd/internal/store"
)

// CreateWorkoutParams are the caller-supplied fields for a new workout.
// StartedAt defaults to now; the nutrition phase is snapshotted from the
// user's current setting at creation time.
type CreateWorkoutParams struct {
	Title     string
	Notes     string
	StartedAt int64
}

// CreateWorkout starts a new training session for the current user.
func (s *Service) CreateWorkout(p CreateWorkoutParams) (models.Workout, error) {
	userID, err := s.userID()
	if err != nil {
		return models.Workout{}, err
	}

	now := s.now()
	w := models.Workout{
		ID:             newID(),
		UserID:         userID,
		StartedAt:      p.StartedAt,
		Title:          p.Title,
		Notes:          p.Notes,
		NutritionPhase: models.PhaseMaintenance,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if w.StartedAt == 0 {
		w.StartedAt = now
	}
	if w.StartedAt > now {
		return models.Workout{}, invalidf("started_at", "cannot be in the future")
	}

	err = s.store.WriteTx(func(tx *store.Tx) error {
		if u, err := s.currentUser(tx, userID); err != nil {
			return err
		} else if u != nil && u.NutritionPhase != "" {
			w.NutritionPhase = u.NutritionPhase
		}
		return tx.Create(models.TableWorkouts, w.Record())
	})
	if err != nil {
		return models.Workout{}, err
	}
	return w, nil
}

// CompleteWorkout stamps the completion time and derives the duration from
// the start time. Completing twice is rejected.
func (s *Service) CompleteWorkout(id string) (models.Workout, error) {
	userID, err := s.userID()
	if err != nil {
		return models.Workout{}, err
	}

	var out models.Workout
	err = s.store.WriteTx(func(tx *store.Tx) error {
		w, err := s.workoutOwned(tx, userID, id)
		if err != nil {
			return err
		}
		if w.CompletedAt != nil {
			return invalidf("workout", "already completed")
		}

		now := s.now()
		duration := (now - w.StartedAt) / 1000
		if duration < 0 {
			duration = 0
		}
		err = tx.Update(models.TableWorkouts, id, map[string]any{
			"completed_at":     now,
			"duration_seconds": duration,
			"updated_at":       now,
		})
		if err != nil {
			return err
		}
		w.CompletedAt = &now
		w.DurationSeconds = &duration
		w.UpdatedAt = now
		out = w
		return nil
	})
	return out, err
}

// UpdateWorkoutParams carries optional edits; nil pointers leave the stored
// value alone.
type UpdateWorkoutParams struct {
	Title *string
	Notes *string
}

// UpdateWorkout edits a workout's annotations.
func (s *Service) UpdateWorkout(id string, p UpdateWorkoutParams) (models.Workout, error) {
	userID, err := s.userID()
	if err != nil {
		return models.Workout{}, err
	}

	var out models.Workout
	err = s.store.WriteTx(func(tx *store.Tx) error {
		if _, err := s.workoutOwned(tx, userID, id); err != nil {
			return err
		}
		fields := map[string]any{"updated_at": s.now()}
		if p.Title != nil {
			fields["title"] = *p.Title
		}
		if p.Notes != nil {
			fields["notes"] = *p.Notes
		}
		if err := tx.Update(models.TableWorkouts, id, fields); err != nil {
			return err
		}
		rec, err := tx.Get(models.TableWorkouts, id)
		if err != nil {
			return err
		}
		out = models.WorkoutFromRecord(rec)
		return nil
	})
	return out, err
}

// DeleteWorkout removes a workout and everything under it: its exercises and
// their sets, in one transaction, children first.
func (s *Service) DeleteWorkout(id string) error {
	userID, err := s.userID()
	if err != nil {
		return err
	}

	return s.store.WriteTx(func(tx *store.Tx) error {
		if _, err := s.workoutOwned(tx, userID, id); err != nil {
			return err
		}

		wes, err := tx.Query(models.TableWorkoutExercises,
			[]store.Cond{store.Eq("workout_id", id)}, store.QueryOptions{})
		if err != nil {
			return err
		}
		for _, we := range wes {
			sets, err := tx.Query(models.TableExerciseSets,
				[]store.Cond{store.Eq("workout_exercise_id", we.ID)}, store.QueryOptions{})
			if err != nil {
				return err
			}
			for _, set := range sets {
				if err := tx.Delete(models.TableExerciseSets, set.ID); err != nil {
					return err
				}
			}
			if err := tx.Delete(models.TableWorkoutExercises, we.ID); err != nil {
				return err
			}
		}
		return tx.Delete(models.TableWorkouts, id)
	})
}

// GetWorkout fetches one workout owned by the current user.
func (s *Service) GetWorkout(id string) (models.Workout, error) {
	userID, err := s.userID()
	if err != nil {
		return models.Workout{}, err
	}
	var out models.Workout
	err = s.store.ReadTx(func(tx *store.Tx) error {
		w, err := s.workoutOwned(tx, userID, id)
		if err != nil {
			return err
		}
		out = w
		return nil
	})
	return out, err
}

// ListWorkoutsOptions filters and pages the workout list.
type ListWorkoutsOptions struct {
	Limit  int
	Offset int
}

// ListWorkouts returns the current user's workouts, newest first.
func (s *Service) ListWorkouts(opts ListWorkoutsOptions) ([]models.Workout, error) {
	userID, err := s.userID()
	if err != nil {
		return nil, err
	}
	recs, err := s.store.Query(models.TableWorkouts,
		[]store.Cond{store.Eq("user_id", userID)},
		store.QueryOptions{SortBy: "started_at", SortDesc: true, Limit: opts.Limit, Offset: opts.Offset})
	if err != nil {
		return nil, err
	}
	out := make([]models.Workout, len(recs))
	for i := range recs {
		out[i] = models.WorkoutFromRecord(&recs[i])
	}
	return out, nil
}

// ObserveWorkouts is the live mirror of ListWorkouts: the current result set
// immediately, then again after every commit touching workouts.
func (s *Service) ObserveWorkouts() (<-chan []models.Workout, func(), error) {
	userID, err := s.userID()
	if err != nil {
		return nil, nil, err
	}
	sub, err := s.store.Observe(models.TableWorkouts,
		[]store.Cond{store.Eq("user_id", userID)},
		store.QueryOptions{SortBy: "started_at", SortDesc: true})
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := observeAs(sub, func(r *store.Record) models.Workout {
		return models.WorkoutFromRecord(r)
	})
	return ch, cancel, nil
}
