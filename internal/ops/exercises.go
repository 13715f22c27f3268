package ops

import (
	"errors"

	"github.com/avery/liftd/internal/models"
	"github.com/avery/liftd/internal/store"
)

// GetExercise fetches one catalog exercise.
func (s *Service) GetExercise(id string) (models.Exercise, error) {
	rec, err := s.store.Get(models.TableExercises, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return models.Exercise{}, &NotFoundError{Kind: "exercise", ID: id}
		}
		return models.Exercise{}, err
	}
	return models.ExerciseFromRecord(rec), nil
}

// ListExercisesOptions filters the catalog. Empty fields match everything.
type ListExercisesOptions struct {
	Category  string
	Equipment string
	Limit     int
	Offset    int
}

// ListExercises returns catalog exercises sorted by name.
func (s *Service) ListExercises(opts ListExercisesOptions) ([]models.Exercise, error) {
	var conds []store.Cond
	if opts.Category != "" {
		conds = append(conds, store.Eq("category", opts.Category))
	}
	if opts.Equipment != "" {
		conds = append(conds, store.Eq("equipment", opts.Equipment))
	}
	recs, err := s.store.Query(models.TableExercises, conds,
		store.QueryOptions{SortBy: "name", Limit: opts.Limit, Offset: opts.Offset})
	if err != nil {
		return nil, err
	}
	out := make([]models.Exercise, len(recs))
	for i := range recs {
		out[i] = models.ExerciseFromRecord(&recs[i])
	}
	return out, nil
}

// AddExerciseParams attaches a catalog exercise to a workout. OrderIndex nil
// means append after the workout's current last exercise.
type AddExerciseParams struct {
	WorkoutID     string
	ExerciseID    string
	OrderIndex    *int
	SupersetGroup string
	Notes         string
	TargetSets    *int
	TargetReps    *int
}

// AddExercise appends an exercise to a workout. The order index must be
// unique within the workout.
func (s *Service) AddExercise(p AddExerciseParams) (models.WorkoutExercise, error) {
	userID, err := s.userID()
	if err != nil {
		return models.WorkoutExercise{}, err
	}
	if p.TargetSets != nil && *p.TargetSets <= 0 {
		return models.WorkoutExercise{}, invalidf("target_sets", "must be positive")
	}
	if p.TargetReps != nil && *p.TargetReps <= 0 {
		return models.WorkoutExercise{}, invalidf("target_reps", "must be positive")
	}

	var out models.WorkoutExercise
	err = s.store.WriteTx(func(tx *store.Tx) error {
		if _, err := s.workoutOwned(tx, userID, p.WorkoutID); err != nil {
			return err
		}
		if _, err := tx.Get(models.TableExercises, p.ExerciseID); err != nil {
			if errors.Is(err, store.ErrRecordNotFound) {
				return &NotFoundError{Kind: "exercise", ID: p.ExerciseID}
			}
			return err
		}

		existing, err := tx.Query(models.TableWorkoutExercises,
			[]store.Cond{store.Eq("workout_id", p.WorkoutID)}, store.QueryOptions{})
		if err != nil {
			return err
		}

		orderIndex := 0
		for _, rec := range existing {
			we := models.WorkoutExerciseFromRecord(&rec)
			if p.OrderIndex != nil && we.OrderIndex == *p.OrderIndex {
				return invalidf("order_index", "%d already used in workout", *p.OrderIndex)
			}
			if we.OrderIndex >= orderIndex {
				orderIndex = we.OrderIndex + 1
			}
		}
		if p.OrderIndex != nil {
			orderIndex = *p.OrderIndex
		}

		now := s.now()
		out = models.WorkoutExercise{
			ID:            newID(),
			WorkoutID:     p.WorkoutID,
			ExerciseID:    p.ExerciseID,
			OrderIndex:    orderIndex,
			SupersetGroup: p.SupersetGroup,
			Notes:         p.Notes,
			TargetSets:    p.TargetSets,
			TargetReps:    p.TargetReps,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		return tx.Create(models.TableWorkoutExercises, out.Record())
	})
	if err != nil {
		return models.WorkoutExercise{}, err
	}
	return out, nil
}

// ReorderExercise moves a workout exercise to a new position. When another
// exercise already holds that position the two swap, preserving uniqueness.
func (s *Service) ReorderExercise(id string, newIndex int) error {
	userID, err := s.userID()
	if err != nil {
		return err
	}
	if newIndex < 0 {
		return invalidf("order_index", "must not be negative")
	}

	return s.store.WriteTx(func(tx *store.Tx) error {
		we, err := s.workoutExerciseOwned(tx, userID, id)
		if err != nil {
			return err
		}
		if we.OrderIndex == newIndex {
			return nil
		}

		siblings, err := tx.Query(models.TableWorkoutExercises,
			[]store.Cond{store.Eq("workout_id", we.WorkoutID)}, store.QueryOptions{})
		if err != nil {
			return err
		}

		now := s.now()
		for _, rec := range siblings {
			other := models.WorkoutExerciseFromRecord(&rec)
			if other.ID != id && other.OrderIndex == newIndex {
				err := tx.Update(models.TableWorkoutExercises, other.ID, map[string]any{
					"order_index": we.OrderIndex,
					"updated_at":  now,
				})
				if err != nil {
					return err
				}
				break
			}
		}
		return tx.Update(models.TableWorkoutExercises, id, map[string]any{
			"order_index": newIndex,
			"updated_at":  now,
		})
	})
}

// ListWorkoutExercises returns a workout's exercises in order.
func (s *Service) ListWorkoutExercises(workoutID string) ([]models.WorkoutExercise, error) {
	userID, err := s.userID()
	if err != nil {
		return nil, err
	}

	var out []models.WorkoutExercise
	err = s.store.ReadTx(func(tx *store.Tx) error {
		if _, err := s.workoutOwned(tx, userID, workoutID); err != nil {
			return err
		}
		recs, err := tx.Query(models.TableWorkoutExercises,
			[]store.Cond{store.Eq("workout_id", workoutID)},
			store.QueryOptions{SortBy: "order_index"})
		if err != nil {
			return err
		}
		out = make([]models.WorkoutExercise, len(recs))
		for i := range recs {
			out[i] = models.WorkoutExerciseFromRecord(&recs[i])
		}
		return nil
	})
	return out, err
}

// ObserveWorkoutExercises is the live mirror of ListWorkoutExercises, with
// the same ownership check up front.
func (s *Service) ObserveWorkoutExercises(workoutID string) (<-chan []models.WorkoutExercise, func(), error) {
	userID, err := s.userID()
	if err != nil {
		return nil, nil, err
	}
	err = s.store.ReadTx(func(tx *store.Tx) error {
		_, err := s.workoutOwned(tx, userID, workoutID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	sub, err := s.store.Observe(models.TableWorkoutExercises,
		[]store.Cond{store.Eq("workout_id", workoutID)},
		store.QueryOptions{SortBy: "order_index"})
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := observeAs(sub, func(r *store.Record) models.WorkoutExercise {
		return models.WorkoutExerciseFromRecord(r)
	})
	return ch, cancel, nil
}
