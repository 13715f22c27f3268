package ops

import (
	"github.com/avery/liftd/internal/models"
	"github.com/avery/liftd/internal/store"
)

func validateWeight(w *float64) error {
	if w != nil && *w <= 0 {
		return invalidf("weight", "must be positive")
	}
	return nil
}

func validateRPE(rpe *float64) error {
	if rpe != nil && (*rpe < 1 || *rpe > 10) {
		return invalidf("rpe", "must be between 1 and 10")
	}
	return nil
}

func validateRIR(rir *int) error {
	if rir != nil && (*rir < 0 || *rir > 5) {
		return invalidf("rir", "must be between 0 and 5")
	}
	return nil
}

func validateReps(reps *int) error {
	if reps != nil && *reps <= 0 {
		return invalidf("reps", "must be positive")
	}
	return nil
}

// LogSetParams records one performed set. SetNumber 0 means append after the
// highest existing set number. WeightUnit defaults to the user's preference
// when a weight is given.
type LogSetParams struct {
	WorkoutExerciseID string
	SetNumber         int
	Weight            *float64
	WeightUnit        models.WeightUnit
	Reps              *int
	DurationSeconds   *int64
	DistanceMeters    *float64
	RPE               *float64
	RIR               *int
	RestTimeSeconds   *int64
	Notes             string
	IsWarmup          bool
	IsFailure         bool
}

func (p LogSetParams) validate() error {
	if err := validateWeight(p.Weight); err != nil {
		return err
	}
	if err := validateReps(p.Reps); err != nil {
		return err
	}
	if err := validateRPE(p.RPE); err != nil {
		return err
	}
	return validateRIR(p.RIR)
}

// LogSet appends a performed set under a workout exercise.
func (s *Service) LogSet(p LogSetParams) (models.ExerciseSet, error) {
	userID, err := s.userID()
	if err != nil {
		return models.ExerciseSet{}, err
	}
	if err := p.validate(); err != nil {
		return models.ExerciseSet{}, err
	}

	var out models.ExerciseSet
	err = s.store.WriteTx(func(tx *store.Tx) error {
		if _, err := s.workoutExerciseOwned(tx, userID, p.WorkoutExerciseID); err != nil {
			return err
		}

		setNumber := p.SetNumber
		if setNumber == 0 {
			existing, err := tx.Query(models.TableExerciseSets,
				[]store.Cond{store.Eq("workout_exercise_id", p.WorkoutExerciseID)},
				store.QueryOptions{})
			if err != nil {
				return err
			}
			setNumber = 1
			for _, rec := range existing {
				set := models.ExerciseSetFromRecord(&rec)
				if set.SetNumber >= setNumber {
					setNumber = set.SetNumber + 1
				}
			}
		}

		unit := p.WeightUnit
		if p.Weight != nil && unit == "" {
			unit = models.UnitKg
			if u, err := s.currentUser(tx, userID); err != nil {
				return err
			} else if u != nil && u.PreferredUnit != "" {
				unit = u.PreferredUnit
			}
		}

		now := s.now()
		out = models.ExerciseSet{
			ID:                newID(),
			WorkoutExerciseID: p.WorkoutExerciseID,
			SetNumber:         setNumber,
			Weight:            p.Weight,
			WeightUnit:        unit,
			Reps:              p.Reps,
			DurationSeconds:   p.DurationSeconds,
			DistanceMeters:    p.DistanceMeters,
			RPE:               p.RPE,
			RIR:               p.RIR,
			RestTimeSeconds:   p.RestTimeSeconds,
			CompletedAt:       &now,
			Notes:             p.Notes,
			IsWarmup:          p.IsWarmup,
			IsFailure:         p.IsFailure,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		return tx.Create(models.TableExerciseSets, out.Record())
	})
	if err != nil {
		return models.ExerciseSet{}, err
	}
	return out, nil
}

// UpdateSetParams carries optional edits to a logged set. Nil pointers leave
// stored values alone; ClearWeight and friends erase an optional value.
type UpdateSetParams struct {
	Weight      *float64
	ClearWeight bool
	Reps        *int
	RPE         *float64
	ClearRPE    bool
	RIR         *int
	ClearRIR    bool
	Notes       *string
	IsWarmup    *bool
	IsFailure   *bool
}

// UpdateSet edits a logged set, revalidating the changed fields.
func (s *Service) UpdateSet(id string, p UpdateSetParams) (models.ExerciseSet, error) {
	userID, err := s.userID()
	if err != nil {
		return models.ExerciseSet{}, err
	}
	if err := validateWeight(p.Weight); err != nil {
		return models.ExerciseSet{}, err
	}
	if err := validateReps(p.Reps); err != nil {
		return models.ExerciseSet{}, err
	}
	if err := validateRPE(p.RPE); err != nil {
		return models.ExerciseSet{}, err
	}
	if err := validateRIR(p.RIR); err != nil {
		return models.ExerciseSet{}, err
	}

	var out models.ExerciseSet
	err = s.store.WriteTx(func(tx *store.Tx) error {
		if _, err := s.setOwned(tx, userID, id); err != nil {
			return err
		}

		fields := map[string]any{"updated_at": s.now()}
		if p.Weight != nil {
			fields["weight"] = *p.Weight
		} else if p.ClearWeight {
			fields["weight"] = nil
		}
		if p.Reps != nil {
			fields["reps"] = *p.Reps
		}
		if p.RPE != nil {
			fields["rpe"] = *p.RPE
		} else if p.ClearRPE {
			fields["rpe"] = nil
		}
		if p.RIR != nil {
			fields["rir"] = *p.RIR
		} else if p.ClearRIR {
			fields["rir"] = nil
		}
		if p.Notes != nil {
			fields["notes"] = *p.Notes
		}
		if p.IsWarmup != nil {
			fields["is_warmup"] = *p.IsWarmup
		}
		if p.IsFailure != nil {
			fields["is_failure"] = *p.IsFailure
		}

		if err := tx.Update(models.TableExerciseSets, id, fields); err != nil {
			return err
		}
		rec, err := tx.Get(models.TableExerciseSets, id)
		if err != nil {
			return err
		}
		out = models.ExerciseSetFromRecord(rec)
		return nil
	})
	return out, err
}

// DeleteSet removes a logged set.
func (s *Service) DeleteSet(id string) error {
	userID, err := s.userID()
	if err != nil {
		return err
	}
	return s.store.WriteTx(func(tx *store.Tx) error {
		if _, err := s.setOwned(tx, userID, id); err != nil {
			return err
		}
		return tx.Delete(models.TableExerciseSets, id)
	})
}

// ListSets returns a workout exercise's sets in set-number order.
func (s *Service) ListSets(workoutExerciseID string) ([]models.ExerciseSet, error) {
	userID, err := s.userID()
	if err != nil {
		return nil, err
	}

	var out []models.ExerciseSet
	err = s.store.ReadTx(func(tx *store.Tx) error {
		if _, err := s.workoutExerciseOwned(tx, userID, workoutExerciseID); err != nil {
			return err
		}
		recs, err := tx.Query(models.TableExerciseSets,
			[]store.Cond{store.Eq("workout_exercise_id", workoutExerciseID)},
			store.QueryOptions{SortBy: "set_number"})
		if err != nil {
			return err
		}
		out = make([]models.ExerciseSet, len(recs))
		for i := range recs {
			out[i] = models.ExerciseSetFromRecord(&recs[i])
		}
		return nil
	})
	return out, err
}

// ObserveSets is the live mirror of ListSets, with the same ownership check
// up front.
func (s *Service) ObserveSets(workoutExerciseID string) (<-chan []models.ExerciseSet, func(), error) {
	userID, err := s.userID()
	if err != nil {
		return nil, nil, err
	}
	err = s.store.ReadTx(func(tx *store.Tx) error {
		_, err := s.workoutExerciseOwned(tx, userID, workoutExerciseID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	sub, err := s.store.Observe(models.TableExerciseSets,
		[]store.Cond{store.Eq("workout_exercise_id", workoutExerciseID)},
		store.QueryOptions{SortBy: "set_number"})
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := observeAs(sub, func(r *store.Record) models.ExerciseSet {
		return models.ExerciseSetFromRecord(r)
	})
	return ch, cancel, nil
}
