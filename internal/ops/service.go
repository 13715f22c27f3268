package ops

import (
	"errors"

	"github.com/google/uuid"

	"github.com/avery/liftd/internal/models"
	"github.com/avery/liftd/internal/session"
	"github.com/avery/liftd/internal/store"
)

// Service is the domain boundary over the store. Validation, ownership
// checks, and multi-record transactions live here; everything below works on
// generic records, everything above on value structs.
type Service struct {
	store   *store.Store
	session session.Provider
}

// NewService builds a service over an opened store.
func NewService(st *store.Store, sess session.Provider) *Service {
	return &Service{store: st, session: sess}
}

// Store exposes the underlying store for status surfaces.
func (s *Service) Store() *store.Store {
	return s.store
}

func (s *Service) now() int64 {
	return s.store.Clock()
}

func newID() string {
	return uuid.NewString()
}

// userID resolves the current user.
func (s *Service) userID() (string, error) {
	return s.session.CurrentUserID()
}

// workoutOwned loads a workout and verifies the current user owns it.
func (s *Service) workoutOwned(tx *store.Tx, userID, id string) (models.Workout, error) {
	rec, err := tx.Get(models.TableWorkouts, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return models.Workout{}, &NotFoundError{Kind: "workout", ID: id}
		}
		return models.Workout{}, err
	}
	w := models.WorkoutFromRecord(rec)
	if w.UserID != userID {
		return models.Workout{}, &AuthorizationError{Kind: "workout", ID: id}
	}
	return w, nil
}

// workoutExerciseOwned loads a workout exercise and walks up to its workout
// for the ownership check.
func (s *Service) workoutExerciseOwned(tx *store.Tx, userID, id string) (models.WorkoutExercise, error) {
	rec, err := tx.Get(models.TableWorkoutExercises, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return models.WorkoutExercise{}, &NotFoundError{Kind: "workout exercise", ID: id}
		}
		return models.WorkoutExercise{}, err
	}
	we := models.WorkoutExerciseFromRecord(rec)
	if _, err := s.workoutOwned(tx, userID, we.WorkoutID); err != nil {
		return models.WorkoutExercise{}, err
	}
	return we, nil
}

// setOwned loads a set and walks up through its workout exercise.
func (s *Service) setOwned(tx *store.Tx, userID, id string) (models.ExerciseSet, error) {
	rec, err := tx.Get(models.TableExerciseSets, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return models.ExerciseSet{}, &NotFoundError{Kind: "set", ID: id}
		}
		return models.ExerciseSet{}, err
	}
	set := models.ExerciseSetFromRecord(rec)
	if _, err := s.workoutExerciseOwned(tx, userID, set.WorkoutExerciseID); err != nil {
		return models.ExerciseSet{}, err
	}
	return set, nil
}

// currentUser returns the user row for the session user, or nil when the
// local store has no user record yet.
func (s *Service) currentUser(tx *store.Tx, userID string) (*models.User, error) {
	rec, err := tx.Get(models.TableUsers, userID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	u := models.UserFromRecord(rec)
	return &u, nil
}

// observeAs adapts a record subscription into a typed one. The decoder
// goroutine exits when the store closes the underlying channel.
func observeAs[T any](sub *store.Subscription, decode func(*store.Record) T) (<-chan []T, func()) {
	out := make(chan []T, 1)
	go func() {
		defer close(out)
		for recs := range sub.C {
			vals := make([]T, len(recs))
			for i := range recs {
				vals[i] = decode(&recs[i])
			}
			// Conflate the same way the store does. This goroutine is the
			// only sender, so drain-then-send never blocks.
			select {
			case <-out:
			default:
			}
			out <- vals
		}
	}()
	return out, sub.Cancel
}
