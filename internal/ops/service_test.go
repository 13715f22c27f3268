package ops

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avery/liftd/internal/models"
	"github.com/avery/liftd/internal/session"
	"github.com/avery/liftd/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	st, err := store.Initialize(t.TempDir(), models.Schema(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return NewService(st, session.Static("u1")), st
}

func fixedClock(st *store.Store, start int64) *int64 {
	now := start
	st.Clock = func() int64 { return now }
	return &now
}

func seedExercise(t *testing.T, st *store.Store, id, name string) {
	t.Helper()
	ex := models.Exercise{
		ID:            id,
		Name:          name,
		Category:      "chest",
		ExerciseType:  models.ExerciseStrength,
		MuscleGroups:  []string{"chest", "triceps"},
		PrimaryMuscle: "chest",
		Equipment:     "barbell",
		CreatedAt:     st.Clock(),
		UpdatedAt:     st.Clock(),
	}
	err := st.WriteTx(func(tx *store.Tx) error {
		return tx.Create(models.TableExercises, ex.Record())
	})
	require.NoError(t, err)
}

func seedWorkoutWithExercise(t *testing.T, svc *Service, st *store.Store) (models.Workout, models.WorkoutExercise) {
	t.Helper()
	seedExercise(t, st, "ex-bench", "Bench Press")
	w, err := svc.CreateWorkout(CreateWorkoutParams{Title: "push day"})
	require.NoError(t, err)
	we, err := svc.AddExercise(AddExerciseParams{WorkoutID: w.ID, ExerciseID: "ex-bench"})
	require.NoError(t, err)
	return w, we
}

func ptr[T any](v T) *T { return &v }

func TestCreateWorkoutDefaults(t *testing.T) {
	svc, st := newTestService(t)
	fixedClock(st, 1_000_000)

	w, err := svc.CreateWorkout(CreateWorkoutParams{Title: "leg day"})
	require.NoError(t, err)

	assert.Equal(t, "u1", w.UserID)
	assert.Equal(t, int64(1_000_000), w.StartedAt)
	assert.Equal(t, models.PhaseMaintenance, w.NutritionPhase)
	assert.Nil(t, w.CompletedAt)

	got, err := svc.GetWorkout(w.ID)
	require.NoError(t, err)
	assert.Equal(t, "leg day", got.Title)
}

func TestCreateWorkoutSnapshotsNutritionPhase(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.EnsureUser("avery@example.com")
	require.NoError(t, err)
	require.NoError(t, svc.SetNutritionPhase(models.PhaseBulk))

	w, err := svc.CreateWorkout(CreateWorkoutParams{})
	require.NoError(t, err)
	assert.Equal(t, models.PhaseBulk, w.NutritionPhase)

	// Later phase changes do not rewrite history.
	require.NoError(t, svc.SetNutritionPhase(models.PhaseCut))
	got, err := svc.GetWorkout(w.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseBulk, got.NutritionPhase)
}

func TestCreateWorkoutRejectsFutureStart(t *testing.T) {
	svc, st := newTestService(t)
	fixedClock(st, 1_000_000)

	_, err := svc.CreateWorkout(CreateWorkoutParams{StartedAt: 2_000_000})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "started_at", verr.Field)
}

func TestCompleteWorkoutDerivesDuration(t *testing.T) {
	svc, st := newTestService(t)
	now := fixedClock(st, 1_000_000)

	w, err := svc.CreateWorkout(CreateWorkoutParams{})
	require.NoError(t, err)

	*now = 1_000_000 + 45*60*1000 // 45 minutes later
	done, err := svc.CompleteWorkout(w.ID)
	require.NoError(t, err)
	require.NotNil(t, done.CompletedAt)
	require.NotNil(t, done.DurationSeconds)
	assert.Equal(t, int64(45*60), *done.DurationSeconds)

	_, err = svc.CompleteWorkout(w.ID)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestWorkoutOwnership(t *testing.T) {
	svc, st := newTestService(t)
	w, err := svc.CreateWorkout(CreateWorkoutParams{})
	require.NoError(t, err)

	other := NewService(st, session.Static("u2"))
	_, err = other.GetWorkout(w.ID)
	var aerr *AuthorizationError
	require.ErrorAs(t, err, &aerr)

	err = other.DeleteWorkout(w.ID)
	require.ErrorAs(t, err, &aerr)

	_, err = svc.GetWorkout("no-such-id")
	var nerr *NotFoundError
	require.ErrorAs(t, err, &nerr)
}

func TestListWorkoutsNewestFirst(t *testing.T) {
	svc, st := newTestService(t)
	now := fixedClock(st, 1_000_000)

	var ids []string
	for i := 0; i < 3; i++ {
		w, err := svc.CreateWorkout(CreateWorkoutParams{})
		require.NoError(t, err)
		ids = append(ids, w.ID)
		*now += 60_000
	}

	list, err := svc.ListWorkouts(ListWorkoutsOptions{})
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, ids[2], list[0].ID)
	assert.Equal(t, ids[0], list[2].ID)

	page, err := svc.ListWorkouts(ListWorkoutsOptions{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[1], page[0].ID)
}

func TestDeleteWorkoutCascades(t *testing.T) {
	svc, st := newTestService(t)
	w, we := seedWorkoutWithExercise(t, svc, st)
	set, err := svc.LogSet(LogSetParams{WorkoutExerciseID: we.ID, Reps: ptr(8)})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteWorkout(w.ID))

	_, err = svc.GetWorkout(w.ID)
	var nerr *NotFoundError
	require.ErrorAs(t, err, &nerr)

	_, err = st.Get(models.TableWorkoutExercises, we.ID)
	assert.ErrorIs(t, err, store.ErrRecordNotFound)
	_, err = st.Get(models.TableExerciseSets, set.ID)
	assert.ErrorIs(t, err, store.ErrRecordNotFound)
}

func TestAddExerciseOrdering(t *testing.T) {
	svc, st := newTestService(t)
	w, first := seedWorkoutWithExercise(t, svc, st)
	seedExercise(t, st, "ex-fly", "Cable Fly")

	assert.Equal(t, 0, first.OrderIndex)

	second, err := svc.AddExercise(AddExerciseParams{WorkoutID: w.ID, ExerciseID: "ex-fly"})
	require.NoError(t, err)
	assert.Equal(t, 1, second.OrderIndex)

	_, err = svc.AddExercise(AddExerciseParams{
		WorkoutID: w.ID, ExerciseID: "ex-fly", OrderIndex: ptr(0),
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "order_index", verr.Field)
}

func TestAddExerciseValidation(t *testing.T) {
	svc, st := newTestService(t)
	w, _ := seedWorkoutWithExercise(t, svc, st)

	_, err := svc.AddExercise(AddExerciseParams{WorkoutID: w.ID, ExerciseID: "not-in-catalog"})
	var nerr *NotFoundError
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, "exercise", nerr.Kind)

	_, err = svc.AddExercise(AddExerciseParams{
		WorkoutID: w.ID, ExerciseID: "ex-bench", TargetSets: ptr(0),
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestReorderExerciseSwaps(t *testing.T) {
	svc, st := newTestService(t)
	w, first := seedWorkoutWithExercise(t, svc, st)
	seedExercise(t, st, "ex-fly", "Cable Fly")
	second, err := svc.AddExercise(AddExerciseParams{WorkoutID: w.ID, ExerciseID: "ex-fly"})
	require.NoError(t, err)

	require.NoError(t, svc.ReorderExercise(second.ID, 0))

	list, err := svc.ListWorkoutExercises(w.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}

func TestLogSetAppendsSetNumbers(t *testing.T) {
	svc, st := newTestService(t)
	_, we := seedWorkoutWithExercise(t, svc, st)

	s1, err := svc.LogSet(LogSetParams{WorkoutExerciseID: we.ID, Weight: ptr(100.0), Reps: ptr(5)})
	require.NoError(t, err)
	s2, err := svc.LogSet(LogSetParams{WorkoutExerciseID: we.ID, Weight: ptr(102.5), Reps: ptr(5)})
	require.NoError(t, err)

	assert.Equal(t, 1, s1.SetNumber)
	assert.Equal(t, 2, s2.SetNumber)

	// Explicit set numbers are honored; appending continues after the highest.
	s5, err := svc.LogSet(LogSetParams{WorkoutExerciseID: we.ID, SetNumber: 5, Reps: ptr(5)})
	require.NoError(t, err)
	assert.Equal(t, 5, s5.SetNumber)
	s6, err := svc.LogSet(LogSetParams{WorkoutExerciseID: we.ID, Reps: ptr(5)})
	require.NoError(t, err)
	assert.Equal(t, 6, s6.SetNumber)
}

func TestLogSetWeightUnitDefaults(t *testing.T) {
	svc, st := newTestService(t)
	_, we := seedWorkoutWithExercise(t, svc, st)

	// No user row yet: falls back to kg.
	s1, err := svc.LogSet(LogSetParams{WorkoutExerciseID: we.ID, Weight: ptr(60.0), Reps: ptr(10)})
	require.NoError(t, err)
	assert.Equal(t, models.UnitKg, s1.WeightUnit)

	_, err = svc.EnsureUser("avery@example.com")
	require.NoError(t, err)
	require.NoError(t, svc.SetPreferredUnit(models.UnitLbs))

	s2, err := svc.LogSet(LogSetParams{WorkoutExerciseID: we.ID, Weight: ptr(135.0), Reps: ptr(10)})
	require.NoError(t, err)
	assert.Equal(t, models.UnitLbs, s2.WeightUnit)

	// Explicit unit wins over the preference.
	s3, err := svc.LogSet(LogSetParams{
		WorkoutExerciseID: we.ID, Weight: ptr(60.0), WeightUnit: models.UnitKg, Reps: ptr(10),
	})
	require.NoError(t, err)
	assert.Equal(t, models.UnitKg, s3.WeightUnit)
}

func TestLogSetValidation(t *testing.T) {
	svc, st := newTestService(t)
	_, we := seedWorkoutWithExercise(t, svc, st)

	cases := []struct {
		name  string
		p     LogSetParams
		field string
	}{
		{"negative weight", LogSetParams{WorkoutExerciseID: we.ID, Weight: ptr(-5.0)}, "weight"},
		{"zero reps", LogSetParams{WorkoutExerciseID: we.ID, Reps: ptr(0)}, "reps"},
		{"rpe too high", LogSetParams{WorkoutExerciseID: we.ID, RPE: ptr(10.5)}, "rpe"},
		{"rpe too low", LogSetParams{WorkoutExerciseID: we.ID, RPE: ptr(0.5)}, "rpe"},
		{"rir too high", LogSetParams{WorkoutExerciseID: we.ID, RIR: ptr(6)}, "rir"},
		{"rir negative", LogSetParams{WorkoutExerciseID: we.ID, RIR: ptr(-1)}, "rir"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.LogSet(tc.p)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestUpdateSetEditsAndClears(t *testing.T) {
	svc, st := newTestService(t)
	_, we := seedWorkoutWithExercise(t, svc, st)
	set, err := svc.LogSet(LogSetParams{
		WorkoutExerciseID: we.ID, Weight: ptr(100.0), Reps: ptr(5), RPE: ptr(8.0),
	})
	require.NoError(t, err)

	got, err := svc.UpdateSet(set.ID, UpdateSetParams{
		Weight:   ptr(105.0),
		ClearRPE: true,
		IsWarmup: ptr(true),
	})
	require.NoError(t, err)
	require.NotNil(t, got.Weight)
	assert.Equal(t, 105.0, *got.Weight)
	assert.Nil(t, got.RPE)
	assert.True(t, got.IsWarmup)
	require.NotNil(t, got.Reps)
	assert.Equal(t, 5, *got.Reps)
}

func TestDeleteSet(t *testing.T) {
	svc, st := newTestService(t)
	_, we := seedWorkoutWithExercise(t, svc, st)
	set, err := svc.LogSet(LogSetParams{WorkoutExerciseID: we.ID, Reps: ptr(8)})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteSet(set.ID))

	sets, err := svc.ListSets(we.ID)
	require.NoError(t, err)
	assert.Empty(t, sets)
}

func TestEnsureUserIdempotent(t *testing.T) {
	svc, _ := newTestService(t)

	u1, err := svc.EnsureUser("avery@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", u1.ID)
	assert.Equal(t, models.UnitKg, u1.PreferredUnit)

	u2, err := svc.EnsureUser("different@example.com")
	require.NoError(t, err)
	assert.Equal(t, u1.Email, u2.Email)
}

func TestUserSettingValidation(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.EnsureUser("avery@example.com")
	require.NoError(t, err)

	var verr *ValidationError
	require.ErrorAs(t, svc.SetPreferredUnit("stone"), &verr)
	require.ErrorAs(t, svc.SetNutritionPhase("recomp"), &verr)
}

func TestUserSettingsRequireUserRow(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.SetPreferredUnit(models.UnitLbs)
	var nerr *NotFoundError
	require.ErrorAs(t, err, &nerr)
}

func TestOperationsRequireSession(t *testing.T) {
	_, st := newTestService(t)
	anon := NewService(st, session.Static(""))

	_, err := anon.CreateWorkout(CreateWorkoutParams{})
	assert.True(t, errors.Is(err, session.ErrNoUser))
}

func TestListExercisesFilters(t *testing.T) {
	svc, st := newTestService(t)
	seedExercise(t, st, "ex-bench", "Bench Press")
	seedExercise(t, st, "ex-squat", "Back Squat")

	all, err := svc.ListExercises(ListExercisesOptions{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	// Sorted by name.
	assert.Equal(t, "Back Squat", all[0].Name)

	barbell, err := svc.ListExercises(ListExercisesOptions{Equipment: "barbell"})
	require.NoError(t, err)
	assert.Len(t, barbell, 2)

	none, err := svc.ListExercises(ListExercisesOptions{Equipment: "kettlebell"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestObserveWorkoutsEmitsOnChange(t *testing.T) {
	svc, _ := newTestService(t)

	ch, cancel, err := svc.ObserveWorkouts()
	require.NoError(t, err)
	defer cancel()

	recv := func() []models.Workout {
		select {
		case ws := <-ch:
			return ws
		case <-time.After(2 * time.Second):
			t.Fatal("no emission within timeout")
			return nil
		}
	}

	assert.Empty(t, recv())

	w, err := svc.CreateWorkout(CreateWorkoutParams{Title: "observed"})
	require.NoError(t, err)

	ws := recv()
	require.Len(t, ws, 1)
	assert.Equal(t, w.ID, ws[0].ID)
	assert.Equal(t, "observed", ws[0].Title)
}

func TestObserveSetsRequiresOwnership(t *testing.T) {
	svc, st := newTestService(t)
	_, we := seedWorkoutWithExercise(t, svc, st)

	other := NewService(st, session.Static("u2"))
	_, _, err := other.ObserveSets(we.ID)
	var aerr *AuthorizationError
	require.ErrorAs(t, err, &aerr)

	_, _, err = svc.ObserveSets("no-such-id")
	var nerr *NotFoundError
	require.ErrorAs(t, err, &nerr)

	ch, cancel, err := svc.ObserveSets(we.ID)
	require.NoError(t, err)
	defer cancel()
	assert.NotNil(t, ch)
}

func TestObserveWorkoutExercisesRequiresOwnership(t *testing.T) {
	svc, st := newTestService(t)
	w, _ := seedWorkoutWithExercise(t, svc, st)

	other := NewService(st, session.Static("u2"))
	_, _, err := other.ObserveWorkoutExercises(w.ID)
	var aerr *AuthorizationError
	require.ErrorAs(t, err, &aerr)

	_, _, err = svc.ObserveWorkoutExercises("no-such-id")
	var nerr *NotFoundError
	require.ErrorAs(t, err, &nerr)

	ch, cancel, err := svc.ObserveWorkoutExercises(w.ID)
	require.NoError(t, err)
	defer cancel()
	assert.NotNil(t, ch)
}
