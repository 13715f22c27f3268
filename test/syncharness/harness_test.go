package syncharness

import (
	"testing"

	"github.com/avery/liftd/internal/catalog"
	"github.com/avery/liftd/internal/models"
	"github.com/avery/liftd/internal/ops"
)

func benchCatalog() []catalog.Entry {
	return []catalog.Entry{
		{
			ID: "ex-bench", Name: "Bench Press", Category: "chest",
			MuscleGroups: []string{"chest", "triceps"}, PrimaryMuscle: "chest",
			Equipment: "barbell",
		},
		{
			ID: "ex-squat", Name: "Back Squat", Category: "legs",
			MuscleGroups: []string{"quads", "glutes"}, PrimaryMuscle: "quads",
			Equipment: "barbell",
		},
	}
}

func weight(v float64) *float64 { return &v }
func reps(n int) *int           { return &n }

func TestEmptySyncConverges(t *testing.T) {
	h := NewHarness(t, "A", "B")
	h.SyncAll()
	h.AssertConverged()
}

func TestWorkoutRoundTrip(t *testing.T) {
	h := NewHarness(t, "A", "B")
	h.SeedCatalog(benchCatalog()...)

	a := h.Device("A").Service
	if _, err := a.EnsureUser("avery@example.com"); err != nil {
		t.Fatalf("ensure user: %v", err)
	}
	w, err := a.CreateWorkout(ops.CreateWorkoutParams{Title: "push day"})
	if err != nil {
		t.Fatalf("create workout: %v", err)
	}
	we, err := a.AddExercise(ops.AddExerciseParams{WorkoutID: w.ID, ExerciseID: "ex-bench"})
	if err != nil {
		t.Fatalf("add exercise: %v", err)
	}
	if _, err := a.LogSet(ops.LogSetParams{
		WorkoutExerciseID: we.ID, Weight: weight(100), Reps: reps(5),
	}); err != nil {
		t.Fatalf("log set: %v", err)
	}

	if got := h.RawStatus("A", models.TableWorkouts, w.ID); got != "created" {
		t.Fatalf("status before sync = %q, want created", got)
	}

	h.SyncAll()

	if got := h.RawStatus("A", models.TableWorkouts, w.ID); got != "synced" {
		t.Errorf("status after sync = %q, want synced", got)
	}

	b := h.Device("B").Service
	got, err := b.GetWorkout(w.ID)
	if err != nil {
		t.Fatalf("workout missing on B: %v", err)
	}
	if got.Title != "push day" {
		t.Errorf("title on B = %q", got.Title)
	}

	sets, err := b.ListSets(we.ID)
	if err != nil {
		t.Fatalf("list sets on B: %v", err)
	}
	if len(sets) != 1 || sets[0].Weight == nil || *sets[0].Weight != 100 {
		t.Errorf("sets on B = %+v", sets)
	}

	h.AssertConverged()
}

func TestCatalogStaysLocal(t *testing.T) {
	h := NewHarness(t, "A", "B")
	h.SeedCatalog(benchCatalog()...)

	// Reference data is imported per device and must never enter a push.
	report := h.Sync("A")
	if report.Pushed != 0 {
		t.Errorf("pushed %d records from a catalog-only store, want 0", report.Pushed)
	}

	h.SyncAll()
	h.AssertConverged()
}

func TestLaterDeviceCatchesUpFromScratch(t *testing.T) {
	h := NewHarness(t, "A", "B")
	h.SeedCatalog(benchCatalog()...)

	a := h.Device("A").Service
	for _, title := range []string{"monday", "wednesday", "friday"} {
		if _, err := a.CreateWorkout(ops.CreateWorkoutParams{Title: title}); err != nil {
			t.Fatalf("create workout: %v", err)
		}
		h.Sync("A")
	}

	// B has never synced; one cycle brings over the whole history.
	h.Sync("B")

	list, err := h.Device("B").Service.ListWorkouts(ops.ListWorkoutsOptions{})
	if err != nil {
		t.Fatalf("list on B: %v", err)
	}
	if len(list) != 3 {
		t.Errorf("workouts on B = %d, want 3", len(list))
	}
	h.AssertConverged()
}

func TestLargeBacklogSyncsInOneCycle(t *testing.T) {
	h := NewHarness(t, "A", "B")
	h.SeedCatalog(benchCatalog()...)

	a := h.Device("A").Service
	if _, err := a.EnsureUser("avery@example.com"); err != nil {
		t.Fatalf("ensure user: %v", err)
	}
	w, err := a.CreateWorkout(ops.CreateWorkoutParams{Title: "volume day"})
	if err != nil {
		t.Fatalf("create workout: %v", err)
	}
	we, err := a.AddExercise(ops.AddExerciseParams{WorkoutID: w.ID, ExerciseID: "ex-squat"})
	if err != nil {
		t.Fatalf("add exercise: %v", err)
	}
	for i := 0; i < 230; i++ {
		if _, err := a.LogSet(ops.LogSetParams{
			WorkoutExerciseID: we.ID, SetNumber: i + 1, Weight: weight(60), Reps: reps(10),
		}); err != nil {
			t.Fatalf("log set %d: %v", i, err)
		}
	}

	// 233 dirty records (user, workout, workout exercise, 230 sets) must
	// clear in a single cycle even though the push spans several batches.
	report := h.Sync("A")
	if report.Pushed != 233 {
		t.Errorf("pushed = %d, want 233", report.Pushed)
	}
	if report.Confirmed != report.Pushed {
		t.Errorf("confirmed %d of %d pushed", report.Confirmed, report.Pushed)
	}
	if report.Batches < 3 {
		t.Errorf("batches = %d, want the backlog split across at least 3", report.Batches)
	}
	if got := h.RawStatus("A", models.TableWorkouts, w.ID); got != "synced" {
		t.Errorf("workout status after sync = %q, want synced", got)
	}

	h.Sync("B")
	sets, err := h.Device("B").Service.ListSets(we.ID)
	if err != nil {
		t.Fatalf("list sets on B: %v", err)
	}
	if len(sets) != 230 {
		t.Errorf("sets on B = %d, want 230", len(sets))
	}

	h.SyncAll()
	h.AssertConverged()
}
