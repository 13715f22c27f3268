package models

import (
	"testing"

	"github.com/avery/liftd/internal/store"
)

func TestExerciseSetRecordRoundTrip(t *testing.T) {
	w := 102.5
	reps := 5
	rpe := 8.5
	rir := 2
	done := int64(1_700_000_000_000)

	set := ExerciseSet{
		ID:                "s1",
		WorkoutExerciseID: "we1",
		SetNumber:         3,
		Weight:            &w,
		WeightUnit:        UnitKg,
		Reps:              &reps,
		RPE:               &rpe,
		RIR:               &rir,
		CompletedAt:       &done,
		Notes:             "felt heavy",
		IsFailure:         true,
		CreatedAt:         1,
		UpdatedAt:         2,
	}

	got := ExerciseSetFromRecord(set.Record())
	if got.ID != "s1" || got.SetNumber != 3 {
		t.Errorf("identity fields lost: %+v", got)
	}
	if got.Weight == nil || *got.Weight != 102.5 {
		t.Errorf("weight = %v", got.Weight)
	}
	if got.RPE == nil || *got.RPE != 8.5 {
		t.Errorf("rpe = %v", got.RPE)
	}
	if got.RIR == nil || *got.RIR != 2 {
		t.Errorf("rir = %v", got.RIR)
	}
	if got.CompletedAt == nil || *got.CompletedAt != done {
		t.Errorf("completed_at = %v", got.CompletedAt)
	}
	if !got.IsFailure || got.IsWarmup {
		t.Errorf("flags = warmup %v failure %v", got.IsWarmup, got.IsFailure)
	}
}

func TestExerciseSetOptionalFieldsStayAbsent(t *testing.T) {
	set := ExerciseSet{ID: "s1", WorkoutExerciseID: "we1", SetNumber: 1}

	rec := set.Record()
	for _, name := range []string{"weight", "reps", "rpe", "rir", "distance_meters"} {
		if _, ok := rec.Fields[name]; ok {
			t.Errorf("absent field %s encoded anyway", name)
		}
	}

	got := ExerciseSetFromRecord(rec)
	if got.Weight != nil || got.Reps != nil || got.RPE != nil {
		t.Errorf("optional fields materialized: %+v", got)
	}
}

func TestExerciseMuscleGroupsEncodeAsJSON(t *testing.T) {
	ex := Exercise{
		ID:           "ex1",
		Name:         "Bench Press",
		MuscleGroups: []string{"chest", "triceps", "front delts"},
	}

	rec := ex.Record()
	stored, ok := rec.Fields["muscle_groups"].(string)
	if !ok {
		t.Fatalf("muscle_groups stored as %T, want JSON string", rec.Fields["muscle_groups"])
	}
	if stored == "" || stored[0] != '[' {
		t.Errorf("stored form = %q", stored)
	}

	got := ExerciseFromRecord(rec)
	if len(got.MuscleGroups) != 3 || got.MuscleGroups[2] != "front delts" {
		t.Errorf("muscle groups = %v", got.MuscleGroups)
	}
}

func TestExerciseMuscleGroupsTolerateBadStoredValue(t *testing.T) {
	rec := &store.Record{ID: "ex1", Fields: map[string]any{
		"name":          "Mystery",
		"muscle_groups": "not json",
	}}

	got := ExerciseFromRecord(rec)
	if got.Name != "Mystery" {
		t.Errorf("name = %q", got.Name)
	}
	if len(got.MuscleGroups) != 0 {
		t.Errorf("muscle groups from garbage = %v", got.MuscleGroups)
	}
}
