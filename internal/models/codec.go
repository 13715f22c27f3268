package models

import (
	"encoding/json"

	"github.com/avery/liftd/internal/store"
)

// Converters between domain value objects and generic store records. The
// store never sees domain types, and callers of the operations layer never
// see records.

func optFloat(r *store.Record, name string) *float64 {
	if v, ok := r.Number(name); ok {
		return &v
	}
	return nil
}

func optInt(r *store.Record, name string) *int {
	if v, ok := r.Int(name); ok {
		n := int(v)
		return &n
	}
	return nil
}

func optInt64(r *store.Record, name string) *int64 {
	if v, ok := r.Int(name); ok {
		return &v
	}
	return nil
}

func i64(r *store.Record, name string) int64 {
	v, _ := r.Int(name)
	return v
}

func setOptFloat(f map[string]any, name string, v *float64) {
	if v != nil {
		f[name] = *v
	}
}

func setOptInt(f map[string]any, name string, v *int) {
	if v != nil {
		f[name] = float64(*v)
	}
}

func setOptInt64(f map[string]any, name string, v *int64) {
	if v != nil {
		f[name] = float64(*v)
	}
}

func setOptString(f map[string]any, name, v string) {
	if v != "" {
		f[name] = v
	}
}

// --- User ---

func UserFromRecord(r *store.Record) User {
	return User{
		ID:             r.ID,
		Email:          r.String("email"),
		PreferredUnit:  WeightUnit(r.String("preferred_unit")),
		NutritionPhase: NutritionPhase(r.String("nutrition_phase")),
		CreatedAt:      i64(r, "created_at"),
		UpdatedAt:      i64(r, "updated_at"),
	}
}

func (u User) Record() *store.Record {
	return &store.Record{
		ID: u.ID,
		Fields: map[string]any{
			"email":           u.Email,
			"preferred_unit":  string(u.PreferredUnit),
			"nutrition_phase": string(u.NutritionPhase),
			"created_at":      float64(u.CreatedAt),
			"updated_at":      float64(u.UpdatedAt),
		},
	}
}

// --- Exercise ---

func ExerciseFromRecord(r *store.Record) Exercise {
	var muscles []string
	if raw := r.String("muscle_groups"); raw != "" {
		json.Unmarshal([]byte(raw), &muscles)
	}
	return Exercise{
		ID:            r.ID,
		ExerciseDBID:  r.String("exercisedb_id"),
		Name:          r.String("name"),
		Category:      r.String("category"),
		ExerciseType:  ExerciseType(r.String("exercise_type")),
		MuscleGroups:  muscles,
		PrimaryMuscle: r.String("primary_muscle"),
		Equipment:     r.String("equipment"),
		Instructions:  r.String("instructions"),
		Difficulty:    r.String("difficulty"),
		ImageURL:      r.String("image_url"),
		CreatedAt:     i64(r, "created_at"),
		UpdatedAt:     i64(r, "updated_at"),
	}
}

func (e Exercise) Record() *store.Record {
	muscles, _ := json.Marshal(e.MuscleGroups)
	fields := map[string]any{
		"exercisedb_id":  e.ExerciseDBID,
		"name":           e.Name,
		"category":       e.Category,
		"exercise_type":  string(e.ExerciseType),
		"muscle_groups":  string(muscles),
		"primary_muscle": e.PrimaryMuscle,
		"equipment":      e.Equipment,
		"instructions":   e.Instructions,
		"difficulty":     e.Difficulty,
		"created_at":     float64(e.CreatedAt),
		"updated_at":     float64(e.UpdatedAt),
	}
	setOptString(fields, "image_url", e.ImageURL)
	return &store.Record{ID: e.ID, Fields: fields}
}

// --- Workout ---

func WorkoutFromRecord(r *store.Record) Workout {
	return Workout{
		ID:              r.ID,
		UserID:          r.String("user_id"),
		StartedAt:       i64(r, "started_at"),
		CompletedAt:     optInt64(r, "completed_at"),
		DurationSeconds: optInt64(r, "duration_seconds"),
		Title:           r.String("title"),
		Notes:           r.String("notes"),
		NutritionPhase:  NutritionPhase(r.String("nutrition_phase")),
		CreatedAt:       i64(r, "created_at"),
		UpdatedAt:       i64(r, "updated_at"),
	}
}

func (w Workout) Record() *store.Record {
	fields := map[string]any{
		"user_id":         w.UserID,
		"started_at":      float64(w.StartedAt),
		"nutrition_phase": string(w.NutritionPhase),
		"created_at":      float64(w.CreatedAt),
		"updated_at":      float64(w.UpdatedAt),
	}
	setOptInt64(fields, "completed_at", w.CompletedAt)
	setOptInt64(fields, "duration_seconds", w.DurationSeconds)
	setOptString(fields, "title", w.Title)
	setOptString(fields, "notes", w.Notes)
	return &store.Record{ID: w.ID, Fields: fields}
}

// --- WorkoutExercise ---

func WorkoutExerciseFromRecord(r *store.Record) WorkoutExercise {
	oi, _ := r.Int("order_index")
	return WorkoutExercise{
		ID:            r.ID,
		WorkoutID:     r.String("workout_id"),
		ExerciseID:    r.String("exercise_id"),
		OrderIndex:    int(oi),
		SupersetGroup: r.String("superset_group"),
		Notes:         r.String("notes"),
		TargetSets:    optInt(r, "target_sets"),
		TargetReps:    optInt(r, "target_reps"),
		CreatedAt:     i64(r, "created_at"),
		UpdatedAt:     i64(r, "updated_at"),
	}
}

func (we WorkoutExercise) Record() *store.Record {
	fields := map[string]any{
		"workout_id":  we.WorkoutID,
		"exercise_id": we.ExerciseID,
		"order_index": float64(we.OrderIndex),
		"created_at":  float64(we.CreatedAt),
		"updated_at":  float64(we.UpdatedAt),
	}
	setOptString(fields, "superset_group", we.SupersetGroup)
	setOptString(fields, "notes", we.Notes)
	setOptInt(fields, "target_sets", we.TargetSets)
	setOptInt(fields, "target_reps", we.TargetReps)
	return &store.Record{ID: we.ID, Fields: fields}
}

// --- ExerciseSet ---

func ExerciseSetFromRecord(r *store.Record) ExerciseSet {
	sn, _ := r.Int("set_number")
	return ExerciseSet{
		ID:                r.ID,
		WorkoutExerciseID: r.String("workout_exercise_id"),
		SetNumber:         int(sn),
		Weight:            optFloat(r, "weight"),
		WeightUnit:        WeightUnit(r.String("weight_unit")),
		Reps:              optInt(r, "reps"),
		DurationSeconds:   optInt64(r, "duration_seconds"),
		DistanceMeters:    optFloat(r, "distance_meters"),
		RPE:               optFloat(r, "rpe"),
		RIR:               optInt(r, "rir"),
		RestTimeSeconds:   optInt64(r, "rest_time_seconds"),
		CompletedAt:       optInt64(r, "completed_at"),
		Notes:             r.String("notes"),
		IsWarmup:          r.Bool("is_warmup"),
		IsFailure:         r.Bool("is_failure"),
		CreatedAt:         i64(r, "created_at"),
		UpdatedAt:         i64(r, "updated_at"),
	}
}

func (s ExerciseSet) Record() *store.Record {
	fields := map[string]any{
		"workout_exercise_id": s.WorkoutExerciseID,
		"set_number":          float64(s.SetNumber),
		"is_warmup":           s.IsWarmup,
		"is_failure":          s.IsFailure,
		"created_at":          float64(s.CreatedAt),
		"updated_at":          float64(s.UpdatedAt),
	}
	setOptFloat(fields, "weight", s.Weight)
	setOptString(fields, "weight_unit", string(s.WeightUnit))
	setOptInt(fields, "reps", s.Reps)
	setOptInt64(fields, "duration_seconds", s.DurationSeconds)
	setOptFloat(fields, "distance_meters", s.DistanceMeters)
	setOptFloat(fields, "rpe", s.RPE)
	setOptInt(fields, "rir", s.RIR)
	setOptInt64(fields, "rest_time_seconds", s.RestTimeSeconds)
	setOptInt64(fields, "completed_at", s.CompletedAt)
	setOptString(fields, "notes", s.Notes)
	return &store.Record{ID: s.ID, Fields: fields}
}
