package models

// WeightUnit is the user's preferred unit for load entry
type WeightUnit string

const (
	UnitKg  WeightUnit = "kg"
	UnitLbs WeightUnit = "lbs"
)

// NutritionPhase is captured on the user and snapshotted onto each workout
type NutritionPhase string

const (
	PhaseBulk        NutritionPhase = "bulk"
	PhaseCut         NutritionPhase = "cut"
	PhaseMaintenance NutritionPhase = "maintenance"
)

// ExerciseType classifies catalog exercises
type ExerciseType string

const (
	ExerciseStrength    ExerciseType = "strength"
	ExerciseCardio      ExerciseType = "cardio"
	ExerciseFlexibility ExerciseType = "flexibility"
)

// User is the owning account for all workout data
type User struct {
	ID             string         `json:"id"`
	Email          string         `json:"email"`
	PreferredUnit  WeightUnit     `json:"preferred_unit"`
	NutritionPhase NutritionPhase `json:"nutrition_phase"`
	CreatedAt      int64          `json:"created_at"`
	UpdatedAt      int64          `json:"updated_at"`
}

// Exercise is a read-only catalog entry (imported out-of-band)
type Exercise struct {
	ID            string       `json:"id"`
	ExerciseDBID  string       `json:"exercisedb_id"`
	Name          string       `json:"name"`
	Category      string       `json:"category"`
	ExerciseType  ExerciseType `json:"exercise_type"`
	MuscleGroups  []string     `json:"muscle_groups"`
	PrimaryMuscle string       `json:"primary_muscle"`
	Equipment     string       `json:"equipment"`
	Instructions  string       `json:"instructions"`
	Difficulty    string       `json:"difficulty"`
	ImageURL      string       `json:"image_url,omitempty"`
	CreatedAt     int64        `json:"created_at"`
	UpdatedAt     int64        `json:"updated_at"`
}

// Workout is a single training session belonging to a user
type Workout struct {
	ID              string         `json:"id"`
	UserID          string         `json:"user_id"`
	StartedAt       int64          `json:"started_at"`
	CompletedAt     *int64         `json:"completed_at,omitempty"`
	DurationSeconds *int64         `json:"duration_seconds,omitempty"`
	Title           string         `json:"title,omitempty"`
	Notes           string         `json:"notes,omitempty"`
	NutritionPhase  NutritionPhase `json:"nutrition_phase"`
	CreatedAt       int64          `json:"created_at"`
	UpdatedAt       int64          `json:"updated_at"`
}

// WorkoutExercise is the ordered junction between a workout and a catalog exercise
type WorkoutExercise struct {
	ID            string `json:"id"`
	WorkoutID     string `json:"workout_id"`
	ExerciseID    string `json:"exercise_id"`
	OrderIndex    int    `json:"order_index"`
	SupersetGroup string `json:"superset_group,omitempty"`
	Notes         string `json:"notes,omitempty"`
	TargetSets    *int   `json:"target_sets,omitempty"`
	TargetReps    *int   `json:"target_reps,omitempty"`
	CreatedAt     int64  `json:"created_at"`
	UpdatedAt     int64  `json:"updated_at"`
}

// ExerciseSet is one performed set under a workout exercise
type ExerciseSet struct {
	ID                string     `json:"id"`
	WorkoutExerciseID string     `json:"workout_exercise_id"`
	SetNumber         int        `json:"set_number"`
	Weight            *float64   `json:"weight,omitempty"`
	WeightUnit        WeightUnit `json:"weight_unit,omitempty"`
	Reps              *int       `json:"reps,omitempty"`
	DurationSeconds   *int64     `json:"duration_seconds,omitempty"`
	DistanceMeters    *float64   `json:"distance_meters,omitempty"`
	RPE               *float64   `json:"rpe,omitempty"`
	RIR               *int       `json:"rir,omitempty"`
	RestTimeSeconds   *int64     `json:"rest_time_seconds,omitempty"`
	CompletedAt       *int64     `json:"completed_at,omitempty"`
	Notes             string     `json:"notes,omitempty"`
	IsWarmup          bool       `json:"is_warmup"`
	IsFailure         bool       `json:"is_failure"`
	CreatedAt         int64      `json:"created_at"`
	UpdatedAt         int64      `json:"updated_at"`
}
