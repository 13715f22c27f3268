package models

import (
	"github.com/avery/liftd/internal/store"
)

// SchemaVersion is the current local schema version.
const SchemaVersion = 3

// Table names, in sync order: parents before children so pulled foreign
// keys always resolve.
const (
	TableUsers            = "users"
	TableExercises        = "exercises"
	TableWorkouts         = "workouts"
	TableWorkoutExercises = "workout_exercises"
	TableExerciseSets     = "exercise_sets"
)

// SyncTables lists every synchronized table in apply order.
var SyncTables = []string{
	TableUsers,
	TableExercises,
	TableWorkouts,
	TableWorkoutExercises,
	TableExerciseSets,
}

// Schema returns the full local schema at SchemaVersion.
func Schema() store.Schema {
	return store.Schema{
		Version: SchemaVersion,
		Tables: []store.TableSchema{
			{
				Name: TableUsers,
				Columns: []store.Column{
					{Name: "email", Type: store.TypeString},
					{Name: "preferred_unit", Type: store.TypeString, Default: "kg"},
					{Name: "nutrition_phase", Type: store.TypeString, Default: "maintenance"},
					{Name: "created_at", Type: store.TypeNumber},
					{Name: "updated_at", Type: store.TypeNumber},
				},
			},
			{
				Name: TableExercises,
				Columns: []store.Column{
					{Name: "exercisedb_id", Type: store.TypeString, Indexed: true},
					{Name: "name", Type: store.TypeString, Indexed: true},
					{Name: "category", Type: store.TypeString, Indexed: true},
					{Name: "exercise_type", Type: store.TypeString, Default: "strength"},
					{Name: "muscle_groups", Type: store.TypeString, Default: "[]"}, // JSON array
					{Name: "primary_muscle", Type: store.TypeString},
					{Name: "equipment", Type: store.TypeString, Indexed: true},
					{Name: "instructions", Type: store.TypeString},
					{Name: "difficulty", Type: store.TypeString},
					{Name: "image_url", Type: store.TypeString, Optional: true},
					{Name: "created_at", Type: store.TypeNumber},
					{Name: "updated_at", Type: store.TypeNumber},
				},
			},
			{
				Name: TableWorkouts,
				Columns: []store.Column{
					{Name: "user_id", Type: store.TypeString, Indexed: true},
					{Name: "started_at", Type: store.TypeNumber, Indexed: true},
					{Name: "completed_at", Type: store.TypeNumber, Optional: true},
					{Name: "duration_seconds", Type: store.TypeNumber, Optional: true},
					{Name: "title", Type: store.TypeString, Optional: true},
					{Name: "notes", Type: store.TypeString, Optional: true},
					{Name: "nutrition_phase", Type: store.TypeString, Default: "maintenance"},
					{Name: "created_at", Type: store.TypeNumber},
					{Name: "updated_at", Type: store.TypeNumber},
				},
			},
			{
				Name: TableWorkoutExercises,
				Columns: []store.Column{
					{Name: "workout_id", Type: store.TypeString, Indexed: true},
					{Name: "exercise_id", Type: store.TypeString, Indexed: true},
					{Name: "order_index", Type: store.TypeNumber},
					{Name: "superset_group", Type: store.TypeString, Optional: true},
					{Name: "notes", Type: store.TypeString, Optional: true},
					{Name: "target_sets", Type: store.TypeNumber, Optional: true},
					{Name: "target_reps", Type: store.TypeNumber, Optional: true},
					{Name: "created_at", Type: store.TypeNumber},
					{Name: "updated_at", Type: store.TypeNumber},
				},
			},
			{
				Name: TableExerciseSets,
				Columns: []store.Column{
					{Name: "workout_exercise_id", Type: store.TypeString, Indexed: true},
					{Name: "set_number", Type: store.TypeNumber},
					{Name: "weight", Type: store.TypeNumber, Optional: true},
					{Name: "weight_unit", Type: store.TypeString, Optional: true},
					{Name: "reps", Type: store.TypeNumber, Optional: true},
					{Name: "duration_seconds", Type: store.TypeNumber, Optional: true},
					{Name: "distance_meters", Type: store.TypeNumber, Optional: true},
					{Name: "rpe", Type: store.TypeNumber, Optional: true},
					{Name: "rir", Type: store.TypeNumber, Optional: true},
					{Name: "rest_time_seconds", Type: store.TypeNumber, Optional: true},
					{Name: "completed_at", Type: store.TypeNumber, Optional: true},
					{Name: "notes", Type: store.TypeString, Optional: true},
					{Name: "is_warmup", Type: store.TypeBool, Default: false},
					{Name: "is_failure", Type: store.TypeBool, Default: false},
					{Name: "created_at", Type: store.TypeNumber},
					{Name: "updated_at", Type: store.TypeNumber},
				},
			},
		},
	}
}

// Migrations is the additive history up to SchemaVersion. Version 1 stores
// predate nutrition phase tracking; version 2 stores predate the cardio set
// fields.
func Migrations() []store.Migration {
	return []store.Migration{
		{
			Version:     1,
			Description: "initial schema",
			// Initialize lays the full schema down directly; this entry
			// exists so version math stays contiguous for stores that
			// were created before versioning.
			Steps: nil,
		},
		{
			Version:     2,
			Description: "nutrition phase on users and workouts",
			Steps: []store.MigrationStep{
				store.AddColumn{Table: TableUsers, Column: store.Column{
					Name: "nutrition_phase", Type: store.TypeString, Default: "maintenance"}},
				store.AddColumn{Table: TableWorkouts, Column: store.Column{
					Name: "nutrition_phase", Type: store.TypeString, Default: "maintenance"}},
			},
		},
		{
			Version:     3,
			Description: "cardio fields on exercise sets",
			Steps: []store.MigrationStep{
				store.AddColumn{Table: TableExerciseSets, Column: store.Column{
					Name: "distance_meters", Type: store.TypeNumber, Optional: true}},
				store.AddColumn{Table: TableExerciseSets, Column: store.Column{
					Name: "rest_time_seconds", Type: store.TypeNumber, Optional: true}},
			},
		},
	}
}
