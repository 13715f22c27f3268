package catalog

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/avery/liftd/internal/models"
	"github.com/avery/liftd/internal/store"
)

// Entry is one exercise in a catalog document.
type Entry struct {
	ID            string   `json:"id"`
	ExerciseDBID  string   `json:"exercisedb_id"`
	Name          string   `json:"name"`
	Category      string   `json:"category"`
	ExerciseType  string   `json:"exercise_type"`
	MuscleGroups  []string `json:"muscle_groups"`
	PrimaryMuscle string   `json:"primary_muscle"`
	Equipment     string   `json:"equipment"`
	Instructions  string   `json:"instructions"`
	Difficulty    string   `json:"difficulty"`
	ImageURL      string   `json:"image_url"`
}

// LoadFile reads a catalog JSON document and imports it. Returns the number
// of exercises written.
func LoadFile(st *store.Store, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read catalog: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return 0, fmt.Errorf("parse catalog: %w", err)
	}
	return Import(st, entries)
}

// Import writes catalog entries into the exercises table as already-synced
// rows: the catalog is reference data shared by every device, so it must
// never enter the push queue. Re-importing overwrites by id.
func Import(st *store.Store, entries []Entry) (int, error) {
	var n int
	err := st.WriteTx(func(tx *store.Tx) error {
		for i, entry := range entries {
			if entry.Name == "" {
				return fmt.Errorf("catalog entry %d: missing name", i)
			}
			if entry.ID == "" {
				return fmt.Errorf("catalog entry %q: missing id", entry.Name)
			}

			now := st.Clock()
			ex := models.Exercise{
				ID:            entry.ID,
				ExerciseDBID:  entry.ExerciseDBID,
				Name:          entry.Name,
				Category:      entry.Category,
				ExerciseType:  models.ExerciseType(entry.ExerciseType),
				MuscleGroups:  entry.MuscleGroups,
				PrimaryMuscle: entry.PrimaryMuscle,
				Equipment:     entry.Equipment,
				Instructions:  entry.Instructions,
				Difficulty:    entry.Difficulty,
				ImageURL:      entry.ImageURL,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			if ex.ExerciseType == "" {
				ex.ExerciseType = models.ExerciseStrength
			}

			rec := ex.Record()
			rec.ChangedAt = now
			if err := tx.ApplyRemote(models.TableExercises, rec); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}
