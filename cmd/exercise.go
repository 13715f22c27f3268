package cmd

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/avery/liftd/internal/ops"
	"github.com/avery/liftd/internal/output"
)

var exerciseCmd = &cobra.Command{
	Use:     "exercise",
	Short:   "Browse the catalog and build workouts",
	GroupID: "workout",
	Aliases: []string{"ex"},
}

var (
	exCategory  string
	exEquipment string
	exOrder     int
	exSuperset  string
	exNotes     string
	exJSON      bool
)

var exerciseListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog exercises",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, st, err := openService()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer st.Close()

		exercises, err := svc.ListExercises(ops.ListExercisesOptions{
			Category: exCategory, Equipment: exEquipment,
		})
		if err != nil {
			output.Error("%v", err)
			return err
		}
		if exJSON {
			return output.JSON(exercises)
		}
		if len(exercises) == 0 {
			output.Info("catalog is empty; run 'liftd init --catalog exercises.json'")
			return nil
		}
		for _, ex := range exercises {
			output.Info("%s  %s  %s", output.ShortID(ex.ID), output.Title(ex.Name),
				output.Subtle(ex.Category+" / "+ex.Equipment))
		}
		return nil
	},
}

var exerciseAddCmd = &cobra.Command{
	Use:   "add [workout-id] [exercise-id]",
	Short: "Add a catalog exercise to a workout",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, st, err := openService()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer st.Close()

		p := ops.AddExerciseParams{
			WorkoutID:     args[0],
			ExerciseID:    args[1],
			SupersetGroup: exSuperset,
			Notes:         exNotes,
		}
		if cmd.Flags().Changed("order") {
			p.OrderIndex = &exOrder
		}

		we, err := svc.AddExercise(p)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		output.Success("added exercise at position %d (%s)", we.OrderIndex+1, output.ShortID(we.ID))
		return nil
	},
}

var exerciseReorderCmd = &cobra.Command{
	Use:   "reorder [workout-exercise-id] [new-index]",
	Short: "Move an exercise within its workout",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, st, err := openService()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer st.Close()

		idx, err := strconv.Atoi(args[1])
		if err != nil {
			output.Error("invalid index %q", args[1])
			return err
		}
		if err := svc.ReorderExercise(args[0], idx); err != nil {
			output.Error("%v", err)
			return err
		}
		output.Success("moved %s to position %d", output.ShortID(args[0]), idx+1)
		return nil
	},
}

func init() {
	exerciseListCmd.Flags().StringVar(&exCategory, "category", "", "filter by category")
	exerciseListCmd.Flags().StringVar(&exEquipment, "equipment", "", "filter by equipment")
	exerciseListCmd.Flags().BoolVar(&exJSON, "json", false, "JSON output")
	exerciseAddCmd.Flags().IntVar(&exOrder, "order", 0, "explicit position (default: append)")
	exerciseAddCmd.Flags().StringVar(&exSuperset, "superset", "", "superset group label")
	exerciseAddCmd.Flags().StringVar(&exNotes, "notes", "", "exercise notes")

	exerciseCmd.AddCommand(exerciseListCmd, exerciseAddCmd, exerciseReorderCmd)
	rootCmd.AddCommand(exerciseCmd)
}
