package cmd

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/avery/liftd/internal/ops"
	"github.com/avery/liftd/internal/output"
)

var workoutCmd = &cobra.Command{
	Use:     "workout",
	Short:   "Start, complete, and inspect workouts",
	GroupID: "workout",
	Aliases: []string{"w"},
}

var (
	workoutTitle string
	workoutNotes string
	listLimit    int
	listJSON     bool
	deleteYes    bool
)

var workoutStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a new workout",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, st, err := openService()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer st.Close()

		w, err := svc.CreateWorkout(ops.CreateWorkoutParams{Title: workoutTitle, Notes: workoutNotes})
		if err != nil {
			output.Error("%v", err)
			return err
		}
		output.Success("started workout %s %s", output.ShortID(w.ID), output.FormatPhase(w.NutritionPhase))
		return nil
	},
}

var workoutCompleteCmd = &cobra.Command{
	Use:   "complete [workout-id]",
	Short: "Complete a workout and record its duration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, st, err := openService()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer st.Close()

		w, err := svc.CompleteWorkout(args[0])
		if err != nil {
			output.Error("%v", err)
			return err
		}
		output.Success("completed workout %s in %s",
			output.ShortID(w.ID), output.FormatDuration(*w.DurationSeconds))
		return nil
	},
}

var workoutDeleteCmd = &cobra.Command{
	Use:   "delete [workout-id]",
	Short: "Delete a workout with all its exercises and sets",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, st, err := openService()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer st.Close()

		if !deleteYes {
			var confirmed bool
			form := huh.NewForm(huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Delete workout %s and everything logged under it?", output.ShortID(args[0]))).
					Value(&confirmed),
			))
			if err := form.Run(); err != nil {
				return err
			}
			if !confirmed {
				output.Info("aborted")
				return nil
			}
		}

		if err := svc.DeleteWorkout(args[0]); err != nil {
			output.Error("%v", err)
			return err
		}
		output.Success("deleted workout %s", output.ShortID(args[0]))
		return nil
	},
}

var workoutShowCmd = &cobra.Command{
	Use:   "show [workout-id]",
	Short: "Show a workout with its exercises and sets",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, st, err := openService()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer st.Close()

		w, err := svc.GetWorkout(args[0])
		if err != nil {
			output.Error("%v", err)
			return err
		}
		output.Info("%s", output.FormatWorkoutLine(w))
		if w.Notes != "" {
			output.Info("%s", output.Subtle(w.Notes))
		}

		wes, err := svc.ListWorkoutExercises(w.ID)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		for _, we := range wes {
			ex, err := svc.GetExercise(we.ExerciseID)
			name := we.ExerciseID
			if err == nil {
				name = ex.Name
			}
			line := fmt.Sprintf("%d. %s", we.OrderIndex+1, output.Title(name))
			if we.SupersetGroup != "" {
				line += output.Subtle("  superset " + we.SupersetGroup)
			}
			output.Info("%s  %s", line, output.Subtle(output.ShortID(we.ID)))

			sets, err := svc.ListSets(we.ID)
			if err != nil {
				output.Error("%v", err)
				return err
			}
			for _, set := range sets {
				output.Info("   %s", output.FormatSetLine(set))
			}
		}
		return nil
	},
}

var workoutListCmd = &cobra.Command{
	Use:   "list",
	Short: "List workouts, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, st, err := openService()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer st.Close()

		workouts, err := svc.ListWorkouts(ops.ListWorkoutsOptions{Limit: listLimit})
		if err != nil {
			output.Error("%v", err)
			return err
		}
		if listJSON {
			return output.JSON(workouts)
		}
		if len(workouts) == 0 {
			output.Info("no workouts yet; run 'liftd workout start'")
			return nil
		}
		for _, w := range workouts {
			output.Info("%s", output.FormatWorkoutLine(w))
		}
		return nil
	},
}

func init() {
	workoutStartCmd.Flags().StringVarP(&workoutTitle, "title", "t", "", "workout title")
	workoutStartCmd.Flags().StringVarP(&workoutNotes, "notes", "n", "", "workout notes")
	workoutDeleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "skip confirmation")
	workoutListCmd.Flags().IntVarP(&listLimit, "limit", "l", 20, "max workouts to show")
	workoutListCmd.Flags().BoolVar(&listJSON, "json", false, "JSON output")

	workoutCmd.AddCommand(workoutStartCmd, workoutCompleteCmd, workoutDeleteCmd,
		workoutShowCmd, workoutListCmd)
	rootCmd.AddCommand(workoutCmd)
}
