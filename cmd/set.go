package cmd

import (
	"github.com/spf13/cobra"

	"github.com/avery/liftd/internal/models"
	"github.com/avery/liftd/internal/ops"
	"github.com/avery/liftd/internal/output"
)

var setCmd = &cobra.Command{
	Use:     "set",
	Short:   "Log and edit performed sets",
	GroupID: "workout",
}

var (
	setWeight   float64
	setUnit     string
	setReps     int
	setDuration int64
	setDistance float64
	setRPE      float64
	setRIR      int
	setRest     int64
	setNotes    string
	setWarmup   bool
	setFailure  bool
	setNumber   int
)

// optionalFlags converts only the flags the user actually passed into
// pointers, so absent flags stay absent instead of becoming zero values.
func logParams(cmd *cobra.Command, workoutExerciseID string) ops.LogSetParams {
	p := ops.LogSetParams{
		WorkoutExerciseID: workoutExerciseID,
		SetNumber:         setNumber,
		WeightUnit:        models.WeightUnit(setUnit),
		Notes:             setNotes,
		IsWarmup:          setWarmup,
		IsFailure:         setFailure,
	}
	if cmd.Flags().Changed("weight") {
		p.Weight = &setWeight
	}
	if cmd.Flags().Changed("reps") {
		p.Reps = &setReps
	}
	if cmd.Flags().Changed("duration") {
		p.DurationSeconds = &setDuration
	}
	if cmd.Flags().Changed("distance") {
		p.DistanceMeters = &setDistance
	}
	if cmd.Flags().Changed("rpe") {
		p.RPE = &setRPE
	}
	if cmd.Flags().Changed("rir") {
		p.RIR = &setRIR
	}
	if cmd.Flags().Changed("rest") {
		p.RestTimeSeconds = &setRest
	}
	return p
}

var setLogCmd = &cobra.Command{
	Use:   "log [workout-exercise-id]",
	Short: "Log a performed set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, st, err := openService()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer st.Close()

		set, err := svc.LogSet(logParams(cmd, args[0]))
		if err != nil {
			output.Error("%v", err)
			return err
		}
		output.Success("logged set %s", output.FormatSetLine(set))
		return nil
	},
}

var setUpdateCmd = &cobra.Command{
	Use:   "update [set-id]",
	Short: "Edit a logged set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, st, err := openService()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer st.Close()

		var p ops.UpdateSetParams
		if cmd.Flags().Changed("weight") {
			p.Weight = &setWeight
		}
		if cmd.Flags().Changed("reps") {
			p.Reps = &setReps
		}
		if cmd.Flags().Changed("rpe") {
			p.RPE = &setRPE
		}
		if cmd.Flags().Changed("rir") {
			p.RIR = &setRIR
		}
		if cmd.Flags().Changed("notes") {
			p.Notes = &setNotes
		}
		if cmd.Flags().Changed("warmup") {
			p.IsWarmup = &setWarmup
		}
		if cmd.Flags().Changed("failure") {
			p.IsFailure = &setFailure
		}

		set, err := svc.UpdateSet(args[0], p)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		output.Success("updated set %s", output.FormatSetLine(set))
		return nil
	},
}

var setDeleteCmd = &cobra.Command{
	Use:   "delete [set-id]",
	Short: "Delete a logged set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, st, err := openService()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer st.Close()

		if err := svc.DeleteSet(args[0]); err != nil {
			output.Error("%v", err)
			return err
		}
		output.Success("deleted set %s", output.ShortID(args[0]))
		return nil
	},
}

var setListCmd = &cobra.Command{
	Use:   "list [workout-exercise-id]",
	Short: "List the sets under a workout exercise",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, st, err := openService()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer st.Close()

		sets, err := svc.ListSets(args[0])
		if err != nil {
			output.Error("%v", err)
			return err
		}
		for _, set := range sets {
			output.Info("%s  %s", output.FormatSetLine(set), output.Subtle(output.ShortID(set.ID)))
		}
		return nil
	},
}

func addSetValueFlags(cmd *cobra.Command) {
	cmd.Flags().Float64VarP(&setWeight, "weight", "w", 0, "weight lifted")
	cmd.Flags().IntVarP(&setReps, "reps", "r", 0, "repetitions")
	cmd.Flags().Float64Var(&setRPE, "rpe", 0, "rate of perceived exertion (1-10)")
	cmd.Flags().IntVar(&setRIR, "rir", 0, "reps in reserve (0-5)")
	cmd.Flags().StringVarP(&setNotes, "notes", "n", "", "set notes")
	cmd.Flags().BoolVar(&setWarmup, "warmup", false, "mark as warmup set")
	cmd.Flags().BoolVar(&setFailure, "failure", false, "mark as taken to failure")
}

func init() {
	addSetValueFlags(setLogCmd)
	setLogCmd.Flags().StringVarP(&setUnit, "unit", "u", "", "weight unit (kg or lbs)")
	setLogCmd.Flags().Int64Var(&setDuration, "duration", 0, "duration in seconds (cardio)")
	setLogCmd.Flags().Float64Var(&setDistance, "distance", 0, "distance in meters (cardio)")
	setLogCmd.Flags().Int64Var(&setRest, "rest", 0, "rest before this set, seconds")
	setLogCmd.Flags().IntVar(&setNumber, "number", 0, "explicit set number (default: append)")
	addSetValueFlags(setUpdateCmd)

	setCmd.AddCommand(setLogCmd, setUpdateCmd, setDeleteCmd, setListCmd)
	rootCmd.AddCommand(setCmd)
}
