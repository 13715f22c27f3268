package cmd

import (
	"github.com/spf13/cobra"

	"github.com/avery/liftd/internal/models"
	"github.com/avery/liftd/internal/output"
)

var userCmd = &cobra.Command{
	Use:     "user",
	Short:   "Adjust profile settings",
	GroupID: "system",
}

var userUnitCmd = &cobra.Command{
	Use:   "unit [kg|lbs]",
	Short: "Set the preferred weight unit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, st, err := openService()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer st.Close()

		if err := svc.SetPreferredUnit(models.WeightUnit(args[0])); err != nil {
			output.Error("%v", err)
			return err
		}
		output.Success("preferred unit set to %s", args[0])
		return nil
	},
}

var userPhaseCmd = &cobra.Command{
	Use:   "phase [bulk|cut|maintenance]",
	Short: "Set the current nutrition phase",
	Long: `Set the current nutrition phase. New workouts snapshot this value;
existing workouts keep the phase they were logged under.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, st, err := openService()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer st.Close()

		if err := svc.SetNutritionPhase(models.NutritionPhase(args[0])); err != nil {
			output.Error("%v", err)
			return err
		}
		output.Success("nutrition phase set to %s", args[0])
		return nil
	},
}

func init() {
	userCmd.AddCommand(userUnitCmd, userPhaseCmd)
	rootCmd.AddCommand(userCmd)
}
