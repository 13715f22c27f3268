package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/avery/liftd/internal/output"
	"github.com/avery/liftd/pkg/monitor"
)

var monitorCmd = &cobra.Command{
	Use:     "monitor",
	Short:   "Live dashboard of pending changes and sync state",
	GroupID: "sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			output.Error("monitor requires an interactive terminal")
			return cmd.Help()
		}

		svc, st, err := openService()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer st.Close()

		engine, err := newEngine(st)
		if err != nil {
			output.Warning("sync unavailable: %v", err)
			engine = nil
		}

		return monitor.Run(svc, engine)
	},
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}
