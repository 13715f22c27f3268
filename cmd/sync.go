package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/avery/liftd/internal/models"
	"github.com/avery/liftd/internal/output"
	"github.com/avery/liftd/internal/store"
	"github.com/avery/liftd/internal/sync"
	"github.com/avery/liftd/internal/syncclient"
	"github.com/avery/liftd/internal/syncconfig"
)

var (
	syncVerbose bool
	syncTimeout time.Duration
)

// newEngine wires store, config, and HTTP client into a sync engine.
func newEngine(st *store.Store) (*sync.Engine, error) {
	deviceID, err := syncconfig.GetDeviceID()
	if err != nil {
		return nil, err
	}
	client := syncclient.New(syncconfig.GetServerURL(), syncconfig.GetAPIKey(), deviceID)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	if syncVerbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	return sync.New(st, client, models.SyncTables, sync.Options{
		BatchSize: syncconfig.GetBatchSize(),
		Logger:    logger,
	}), nil
}

var syncCmd = &cobra.Command{
	Use:     "sync",
	Short:   "Reconcile the local store with the sync server",
	GroupID: "sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer st.Close()

		engine, err := newEngine(st)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
		defer cancel()

		report, err := engine.Sync(ctx)
		if err != nil {
			switch {
			case errors.Is(err, sync.ErrUnavailable):
				output.Warning("server unreachable, local changes kept for next sync")
			case errors.Is(err, sync.ErrUnauthorized):
				output.Error("authentication failed: check LIFTD_AUTH_KEY or auth.json")
			default:
				output.Error("%v", err)
			}
			return err
		}

		output.Success("pulled %d (applied %d), pushed %d in %d batches",
			report.Pulled, report.Applied, report.Pushed, report.Batches)
		return nil
	},
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pending changes and the last sync time",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer st.Close()

		counts, err := st.PendingCounts()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		var total int
		for _, table := range models.SyncTables {
			if n := counts[table]; n > 0 {
				output.Info("%-20s %s", table, output.FormatSyncBadge(n))
				total += n
			}
		}
		if total == 0 {
			output.Success("everything synced")
		}

		last, err := st.LastSyncAt()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		if last.IsZero() {
			output.Info("last sync: never")
		} else {
			output.Info("last sync: %s", last.Local().Format(time.RFC822))
		}
		return nil
	},
}

func init() {
	syncCmd.PersistentFlags().BoolVarP(&syncVerbose, "verbose", "v", false, "debug logging")
	syncCmd.Flags().DurationVar(&syncTimeout, "timeout", 2*time.Minute, "overall cycle timeout")
	syncCmd.AddCommand(syncStatusCmd)
	rootCmd.AddCommand(syncCmd)
}
