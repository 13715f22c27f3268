package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/avery/liftd/internal/models"
	"github.com/avery/liftd/internal/ops"
	"github.com/avery/liftd/internal/session"
	"github.com/avery/liftd/internal/store"
)

var (
	version string
	baseDir string
)

// SetVersion sets the version string
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

var rootCmd = &cobra.Command{
	Use:   "liftd",
	Short: "Offline-first workout tracking CLI",
	Long: `liftd - A local-first workout log with background sync.

Every command works offline against a local database; 'liftd sync' reconciles
with the sync server whenever a connection is available.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initBaseDir)

	rootCmd.AddGroup(
		&cobra.Group{ID: "workout", Title: "Workout Commands:"},
		&cobra.Group{ID: "sync", Title: "Sync Commands:"},
		&cobra.Group{ID: "system", Title: "System Commands:"},
	)
	rootCmd.SetHelpCommandGroupID("system")
	rootCmd.SetCompletionCommandGroupID("system")
}

func initBaseDir() {
	if v := os.Getenv("LIFTD_DIR"); v != "" {
		baseDir = v
		return
	}
	home, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot determine home directory: %v\n", err)
		os.Exit(1)
	}
	baseDir = home
}

// getBaseDir returns the directory holding the .liftd data dir.
func getBaseDir() string {
	return baseDir
}

// openStore opens the existing local store.
func openStore() (*store.Store, error) {
	return store.Open(getBaseDir(), models.Schema(), models.Migrations())
}

// openService opens the store and wraps it in the operations service.
// Callers must Close the returned store.
func openService() (*ops.Service, *store.Store, error) {
	st, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	return ops.NewService(st, session.ConfigProvider{}), st, nil
}
