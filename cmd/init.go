package cmd

import (
	"github.com/spf13/cobra"

	"github.com/avery/liftd/internal/catalog"
	"github.com/avery/liftd/internal/models"
	"github.com/avery/liftd/internal/ops"
	"github.com/avery/liftd/internal/output"
	"github.com/avery/liftd/internal/session"
	"github.com/avery/liftd/internal/store"
	"github.com/avery/liftd/internal/syncconfig"
)

var (
	initCatalogPath string
	initUserID      string
	initEmail       string
)

var initCmd = &cobra.Command{
	Use:     "init",
	Short:   "Create the local workout database",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Initialize(getBaseDir(), models.Schema(), models.Migrations())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer st.Close()

		if initUserID != "" {
			creds, err := syncconfig.LoadAuth()
			if err != nil {
				output.Error("%v", err)
				return err
			}
			if creds == nil {
				creds = &syncconfig.AuthCredentials{}
			}
			creds.UserID = initUserID
			if initEmail != "" {
				creds.Email = initEmail
			}
			if err := syncconfig.SaveAuth(creds); err != nil {
				output.Error("%v", err)
				return err
			}
		}

		svc := ops.NewService(st, session.ConfigProvider{})
		if _, err := svc.EnsureUser(initEmail); err != nil {
			output.Warning("no user record created: %v", err)
		}

		if initCatalogPath != "" {
			n, err := catalog.LoadFile(st, initCatalogPath)
			if err != nil {
				output.Error("%v", err)
				return err
			}
			output.Info("imported %d catalog exercises", n)
		}

		output.Success("initialized workout store in %s/.liftd", getBaseDir())
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&initCatalogPath, "catalog", "", "JSON exercise catalog to import")
	initCmd.Flags().StringVar(&initUserID, "user", "", "user id to store in auth config")
	initCmd.Flags().StringVar(&initEmail, "email", "", "email to store on the user record")
	rootCmd.AddCommand(initCmd)
}
