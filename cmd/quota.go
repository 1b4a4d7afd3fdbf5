package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"spot-the-difference/services"
)

var quotaUserID string

var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "Print the app-wide quota and, with --user, one user's quota",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.DB.DSN == "" {
			return fmt.Errorf("DATABASE_URL environment variable not set")
		}
		db, err := services.OpenDatabase(cfg.DB.DSN)
		if err != nil {
			return err
		}

		quota := services.NewQuotaService(db, cfg.Quota.UserGameQuota, cfg.Quota.AppGameQuota, cfg.App.NewLogger(), nil)
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		app, err := quota.AppQuota(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "app:  %d/%d used, %d remaining\n", app.Used, app.Limit, app.Remaining)

		if quotaUserID != "" {
			user, err := quota.UserQuota(ctx, quotaUserID)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "user: %d/%d used, %d remaining (%s)\n", user.Used, user.Limit, user.Remaining, quotaUserID)
		}
		return nil
	},
}

func init() {
	quotaCmd.Flags().StringVar(&quotaUserID, "user", "", "user id to report")
}
