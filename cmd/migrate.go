package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"spot-the-difference/services"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database tables",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.DB.DSN == "" {
			return fmt.Errorf("DATABASE_URL environment variable not set")
		}
		logger := cfg.App.NewLogger()

		db, err := services.OpenDatabase(cfg.DB.DSN)
		if err != nil {
			return err
		}
		if err := services.Migrate(db); err != nil {
			return err
		}
		logger.Info("✅ Database migrated")
		return nil
	},
}
