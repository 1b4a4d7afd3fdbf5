// Package cmd holds the command line entry points.
package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"spot-the-difference/config"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:           "spot-the-difference",
	Short:         "Spot-the-difference game service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", config.DefaultConfigFile, "optional YAML config file")
	rootCmd.AddCommand(serveCmd, migrateCmd, quotaCmd)
}

// Execute runs the CLI. Without a sub-command it serves HTTP.
func Execute(ctx context.Context) error {
	rootCmd.RunE = serveCmd.RunE
	return rootCmd.ExecuteContext(ctx)
}

func loadConfig() (*config.Config, error) {
	return config.Load(configFile)
}
