package main

import (
	"github.com/spf13/cobra"

	"github.com/hummingbird/service/internal/config"
	"github.com/hummingbird/service/internal/db"
)

func newMigrateCommand() *cobra.Command {
	var down bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply embedded database migrations",
		Example: `  # Apply all pending migrations
  hummingbird migrate

  # Roll back the latest migration
  hummingbird migrate --down`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log, err := newLogger(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			if down {
				return db.Rollback(cfg.DatabaseURL, log)
			}
			return db.Migrate(cfg.DatabaseURL, log)
		},
	}

	cmd.Flags().BoolVar(&down, "down", false, "Roll back the most recent migration instead of applying")
	return cmd
}
