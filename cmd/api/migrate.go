package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Bjohan23/SDN-STAFF-sub000/internal/platform/database"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded schema migrations to PostgreSQL",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := database.NewPostgresDB(ctx, cfg.Database, log)
			if err != nil {
				return err
			}
			defer db.Close()

			version, err := database.Migrate(ctx, db)
			if err != nil {
				return err
			}

			log.Info().Int("version", version).Msg("schema up to date")

			return nil
		},
	}
}
