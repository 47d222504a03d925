package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Escalate conflicts whose resolution deadline passed, once",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}

			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.close()

			n, err := a.conflicts.CheckExpired(ctx, time.Now().UTC())
			if err != nil {
				return err
			}

			log.Info().Int("escalated", n).Msg("sweep finished")

			return nil
		},
	}
}
