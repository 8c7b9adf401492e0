package main

import (
	"errors"

	"github.com/homefix/calbook/libs/db"
	"github.com/homefix/calbook/libs/runtime"
	"github.com/homefix/calbook/services/booking-service/internal/storage"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the bookings and outbox schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := parseConfig(envFiles(cmd))
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return errors.New("DATABASE_URL is required")
			}
			logger := runtime.NewLoggerWithLevel(cfg.ServiceName, cfg.LogLevel)

			ctx, stop := runtime.ShutdownContext(logger)
			defer stop()

			pool, err := db.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := storage.Migrate(ctx, pool); err != nil {
				return err
			}
			logger.Info("schema applied")
			return nil
		},
	}
}
