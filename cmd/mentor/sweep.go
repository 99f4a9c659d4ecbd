package main

import (
	"context"
	"log"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/diogoX451/mentor/internal/config"
	"github.com/diogoX451/mentor/internal/store/disk"
)

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired cache entries from disk",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				log.Fatalf("Failed to load config: %v", err)
			}

			logger := newLogger(cfg.App.LogLevel)
			diskStore, err := disk.New(disk.Config{Dir: cfg.Cache.Dir}, logger)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			removed, err := diskStore.SweepExpired(ctx, time.Now())
			if err != nil {
				return err
			}
			logger.Info("sweep finished", slog.Int("removed", removed))
			return nil
		},
	}
}
