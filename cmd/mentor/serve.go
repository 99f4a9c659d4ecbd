package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/diogoX451/mentor/internal/api"
	"github.com/diogoX451/mentor/internal/config"
	"github.com/diogoX451/mentor/internal/core/service"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				log.Fatalf("Failed to load config: %v", err)
			}

			logger := newLogger(cfg.App.LogLevel)
			core, err := service.New(cfg, logger)
			if err != nil {
				log.Fatalf("Failed to build orchestrator: %v", err)
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			core.Start(ctx)

			server := api.NewServer(core)
			srv := &http.Server{
				Addr:         ":" + cfg.App.Port,
				Handler:      server,
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 120 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			done := make(chan bool, 1)
			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

			go func() {
				<-quit
				log.Println("Server is shutting down...")

				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer shutdownCancel()

				srv.SetKeepAlivesEnabled(false)
				if err := srv.Shutdown(shutdownCtx); err != nil {
					log.Fatalf("Could not gracefully shutdown the server: %v\n", err)
				}
				if err := core.Stop(shutdownCtx); err != nil {
					log.Printf("Orchestrator shutdown: %v", err)
				}
				close(done)
			}()

			log.Printf("Server listening on :%s", cfg.App.Port)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Could not listen on :%s: %v\n", cfg.App.Port, err)
			}

			<-done
			log.Println("Server stopped")
			return nil
		},
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
