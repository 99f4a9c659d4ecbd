package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/diogoX451/mentor/internal/config"
	"github.com/diogoX451/mentor/internal/core/service"
	"github.com/diogoX451/mentor/pkg/types"
)

func evaluateCmd() *cobra.Command {
	var (
		essayFile   string
		gradeLevel  string
		requestType string
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Run a single essay evaluation and print the result",
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

			content, err := os.ReadFile(essayFile)
			if err != nil {
				return fmt.Errorf("read essay: %w", err)
			}

			input, err := json.Marshal(map[string]string{
				"essay_content": string(content),
				"grade_level":   gradeLevel,
			})
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			core.Start(ctx)
			defer func() {
				stopCtx, stopCancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer stopCancel()
				if err := core.Stop(stopCtx); err != nil {
					log.Printf("Orchestrator shutdown: %v", err)
				}
			}()

			snap, err := core.Evaluate(ctx, requestType, input)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(json.RawMessage(snap.FinalResult), "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}

	cmd.Flags().StringVarP(&essayFile, "essay", "e", "", "path to the essay text file")
	cmd.Flags().StringVarP(&gradeLevel, "grade", "g", "default", "grade level of the author")
	cmd.Flags().StringVar(&requestType, "type", types.RequestEssayEvaluation, "request type")
	_ = cmd.MarkFlagRequired("essay")
	return cmd
}
