// Package main provides the mentor binary entry point.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "mentor",
		Short:   "Resource-aware essay evaluation orchestrator",
		Version: version,
		Long: `Mentor runs a multi-agent essay evaluation pipeline under explicit
resource control: token budgets, per-agent circuit breakers, a
priority scheduler and result memoization.`,
	}

	cmd.AddCommand(serveCmd())
	cmd.AddCommand(evaluateCmd())
	cmd.AddCommand(sweepCmd())
	return cmd
}
