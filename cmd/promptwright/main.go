// Package main implements the promptwright CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	// version information, set at build time
	version = "dev"

	// logLevel overrides logging.level from the config file
	logLevel string
	// metricsAddr serves /metrics for the duration of a command
	metricsAddr string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error:"), err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "promptwright",
	Short: "Generate synthetic instruction-tuning datasets",
	Long: `promptwright builds a topic tree from a root prompt and asks a language
model for conversation samples about each topic path.

Models are written as provider/model, for example ollama/mistral:latest,
openai/gpt-4o-mini or anthropic/claude-3-5-sonnet-20241022.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running, e.g. :9464")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("promptwright %s\n", version)
	},
}
