// Package main is the entry point for the vexel CLI: a self-contained
// vector search service that ingests JSONL/Parquet, embeds text columns via
// a local neural model, builds ANN indices, and serves similarity queries
// over HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vexcore/vexel/internal/config"
)

// Version information set via ldflags during build.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vexel",
		Short: "Vexel vector search engine",
		Long:  `Vexel ingests structured documents, embeds text columns locally, builds ANN indices, and serves similarity search over HTTP.`,
	}

	cmd.AddCommand(indexCmd())
	cmd.AddCommand(serveCmd())
	cmd.AddCommand(listModelsCmd())
	cmd.AddCommand(versionCmd())

	return cmd
}

// loadConfig loads configuration from .env file and environment variables.
func loadConfig(envFile string) (config.AppConfig, error) {
	cfg, err := config.LoadConfig(envFile)
	if err != nil {
		return config.AppConfig{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
