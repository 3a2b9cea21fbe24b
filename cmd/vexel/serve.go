package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vexcore/vexel/application/registry"
	"github.com/vexcore/vexel/infrastructure/api"
	apimiddleware "github.com/vexcore/vexel/infrastructure/api/middleware"
	"github.com/vexcore/vexel/infrastructure/embedder"
	"github.com/vexcore/vexel/internal/config"
	"github.com/vexcore/vexel/internal/log"
)

func serveCmd() *cobra.Command {
	var (
		envFile        string
		collectionName string
		host           string
		port           int
		hfToken        string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a collection over HTTP",
		Long: `Start the HTTP API server for a single collection.

Configuration is loaded in the following order (later sources override earlier):
  1. Default values
  2. .env file (if --env-file specified or .env exists in current directory)
  3. Environment variables
  4. Command line flags

Environment variables:
  HOST          Server host to bind to (default: 0.0.0.0)
  PORT          Server port to listen on (default: 8080)
  DATA_DIR      Root directory holding collections (default: ~/.vexel)
  LOG_LEVEL     Log level: DEBUG, INFO, WARN, ERROR (default: INFO)
  LOG_FORMAT    Log format: pretty, json (default: pretty)
  API_KEYS      Comma-separated list of valid API keys
  HF_TOKEN      Hub authentication token`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(envFile, collectionName, host, port, hfToken)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file (default: .env in current directory)")
	cmd.Flags().StringVar(&collectionName, "collection-name", "", "Collection to serve (required)")
	cmd.Flags().StringVar(&host, "host", "", "Server host to bind to (default: 0.0.0.0)")
	cmd.Flags().IntVar(&port, "port", 0, "Server port to listen on (default: 8080)")
	cmd.Flags().StringVar(&hfToken, "hf-token", "", "Hub authentication token (overrides HF_TOKEN)")
	_ = cmd.MarkFlagRequired("collection-name")

	return cmd
}

func runServe(envFile, collectionName, host string, port int, hfToken string) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}

	var opts []config.AppConfigOption
	if host != "" {
		opts = append(opts, config.WithHost(host))
	}
	if port != 0 {
		opts = append(opts, config.WithPort(port))
	}
	if hfToken != "" {
		opts = append(opts, config.WithHFToken(hfToken))
	}
	cfg = cfg.Apply(opts...)

	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	logger := log.NewLogger(cfg)
	slogger := logger.Slog()

	resolver := embedder.NewHubDownloader(cfg.DataDir())
	models := registry.NewModelRegistry(resolver, cfg.DataDir())
	reg := registry.NewCollectionRegistry(cfg.CollectionsDir(), models, registry.BackendHugot, cfg.HFToken())
	defer func() {
		if err := reg.Close(); err != nil {
			slogger.Error("failed to close collection registry", slog.Any("error", err))
		}
	}()

	if err := reg.Load(context.Background(), collectionName); err != nil {
		return fmt.Errorf("load collection %s: %w", collectionName, err)
	}

	attrs := append([]slog.Attr{slog.String("version", version), slog.String("collection", collectionName)}, cfg.LogAttrs()...)
	slogger.LogAttrs(context.Background(), slog.LevelInfo, "starting vexel", attrs...)

	auth := apimiddleware.NewAuthConfigWithKeys(cfg.APIKeys())
	api.Version = version
	handlers := api.NewHandlers(reg, slogger, auth)

	server := api.NewServer(cfg.Addr(), slogger)
	handlers.Mount(server.Router())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		slogger.Info("shutting down server")
		cancel()
		if err := server.Shutdown(ctx); err != nil {
			slogger.Error("shutdown error", slog.Any("error", err))
		}
	}()

	slogger.Info("starting server", slog.String("addr", cfg.Addr()))
	if err := server.Start(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
