package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vexcore/vexel/application/registry"
	collectiondomain "github.com/vexcore/vexel/domain/collection"
	"github.com/vexcore/vexel/infrastructure/embedder"
	"github.com/vexcore/vexel/internal/config"
	"github.com/vexcore/vexel/internal/log"
)

func indexCmd() *cobra.Command {
	var (
		envFile        string
		collectionName string
		files          string
		model          string
		variant        string
		indexColumns   []string
		batchSize      int
		overwrite      bool
		hfToken        string
	)

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Create a collection, import data, and build its vector indices",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(envFile, indexOptions{
				collectionName: collectionName,
				files:          files,
				model:          model,
				variant:        variant,
				indexColumns:   indexColumns,
				batchSize:      batchSize,
				overwrite:      overwrite,
				hfToken:        hfToken,
			})
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file")
	cmd.Flags().StringVar(&collectionName, "collection-name", "", "Name of the collection to create (required)")
	cmd.Flags().StringVar(&files, "files", "", "Glob pattern of JSONL or Parquet files to import (required)")
	cmd.Flags().StringVar(&model, "model", "", "Embedder path, or an hf:// reference")
	cmd.Flags().StringVar(&variant, "variant", config.DefaultModelVariant, "Embedder file/variant name")
	cmd.Flags().StringSliceVar(&indexColumns, "index-columns", nil, "Columns to embed and index (required)")
	cmd.Flags().IntVar(&batchSize, "batch-size", config.DefaultBatchSize, "Rows per embedding batch")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing collection of the same name")
	cmd.Flags().StringVar(&hfToken, "hf-token", "", "Hub authentication token (overrides HF_TOKEN)")
	_ = cmd.MarkFlagRequired("collection-name")
	_ = cmd.MarkFlagRequired("files")
	_ = cmd.MarkFlagRequired("index-columns")

	return cmd
}

type indexOptions struct {
	collectionName string
	files          string
	model          string
	variant        string
	indexColumns   []string
	batchSize      int
	overwrite      bool
	hfToken        string
}

func runIndex(envFile string, o indexOptions) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}
	if o.hfToken != "" {
		cfg = cfg.Apply(config.WithHFToken(o.hfToken))
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	logger := log.NewLogger(cfg)
	slogger := logger.Slog()

	resolver := embedder.NewHubDownloader(cfg.DataDir())
	models := registry.NewModelRegistry(resolver, cfg.DataDir())
	reg := registry.NewCollectionRegistry(cfg.CollectionsDir(), models, registry.BackendHugot, cfg.HFToken())
	defer reg.Close()

	ctx := context.Background()

	collCfg := collectiondomain.Config{
		Name:         o.collectionName,
		ModelName:    o.model,
		ModelVariant: o.variant,
		IndexColumns: o.indexColumns,
	}

	slogger.Info("creating collection", slog.String("name", o.collectionName))
	if err := reg.Create(ctx, collCfg, o.overwrite); err != nil {
		return fmt.Errorf("create collection %s: %w", o.collectionName, err)
	}

	slogger.Info("importing files", slog.String("pattern", o.files))
	if err := importFiles(ctx, reg, o.collectionName, o.files); err != nil {
		return fmt.Errorf("import %s into %s: %w", o.files, o.collectionName, err)
	}

	for _, col := range o.indexColumns {
		slogger.Info("embedding column", slog.String("column", col))
		if err := reg.EmbedColumn(ctx, o.collectionName, col, o.batchSize); err != nil {
			return fmt.Errorf("embed column %s: %w", col, err)
		}
	}

	slogger.Info("indexing complete", slog.String("collection", o.collectionName))
	return nil
}

func importFiles(ctx context.Context, reg *registry.CollectionRegistry, name, pattern string) error {
	if isParquet(pattern) {
		return reg.ImportParquet(ctx, name, pattern)
	}
	return reg.ImportJSONL(ctx, name, pattern)
}

func isParquet(pattern string) bool {
	return strings.EqualFold(filepath.Ext(strings.TrimSuffix(pattern, "*")), ".parquet")
}
