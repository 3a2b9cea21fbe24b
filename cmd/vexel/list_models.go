package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vexcore/vexel/internal/config"
)

func listModelsCmd() *cobra.Command {
	var (
		envFile string
		hfToken string
	)

	cmd := &cobra.Command{
		Use:   "list-models",
		Short: "List locally cached embedder models",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runListModels(envFile, hfToken)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file")
	cmd.Flags().StringVar(&hfToken, "hf-token", "", "Hub authentication token (overrides HF_TOKEN)")

	return cmd
}

func runListModels(envFile, hfToken string) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}
	if hfToken != "" {
		cfg = cfg.Apply(config.WithHFToken(hfToken))
	}

	entries, err := os.ReadDir(cfg.DataDir())
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("(no models cached yet)")
			return nil
		}
		return fmt.Errorf("read data directory: %w", err)
	}

	found := false
	for _, entry := range entries {
		if !entry.IsDir() || entry.Name() == "collections" {
			continue
		}
		if hasTokenizer(filepath.Join(cfg.DataDir(), entry.Name())) {
			fmt.Println(entry.Name())
			found = true
		}
	}
	if !found {
		fmt.Println("(no models cached yet)")
	}
	return nil
}

func hasTokenizer(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, "tokenizer.json"))
	return err == nil
}
