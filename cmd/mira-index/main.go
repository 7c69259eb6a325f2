package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"mira/internal/config"
	"mira/internal/logging"
	"mira/internal/rag"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var docsDir string

	cmd := &cobra.Command{
		Use:   "mira-index",
		Short: "Index markdown knowledge files into the vector store",
		Long:  "mira-index embeds every markdown file in a directory and loads it into the assistant's knowledge base.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(docsDir)
		},
	}
	cmd.Flags().StringVarP(&docsDir, "docs", "d", "./documents", "directory of markdown knowledge files")
	return cmd
}

func runIndex(docsDir string) error {
	logger := logging.NewComponentLogger("Index")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	embedder, err := rag.NewEmbedder(rag.EmbedderConfig{
		Model:   cfg.Retrieval.EmbedModel,
		APIKey:  cfg.Retrieval.EmbedAPIKey,
		BaseURL: cfg.Retrieval.EmbedBaseURL,
	})
	if err != nil {
		return fmt.Errorf("create embedder: %w", err)
	}

	store, err := rag.NewVectorStore(rag.StoreConfig{
		PersistPath: cfg.Retrieval.PersistPath,
		Collection:  cfg.Retrieval.Collection,
	}, embedder)
	if err != nil {
		return fmt.Errorf("open vector store: %w", err)
	}
	defer store.Close()

	indexer := rag.NewIndexer(rag.IndexerConfig{DocsDir: docsDir}, embedder, store)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	stats, err := indexer.Index(ctx)
	if err != nil {
		return fmt.Errorf("index documents: %w", err)
	}

	logger.Info("Indexed %d/%d file(s), %d skipped, %d total in store",
		stats.IndexedFiles, stats.TotalFiles, stats.SkippedFiles, store.Count())
	return nil
}
