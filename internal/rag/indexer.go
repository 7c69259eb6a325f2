package rag

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mira/internal/logging"
)

// IndexerConfig holds knowledge-base indexing configuration.
type IndexerConfig struct {
	// DocsDir is the directory of markdown knowledge files. Each file becomes
	// one document whose source label is the file name.
	DocsDir string
}

// IndexStats summarizes one indexing run.
type IndexStats struct {
	TotalFiles   int
	IndexedFiles int
	SkippedFiles int
}

// Indexer loads markdown knowledge files into the vector store.
type Indexer struct {
	config   IndexerConfig
	embedder Embedder
	store    VectorStore
	logger   logging.Logger
}

func NewIndexer(config IndexerConfig, embedder Embedder, store VectorStore) *Indexer {
	return &Indexer{
		config:   config,
		embedder: embedder,
		store:    store,
		logger:   logging.NewComponentLogger("Indexer"),
	}
}

// Index embeds every markdown file under DocsDir and stores the results.
// Documents are batched into one embeddings call per run.
func (idx *Indexer) Index(ctx context.Context) (*IndexStats, error) {
	stats := &IndexStats{}

	entries, err := os.ReadDir(idx.config.DocsDir)
	if err != nil {
		return nil, fmt.Errorf("read docs dir: %w", err)
	}

	var docs []Document
	var texts []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			stats.SkippedFiles++
			continue
		}
		stats.TotalFiles++

		content, err := os.ReadFile(filepath.Join(idx.config.DocsDir, entry.Name()))
		if err != nil {
			return stats, fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		text := strings.TrimSpace(string(content))
		if text == "" {
			stats.SkippedFiles++
			continue
		}

		docs = append(docs, Document{
			ID:     documentID(entry.Name()),
			Text:   text,
			Source: entry.Name(),
		})
		texts = append(texts, text)
	}

	if len(docs) == 0 {
		return stats, nil
	}

	embeddings, err := idx.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return stats, fmt.Errorf("embed documents: %w", err)
	}
	for i := range docs {
		docs[i].Embedding = embeddings[i]
	}

	if err := idx.store.Add(ctx, docs); err != nil {
		return stats, fmt.Errorf("store documents: %w", err)
	}

	stats.IndexedFiles = len(docs)
	idx.logger.Info("Indexed %d knowledge file(s), %d skipped", stats.IndexedFiles, stats.SkippedFiles)
	return stats, nil
}

// documentID derives a stable ID from the file name so re-indexing replaces
// the previous version instead of duplicating it.
func documentID(name string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(name)))[:16]
}
