package rag

import (
	"context"
	"fmt"
	"path/filepath"

	chromem "github.com/philippgille/chromem-go"
)

// StoreConfig holds vector store configuration.
type StoreConfig struct {
	PersistPath string // empty means in-memory only
	Collection  string // defaults to "knowledge"
}

// Document is one knowledge-base entry.
type Document struct {
	ID        string
	Text      string
	Source    string // human-readable label, shown to the model
	Embedding []float32
}

// SearchResult pairs a document with its query similarity.
type SearchResult struct {
	Document   Document
	Similarity float32
}

// VectorStore manages knowledge-base embeddings and similarity search.
type VectorStore interface {
	Add(ctx context.Context, docs []Document) error
	SearchByText(ctx context.Context, query string, topK int, minSimilarity float32) ([]SearchResult, error)
	Count() int
	Close() error
}

type chromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
}

// NewVectorStore opens a chromem-go collection, persistent when a path is
// configured, backed by the given embedder for query embeddings.
func NewVectorStore(config StoreConfig, embedder Embedder) (VectorStore, error) {
	if config.Collection == "" {
		config.Collection = "knowledge"
	}

	var db *chromem.DB
	var err error
	if config.PersistPath != "" {
		db, err = chromem.NewPersistentDB(filepath.Join(config.PersistPath, "chromem.gob"), false)
		if err != nil {
			return nil, fmt.Errorf("create persistent DB: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}

	embeddingFunc := func(ctx context.Context, text string) ([]float32, error) {
		return embedder.Embed(ctx, text)
	}

	collection, err := db.GetOrCreateCollection(config.Collection, nil, embeddingFunc)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &chromemStore{db: db, collection: collection}, nil
}

func (s *chromemStore) Add(ctx context.Context, docs []Document) error {
	for _, doc := range docs {
		err := s.collection.AddDocument(ctx, chromem.Document{
			ID:        doc.ID,
			Content:   doc.Text,
			Embedding: doc.Embedding,
			Metadata:  map[string]string{"source": doc.Source},
		})
		if err != nil {
			return fmt.Errorf("add document %s: %w", doc.ID, err)
		}
	}
	return nil
}

func (s *chromemStore) SearchByText(ctx context.Context, query string, topK int, minSimilarity float32) ([]SearchResult, error) {
	if topK <= 0 {
		topK = 3
	}

	// chromem requires topK <= collection size.
	if count := s.collection.Count(); count == 0 {
		return nil, nil
	} else if topK > count {
		topK = count
	}

	results, err := s.collection.Query(ctx, query, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}

	var searchResults []SearchResult
	for _, r := range results {
		if r.Similarity < minSimilarity {
			continue
		}
		searchResults = append(searchResults, SearchResult{
			Document: Document{
				ID:        r.ID,
				Text:      r.Content,
				Source:    r.Metadata["source"],
				Embedding: r.Embedding,
			},
			Similarity: r.Similarity,
		})
	}
	return searchResults, nil
}

func (s *chromemStore) Count() int {
	return s.collection.Count()
}

func (s *chromemStore) Close() error {
	// chromem-go persists on every change, nothing to flush.
	return nil
}
