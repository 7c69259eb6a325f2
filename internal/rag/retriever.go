package rag

import (
	"context"
	"fmt"
	"strings"

	miraerrors "mira/internal/errors"
	"mira/internal/logging"
)

// RetrieverConfig holds retrieval configuration.
type RetrieverConfig struct {
	TopK          int     // defaults to 3
	MinSimilarity float32 // defaults to 0.3
}

// Result is one retrieved knowledge snippet.
type Result struct {
	Text       string
	Source     string
	Similarity float32
}

// Retriever searches the knowledge base for snippets relevant to a message.
type Retriever struct {
	config RetrieverConfig
	store  VectorStore
	logger logging.Logger
}

func NewRetriever(config RetrieverConfig, store VectorStore) *Retriever {
	if config.TopK <= 0 {
		config.TopK = 3
	}
	if config.MinSimilarity <= 0 {
		config.MinSimilarity = 0.3
	}

	return &Retriever{
		config: config,
		store:  store,
		logger: logging.NewComponentLogger("Retriever"),
	}
}

// Retrieve returns the snippets most similar to the message, best first.
func (r *Retriever) Retrieve(ctx context.Context, message string) ([]Result, error) {
	if strings.TrimSpace(message) == "" {
		return nil, nil
	}

	searchResults, err := r.store.SearchByText(ctx, message, r.config.TopK, r.config.MinSimilarity)
	if err != nil {
		return nil, &miraerrors.RetrievalError{Err: fmt.Errorf("search knowledge base: %w", err)}
	}

	results := make([]Result, 0, len(searchResults))
	for _, sr := range searchResults {
		results = append(results, Result{
			Text:       sr.Document.Text,
			Source:     sr.Document.Source,
			Similarity: sr.Similarity,
		})
	}
	r.logger.Debug("Retrieved %d snippet(s) for message", len(results))
	return results, nil
}

// FormatResults renders snippets for the system prompt. Each snippet carries
// its source label so the model can attribute what it repeats. Empty input
// yields an empty string.
func FormatResults(results []Result) string {
	if len(results) == 0 {
		return ""
	}

	parts := make([]string, 0, len(results))
	for _, result := range results {
		source := result.Source
		if source == "" {
			source = "Unknown"
		}
		parts = append(parts, fmt.Sprintf("Source: %s\n%s", source, result.Text))
	}
	return strings.Join(parts, "\n\n")
}
