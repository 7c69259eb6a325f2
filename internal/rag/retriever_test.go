package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	miraerrors "mira/internal/errors"
)

type fakeStore struct {
	results []SearchResult
	err     error
	queries []string
	lastK   int
	lastMin float32
	docs    []Document
}

func (f *fakeStore) Add(_ context.Context, docs []Document) error {
	f.docs = append(f.docs, docs...)
	return nil
}

func (f *fakeStore) SearchByText(_ context.Context, query string, topK int, minSimilarity float32) ([]SearchResult, error) {
	f.queries = append(f.queries, query)
	f.lastK = topK
	f.lastMin = minSimilarity
	return f.results, f.err
}

func (f *fakeStore) Count() int { return len(f.docs) }

func (f *fakeStore) Close() error { return nil }

func TestRetrieverReturnsSnippets(t *testing.T) {
	store := &fakeStore{
		results: []SearchResult{
			{Document: Document{Text: "Our hours are 9-5.", Source: "hours.md"}, Similarity: 0.8},
			{Document: Document{Text: "Ship within 3 days.", Source: "shipping.md"}, Similarity: 0.5},
		},
	}
	retriever := NewRetriever(RetrieverConfig{}, store)

	results, err := retriever.Retrieve(context.Background(), "when are you open?")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "hours.md", results[0].Source)
	assert.Equal(t, 3, store.lastK)
	assert.InDelta(t, 0.3, store.lastMin, 0.001)
}

func TestRetrieverEmptyMessage(t *testing.T) {
	store := &fakeStore{}
	retriever := NewRetriever(RetrieverConfig{}, store)

	results, err := retriever.Retrieve(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Empty(t, store.queries)
}

func TestRetrieverWrapsStoreFailure(t *testing.T) {
	store := &fakeStore{err: errors.New("index offline")}
	retriever := NewRetriever(RetrieverConfig{}, store)

	_, err := retriever.Retrieve(context.Background(), "anything")
	require.Error(t, err)

	var retrievalErr *miraerrors.RetrievalError
	assert.True(t, errors.As(err, &retrievalErr))
}

func TestFormatResults(t *testing.T) {
	results := []Result{
		{Text: "Our hours are 9-5.", Source: "hours.md"},
		{Text: "Ship within 3 days.", Source: "shipping.md"},
	}

	got := FormatResults(results)
	want := "Source: hours.md\nOur hours are 9-5.\n\nSource: shipping.md\nShip within 3 days."
	assert.Equal(t, want, got)
}

func TestFormatResultsEmpty(t *testing.T) {
	assert.Empty(t, FormatResults(nil))
}

func TestFormatResultsUnknownSource(t *testing.T) {
	got := FormatResults([]Result{{Text: "orphan snippet"}})
	assert.Equal(t, "Source: Unknown\norphan snippet", got)
}

type fakeEmbedder struct {
	calls int
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls++
	return []float32{float32(len(text))}, nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text))}
	}
	return out, nil
}
