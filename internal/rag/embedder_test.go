package rag

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func embeddingServer(t *testing.T, calls *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		require.Equal(t, "/embeddings", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		data := make([]map[string]any, len(req.Input))
		for i := range req.Input {
			data[i] = map[string]any{
				"embedding": []float32{float32(i), 1.0},
				"index":     i,
			}
		}
		json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
}

func TestEmbedderCachesResults(t *testing.T) {
	var calls int
	server := embeddingServer(t, &calls)
	defer server.Close()

	embedder, err := NewEmbedder(EmbedderConfig{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	first, err := embedder.Embed(context.Background(), "hello")
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := embedder.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestEmbedderBatchMixedCache(t *testing.T) {
	var calls int
	server := embeddingServer(t, &calls)
	defer server.Close()

	embedder, err := NewEmbedder(EmbedderConfig{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = embedder.Embed(context.Background(), "cached")
	require.NoError(t, err)

	results, err := embedder.EmbedBatch(context.Background(), []string{"cached", "fresh"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.NotNil(t, results[0])
	assert.NotNil(t, results[1])
	assert.Equal(t, 2, calls)
}

func TestEmbedderRetriesTransientFailure(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float32{0.5}, "index": 0}},
		})
	}))
	defer server.Close()

	embedder, err := NewEmbedder(EmbedderConfig{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	result, err := embedder.Embed(context.Background(), "retry me")
	require.NoError(t, err)
	assert.NotEmpty(t, result)
	assert.Equal(t, 2, calls)
}

func TestEmbedderDoesNotRetryAuthFailure(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	embedder, err := NewEmbedder(EmbedderConfig{APIKey: "bad-key", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = embedder.Embed(context.Background(), "nope")
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestEmbedderRejectsEmptyBatch(t *testing.T) {
	embedder, err := NewEmbedder(EmbedderConfig{APIKey: "k"})
	require.NoError(t, err)

	_, err = embedder.EmbedBatch(context.Background(), nil)
	assert.Error(t, err)
}
