package rag

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestIndexerLoadsMarkdownFiles(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "hours.md", "# Hours\nOpen 9-5 weekdays.")
	writeDoc(t, dir, "shipping.md", "Orders ship within 3 days.")
	writeDoc(t, dir, "notes.txt", "not markdown")
	writeDoc(t, dir, "empty.md", "   ")

	store := &fakeStore{}
	indexer := NewIndexer(IndexerConfig{DocsDir: dir}, &fakeEmbedder{}, store)

	stats, err := indexer.Index(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalFiles)
	assert.Equal(t, 2, stats.IndexedFiles)
	assert.Equal(t, 2, stats.SkippedFiles)
	require.Len(t, store.docs, 2)

	sources := []string{store.docs[0].Source, store.docs[1].Source}
	assert.ElementsMatch(t, []string{"hours.md", "shipping.md"}, sources)
	for _, doc := range store.docs {
		assert.NotEmpty(t, doc.ID)
		assert.NotEmpty(t, doc.Embedding)
	}
}

func TestIndexerStableDocumentIDs(t *testing.T) {
	assert.Equal(t, documentID("hours.md"), documentID("hours.md"))
	assert.NotEqual(t, documentID("hours.md"), documentID("shipping.md"))
	assert.Len(t, documentID("hours.md"), 16)
}

func TestIndexerMissingDir(t *testing.T) {
	indexer := NewIndexer(IndexerConfig{DocsDir: "/nonexistent/docs"}, &fakeEmbedder{}, &fakeStore{})

	_, err := indexer.Index(context.Background())
	assert.Error(t, err)
}

func TestIndexerEmptyDir(t *testing.T) {
	store := &fakeStore{}
	indexer := NewIndexer(IndexerConfig{DocsDir: t.TempDir()}, &fakeEmbedder{}, store)

	stats, err := indexer.Index(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.IndexedFiles)
	assert.Equal(t, 0, store.Count())
}
