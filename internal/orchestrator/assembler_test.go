package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	miraerrors "mira/internal/errors"
	"mira/internal/memory"
	"mira/internal/rag"
)

type stubRetriever struct {
	results []rag.Result
	err     error
}

func (s *stubRetriever) Retrieve(_ context.Context, _ string) ([]rag.Result, error) {
	return s.results, s.err
}

func newAssemblerFixture(retriever ContextRetriever) (*Assembler, *memory.Service, *memory.InMemoryStore) {
	store := memory.NewInMemoryStore()
	mem := memory.NewService(memory.NewCache(memory.MaxCachedSessions, memory.MaxCacheTurns), store)
	return NewAssembler(mem, retriever), mem, store
}

func TestAssembleFixedOrder(t *testing.T) {
	retriever := &stubRetriever{results: []rag.Result{{Text: "Open 9-5.", Source: "hours.md"}}}
	assembler, mem, _ := newAssemblerFixture(retriever)
	ctx := context.Background()

	require.NoError(t, mem.AddMessage(ctx, "s1", "hi", "hello!", ""))

	got, err := assembler.Assemble(ctx, "s1", "when are you open?", "2+2 = 4")
	require.NoError(t, err)

	want := "Previous conversation:\nQ: hi\nA: hello!\n\nContinue naturally." +
		"\n\nRelevant information:\nSource: hours.md\nOpen 9-5." +
		"\n\nPlugin result: 2+2 = 4"
	assert.Equal(t, want, got)
}

func TestAssembleOmitsEmptySegments(t *testing.T) {
	assembler, _, _ := newAssemblerFixture(&stubRetriever{})

	got, err := assembler.Assemble(context.Background(), "fresh", "hello", "")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAssemblePluginOnly(t *testing.T) {
	assembler, _, _ := newAssemblerFixture(&stubRetriever{})

	got, err := assembler.Assemble(context.Background(), "fresh", "2+2", "2+2 = 4")
	require.NoError(t, err)
	assert.Equal(t, "Plugin result: 2+2 = 4", got)
}

func TestAssembleRetrievalFailureDegrades(t *testing.T) {
	retriever := &stubRetriever{err: errors.New("vector index offline")}
	assembler, mem, _ := newAssemblerFixture(retriever)
	ctx := context.Background()

	require.NoError(t, mem.AddMessage(ctx, "s1", "hi", "hello!", ""))

	got, err := assembler.Assemble(ctx, "s1", "anything", "")
	require.NoError(t, err)
	assert.Contains(t, got, "Previous conversation:")
	assert.NotContains(t, got, "Relevant information:")
}

func TestAssembleStoreFailurePropagates(t *testing.T) {
	assembler, _, store := newAssemblerFixture(&stubRetriever{})
	store.Unreachable = true

	_, err := assembler.Assemble(context.Background(), "cold", "hello", "")
	require.Error(t, err)
	assert.True(t, miraerrors.IsStoreUnavailable(err))
}

func TestAssembleNilRetriever(t *testing.T) {
	assembler, mem, _ := newAssemblerFixture(nil)
	ctx := context.Background()

	require.NoError(t, mem.AddMessage(ctx, "s1", "hi", "hello!", ""))

	got, err := assembler.Assemble(ctx, "s1", "hello again", "")
	require.NoError(t, err)
	assert.Contains(t, got, "Previous conversation:")
}
