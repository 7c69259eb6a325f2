package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	miraerrors "mira/internal/errors"
)

func TestInMemoryStoreSlidingWindow(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	for i := 1; i <= MaxDurableTurns+5; i++ {
		require.NoError(t, store.AddMessage(ctx, "s1", fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i), ""))
	}

	turns, err := store.History(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, turns, MaxDurableTurns)
	assert.Equal(t, "q6", turns[0].Question)
	assert.Equal(t, fmt.Sprintf("q%d", MaxDurableTurns+5), turns[len(turns)-1].Question)
}

func TestInMemoryStoreSystemPromptContext(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	got, err := store.SystemPromptContext(ctx, "none")
	require.NoError(t, err)
	assert.Empty(t, got)

	for i := 1; i <= 3; i++ {
		require.NoError(t, store.AddMessage(ctx, "s1", fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i), ""))
	}

	got, err = store.SystemPromptContext(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Previous conversation:\nQ: q2\nA: a2\n\nQ: q3\nA: a3\n\nContinue naturally.", got)

	// Reading must not mutate anything.
	again, err := store.SystemPromptContext(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestInMemoryStoreClearSession(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	removed, err := store.ClearSession(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, removed)

	require.NoError(t, store.AddMessage(ctx, "s1", "q", "a", ""))
	removed, err = store.ClearSession(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, 0, store.SessionCount())
}

func TestInMemoryStoreUnreachable(t *testing.T) {
	store := NewInMemoryStore()
	store.Unreachable = true
	ctx := context.Background()

	err := store.AddMessage(ctx, "s1", "q", "a", "")
	require.Error(t, err)
	assert.True(t, miraerrors.IsStoreUnavailable(err))

	_, err = store.History(ctx, "s1")
	assert.True(t, miraerrors.IsStoreUnavailable(err))

	_, err = store.ClearSession(ctx, "s1")
	assert.True(t, miraerrors.IsStoreUnavailable(err))
}

func TestPostgresStoreConnectWithoutURL(t *testing.T) {
	store := NewPostgresStore(PostgresStoreConfig{})

	err := store.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, miraerrors.IsStoreUnavailable(err))
}

func TestStoreAcceptsOpaqueSessionIDs(t *testing.T) {
	ctx := context.Background()
	ids := []string{"user@example.com", "session.v2", "sess 42", "ユーザー-1"}

	store := NewInMemoryStore()
	for _, id := range ids {
		require.NoError(t, store.AddMessage(ctx, id, "q", "a", ""))
		turns, err := store.History(ctx, id)
		require.NoError(t, err)
		assert.Len(t, turns, 1)
	}

	// The durable store applies no ID shape check of its own: with no
	// backend configured, any ID fails with a connectivity error, never a
	// validation error.
	pg := NewPostgresStore(PostgresStoreConfig{})
	for _, id := range ids {
		err := pg.AddMessage(ctx, id, "q", "a", "")
		require.Error(t, err)
		assert.True(t, miraerrors.IsStoreUnavailable(err), "id %q: %v", id, err)
	}
}

func TestPostgresStoreConcurrentConnect(t *testing.T) {
	store := NewPostgresStore(PostgresStoreConfig{})
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 16)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = store.Connect(ctx)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.Error(t, err)
		assert.True(t, miraerrors.IsStoreUnavailable(err))
	}
}

func TestPostgresStoreConcurrentUseAndDisconnect(t *testing.T) {
	store := NewPostgresStore(PostgresStoreConfig{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				if _, err := store.History(ctx, "s1"); err != nil {
					assert.True(t, miraerrors.IsStoreUnavailable(err))
				}
			}
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				assert.NoError(t, store.Disconnect(ctx))
			}
		}()
	}
	wg.Wait()
}

func TestInMemoryStoreConcurrentConnect(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.Connect(ctx))
		}()
	}
	wg.Wait()
}
