package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/meshlink/internal/model"
	"github.com/rickgao/meshlink/internal/storage"
)

// failingStore rejects every write.
type failingStore struct {
	*storage.MemoryStore
}

func (failingStore) Set(context.Context, string, string) error {
	return errors.New("disk full")
}

func TestIdentity_EnsureCreatesOnce(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	id := NewIdentity(store, "", nil)

	require.NoError(t, id.Load(ctx))
	assert.Empty(t, id.Current())

	first, err := id.Ensure(ctx)
	require.NoError(t, err)
	assert.True(t, model.IsValidID(first))

	second, err := id.Ensure(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	stored, err := store.Get(ctx, DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, first, stored)
}

func TestIdentity_LoadReusesStored(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	existing := model.NewID()
	require.NoError(t, store.Set(ctx, "mesh", existing))

	id := NewIdentity(store, "mesh", nil)
	require.NoError(t, id.Load(ctx))
	assert.Equal(t, existing, id.Current())

	got, err := id.Ensure(ctx)
	require.NoError(t, err)
	assert.Equal(t, existing, got)
}

func TestIdentity_LoadIgnoresMalformed(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.Set(ctx, DefaultKey, "not-a-uuid"))

	id := NewIdentity(store, "", nil)
	require.NoError(t, id.Load(ctx))
	assert.Empty(t, id.Current())
}

func TestIdentity_PersistFailureKeepsIdentity(t *testing.T) {
	ctx := context.Background()
	id := NewIdentity(failingStore{storage.NewMemoryStore()}, "", nil)

	first, err := id.Ensure(ctx)
	require.Error(t, err)
	assert.True(t, model.IsValidID(first))

	second, err := id.Ensure(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestIdentity_Reset(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	id := NewIdentity(store, "", nil)

	first, err := id.Ensure(ctx)
	require.NoError(t, err)
	require.NoError(t, id.Reset(ctx))
	assert.Empty(t, id.Current())

	_, err = store.Get(ctx, DefaultKey)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	second, err := id.Ensure(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestIdentity_ConcurrentEnsure(t *testing.T) {
	ctx := context.Background()
	id := NewIdentity(storage.NewMemoryStore(), "", nil)

	var wg sync.WaitGroup
	results := make([]string, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = id.Ensure(ctx)
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, results[0], r)
	}
}
