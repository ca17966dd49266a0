package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/meikuraledutech/flowgraph"
	"github.com/meikuraledutech/flowgraph/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// countingStore counts catalog reads reaching the backing store.
type countingStore struct {
	*memory.Store
	personaReads int
	specialReads int
}

func (s *countingStore) ListPersonas(ctx context.Context) ([]flowgraph.Persona, error) {
	s.personaReads++
	return s.Store.ListPersonas(ctx)
}

func (s *countingStore) ListSpecialNodes(ctx context.Context) ([]flowgraph.SpecialNodeDef, error) {
	s.specialReads++
	return s.Store.ListSpecialNodes(ctx)
}

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *countingStore, *Catalog) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	store := &countingStore{Store: memory.New()}
	config := DefaultConfig()
	config.Addr = mr.Addr()
	config.TTL = time.Minute

	c, err := New(store, config, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return mr, store, c
}

func TestNew_Unreachable(t *testing.T) {
	config := DefaultConfig()
	config.Addr = "127.0.0.1:1"
	_, err := New(memory.New(), config, zap.NewNop())
	assert.Error(t, err)
}

func TestCatalog_PersonasReadThrough(t *testing.T) {
	mr, store, c := setupTestRedis(t)
	ctx := context.Background()
	require.NoError(t, c.CreatePersona(ctx, &flowgraph.Persona{Name: "Writer"}))

	first, err := c.ListPersonas(ctx)
	require.NoError(t, err)
	second, err := c.ListPersonas(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.personaReads)
	assert.True(t, mr.Exists("flowgraph:catalog:personas"))
	assert.Equal(t, time.Minute, mr.TTL("flowgraph:catalog:personas"))
}

func TestCatalog_WritesInvalidate(t *testing.T) {
	mr, store, c := setupTestRedis(t)
	ctx := context.Background()

	_, err := c.ListPersonas(ctx)
	require.NoError(t, err)
	require.NoError(t, c.CreatePersona(ctx, &flowgraph.Persona{Name: "Writer"}))
	assert.False(t, mr.Exists("flowgraph:catalog:personas"))

	list, err := c.ListPersonas(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 2, store.personaReads)

	_, err = c.DeletePersona(ctx, "Writer")
	require.NoError(t, err)
	list, err = c.ListPersonas(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCatalog_SpecialNodes(t *testing.T) {
	mr, store, c := setupTestRedis(t)
	ctx := context.Background()

	defs, err := c.ListSpecialNodes(ctx)
	require.NoError(t, err)
	assert.Equal(t, flowgraph.DefaultSpecialNodes(), defs)
	_, err = c.ListSpecialNodes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, store.specialReads)

	require.NoError(t, c.PutSpecialNode(ctx, &flowgraph.SpecialNodeDef{ID: "output", Type: "output"}))
	defs, err = c.ListSpecialNodes(ctx)
	require.NoError(t, err)
	assert.Len(t, defs, 2)

	mr.FastForward(2 * time.Minute)
	_, err = c.ListSpecialNodes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, store.specialReads, "expired entry reloads")
}

func TestCatalog_RedisDownFallsBack(t *testing.T) {
	mr, store, c := setupTestRedis(t)
	ctx := context.Background()
	mr.Close()

	defs, err := c.ListSpecialNodes(ctx)
	require.NoError(t, err)
	assert.Equal(t, flowgraph.DefaultSpecialNodes(), defs)
	assert.Equal(t, 1, store.specialReads)
}

func TestCatalog_CorruptEntryReloads(t *testing.T) {
	mr, store, c := setupTestRedis(t)
	ctx := context.Background()
	require.NoError(t, mr.Set("flowgraph:catalog:personas", "{not json"))

	list, err := c.ListPersonas(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Equal(t, 1, store.personaReads)
}

// writeDuringList runs write once, after the store has read the persona
// list but before the cache stores it.
type writeDuringList struct {
	*countingStore
	write func()
}

func (s *writeDuringList) ListPersonas(ctx context.Context) ([]flowgraph.Persona, error) {
	list, err := s.countingStore.ListPersonas(ctx)
	if s.write != nil {
		w := s.write
		s.write = nil
		w()
	}
	return list, err
}

func TestCatalog_WriteDuringFillIsNotCached(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	store := &writeDuringList{countingStore: &countingStore{Store: memory.New()}}
	config := DefaultConfig()
	config.Addr = mr.Addr()
	c, err := New(store, config, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	ctx := context.Background()

	store.write = func() {
		require.NoError(t, c.CreatePersona(ctx, &flowgraph.Persona{Name: "Writer"}))
	}
	stale, err := c.ListPersonas(ctx)
	require.NoError(t, err)
	assert.Empty(t, stale)
	assert.False(t, mr.Exists("flowgraph:catalog:personas"), "fill raced a write")

	fresh, err := c.ListPersonas(ctx)
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	assert.Equal(t, "Writer", fresh[0].Name)
	assert.True(t, mr.Exists("flowgraph:catalog:personas"))
}

var _ flowgraph.Store = (*Catalog)(nil)
