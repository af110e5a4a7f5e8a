package cache

import (
	"context"
	"testing"
	"time"

	"knowlabel/internal/infrastructure/config"
	"knowlabel/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, maxSize int) *CacheManager {
	t.Helper()
	m := NewManager(&config.CacheConfig{Enabled: true, MaxSize: maxSize, TTL: time.Minute})
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestCacheManager_GetSet(t *testing.T) {
	m := newTestManager(t, 10)
	ctx := context.Background()

	_, err := m.Get(ctx, "glycerin")
	assert.ErrorIs(t, err, common.ErrCacheMiss)

	require.NoError(t, m.Set(ctx, "glycerin", `{"description":"humectant"}`))
	val, err := m.Get(ctx, "glycerin")
	require.NoError(t, err)
	assert.Equal(t, `{"description":"humectant"}`, val)

	stats := m.GetStats()
	assert.EqualValues(t, 1, stats["hits"])
	assert.EqualValues(t, 1, stats["misses"])
}

func TestCacheManager_Expiry(t *testing.T) {
	m := newTestManager(t, 10)
	ctx := context.Background()
	now := time.Now()
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "k", "v"))
	now = now.Add(2 * time.Minute)

	_, err := m.Get(ctx, "k")
	assert.ErrorIs(t, err, common.ErrCacheMiss)
	assert.EqualValues(t, 0, m.GetStats()["size"])
}

func TestCacheManager_EvictsLeastRecentlyUsed(t *testing.T) {
	m := newTestManager(t, 2)
	ctx := context.Background()
	now := time.Now()
	m.now = func() time.Time { return now }
	tick := func() { now = now.Add(time.Second) }

	require.NoError(t, m.Set(ctx, "a", "1"))
	tick()
	require.NoError(t, m.Set(ctx, "b", "2"))
	tick()
	_, err := m.Get(ctx, "a")
	require.NoError(t, err)
	tick()

	require.NoError(t, m.Set(ctx, "c", "3"))

	_, err = m.Get(ctx, "b")
	assert.ErrorIs(t, err, common.ErrCacheMiss)
	val, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "1", val)
}

func TestCacheManager_NewEntrySurvivesOlderHits(t *testing.T) {
	m := newTestManager(t, 2)
	ctx := context.Background()
	now := time.Now()
	m.now = func() time.Time { return now }
	tick := func() { now = now.Add(time.Second) }

	// a 被讀過多次但最久未存取，b 剛寫入尚未被讀
	require.NoError(t, m.Set(ctx, "a", "1"))
	for i := 0; i < 3; i++ {
		tick()
		_, err := m.Get(ctx, "a")
		require.NoError(t, err)
	}
	tick()
	require.NoError(t, m.Set(ctx, "b", "2"))
	tick()
	require.NoError(t, m.Set(ctx, "c", "3"))

	_, err := m.Get(ctx, "a")
	assert.ErrorIs(t, err, common.ErrCacheMiss)
	val, err := m.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "2", val)
}

func TestCacheManager_OverwriteDoesNotEvict(t *testing.T) {
	m := newTestManager(t, 1)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "a", "1"))
	require.NoError(t, m.Set(ctx, "a", "2"))

	val, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "2", val)
}

func TestNewStore(t *testing.T) {
	store, err := NewStore(&config.Config{Cache: config.CacheConfig{Enabled: false}})
	require.NoError(t, err)
	assert.Nil(t, store)

	store, err = NewStore(&config.Config{Cache: config.CacheConfig{Enabled: true, Backend: "memory", MaxSize: 5, TTL: time.Minute}})
	require.NoError(t, err)
	require.NotNil(t, store)
	assert.IsType(t, &CacheManager{}, store)
	assert.NoError(t, store.Close())
}

func TestNewService_Unreachable(t *testing.T) {
	_, err := NewService(&config.CacheConfig{
		Enabled: true,
		Backend: "redis",
		TTL:     time.Minute,
		Redis:   config.RedisConfig{Addr: "127.0.0.1:1"},
	})
	assert.Error(t, err)
}

func TestService_GenerateKey(t *testing.T) {
	s := &Service{}
	key := s.generateKey("glycerin")
	assert.Equal(t, keyPrefix+hashKey("glycerin"), key)
	assert.NotEqual(t, key, s.generateKey("water"))
}
