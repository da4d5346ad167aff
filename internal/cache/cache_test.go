package cache

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/andresuchdata/autopo-replenish/internal/config"
	"github.com/andresuchdata/autopo-replenish/internal/domain"
	"github.com/andresuchdata/autopo-replenish/internal/replenishment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenDisabledReturnsNilClient(t *testing.T) {
	client, err := Open(config.CacheConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestBuildRedisOptions(t *testing.T) {
	opts, err := buildRedisOptions(config.CacheConfig{RedisPassword: "secret", RedisDB: 2})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:6379", opts.Addr)
	assert.Equal(t, 2, opts.DB)

	opts, err = buildRedisOptions(config.CacheConfig{RedisURL: "redis://:pw@cache:6380/1"})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 1, opts.DB)

	_, err = buildRedisOptions(config.CacheConfig{RedisURL: "http://nope"})
	assert.Error(t, err)
}

func TestNoopProductCacheMissesEverything(t *testing.T) {
	c := NewProductCache(nil, 0)
	require.NoError(t, c.PutProducts(context.Background(), []replenishment.Product{{ID: 1}}))

	hits, misses, err := c.GetProducts(context.Background(), []int64{1, 2})
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.Equal(t, []int64{1, 2}, misses)
	assert.NoError(t, c.InvalidateAll(context.Background()))
}

func TestDecodeProduct(t *testing.T) {
	payload, err := json.Marshal(replenishment.Product{ID: 4, Name: "Pipeta", ReorderUnit: 1})
	require.NoError(t, err)

	p, ok := decodeProduct(string(payload))
	require.True(t, ok)
	assert.Equal(t, "Pipeta", p.Name)

	_, ok = decodeProduct(nil)
	assert.False(t, ok)
	_, ok = decodeProduct("{broken")
	assert.False(t, ok)
	assert.Equal(t, "replenish:product:42", productKey(42))
}

func TestMemoryRunCache(t *testing.T) {
	c := NewRunCache(nil, 0)

	_, ok, err := c.GetLastRun(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	run := &domain.RunSummary{Sequence: "004", Status: domain.RunCompleted}
	require.NoError(t, c.SetLastRun(context.Background(), run))
	run.Sequence = "mutated"

	got, ok, err := c.GetLastRun(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "004", got.Sequence)
}
