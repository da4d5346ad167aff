package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/andresuchdata/autopo-replenish/internal/replenishment"
	"github.com/redis/go-redis/v9"
)

const (
	productKeyPrefix  = keyPrefix + "product:"
	defaultProductTTL = 15 * 24 * time.Hour
)

// ProductCache keeps catalog entries between runs.
type ProductCache interface {
	GetProducts(ctx context.Context, ids []int64) (replenishment.Catalog, []int64, error)
	PutProducts(ctx context.Context, products []replenishment.Product) error
	InvalidateAll(ctx context.Context) error
}

type redisProductCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopProductCache struct{}

// NewProductCache returns a redis-backed cache, or a no-op one when client is nil.
func NewProductCache(client *redis.Client, ttl time.Duration) ProductCache {
	if client == nil {
		return noopProductCache{}
	}
	if ttl <= 0 {
		ttl = defaultProductTTL
	}
	return &redisProductCache{client: client, ttl: ttl}
}

func productKey(id int64) string {
	return productKeyPrefix + strconv.FormatInt(id, 10)
}

func (c *redisProductCache) GetProducts(ctx context.Context, ids []int64) (replenishment.Catalog, []int64, error) {
	hits := make(replenishment.Catalog, len(ids))
	if len(ids) == 0 {
		return hits, nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = productKey(id)
	}

	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, nil, fmt.Errorf("redis mget failed: %w", err)
	}

	var misses []int64
	for i, raw := range values {
		p, ok := decodeProduct(raw)
		if !ok {
			misses = append(misses, ids[i])
			continue
		}
		hits[ids[i]] = p
	}
	return hits, misses, nil
}

func (c *redisProductCache) PutProducts(ctx context.Context, products []replenishment.Product) error {
	if len(products) == 0 {
		return nil
	}

	pipe := c.client.Pipeline()
	for _, p := range products {
		payload, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("failed to encode product %d: %w", p.ID, err)
		}
		pipe.Set(ctx, productKey(p.ID), payload, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisProductCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, productKeyPrefix, scanBatchSize)
}

// decodeProduct reads one MGET value; nil and undecodable entries are misses.
func decodeProduct(raw any) (replenishment.Product, bool) {
	var payload []byte
	switch v := raw.(type) {
	case string:
		payload = []byte(v)
	case []byte:
		payload = v
	default:
		return replenishment.Product{}, false
	}

	var p replenishment.Product
	if err := json.Unmarshal(payload, &p); err != nil || p.ID == 0 {
		return replenishment.Product{}, false
	}
	return p, true
}

func (noopProductCache) GetProducts(_ context.Context, ids []int64) (replenishment.Catalog, []int64, error) {
	return replenishment.Catalog{}, ids, nil
}

func (noopProductCache) PutProducts(context.Context, []replenishment.Product) error {
	return nil
}

func (noopProductCache) InvalidateAll(context.Context) error {
	return nil
}
