package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/andresuchdata/autopo-replenish/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	lastRunKey        = keyPrefix + "run:last"
	defaultLastRunTTL = 7 * 24 * time.Hour
)

// RunCache remembers the summary of the latest replenishment run.
type RunCache interface {
	GetLastRun(ctx context.Context) (*domain.RunSummary, bool, error)
	SetLastRun(ctx context.Context, run *domain.RunSummary) error
}

type redisRunCache struct {
	client *redis.Client
	ttl    time.Duration
}

// memoryRunCache keeps the last run in process when redis is disabled.
type memoryRunCache struct {
	mu  sync.RWMutex
	run *domain.RunSummary
}

// NewRunCache returns a redis-backed cache, or an in-process one when client is nil.
func NewRunCache(client *redis.Client, ttl time.Duration) RunCache {
	if client == nil {
		return &memoryRunCache{}
	}
	if ttl <= 0 {
		ttl = defaultLastRunTTL
	}
	return &redisRunCache{client: client, ttl: ttl}
}

func (c *redisRunCache) GetLastRun(ctx context.Context) (*domain.RunSummary, bool, error) {
	payload, err := c.client.Get(ctx, lastRunKey).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var run domain.RunSummary
	if err := json.Unmarshal(payload, &run); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached run: %w", err)
	}
	return &run, true, nil
}

func (c *redisRunCache) SetLastRun(ctx context.Context, run *domain.RunSummary) error {
	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to encode run: %w", err)
	}
	if err := c.client.Set(ctx, lastRunKey, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *memoryRunCache) GetLastRun(context.Context) (*domain.RunSummary, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.run == nil {
		return nil, false, nil
	}
	run := *c.run
	return &run, true, nil
}

func (c *memoryRunCache) SetLastRun(_ context.Context, run *domain.RunSummary) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	stored := *run
	c.run = &stored
	return nil
}
