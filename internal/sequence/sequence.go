// Package sequence issues the global run sequence that names every export
// bundle. The counter survives restarts either in a small JSON file or in redis.
package sequence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/andresuchdata/autopo-replenish/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	BackendFile  = "file"
	BackendRedis = "redis"

	redisKey        = "replenish:sequence:global"
	timestampLayout = "20060102_150405"
)

// Store hands out the next run sequence.
type Store interface {
	Next(ctx context.Context) (string, error)
}

// Format renders a counter value as the zero-padded sequence used in file names.
func Format(n int64) string {
	return fmt.Sprintf("%03d", n)
}

// FileStore keeps the last issued value as {"last": n}.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

type fileState struct {
	Last int64 `json:"last"`
}

func (s *FileStore) Next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var state fileState
	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return "", fmt.Errorf("failed to read sequence file: %w", err)
	default:
		if err := json.Unmarshal(data, &state); err != nil {
			return "", fmt.Errorf("failed to decode sequence file %s: %w", s.path, err)
		}
	}

	state.Last++
	payload, err := json.Marshal(state)
	if err != nil {
		return "", err
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create sequence dir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return "", fmt.Errorf("failed to write sequence file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return "", fmt.Errorf("failed to replace sequence file: %w", err)
	}

	return Format(state.Last), nil
}

// RedisStore increments a shared counter so several replicas never reuse a value.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, key: redisKey}
}

func (s *RedisStore) Next(ctx context.Context) (string, error) {
	n, err := s.client.Incr(ctx, s.key).Result()
	if err != nil {
		return "", fmt.Errorf("redis incr failed: %w", err)
	}
	return Format(n), nil
}

// fallbackStore never fails: when the backing store errors it logs and
// returns a timestamp so the run can still be exported.
type fallbackStore struct {
	store  Store
	now    func() time.Time
	logger zerolog.Logger
}

// WithFallback wraps a store so that errors degrade to a timestamp sequence.
func WithFallback(store Store, logger zerolog.Logger) Store {
	return &fallbackStore{store: store, now: time.Now, logger: logger}
}

func (s *fallbackStore) Next(ctx context.Context) (string, error) {
	seq, err := s.store.Next(ctx)
	if err == nil {
		return seq, nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	fallback := s.now().Format(timestampLayout)
	s.logger.Warn().Err(err).Str("sequence", fallback).Msg("Sequence store unavailable, using timestamp")
	return fallback, nil
}

// New builds the configured store. The redis backend needs a client; without
// one it falls back to the file backend.
func New(cfg config.ReplenishmentConfig, client *redis.Client, logger zerolog.Logger) Store {
	var store Store
	switch strings.ToLower(strings.TrimSpace(cfg.SequenceBackend)) {
	case BackendRedis:
		if client != nil {
			store = NewRedisStore(client)
			break
		}
		logger.Warn().Msg("Redis sequence backend requested without redis, using file")
		store = NewFileStore(cfg.SequenceFile)
	default:
		store = NewFileStore(cfg.SequenceFile)
	}
	return WithFallback(store, logger)
}
