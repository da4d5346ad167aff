package sequence

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/andresuchdata/autopo-replenish/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreIncrements(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "secuencia_global.json")
	store := NewFileStore(path)

	first, err := store.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "001", first)

	second, err := store.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "002", second)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"last": 2}`, string(data))
}

func TestFileStoreContinuesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secuencia_global.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"last": 1234}`), 0o644))

	seq, err := NewFileStore(path).Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1235", seq)
}

func TestFileStoreConcurrentCallsAreUnique(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "seq.json"))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = map[string]bool{}
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seq, err := store.Next(context.Background())
			assert.NoError(t, err)
			mu.Lock()
			seen[seq] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 10)
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seq.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	_, err := NewFileStore(path).Next(context.Background())
	assert.Error(t, err)
}

type failingStore struct{}

func (failingStore) Next(context.Context) (string, error) {
	return "", errors.New("disk full")
}

func TestFallbackUsesTimestamp(t *testing.T) {
	store := WithFallback(failingStore{}, zerolog.Nop()).(*fallbackStore)
	store.now = func() time.Time { return time.Date(2026, 3, 10, 8, 30, 5, 0, time.UTC) }

	seq, err := store.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "20260310_083005", seq)
}

func TestNewWithoutRedisUsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seq.json")
	store := New(config.ReplenishmentConfig{SequenceBackend: BackendRedis, SequenceFile: path}, nil, zerolog.Nop())

	seq, err := store.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "001", seq)
	assert.FileExists(t, path)
}
