package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/andresuchdata/autopo-replenish/internal/config"
	"github.com/andresuchdata/autopo-replenish/internal/domain"
	"github.com/andresuchdata/autopo-replenish/internal/replenishment"
	"github.com/andresuchdata/autopo-replenish/internal/repository/postgres"
	"github.com/andresuchdata/autopo-replenish/internal/rules"
	"github.com/andresuchdata/autopo-replenish/internal/storage"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var runRef = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

type staticLoader struct {
	snap *replenishment.Snapshot
	err  error
}

func (l staticLoader) Load(context.Context) (*replenishment.Snapshot, error) {
	return l.snap, l.err
}

func sampleSnapshot() *replenishment.Snapshot {
	ten := 10.0
	return &replenishment.Snapshot{
		Lines: []replenishment.DemandLine{
			{
				ProductID:      1,
				Store:          "Calle 50",
				Months:         replenishment.MonthlySamples{&ten, &ten, &ten, &ten, &ten, &ten},
				WarehouseStock: 100,
				SalesRanking:   10,
			},
		},
		Catalog: replenishment.Catalog{
			1: {ID: 1, Barcode: "7701", Reference: "CRO-1", Name: "Croqueta Adulto", CategoryPath: "All / Alimentos / Perro", ReorderUnit: 1},
		},
		ReferenceTime: runRef,
	}
}

type memoryRuns struct {
	saved []domain.RunSummary
	err   error
}

func (m *memoryRuns) Save(_ context.Context, run domain.RunSummary) error {
	m.saved = append(m.saved, run)
	return nil
}

func (m *memoryRuns) Latest(context.Context) (*domain.RunSummary, error) {
	if m.err != nil {
		return nil, m.err
	}
	if len(m.saved) == 0 {
		return nil, postgres.ErrNotFound
	}
	run := m.saved[len(m.saved)-1]
	return &run, nil
}

type memoryStorage struct {
	objects map[string][]byte
	err     error
}

func (m *memoryStorage) ListObjects(context.Context, string) ([]storage.ObjectInfo, error) {
	return nil, nil
}

func (m *memoryStorage) DownloadObject(context.Context, string, string) error {
	return nil
}

func (m *memoryStorage) UploadObject(_ context.Context, key string, data []byte) error {
	if m.err != nil {
		return m.err
	}
	m.objects[key] = data
	return nil
}

func newTestService(t *testing.T, runs RunStore, store storage.ObjectStorage) (*ReplenishmentService, config.ReplenishmentConfig) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.ReplenishmentConfig{
		OutputDir:    filepath.Join(dir, "output"),
		SequenceFile: filepath.Join(dir, "secuencia_global.json"),
	}
	svc := NewReplenishmentService(cfg, Deps{
		Storage:      store,
		BundlePrefix: "runs",
		Runs:         runs,
		Logger:       zerolog.Nop(),
	})
	svc.now = func() time.Time { return runRef }
	return svc, cfg
}

func TestRunExportsAndRecords(t *testing.T) {
	runs := &memoryRuns{}
	objects := &memoryStorage{objects: map[string][]byte{}}
	svc, _ := newTestService(t, runs, objects)

	run, err := svc.Run(context.Background(), RunOptions{Source: "test", Loader: staticLoader{snap: sampleSnapshot()}})
	require.NoError(t, err)

	assert.Equal(t, domain.RunCompleted, run.Status)
	assert.Equal(t, "001", run.Sequence)
	assert.Equal(t, "default", run.Profile)
	assert.Equal(t, 1, run.Lines)
	assert.Positive(t, run.OrderedUnits)
	assert.Contains(t, run.Files, "log_pedidos_001.txt")

	var storeFile bool
	for _, f := range run.Files {
		if strings.HasPrefix(f, "R3_PEDIDO_001/Calle_50/") {
			storeFile = true
		}
	}
	assert.True(t, storeFile, "store workbook exported: %v", run.Files)

	assert.FileExists(t, run.BundlePath)
	assert.Equal(t, "runs/Pedidos_Sugeridos_001.zip", run.BundleKey)
	assert.Contains(t, objects.objects, run.BundleKey)

	require.Len(t, runs.saved, 1)
	assert.Equal(t, run.ID, runs.saved[0].ID)

	last, err := svc.LastRun(context.Background())
	require.NoError(t, err)
	assert.Equal(t, run.ID, last.ID)
}

func TestRunFailsBeforeAnyOutput(t *testing.T) {
	runs := &memoryRuns{}
	svc, cfg := newTestService(t, runs, nil)

	run, err := svc.Run(context.Background(), RunOptions{Loader: staticLoader{err: replenishment.ErrEmptySnapshot}})
	require.Error(t, err)
	assert.ErrorIs(t, err, replenishment.ErrEmptySnapshot)

	assert.Equal(t, domain.RunFailed, run.Status)
	assert.NotEmpty(t, run.Error)
	assert.Empty(t, run.Sequence)
	assert.NoFileExists(t, cfg.SequenceFile)
	_, statErr := os.Stat(cfg.OutputDir)
	assert.True(t, os.IsNotExist(statErr))

	require.Len(t, runs.saved, 1)
	assert.Equal(t, domain.RunFailed, runs.saved[0].Status)
}

func TestRunUnknownProfile(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)

	_, err := svc.Run(context.Background(), RunOptions{Profile: "seasonal", Loader: staticLoader{snap: sampleSnapshot()}})
	assert.ErrorIs(t, err, rules.ErrProfileNotFound)

	_, err = svc.Run(context.Background(), RunOptions{})
	assert.Error(t, err)
}

func TestRunKeepsBundleWhenUploadFails(t *testing.T) {
	svc, _ := newTestService(t, nil, &memoryStorage{err: errors.New("bucket missing")})

	run, err := svc.Run(context.Background(), RunOptions{Loader: staticLoader{snap: sampleSnapshot()}})
	require.NoError(t, err)
	assert.Equal(t, domain.RunCompleted, run.Status)
	assert.Empty(t, run.BundleKey)
	assert.FileExists(t, run.BundlePath)
}

func TestRunRemovesExportWhenBundleFails(t *testing.T) {
	runs := &memoryRuns{}
	svc, cfg := newTestService(t, runs, nil)

	// a folder where the bundle should go makes writing it fail
	blocker := filepath.Join(cfg.OutputDir, "Pedidos_Sugeridos_001.zip")
	require.NoError(t, os.MkdirAll(filepath.Join(blocker, "inner"), 0o755))

	run, err := svc.Run(context.Background(), RunOptions{Loader: staticLoader{snap: sampleSnapshot()}})
	require.Error(t, err)
	assert.Equal(t, domain.RunFailed, run.Status)
	assert.Empty(t, run.OutputDir)
	assert.Empty(t, run.Files)

	assert.NoDirExists(t, filepath.Join(cfg.OutputDir, "Pedidos_Sugeridos_001"))
	assert.DirExists(t, blocker)

	entries, err := os.ReadDir(cfg.OutputDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	require.Len(t, runs.saved, 1)
	assert.Equal(t, domain.RunFailed, runs.saved[0].Status)
}

func TestLastRunWithoutRuns(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)
	_, err := svc.LastRun(context.Background())
	assert.ErrorIs(t, err, ErrNoRuns)

	svc, _ = newTestService(t, &memoryRuns{}, nil)
	_, err = svc.LastRun(context.Background())
	assert.ErrorIs(t, err, ErrNoRuns)

	svc, _ = newTestService(t, &memoryRuns{err: errors.New("db down")}, nil)
	_, err = svc.LastRun(context.Background())
	assert.ErrorContains(t, err, "db down")
}

func TestLastRunFallsBackToStore(t *testing.T) {
	runs := &memoryRuns{saved: []domain.RunSummary{{Sequence: "041", Status: domain.RunCompleted}}}
	svc, _ := newTestService(t, runs, nil)

	run, err := svc.LastRun(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "041", run.Sequence)

	runs.err = errors.New("db down")
	run, err = svc.LastRun(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "041", run.Sequence)
}

func TestRulesDefaultProfile(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)

	info, err := svc.Rules("")
	require.NoError(t, err)
	assert.Equal(t, []string{"default"}, info.Profiles)
	assert.Equal(t, "default", info.Active.Name)

	_, err = svc.Rules("multiplier")
	assert.ErrorIs(t, err, rules.ErrProfileNotFound)
}
