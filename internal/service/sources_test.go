package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/andresuchdata/autopo-replenish/internal/replenishment"
	"github.com/andresuchdata/autopo-replenish/internal/source"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDemand struct{}

func (stubDemand) LatestSnapshotDate(context.Context) (time.Time, error) { return runRef, nil }

func (stubDemand) Lines(context.Context, time.Time) ([]replenishment.DemandLine, error) {
	return nil, nil
}

type stubCatalog struct{}

func (stubCatalog) Catalog(context.Context, []int64) (replenishment.Catalog, error) {
	return replenishment.Catalog{}, nil
}

func TestSourcesPickLoader(t *testing.T) {
	s := &Sources{Demand: stubDemand{}, Catalog: stubCatalog{}, LinesFile: "lines.csv", Logger: zerolog.Nop()}

	loader, kind, err := s.Loader(SourceRequest{})
	require.NoError(t, err)
	assert.Equal(t, SourcePostgres, kind)
	assert.IsType(t, &source.PostgresLoader{}, loader)

	loader, kind, err = s.Loader(SourceRequest{Kind: "FILE"})
	require.NoError(t, err)
	assert.Equal(t, SourceFile, kind)
	assert.Equal(t, "lines.csv", loader.(*source.FileLoader).LinesPath)

	loader, _, err = s.Loader(SourceRequest{Kind: SourcePostgres, SnapshotDate: "2026-03-09"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), loader.(*source.PostgresLoader).Date)
}

func TestSourcesErrors(t *testing.T) {
	s := &Sources{Logger: zerolog.Nop()}

	_, _, err := s.Loader(SourceRequest{})
	assert.ErrorContains(t, err, "no demand export")

	_, kind, err := s.Loader(SourceRequest{FolderID: "abc"})
	assert.Equal(t, SourceDrive, kind)
	assert.ErrorContains(t, err, "drive source is not configured")

	_, _, err = s.Loader(SourceRequest{Kind: SourcePostgres})
	assert.Error(t, err)

	_, _, err = s.Loader(SourceRequest{Kind: "ftp"})
	assert.ErrorContains(t, err, "unknown snapshot source")

	s.Demand, s.Catalog = stubDemand{}, stubCatalog{}
	_, _, err = s.Loader(SourceRequest{Kind: SourcePostgres, SnapshotDate: "09/03/2026"})
	assert.ErrorContains(t, err, "invalid snapshot date")
}

func TestSourcesRequestPaths(t *testing.T) {
	dir := t.TempDir()
	s := &Sources{InputDir: dir, LinesFile: "configured.csv", Logger: zerolog.Nop()}

	loader, _, err := s.Loader(SourceRequest{LinesFile: "exports/lines.csv", ProductsFile: "products.xlsx"})
	require.NoError(t, err)
	fl := loader.(*source.FileLoader)
	assert.Equal(t, filepath.Join(dir, "exports", "lines.csv"), fl.LinesPath)
	assert.Equal(t, filepath.Join(dir, "products.xlsx"), fl.ProductsPath)

	for _, req := range []SourceRequest{
		{LinesFile: "/etc/passwd"},
		{LinesFile: "../outside.csv"},
		{LinesFile: "exports/../../outside.csv"},
		{LinesFile: "lines.csv", ProductsFile: "../products.csv"},
	} {
		_, _, err := s.Loader(req)
		assert.ErrorIs(t, err, ErrPathNotAllowed, req.LinesFile)
	}

	_, _, err = s.Loader(SourceRequest{Kind: SourceFile, ProductsFile: "products.csv"})
	assert.ErrorContains(t, err, "requires lines_file")

	loader, _, err = s.Loader(SourceRequest{Kind: SourceFile})
	require.NoError(t, err)
	assert.Equal(t, "configured.csv", loader.(*source.FileLoader).LinesPath)

	closed := &Sources{Logger: zerolog.Nop()}
	_, _, err = closed.Loader(SourceRequest{LinesFile: "lines.csv"})
	assert.ErrorIs(t, err, ErrPathNotAllowed)

	trusted := &Sources{AllowAnyPath: true, Logger: zerolog.Nop()}
	loader, _, err = trusted.Loader(SourceRequest{LinesFile: "/data/lines.csv"})
	require.NoError(t, err)
	assert.Equal(t, "/data/lines.csv", loader.(*source.FileLoader).LinesPath)
}
