package drive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/andresuchdata/autopo-replenish/internal/domain"
	"github.com/andresuchdata/autopo-replenish/internal/replenishment"
	"github.com/andresuchdata/autopo-replenish/internal/source"
	"github.com/rs/zerolog/log"
)

// SnapshotStore persists the demand lines of one snapshot day.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, date time.Time, lines []replenishment.DemandLine) error
}

// ProductStore upserts catalog entries.
type ProductStore interface {
	Upsert(ctx context.Context, products []replenishment.Product) error
}

// CatalogInvalidator drops cached catalog entries after an ingest.
type CatalogInvalidator interface {
	InvalidateAll(ctx context.Context) error
}

// IngestService copies ERP exports into the snapshot store so runs can be
// computed from the database.
type IngestService struct {
	downloader  *Downloader
	files       fileNamer
	demand      SnapshotStore
	products    ProductStore
	cache       CatalogInvalidator
	downloadDir string
	now         func() time.Time
}

type fileNamer interface {
	FileName(ctx context.Context, fileID string) (string, error)
}

// NewIngestService wires the stores. driveService may be nil when only local
// snapshots are ingested.
func NewIngestService(driveService *Service, demand SnapshotStore, products ProductStore, cache CatalogInvalidator, downloadDir string) *IngestService {
	s := &IngestService{
		demand:      demand,
		products:    products,
		cache:       cache,
		downloadDir: downloadDir,
		now:         time.Now,
	}
	if driveService != nil {
		s.downloader = NewDownloader(driveService)
		s.files = driveService
	}
	return s
}

// Ingest stores a loaded snapshot under the day of its reference time.
func (s *IngestService) Ingest(ctx context.Context, snap *replenishment.Snapshot) (*domain.IngestReport, error) {
	if snap == nil || len(snap.Lines) == 0 {
		return nil, replenishment.ErrEmptySnapshot
	}

	date := snap.ReferenceTime
	if date.IsZero() {
		date = s.now()
	}

	products := make([]replenishment.Product, 0, len(snap.Catalog))
	for _, p := range snap.Catalog {
		products = append(products, p)
	}

	if err := s.products.Upsert(ctx, products); err != nil {
		return nil, fmt.Errorf("upsert products: %w", err)
	}
	if err := s.demand.SaveSnapshot(ctx, date, snap.Lines); err != nil {
		return nil, fmt.Errorf("save snapshot: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.InvalidateAll(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to invalidate catalog cache after ingest")
		}
	}

	report := &domain.IngestReport{
		SnapshotDate: time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location()),
		Lines:        len(snap.Lines),
		Products:     len(products),
	}
	log.Info().
		Time("snapshot_date", report.SnapshotDate).
		Int("lines", report.Lines).
		Int("products", report.Products).
		Msg("Snapshot ingested")

	return report, nil
}

// IngestFolder loads the newest demand and product exports of a Drive folder.
func (s *IngestService) IngestFolder(ctx context.Context, folderID string) (*domain.IngestReport, error) {
	if s.downloader == nil {
		return nil, fmt.Errorf("drive is not configured")
	}

	dir, err := s.workDir()
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	loader := source.NewDriveLoader(s.downloader, folderID, dir, log.Logger)
	loader.Now = s.now
	snap, err := loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	return s.Ingest(ctx, snap)
}

// IngestFile loads a single demand export whose rows also carry the catalog columns.
func (s *IngestService) IngestFile(ctx context.Context, fileID string) (*domain.IngestReport, error) {
	if s.downloader == nil {
		return nil, fmt.Errorf("drive is not configured")
	}

	name, err := s.files.FileName(ctx, fileID)
	if err != nil {
		return nil, err
	}

	dir, err := s.workDir()
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	path, err := s.downloader.DownloadCSV(ctx, &File{ID: fileID, Name: name}, dir)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, fmt.Errorf("file %s is not a csv or xlsx export", name)
	}

	loader := source.NewFileLoader(path, "", log.Logger)
	loader.Now = s.now
	snap, err := loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	return s.Ingest(ctx, snap)
}

func (s *IngestService) workDir() (string, error) {
	base := s.downloadDir
	if base == "" {
		base = os.TempDir()
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return "", fmt.Errorf("failed to create download dir: %w", err)
	}
	dir, err := os.MkdirTemp(base, "ingest-")
	if err != nil {
		return "", fmt.Errorf("failed to create work dir: %w", err)
	}
	return filepath.Clean(dir), nil
}
