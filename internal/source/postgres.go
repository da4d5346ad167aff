package source

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/autopo-replenish/internal/replenishment"
	"github.com/rs/zerolog"
)

// DemandStore reads dated demand snapshots.
type DemandStore interface {
	LatestSnapshotDate(ctx context.Context) (time.Time, error)
	Lines(ctx context.Context, date time.Time) ([]replenishment.DemandLine, error)
}

// CatalogStore resolves products by id.
type CatalogStore interface {
	Catalog(ctx context.Context, ids []int64) (replenishment.Catalog, error)
}

// PostgresLoader reads the snapshot ingested for a date, the latest one when
// Date is zero.
type PostgresLoader struct {
	Demand   DemandStore
	Products CatalogStore
	Date     time.Time
	Now      func() time.Time
	Logger   zerolog.Logger
}

func NewPostgresLoader(demand DemandStore, products CatalogStore, logger zerolog.Logger) *PostgresLoader {
	return &PostgresLoader{
		Demand:   demand,
		Products: products,
		Now:      time.Now,
		Logger:   logger,
	}
}

func (l *PostgresLoader) Load(ctx context.Context) (*replenishment.Snapshot, error) {
	date := l.Date
	if date.IsZero() {
		latest, err := l.Demand.LatestSnapshotDate(ctx)
		if err != nil {
			return nil, err
		}
		date = latest
	}

	lines, err := l.Demand.Lines(ctx, date)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("snapshot %s: %w", date.Format("2006-01-02"), replenishment.ErrEmptySnapshot)
	}

	catalog, err := l.Products.Catalog(ctx, productIDs(lines))
	if err != nil {
		return nil, err
	}

	now := time.Now
	if l.Now != nil {
		now = l.Now
	}

	l.Logger.Info().
		Time("snapshot_date", date).
		Int("lines", len(lines)).
		Int("products", len(catalog)).
		Msg("Loaded snapshot from database")

	return &replenishment.Snapshot{
		Lines:         lines,
		Catalog:       catalog,
		ReferenceTime: now(),
	}, nil
}
