package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/autopo-replenish/internal/domain"
	"github.com/google/uuid"
)

type runRow struct {
	ID           uuid.UUID    `db:"id"`
	Sequence     string       `db:"sequence"`
	Profile      string       `db:"profile"`
	Source       string       `db:"source"`
	Status       int          `db:"status"`
	StartedAt    time.Time    `db:"started_at"`
	FinishedAt   sql.NullTime `db:"finished_at"`
	Lines        int          `db:"lines"`
	Skipped      int          `db:"skipped"`
	Products     int          `db:"products"`
	OrderedUnits int          `db:"ordered_units"`
	Shortfalls   int          `db:"shortfalls"`
	OutputDir    string       `db:"output_dir"`
	Files        []byte       `db:"files"`
	BundlePath   string       `db:"bundle_path"`
	BundleKey    string       `db:"bundle_key"`
	Error        string       `db:"error"`
}

// RunRepository records replenishment runs.
type RunRepository struct {
	db *DB
}

func NewRunRepository(db *DB) *RunRepository {
	return &RunRepository{db: db}
}

// Save inserts or updates a run summary.
func (r *RunRepository) Save(ctx context.Context, run domain.RunSummary) error {
	files, err := json.Marshal(run.Files)
	if err != nil {
		return fmt.Errorf("failed to encode run files: %w", err)
	}
	var finished sql.NullTime
	if !run.FinishedAt.IsZero() {
		finished = sql.NullTime{Time: run.FinishedAt, Valid: true}
	}

	query := `
		INSERT INTO replenishment_runs (
			id, sequence, profile, source, status, started_at, finished_at,
			lines, skipped, products, ordered_units, shortfalls,
			output_dir, files, bundle_path, bundle_key, error
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (id)
		DO UPDATE SET
			status = EXCLUDED.status,
			finished_at = EXCLUDED.finished_at,
			lines = EXCLUDED.lines,
			skipped = EXCLUDED.skipped,
			products = EXCLUDED.products,
			ordered_units = EXCLUDED.ordered_units,
			shortfalls = EXCLUDED.shortfalls,
			output_dir = EXCLUDED.output_dir,
			files = EXCLUDED.files,
			bundle_path = EXCLUDED.bundle_path,
			bundle_key = EXCLUDED.bundle_key,
			error = EXCLUDED.error
	`
	_, err = r.db.ExecContext(ctx, query,
		run.ID.String(),
		run.Sequence,
		run.Profile,
		run.Source,
		int(run.Status),
		run.StartedAt,
		finished,
		run.Lines,
		run.Skipped,
		run.Products,
		run.OrderedUnits,
		run.Shortfalls,
		run.OutputDir,
		string(files),
		run.BundlePath,
		run.BundleKey,
		run.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}
	return nil
}

// Latest returns the most recently started run.
func (r *RunRepository) Latest(ctx context.Context) (*domain.RunSummary, error) {
	var row runRow
	err := r.db.GetContext(ctx, &row, `
		SELECT id, sequence, profile, source, status, started_at, finished_at,
			lines, skipped, products, ordered_units, shortfalls,
			output_dir, files, bundle_path, bundle_key, error
		FROM replenishment_runs
		ORDER BY started_at DESC
		LIMIT 1
	`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("replenishment run: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest run: %w", err)
	}
	return row.summary()
}

func (r runRow) summary() (*domain.RunSummary, error) {
	run := domain.RunSummary{
		ID:           r.ID,
		Sequence:     r.Sequence,
		Profile:      r.Profile,
		Source:       r.Source,
		Status:       domain.RunStatus(r.Status),
		StartedAt:    r.StartedAt,
		Lines:        r.Lines,
		Skipped:      r.Skipped,
		Products:     r.Products,
		OrderedUnits: r.OrderedUnits,
		Shortfalls:   r.Shortfalls,
		OutputDir:    r.OutputDir,
		BundlePath:   r.BundlePath,
		BundleKey:    r.BundleKey,
		Error:        r.Error,
	}
	if r.FinishedAt.Valid {
		run.FinishedAt = r.FinishedAt.Time
	}
	if len(r.Files) > 0 {
		if err := json.Unmarshal(r.Files, &run.Files); err != nil {
			return nil, fmt.Errorf("failed to decode run files: %w", err)
		}
	}
	return &run, nil
}
