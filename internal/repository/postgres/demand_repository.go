package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/autopo-replenish/internal/replenishment"
	"github.com/jmoiron/sqlx"
)

type demandRow struct {
	SnapshotDate   time.Time       `db:"snapshot_date"`
	LineNo         int             `db:"line_no"`
	ProductID      int64           `db:"product_id"`
	Store          string          `db:"store"`
	Month0         sql.NullFloat64 `db:"month_0"`
	Month1         sql.NullFloat64 `db:"month_1"`
	Month2         sql.NullFloat64 `db:"month_2"`
	Month3         sql.NullFloat64 `db:"month_3"`
	Month4         sql.NullFloat64 `db:"month_4"`
	Month5         sql.NullFloat64 `db:"month_5"`
	SuggestedQty   float64         `db:"suggested_qty"`
	RecommendedQty float64         `db:"recommended_qty"`
	StoreOnHand    int             `db:"store_on_hand"`
	WarehouseStock int             `db:"warehouse_stock"`
	SalesRanking   float64         `db:"sales_ranking"`
}

func newDemandRow(date time.Time, lineNo int, l replenishment.DemandLine) demandRow {
	months := make([]sql.NullFloat64, len(l.Months))
	for i, v := range l.Months {
		if v != nil {
			months[i] = sql.NullFloat64{Float64: *v, Valid: true}
		}
	}
	return demandRow{
		SnapshotDate:   date,
		LineNo:         lineNo,
		ProductID:      l.ProductID,
		Store:          l.Store,
		Month0:         months[0],
		Month1:         months[1],
		Month2:         months[2],
		Month3:         months[3],
		Month4:         months[4],
		Month5:         months[5],
		SuggestedQty:   l.SuggestedQty,
		RecommendedQty: l.RecommendedQty,
		StoreOnHand:    l.StoreOnHand,
		WarehouseStock: l.WarehouseStock,
		SalesRanking:   l.SalesRanking,
	}
}

func (r demandRow) line() replenishment.DemandLine {
	l := replenishment.DemandLine{
		ProductID:      r.ProductID,
		Store:          r.Store,
		SuggestedQty:   r.SuggestedQty,
		RecommendedQty: r.RecommendedQty,
		StoreOnHand:    r.StoreOnHand,
		WarehouseStock: r.WarehouseStock,
		SalesRanking:   r.SalesRanking,
	}
	for i, m := range []sql.NullFloat64{r.Month0, r.Month1, r.Month2, r.Month3, r.Month4, r.Month5} {
		if m.Valid {
			v := m.Float64
			l.Months[i] = &v
		}
	}
	return l
}

// DemandRepository stores dated ERP demand snapshots.
type DemandRepository struct {
	db *DB
}

func NewDemandRepository(db *DB) *DemandRepository {
	return &DemandRepository{db: db}
}

// SaveSnapshot replaces the snapshot stored for date with lines, keeping their order.
func (r *DemandRepository) SaveSnapshot(ctx context.Context, date time.Time, lines []replenishment.DemandLine) error {
	date = truncateDay(date)
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM demand_lines WHERE snapshot_date = $1`, date); err != nil {
			return fmt.Errorf("failed to clear snapshot: %w", err)
		}

		stmt, err := tx.PrepareNamedContext(ctx, `
			INSERT INTO demand_lines (
				snapshot_date, line_no, product_id, store,
				month_0, month_1, month_2, month_3, month_4, month_5,
				suggested_qty, recommended_qty, store_on_hand, warehouse_stock, sales_ranking
			) VALUES (
				:snapshot_date, :line_no, :product_id, :store,
				:month_0, :month_1, :month_2, :month_3, :month_4, :month_5,
				:suggested_qty, :recommended_qty, :store_on_hand, :warehouse_stock, :sales_ranking
			)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for i, l := range lines {
			if _, err := stmt.ExecContext(ctx, newDemandRow(date, i, l)); err != nil {
				return fmt.Errorf("failed to insert demand line %d: %w", i, err)
			}
		}
		return nil
	})
}

// LatestSnapshotDate returns the most recent stored snapshot date.
func (r *DemandRepository) LatestSnapshotDate(ctx context.Context) (time.Time, error) {
	var date sql.NullTime
	if err := r.db.GetContext(ctx, &date, `SELECT MAX(snapshot_date) FROM demand_lines`); err != nil {
		return time.Time{}, fmt.Errorf("failed to query latest snapshot: %w", err)
	}
	if !date.Valid {
		return time.Time{}, fmt.Errorf("demand snapshot: %w", ErrNotFound)
	}
	return date.Time, nil
}

// Lines returns the snapshot for date in its original order.
func (r *DemandRepository) Lines(ctx context.Context, date time.Time) ([]replenishment.DemandLine, error) {
	var rows []demandRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT snapshot_date, line_no, product_id, store,
			month_0, month_1, month_2, month_3, month_4, month_5,
			suggested_qty, recommended_qty, store_on_hand, warehouse_stock, sales_ranking
		FROM demand_lines
		WHERE snapshot_date = $1
		ORDER BY line_no
	`, truncateDay(date))
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to query demand lines: %w", err)
	}

	lines := make([]replenishment.DemandLine, len(rows))
	for i, row := range rows {
		lines[i] = row.line()
	}
	return lines, nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
