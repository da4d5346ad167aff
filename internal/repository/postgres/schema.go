package postgres

import (
	"context"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS products (
	id            BIGINT PRIMARY KEY,
	barcode       TEXT NOT NULL DEFAULT '',
	reference     TEXT NOT NULL DEFAULT '',
	name          TEXT NOT NULL,
	category_path TEXT NOT NULL DEFAULT '',
	reorder_unit  INTEGER NOT NULL DEFAULT 1,
	min_inventory INTEGER,
	max_inventory INTEGER,
	season        TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS demand_lines (
	snapshot_date   DATE NOT NULL,
	line_no         INTEGER NOT NULL,
	product_id      BIGINT NOT NULL,
	store           TEXT NOT NULL,
	month_0         DOUBLE PRECISION,
	month_1         DOUBLE PRECISION,
	month_2         DOUBLE PRECISION,
	month_3         DOUBLE PRECISION,
	month_4         DOUBLE PRECISION,
	month_5         DOUBLE PRECISION,
	suggested_qty   DOUBLE PRECISION NOT NULL DEFAULT 0,
	recommended_qty DOUBLE PRECISION NOT NULL DEFAULT 0,
	store_on_hand   INTEGER NOT NULL DEFAULT 0,
	warehouse_stock INTEGER NOT NULL DEFAULT 0,
	sales_ranking   DOUBLE PRECISION NOT NULL DEFAULT 0,
	PRIMARY KEY (snapshot_date, line_no)
);

CREATE INDEX IF NOT EXISTS idx_demand_lines_product ON demand_lines (snapshot_date, product_id);

CREATE TABLE IF NOT EXISTS replenishment_runs (
	id            UUID PRIMARY KEY,
	sequence      TEXT NOT NULL,
	profile       TEXT NOT NULL,
	source        TEXT NOT NULL DEFAULT '',
	status        SMALLINT NOT NULL,
	started_at    TIMESTAMPTZ NOT NULL,
	finished_at   TIMESTAMPTZ,
	lines         INTEGER NOT NULL DEFAULT 0,
	skipped       INTEGER NOT NULL DEFAULT 0,
	products      INTEGER NOT NULL DEFAULT 0,
	ordered_units INTEGER NOT NULL DEFAULT 0,
	shortfalls    INTEGER NOT NULL DEFAULT 0,
	output_dir    TEXT NOT NULL DEFAULT '',
	files         JSONB NOT NULL DEFAULT '[]',
	bundle_path   TEXT NOT NULL DEFAULT '',
	bundle_key    TEXT NOT NULL DEFAULT '',
	error         TEXT NOT NULL DEFAULT ''
);
`

// EnsureSchema creates the snapshot and run tables when missing.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
