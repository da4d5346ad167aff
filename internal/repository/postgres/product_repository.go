package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/andresuchdata/autopo-replenish/internal/replenishment"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type productRow struct {
	ID           int64         `db:"id"`
	Barcode      string        `db:"barcode"`
	Reference    string        `db:"reference"`
	Name         string        `db:"name"`
	CategoryPath string        `db:"category_path"`
	ReorderUnit  int           `db:"reorder_unit"`
	MinInventory sql.NullInt64 `db:"min_inventory"`
	MaxInventory sql.NullInt64 `db:"max_inventory"`
	Season       string        `db:"season"`
	CreatedAt    sql.NullTime  `db:"created_at"`
}

func newProductRow(p replenishment.Product) productRow {
	row := productRow{
		ID:           p.ID,
		Barcode:      p.Barcode,
		Reference:    p.Reference,
		Name:         p.Name,
		CategoryPath: p.CategoryPath,
		ReorderUnit:  p.ReorderUnit,
		Season:       p.Season,
	}
	if p.MinInventory != nil {
		row.MinInventory = sql.NullInt64{Int64: int64(*p.MinInventory), Valid: true}
	}
	if p.MaxInventory != nil {
		row.MaxInventory = sql.NullInt64{Int64: int64(*p.MaxInventory), Valid: true}
	}
	if p.CreatedAt != nil {
		row.CreatedAt = sql.NullTime{Time: *p.CreatedAt, Valid: true}
	}
	return row
}

func (r productRow) product() replenishment.Product {
	p := replenishment.Product{
		ID:           r.ID,
		Barcode:      r.Barcode,
		Reference:    r.Reference,
		Name:         r.Name,
		CategoryPath: r.CategoryPath,
		ReorderUnit:  r.ReorderUnit,
		Season:       r.Season,
	}
	if r.MinInventory.Valid {
		v := int(r.MinInventory.Int64)
		p.MinInventory = &v
	}
	if r.MaxInventory.Valid {
		v := int(r.MaxInventory.Int64)
		p.MaxInventory = &v
	}
	if r.CreatedAt.Valid {
		t := r.CreatedAt.Time
		p.CreatedAt = &t
	}
	return p
}

// ProductRepository stores the product catalog.
type ProductRepository struct {
	db *DB
}

func NewProductRepository(db *DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// Upsert inserts or refreshes the given products.
func (r *ProductRepository) Upsert(ctx context.Context, products []replenishment.Product) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		stmt, err := tx.PrepareNamedContext(ctx, `
			INSERT INTO products (
				id, barcode, reference, name, category_path, reorder_unit,
				min_inventory, max_inventory, season, created_at, updated_at
			) VALUES (
				:id, :barcode, :reference, :name, :category_path, :reorder_unit,
				:min_inventory, :max_inventory, :season, :created_at, NOW()
			)
			ON CONFLICT (id)
			DO UPDATE SET
				barcode = EXCLUDED.barcode,
				reference = EXCLUDED.reference,
				name = EXCLUDED.name,
				category_path = EXCLUDED.category_path,
				reorder_unit = EXCLUDED.reorder_unit,
				min_inventory = EXCLUDED.min_inventory,
				max_inventory = EXCLUDED.max_inventory,
				season = EXCLUDED.season,
				created_at = COALESCE(EXCLUDED.created_at, products.created_at),
				updated_at = NOW()
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, p := range products {
			if _, err := stmt.ExecContext(ctx, newProductRow(p)); err != nil {
				return fmt.Errorf("failed to upsert product %d: %w", p.ID, err)
			}
		}
		return nil
	})
}

// Catalog returns the products with the given ids. Unknown ids are absent
// from the result.
func (r *ProductRepository) Catalog(ctx context.Context, ids []int64) (replenishment.Catalog, error) {
	catalog := make(replenishment.Catalog, len(ids))
	if len(ids) == 0 {
		return catalog, nil
	}

	var rows []productRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, barcode, reference, name, category_path, reorder_unit,
			min_inventory, max_inventory, season, created_at
		FROM products
		WHERE id = ANY($1)
	`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}

	for _, row := range rows {
		catalog[row.ID] = row.product()
	}
	return catalog, nil
}
