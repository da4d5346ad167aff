package source

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/andresuchdata/autopo-replenish/internal/replenishment"
	"github.com/rs/zerolog"
)

// FileLoader reads a snapshot from ERP exports on disk. When ProductsPath is
// empty the catalog columns are read from the demand export itself.
type FileLoader struct {
	LinesPath    string
	ProductsPath string
	Now          func() time.Time
	Logger       zerolog.Logger
}

func NewFileLoader(linesPath, productsPath string, logger zerolog.Logger) *FileLoader {
	return &FileLoader{
		LinesPath:    linesPath,
		ProductsPath: productsPath,
		Now:          time.Now,
		Logger:       logger,
	}
}

func (l *FileLoader) Load(ctx context.Context) (*replenishment.Snapshot, error) {
	if l.LinesPath == "" {
		return nil, fmt.Errorf("demand export path is required")
	}

	lines, err := ReadDemandLines(l.LinesPath, l.Logger)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var catalog replenishment.Catalog
	if l.ProductsPath != "" {
		catalog, err = ReadCatalog(l.ProductsPath, l.Logger)
	} else {
		catalog, err = readCatalog(l.LinesPath, l.Logger, "product_id", "productid", "product")
	}
	if err != nil {
		return nil, err
	}

	now := time.Now
	if l.Now != nil {
		now = l.Now
	}

	l.Logger.Info().
		Str("lines_file", l.LinesPath).
		Str("products_file", l.ProductsPath).
		Int("lines", len(lines)).
		Int("products", len(catalog)).
		Msg("Loaded snapshot from exports")

	return &replenishment.Snapshot{
		Lines:         lines,
		Catalog:       catalog,
		ReferenceTime: now(),
	}, nil
}

// ReadDemandLines parses a demand-line export. Unreadable cells are logged
// and read as zero; a row whose product cannot be identified keeps product id
// 0 so the engine reports it as skipped.
func ReadDemandLines(path string, logger zerolog.Logger) ([]replenishment.DemandLine, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, err
	}

	productCol, err := t.require("product_id", "product", "productid", "id_producto")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	storeCol, err := t.require("shop_pos_id", "store", "tienda", "shop")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var monthCols [len(replenishment.MonthlySamples{})]int
	for i := range monthCols {
		monthCols[i] = t.col(
			fmt.Sprintf("qty_month%d", i),
			fmt.Sprintf("month_%d", i+1),
			fmt.Sprintf("mes_%d", i+1),
		)
	}
	suggestedCol := t.col("qty_to_order", "suggested_qty", "cantidad_a_ordenar")
	recommendedCol := t.col("qty_to_order_recommend", "recommended_qty", "cantidad_recomendada")
	onHandCol := t.col("qty_to_hand", "store_on_hand", "stock_tienda")
	warehouseCol := t.col("qty_in_wh", "warehouse_stock", "stock_bodega")
	rankingCol := t.col("total_avg", "sales_ranking")

	lines := make([]replenishment.DemandLine, 0, len(t.rows))
	for i, row := range t.rows {
		rowLog := logger.With().Str("file", path).Int("row", i+2).Logger()
		num := func(idx int, field string) (float64, bool) {
			v, ok, err := parseNumber(cell(row, idx))
			if err != nil {
				rowLog.Warn().Err(err).Str("field", field).Msg("Unreadable value, using 0")
			}
			return v, ok
		}

		var line replenishment.DemandLine
		if id, _, err := parseID(cell(row, productCol)); err != nil {
			rowLog.Warn().Err(err).Msg("Demand row without a readable product")
		} else {
			line.ProductID = id
		}

		store := cell(row, storeCol)
		if _, label, err := parseID(store); err == nil && label != "" {
			store = label
		}
		line.Store = store

		for m, idx := range monthCols {
			if v, ok := num(idx, "month"); ok {
				line.Months[m] = &v
			}
		}
		line.SuggestedQty, _ = num(suggestedCol, "qty_to_order")
		line.RecommendedQty, _ = num(recommendedCol, "qty_to_order_recommend")
		onHand, _ := num(onHandCol, "qty_to_hand")
		line.StoreOnHand = int(math.Trunc(onHand))
		warehouse, _ := num(warehouseCol, "qty_in_wh")
		line.WarehouseStock = int(math.Trunc(warehouse))
		line.SalesRanking, _ = num(rankingCol, "total_avg")

		lines = append(lines, line)
	}
	return lines, nil
}

// ReadCatalog parses a product export keyed by product id.
func ReadCatalog(path string, logger zerolog.Logger) (replenishment.Catalog, error) {
	return readCatalog(path, logger, "id", "product_id", "productid")
}

func readCatalog(path string, logger zerolog.Logger, idNames ...string) (replenishment.Catalog, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, err
	}

	idCol, err := t.require(idNames...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	nameCol, err := t.require("nombre_correcto", "name", "product_name", "display_name", "descripcion", "description")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	barcodeCol := t.col("barcode", "codigo", "código")
	referenceCol := t.col("default_code", "reference", "referencia_interna")
	categoryCol := t.col("categ_id", "category_path", "category", "categoria", "categoría")
	unitCol := t.col("x_studio_unidad_de_reposicin", "reorder_unit", "unidad_de_reposicion")
	minCol := t.col("min_inventory", "inventario_minimo")
	maxCol := t.col("max_inventory", "inventario_maximo")
	createdCol := t.col("create_date", "created_at")
	seasonCol := t.col("season", "temporada")

	catalog := make(replenishment.Catalog, len(t.rows))
	for i, row := range t.rows {
		rowLog := logger.With().Str("file", path).Int("row", i+2).Logger()

		id, _, err := parseID(cell(row, idCol))
		if err != nil {
			rowLog.Warn().Err(err).Msg("Product row without a readable id, skipped")
			continue
		}
		if _, seen := catalog[id]; seen {
			continue
		}

		p := replenishment.Product{
			ID:        id,
			Barcode:   falseToEmpty(cell(row, barcodeCol)),
			Reference: falseToEmpty(cell(row, referenceCol)),
			Name:      cell(row, nameCol),
			Season:    falseToEmpty(cell(row, seasonCol)),
		}

		category := falseToEmpty(cell(row, categoryCol))
		if _, label, err := parseID(category); err == nil && label != "" {
			category = label
		}
		p.CategoryPath = category

		p.ReorderUnit = 1
		if raw := cell(row, unitCol); raw != "" {
			v, ok, err := parseNumber(raw)
			switch {
			case err != nil || v != math.Trunc(v):
				rowLog.Warn().Int64("product_id", id).Str("value", raw).Msg("Unreadable reorder unit")
				p.ReorderUnit = 0
			case ok:
				p.ReorderUnit = int(v)
			}
		}

		p.MinInventory = optionalInt(cell(row, minCol))
		p.MaxInventory = optionalInt(cell(row, maxCol))

		created, err := parseTime(cell(row, createdCol))
		if err != nil {
			rowLog.Warn().Err(err).Int64("product_id", id).Msg("Unreadable creation date")
		}
		p.CreatedAt = created

		catalog[id] = p
	}
	return catalog, nil
}

func optionalInt(s string) *int {
	v, ok, err := parseNumber(s)
	if err != nil || !ok {
		return nil
	}
	n := int(v)
	return &n
}

func falseToEmpty(s string) string {
	if s == "False" || s == "false" {
		return ""
	}
	return s
}
