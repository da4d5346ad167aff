package replenishment

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrEmptySnapshot is returned when a run has no demand lines to work on.
	ErrEmptySnapshot = errors.New("snapshot has no demand lines")
	// ErrMissingCatalog is returned when the snapshot carries no product catalog.
	ErrMissingCatalog = errors.New("snapshot has no product catalog")
	// ErrMissingReferenceTime is returned when the snapshot has no reference time.
	ErrMissingReferenceTime = errors.New("snapshot has no reference time")
)

// Skip causes recorded for lines that never reach the allocator.
const (
	SkipUnknownProduct = "product not in catalog"
	SkipNoCategory     = "product has no category"
	SkipNoStore        = "line has no store"
	SkipUnsuggested    = "line has no suggested or recommended quantity"
)

// Result is the complete output of one engine run
type Result struct {
	Lines     []OrderLine `json:"lines"`
	Partition Partition   `json:"partition"`
	Audit     AuditReport `json:"audit"`
	Stats     RunStats    `json:"stats"`
}

// RunStats counts what a run processed
type RunStats struct {
	Lines        int `json:"lines"`
	Skipped      int `json:"skipped"`
	Products     int `json:"products"`
	OrderedUnits int `json:"ordered_units"`
	Shortfalls   int `json:"shortfalls"`
}

// Engine runs the whole allocation pass over an in-memory snapshot.
type Engine struct {
	rules      *RuleSet
	classifier *Classifier
	resolver   *Resolver
	allocator  *Allocator
	logger     zerolog.Logger
	workers    int
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the logger used for per-line recoveries.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithWorkers bounds the goroutines used for line preparation and per-product allocation.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// NewEngine validates the rule set and builds an engine. A rule set that
// fails validation is fatal: no defaults are substituted.
func NewEngine(rules *RuleSet, opts ...Option) (*Engine, error) {
	if rules == nil {
		return nil, fmt.Errorf("%w: rule set is nil", ErrInvalidRules)
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}

	classifier := NewClassifier(rules)
	e := &Engine{
		rules:      rules,
		classifier: classifier,
		resolver:   NewResolver(rules, classifier),
		allocator:  NewAllocator(NewProductPolicyFrom(rules), SeasonalPolicyFrom(rules)),
		logger:     zerolog.Nop(),
		workers:    runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Rules returns the rule set the engine was built with
func (e *Engine) Rules() *RuleSet {
	return e.rules
}

type preparedSlot struct {
	line    PreparedLine
	product Product
	bucket  Bucket
	skip    string
}

// Run computes order lines, partitions and the audit report for snap. The
// snapshot is never modified. Either a complete result or an error is returned.
func (e *Engine) Run(ctx context.Context, snap Snapshot) (*Result, error) {
	switch {
	case len(snap.Lines) == 0:
		return nil, ErrEmptySnapshot
	case snap.Catalog == nil:
		return nil, ErrMissingCatalog
	case snap.ReferenceTime.IsZero():
		return nil, ErrMissingReferenceTime
	}

	slots, err := e.prepare(ctx, snap)
	if err != nil {
		return nil, err
	}

	audit := NewAuditBuilder()
	groups := e.group(slots, audit)

	results := make([]AllocationResult, len(groups))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := range groups {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.allocator.Allocate(groups[i], snap.ReferenceTime)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("allocate: %w", err)
	}

	lines := make([]OrderLine, 0, len(snap.Lines))
	res := &Result{}
	for i, r := range results {
		pa := groups[i]
		byIndex := make(map[int]PreparedLine, len(pa.Lines))
		for _, l := range pa.Lines {
			byIndex[l.Index] = l
		}

		audit.Shortfall(r.Shortfalls...)
		for _, grant := range r.Grants {
			pl := byIndex[grant.Index]
			route := e.classifier.Route(grant.Store)
			ol := OrderLine{
				ProductID:   pa.Product.ID,
				Barcode:     pa.Product.Barcode,
				Reference:   pa.Product.Reference,
				Description: pa.Product.Name,
				Store:       NormalizeStore(grant.Store),
				Route:       route,
				Bucket:      pa.Bucket,
				Category:    pa.Product.CategoryPath,
				Quantity:    grant.Granted,
				Reason:      grant.Reason,
			}
			lines = append(lines, ol)
			res.Stats.OrderedUnits += grant.Granted

			if grant.Introduced && grant.Granted > 0 {
				audit.Introduce(pa.Product, ol.Store, grant.Granted)
			}
			audit.Record(LineDecision{
				Index:          grant.Index,
				ProductID:      pa.Product.ID,
				Description:    pa.Product.Name,
				Store:          ol.Store,
				Route:          route,
				Bucket:         pa.Bucket,
				Tier:           pl.Tier,
				Forecast:       pl.Forecast,
				OnHand:         pl.Line.StoreOnHand,
				Resolved:       pl.Resolution.Quantity,
				Requested:      grant.Requested,
				Granted:        grant.Granted,
				Reason:         grant.Reason,
				Detail:         pl.Resolution.Detail,
				SuggestedQty:   pl.Line.SuggestedQty,
				RecommendedQty: pl.Line.RecommendedQty,
			})
		}
	}

	order := make(map[int64]int, len(groups))
	for i, pa := range groups {
		order[pa.Product.ID] = i
	}
	sort.SliceStable(lines, func(i, j int) bool {
		a, b := lines[i], lines[j]
		if a.Store != b.Store {
			return a.Store < b.Store
		}
		return order[a.ProductID] < order[b.ProductID]
	})

	res.Lines = lines
	res.Partition = PartitionLines(lines, e.rules)
	res.Audit = audit.Build()
	res.Stats.Lines = len(snap.Lines)
	res.Stats.Skipped = len(res.Audit.Skipped)
	res.Stats.Products = len(groups)
	res.Stats.Shortfalls = len(res.Audit.Shortfalls)

	e.logger.Info().
		Int("lines", res.Stats.Lines).
		Int("skipped", res.Stats.Skipped).
		Int("products", res.Stats.Products).
		Int("units", res.Stats.OrderedUnits).
		Int("shortfalls", res.Stats.Shortfalls).
		Int("invalid_units", len(res.Audit.InvalidUnits)).
		Msg("Replenishment run computed")

	return res, nil
}

// prepare runs signal extraction, classification and resolution for every
// line in parallel. Each goroutine writes only its own slot.
func (e *Engine) prepare(ctx context.Context, snap Snapshot) ([]preparedSlot, error) {
	slots := make([]preparedSlot, len(snap.Lines))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := range snap.Lines {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slots[i] = e.prepareLine(i, snap.Lines[i], snap.Catalog)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("prepare lines: %w", err)
	}
	return slots, nil
}

func (e *Engine) prepareLine(index int, line DemandLine, catalog Catalog) preparedSlot {
	slot := preparedSlot{line: PreparedLine{Index: index, Line: line}}

	product, ok := catalog[line.ProductID]
	switch {
	case !ok:
		slot.skip = SkipUnknownProduct
		return slot
	case strings.TrimSpace(product.CategoryPath) == "":
		slot.skip = SkipNoCategory
		return slot
	case strings.TrimSpace(line.Store) == "":
		slot.skip = SkipNoStore
		return slot
	case e.rules.SkipUnsuggestedLines && line.EffectiveSuggestion() == 0:
		slot.skip = SkipUnsuggested
		return slot
	}

	// Exclusion markers such as "(copia)" are matched on the raw name.
	slot.bucket = e.classifier.Bucket(product.CategoryPath, product.Name)
	product.Name = CleanProductName(product.Name)
	slot.product = product

	tier := e.classifier.Tier(line.Store)
	forecast := Forecast(line, e.rules)
	sub := e.classifier.Subcategory(product.CategoryPath, slot.bucket)

	slot.line.Forecast = forecast
	slot.line.Tier = tier
	slot.line.Subcategory = sub
	slot.line.Resolution = e.resolver.Resolve(ResolveInput{
		Product:        product,
		Forecast:       forecast,
		OnHand:         line.StoreOnHand,
		WarehouseStock: line.WarehouseStock,
		Tier:           tier,
		Bucket:         slot.bucket,
		Subcategory:    sub,
	})
	return slot
}

// group collects prepared lines per product, ordered by product id. Skipped
// lines and invalid reorder units are reported to the audit here.
func (e *Engine) group(slots []preparedSlot, audit *AuditBuilder) []ProductAllocation {
	byProduct := map[int64]*ProductAllocation{}
	for _, s := range slots {
		if s.skip != "" {
			audit.Skip(SkippedLine{Index: s.line.Index, ProductID: s.line.Line.ProductID, Store: s.line.Line.Store, Cause: s.skip})
			e.logger.Warn().
				Int64("product_id", s.line.Line.ProductID).
				Str("store", s.line.Line.Store).
				Str("cause", s.skip).
				Msg("Skipping demand line")
			continue
		}

		pa, ok := byProduct[s.product.ID]
		if !ok {
			pa = &ProductAllocation{Product: s.product, Bucket: s.bucket, WarehouseStock: s.line.Line.WarehouseStock}
			byProduct[s.product.ID] = pa
			if s.product.ReorderUnit <= 0 {
				audit.InvalidUnit(s.product)
				e.logger.Warn().
					Int64("product_id", s.product.ID).
					Str("product", s.product.Name).
					Int("reorder_unit", s.product.ReorderUnit).
					Msg("Invalid reorder unit, zeroing every line of the product")
			}
		} else if pa.WarehouseStock != s.line.Line.WarehouseStock {
			e.logger.Warn().
				Int64("product_id", s.product.ID).
				Int("warehouse_stock", pa.WarehouseStock).
				Int("line_warehouse_stock", s.line.Line.WarehouseStock).
				Msg("Demand lines disagree on warehouse stock, keeping the first")
		}
		pa.Lines = append(pa.Lines, s.line)
	}

	ids := make([]int64, 0, len(byProduct))
	for id := range byProduct {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	groups := make([]ProductAllocation, 0, len(ids))
	for _, id := range ids {
		groups = append(groups, *byProduct[id])
	}
	return groups
}
