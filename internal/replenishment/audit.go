package replenishment

import (
	"sort"
)

// LineDecision is the decision trail of one demand line
type LineDecision struct {
	Index          int     `json:"index"`
	ProductID      int64   `json:"product_id"`
	Description    string  `json:"description"`
	Store          string  `json:"store"`
	Route          string  `json:"route"`
	Bucket         Bucket  `json:"bucket"`
	Tier           Tier    `json:"tier"`
	Forecast       int     `json:"forecast"`
	OnHand         int     `json:"on_hand"`
	Resolved       int     `json:"resolved"`
	Requested      int     `json:"requested"`
	Granted        int     `json:"granted"`
	Reason         Reason  `json:"reason"`
	Detail         string  `json:"detail,omitempty"`
	SuggestedQty   float64 `json:"suggested_qty"`
	RecommendedQty float64 `json:"recommended_qty"`
}

// SkippedLine is a demand line dropped for a data error
type SkippedLine struct {
	Index     int    `json:"index"`
	ProductID int64  `json:"product_id"`
	Store     string `json:"store"`
	Cause     string `json:"cause"`
}

// InvalidUnitProduct lists a product whose reorder unit is not usable
type InvalidUnitProduct struct {
	ProductID   int64  `json:"product_id"`
	Description string `json:"description"`
	ReorderUnit int    `json:"reorder_unit"`
}

// IntroducedProduct is a product shipped under the new-product override
type IntroducedProduct struct {
	ProductID   int64    `json:"product_id"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Stores      []string `json:"stores"`
	Units       int      `json:"units"`
}

// UnorderedRecommendation is stock granted for a line nobody ordered
// manually but the ERP recommended.
type UnorderedRecommendation struct {
	Store       string  `json:"store"`
	ProductID   int64   `json:"product_id"`
	Description string  `json:"description"`
	Recommended float64 `json:"recommended"`
	Granted     int     `json:"granted"`
}

type BucketSummary struct {
	Bucket Bucket `json:"bucket"`
	Units  int    `json:"units"`
	Lines  int    `json:"lines"`
}

// StoreSummary totals the granted units and lines of a store per bucket
type StoreSummary struct {
	Store      string          `json:"store"`
	Route      string          `json:"route"`
	Buckets    []BucketSummary `json:"buckets"`
	TotalUnits int             `json:"total_units"`
	TotalLines int             `json:"total_lines"`
}

// AuditReport is the structured account of a run.
type AuditReport struct {
	NewProducts  []IntroducedProduct       `json:"new_products"`
	Shortfalls   []Shortfall               `json:"shortfalls"`
	Stores       []StoreSummary            `json:"stores"`
	Decisions    []LineDecision            `json:"decisions"`
	InvalidUnits []InvalidUnitProduct      `json:"invalid_units"`
	Skipped      []SkippedLine             `json:"skipped"`
	Unordered    []UnorderedRecommendation `json:"unordered"`
}

// AuditBuilder accumulates decisions during a run. It only observes: nothing
// it holds feeds back into quantities. Not safe for concurrent use.
type AuditBuilder struct {
	decisions  []LineDecision
	skipped    []SkippedLine
	shortfalls []Shortfall
	invalid    map[int64]InvalidUnitProduct
	introduced map[int64]*IntroducedProduct
}

func NewAuditBuilder() *AuditBuilder {
	return &AuditBuilder{
		invalid:    make(map[int64]InvalidUnitProduct),
		introduced: make(map[int64]*IntroducedProduct),
	}
}

// Record adds the decision of one line
func (b *AuditBuilder) Record(d LineDecision) {
	b.decisions = append(b.decisions, d)
}

// Skip records a line excluded for a data error
func (b *AuditBuilder) Skip(s SkippedLine) {
	b.skipped = append(b.skipped, s)
}

// Shortfall records demand warehouse stock could not cover
func (b *AuditBuilder) Shortfall(s ...Shortfall) {
	b.shortfalls = append(b.shortfalls, s...)
}

// InvalidUnit flags a product for operator review. Each product is listed once
// no matter how many lines reference it.
func (b *AuditBuilder) InvalidUnit(p Product) {
	if _, seen := b.invalid[p.ID]; seen {
		return
	}
	b.invalid[p.ID] = InvalidUnitProduct{ProductID: p.ID, Description: p.Name, ReorderUnit: p.ReorderUnit}
}

// Introduce records a new-product shipment to a store
func (b *AuditBuilder) Introduce(p Product, store string, units int) {
	ip, ok := b.introduced[p.ID]
	if !ok {
		ip = &IntroducedProduct{ProductID: p.ID, Description: p.Name, Category: p.CategoryPath}
		b.introduced[p.ID] = ip
	}
	ip.Stores = append(ip.Stores, store)
	ip.Units += units
}

// Build produces the report. Output is ordered independently of the order
// in which entries were recorded.
func (b *AuditBuilder) Build() AuditReport {
	r := AuditReport{
		Decisions:  append([]LineDecision(nil), b.decisions...),
		Skipped:    append([]SkippedLine(nil), b.skipped...),
		Shortfalls: append([]Shortfall(nil), b.shortfalls...),
	}

	sort.SliceStable(r.Decisions, func(i, j int) bool { return r.Decisions[i].Index < r.Decisions[j].Index })
	sort.SliceStable(r.Skipped, func(i, j int) bool { return r.Skipped[i].Index < r.Skipped[j].Index })
	sort.SliceStable(r.Shortfalls, func(i, j int) bool {
		a, c := r.Shortfalls[i], r.Shortfalls[j]
		if a.ProductID != c.ProductID {
			return a.ProductID < c.ProductID
		}
		return a.Store < c.Store
	})

	for _, p := range b.invalid {
		r.InvalidUnits = append(r.InvalidUnits, p)
	}
	sort.Slice(r.InvalidUnits, func(i, j int) bool { return r.InvalidUnits[i].ProductID < r.InvalidUnits[j].ProductID })

	for _, entry := range b.introduced {
		ip := *entry
		ip.Stores = append([]string(nil), ip.Stores...)
		sort.Strings(ip.Stores)
		r.NewProducts = append(r.NewProducts, ip)
	}
	sort.Slice(r.NewProducts, func(i, j int) bool { return r.NewProducts[i].ProductID < r.NewProducts[j].ProductID })

	r.Stores = summarizeStores(r.Decisions)

	for _, d := range r.Decisions {
		if d.Granted > 0 && d.SuggestedQty == 0 && d.RecommendedQty > 0 {
			r.Unordered = append(r.Unordered, UnorderedRecommendation{
				Store:       d.Store,
				ProductID:   d.ProductID,
				Description: d.Description,
				Recommended: d.RecommendedQty,
				Granted:     d.Granted,
			})
		}
	}
	sort.SliceStable(r.Unordered, func(i, j int) bool { return r.Unordered[i].Store < r.Unordered[j].Store })

	return r
}

func summarizeStores(decisions []LineDecision) []StoreSummary {
	type totals struct {
		route string
		units map[Bucket]int
		lines map[Bucket]int
	}
	stores := map[string]*totals{}
	for _, d := range decisions {
		if d.Granted <= 0 {
			continue
		}
		t, ok := stores[d.Store]
		if !ok {
			t = &totals{route: d.Route, units: map[Bucket]int{}, lines: map[Bucket]int{}}
			stores[d.Store] = t
		}
		t.units[d.Bucket] += d.Granted
		t.lines[d.Bucket]++
	}

	out := make([]StoreSummary, 0, len(stores))
	for _, store := range sortedKeys(stores) {
		t := stores[store]
		s := StoreSummary{Store: store, Route: t.route}
		for _, bucket := range ReportBuckets {
			s.Buckets = append(s.Buckets, BucketSummary{Bucket: bucket, Units: t.units[bucket], Lines: t.lines[bucket]})
			s.TotalUnits += t.units[bucket]
			s.TotalLines += t.lines[bucket]
		}
		out = append(out, s)
	}
	return out
}
