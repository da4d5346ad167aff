package replenishment

import (
	"sort"
	"time"
)

// PreparedLine is a demand line after signal extraction, classification and
// quantity resolution.
type PreparedLine struct {
	Index       int // position in the snapshot, used to keep output order stable
	Line        DemandLine
	Forecast    int
	Tier        Tier
	Subcategory string
	Resolution  Resolution
}

// ProductAllocation groups every prepared line of one product.
type ProductAllocation struct {
	Product        Product
	Bucket         Bucket
	WarehouseStock int
	Lines          []PreparedLine
}

// Grant is the allocator's final decision for one line
type Grant struct {
	Index      int
	Store      string
	Requested  int
	Granted    int
	Reason     Reason
	Introduced bool
}

// AllocationResult is the outcome of allocating one product
type AllocationResult struct {
	ProductID  int64
	Season     string
	Grants     []Grant
	Shortfalls []Shortfall
	Ledger     Ledger
}

// Allocator splits the shared warehouse stock of a product across its store lines.
type Allocator struct {
	newProducts NewProductPolicy
	seasonal    SeasonalPolicy
}

// NewAllocator creates an allocator with the given policies
func NewAllocator(newProducts NewProductPolicy, seasonal SeasonalPolicy) *Allocator {
	return &Allocator{newProducts: newProducts, seasonal: seasonal}
}

// Allocate serves the lines of one product in priority order: new-product
// introductions first, then by sales ranking descending with ties broken by
// store name. Each request is clipped to the largest multiple of the unit the
// remaining stock covers. It never touches state outside pa.
func (a *Allocator) Allocate(pa ProductAllocation, ref time.Time) AllocationResult {
	p := pa.Product
	lines := sortByPriority(pa.Lines)
	result := AllocationResult{ProductID: p.ID}

	if p.ReorderUnit <= 0 {
		for _, l := range lines {
			result.Grants = append(result.Grants, Grant{Index: l.Index, Store: l.Line.Store, Reason: ReasonInvalidUnit})
		}
		return result
	}

	unit := p.ReorderUnit
	if len(lines) > 0 && lines[0].Resolution.Unit > 0 {
		unit = lines[0].Resolution.Unit
	}
	ledger := NewLedger(p.ID, unit, pa.WarehouseStock)

	if season := a.seasonal.Season(p); season != "" {
		result.Season = season
		if !a.seasonal.Active(season, ref) {
			for _, l := range lines {
				result.Grants = append(result.Grants, Grant{Index: l.Index, Store: l.Line.Store, Reason: ReasonOutOfSeason})
			}
			result.Ledger = ledger
			return result
		}
		if a.seasonal.Policy == SeasonalEvenSplit {
			return a.evenSplit(result, p, lines, ledger)
		}
	}

	grants := make([]Grant, len(lines))
	var intro, regular []int
	for i, l := range lines {
		grants[i] = Grant{
			Index:     l.Index,
			Store:     l.Line.Store,
			Requested: l.Resolution.Quantity,
			Reason:    l.Resolution.Reason,
		}
		if a.newProducts.IsNew(p, l.Line.StoreOnHand, ref) {
			grants[i].Requested = roundUp(a.newProducts.IntroQuantity, unit)
			grants[i].Reason = ReasonNewProduct
			grants[i].Introduced = true
			intro = append(intro, i)
			continue
		}
		regular = append(regular, i)
	}

	for _, i := range append(intro, regular...) {
		g := &grants[i]
		if g.Requested <= 0 {
			continue
		}
		g.Granted, ledger = ledger.Take(g.Requested)
		if g.Granted < g.Requested {
			if g.Granted == 0 {
				g.Reason = ReasonInsufficientStock
			}
			result.Shortfalls = append(result.Shortfalls, Shortfall{
				ProductID:   p.ID,
				Description: p.Name,
				Store:       g.Store,
				Requested:   g.Requested,
				Granted:     g.Granted,
				Reason:      ReasonInsufficientStock,
			})
		}
	}

	result.Grants = grants
	result.Ledger = ledger
	return result
}

// evenSplit deals the warehouse stock out one ordering unit at a time, in
// priority order, until less than a unit is left. Lines already above their
// maximum inventory take no part. A line the stock never reached is recorded
// as a one-unit shortfall; the remainder below one unit is not.
func (a *Allocator) evenSplit(result AllocationResult, p Product, lines []PreparedLine, ledger Ledger) AllocationResult {
	grants := make([]Grant, len(lines))
	var eligible []int
	for i, l := range lines {
		grants[i] = Grant{Index: l.Index, Store: l.Line.Store, Reason: ReasonSeasonalSplit}
		if l.Resolution.Reason == ReasonOverMaximum {
			grants[i].Reason = ReasonOverMaximum
			continue
		}
		eligible = append(eligible, i)
	}

	for len(eligible) > 0 && !ledger.Exhausted() {
		for _, i := range eligible {
			var granted int
			granted, ledger = ledger.Take(ledger.Unit)
			if granted == 0 {
				break
			}
			grants[i].Granted += granted
		}
	}

	for _, i := range eligible {
		g := &grants[i]
		g.Requested = g.Granted
		if g.Granted > 0 {
			continue
		}
		g.Requested = ledger.Unit
		g.Reason = ReasonInsufficientStock
		result.Shortfalls = append(result.Shortfalls, Shortfall{
			ProductID:   p.ID,
			Description: p.Name,
			Store:       g.Store,
			Requested:   g.Requested,
			Reason:      ReasonInsufficientStock,
		})
	}

	result.Grants = grants
	result.Ledger = ledger
	return result
}

func sortByPriority(lines []PreparedLine) []PreparedLine {
	sorted := make([]PreparedLine, len(lines))
	copy(sorted, lines)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Line.SalesRanking != b.Line.SalesRanking {
			return a.Line.SalesRanking > b.Line.SalesRanking
		}
		sa, sb := NormalizeStore(a.Line.Store), NormalizeStore(b.Line.Store)
		if sa != sb {
			return sa < sb
		}
		return a.Index < b.Index
	})
	return sorted
}
