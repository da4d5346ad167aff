package replenishment

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ResolveInput carries everything the resolver needs for one line
type ResolveInput struct {
	Product        Product
	Forecast       int
	OnHand         int
	WarehouseStock int
	Tier           Tier
	Bucket         Bucket
	Subcategory    string
}

// Resolution is the resolver's answer for a line before warehouse allocation
type Resolution struct {
	Quantity int
	Reason   Reason
	Unit     int // ordering unit actually applied
	Target   int // pre-clamp target quantity (forecast x coverage or multiplier)
	Floor    int // category/subcategory floor
	Detail   string
}

// Resolver is the quantity rule engine.
type Resolver struct {
	rules      *RuleSet
	classifier *Classifier
}

// NewResolver creates a resolver for a validated rule set
func NewResolver(rules *RuleSet, classifier *Classifier) *Resolver {
	return &Resolver{rules: rules, classifier: classifier}
}

// Resolve computes the order quantity for one line.
func (r *Resolver) Resolve(in ResolveInput) Resolution {
	p := in.Product
	if p.ReorderUnit <= 0 {
		return Resolution{
			Reason: ReasonInvalidUnit,
			Detail: fmt.Sprintf("reorder unit %d is not a positive integer", p.ReorderUnit),
		}
	}

	floor, unit := r.floorAndUnit(in)
	res := Resolution{Unit: unit, Floor: floor}

	floorShort := max(0, floor-in.OnHand)
	productShort := 0
	if p.MinInventory != nil && *p.MinInventory > floor {
		productShort = max(0, *p.MinInventory-in.OnHand)
	}

	// An empty store with no sales signal gets only its safety floor.
	zeroSignal := in.OnHand == 0 && in.Forecast == 0 && in.WarehouseStock > 0

	gap := 0
	if !zeroSignal {
		res.Target = r.Target(in)
		switch r.rules.Profile {
		case ProfileForecastMultiplier:
			gap = res.Target
		default:
			gap = max(0, res.Target-in.OnHand)
		}
	}

	qty := max(gap, floorShort, productShort, 0)
	switch {
	case qty == 0:
		res.Reason = ReasonNoNeed
	case gap >= floorShort && gap >= productShort:
		res.Reason = ReasonTarget
	default:
		res.Reason = ReasonMinimumFloor
	}

	if p.MaxInventory != nil {
		if in.OnHand > *p.MaxInventory {
			res.Reason = ReasonOverMaximum
			res.Detail = fmt.Sprintf("on hand %d above maximum %d", in.OnHand, *p.MaxInventory)
			return res
		}
		allowed := roundDown(*p.MaxInventory-in.OnHand, unit)
		if qty > allowed {
			qty = allowed
			res.Reason = ReasonMaxCapAdjusted
			res.Detail = fmt.Sprintf("clamped to maximum inventory %d", *p.MaxInventory)
		}
	}

	if limit, ok := r.rules.MaxOrderCap[string(in.Tier)]; ok && limit > 0 {
		allowed := roundDown(limit, unit)
		if qty > allowed {
			qty = allowed
			res.Reason = ReasonMaxCapAdjusted
			res.Detail = fmt.Sprintf("clamped to %s store order cap %d", in.Tier, limit)
		}
	}

	qty = roundUp(qty, unit)
	if qty < unit {
		qty = 0
	}
	res.Quantity = qty
	return res
}

// Target returns the pre-clamp target quantity for the configured profile.
func (r *Resolver) Target(in ResolveInput) int {
	if in.Forecast <= 0 {
		return 0
	}

	factor := r.rules.CoverageFor(in.Bucket)
	if r.rules.Profile == ProfileForecastMultiplier {
		factor = r.rules.ForecastMultipliers[string(in.Tier)]
	}

	target := decimal.NewFromInt(int64(in.Forecast)).
		Mul(decimal.NewFromFloat(factor)).
		Ceil()
	return int(target.IntPart())
}

// floorAndUnit looks up the minimum stock level for the line and the ordering
// unit. Subcategory rules may raise the unit of products ordered one by one.
func (r *Resolver) floorAndUnit(in ResolveInput) (int, int) {
	unit := in.Product.ReorderUnit
	tier := string(in.Tier)

	if rule, ok := r.classifier.SubcategoryRule(in.Bucket, in.Product.CategoryPath); ok {
		if rule.ReorderUnit > 0 && unit == 1 {
			unit = rule.ReorderUnit
		}
		return rule.Floor, unit
	}

	switch in.Bucket {
	case BucketFood:
		return r.rules.FoodMinimums[tier], unit
	case BucketAccessories:
		table := r.rules.CategoryMinimums[tier]
		return table[r.classifier.MinimumKey(in.Subcategory, table)], unit
	default:
		return r.rules.BucketMinimums[string(in.Bucket)], unit
	}
}

func roundUp(qty, unit int) int {
	if unit <= 1 || qty%unit == 0 {
		return qty
	}
	return (qty/unit + 1) * unit
}

func roundDown(qty, unit int) int {
	if qty <= 0 {
		return 0
	}
	if unit <= 1 {
		return qty
	}
	return qty / unit * unit
}
