package replenishment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func newTestResolver(rules *RuleSet) *Resolver {
	return NewResolver(rules, NewClassifier(rules))
}

func TestResolveFloorShortfall(t *testing.T) {
	r := newTestResolver(DefaultRuleSet())

	res := r.Resolve(ResolveInput{
		Product:        Product{ID: 1, ReorderUnit: 1, CategoryPath: "All / Accesorios / Decoracion"},
		Forecast:       0,
		OnHand:         1,
		WarehouseStock: 100,
		Tier:           TierMedium,
		Bucket:         BucketAccessories,
		Subcategory:    "decoracion",
	})

	assert.Equal(t, 2, res.Quantity)
	assert.Equal(t, ReasonMinimumFloor, res.Reason)
	assert.Equal(t, 3, res.Floor)
}

func TestResolveMaximumInventoryClamp(t *testing.T) {
	r := newTestResolver(DefaultRuleSet())

	res := r.Resolve(ResolveInput{
		Product:        Product{ID: 2, ReorderUnit: 1, MaxInventory: intPtr(10), CategoryPath: "All / Alimentos / Perro"},
		Forecast:       14,
		OnHand:         9,
		WarehouseStock: 100,
		Tier:           TierMedium,
		Bucket:         BucketFood,
	})

	assert.Equal(t, 1, res.Quantity)
	assert.Equal(t, ReasonMaxCapAdjusted, res.Reason)
}

func TestResolveOverMaximum(t *testing.T) {
	r := newTestResolver(DefaultRuleSet())

	res := r.Resolve(ResolveInput{
		Product:  Product{ID: 3, ReorderUnit: 1, MaxInventory: intPtr(10), CategoryPath: "All / Alimentos / Perro"},
		Forecast: 30,
		OnHand:   12,
		Tier:     TierMedium,
		Bucket:   BucketFood,
	})

	assert.Equal(t, 0, res.Quantity)
	assert.Equal(t, ReasonOverMaximum, res.Reason)
}

func TestResolveInvalidUnit(t *testing.T) {
	r := newTestResolver(DefaultRuleSet())

	for _, unit := range []int{0, -6} {
		res := r.Resolve(ResolveInput{
			Product:  Product{ID: 4, ReorderUnit: unit, CategoryPath: "All / Alimentos"},
			Forecast: 10,
			Tier:     TierLarge,
			Bucket:   BucketFood,
		})
		assert.Equal(t, 0, res.Quantity)
		assert.Equal(t, ReasonInvalidUnit, res.Reason)
	}
}

func TestResolveTargetAndRounding(t *testing.T) {
	r := newTestResolver(DefaultRuleSet())

	tests := []struct {
		name   string
		unit   int
		fc     int
		onHand int
		want   int
		reason Reason
	}{
		{name: "gap to target", unit: 1, fc: 10, onHand: 3, want: 7, reason: ReasonTarget},
		{name: "rounded up to unit", unit: 6, fc: 10, onHand: 3, want: 12, reason: ReasonTarget},
		{name: "already covered", unit: 1, fc: 4, onHand: 9, want: 0, reason: ReasonNoNeed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Resolve(ResolveInput{
				Product:        Product{ID: 5, ReorderUnit: tt.unit, CategoryPath: "All / Alimentos / Perro / Seco"},
				Forecast:       tt.fc,
				OnHand:         tt.onHand,
				WarehouseStock: 100,
				Tier:           TierLarge,
				Bucket:         BucketFood,
			})
			assert.Equal(t, tt.want, res.Quantity)
			assert.Equal(t, tt.reason, res.Reason)
			if res.Quantity > 0 {
				assert.Zero(t, res.Quantity%tt.unit)
			}
		})
	}
}

func TestResolveZeroSignalGetsOnlyFloor(t *testing.T) {
	r := newTestResolver(DefaultRuleSet())

	res := r.Resolve(ResolveInput{
		Product:        Product{ID: 6, ReorderUnit: 1, CategoryPath: "All / Alimentos / Gato / Lata"},
		Forecast:       0,
		OnHand:         0,
		WarehouseStock: 40,
		Tier:           TierSmall,
		Bucket:         BucketFood,
	})

	assert.Equal(t, 6, res.Quantity)
	assert.Equal(t, 6, res.Unit)
	assert.Equal(t, ReasonMinimumFloor, res.Reason)
}

func TestResolveSubcategoryUnitKeepsProductUnit(t *testing.T) {
	r := newTestResolver(DefaultRuleSet())

	res := r.Resolve(ResolveInput{
		Product:        Product{ID: 7, ReorderUnit: 12, CategoryPath: "All / Alimentos / Gato / Lata"},
		Forecast:       0,
		OnHand:         0,
		WarehouseStock: 40,
		Tier:           TierSmall,
		Bucket:         BucketFood,
	})

	assert.Equal(t, 12, res.Unit)
	assert.Equal(t, 12, res.Quantity)
}

func TestResolveProductMinimumOverridesCategoryFloor(t *testing.T) {
	r := newTestResolver(DefaultRuleSet())

	res := r.Resolve(ResolveInput{
		Product:        Product{ID: 8, ReorderUnit: 1, MinInventory: intPtr(5), CategoryPath: "All / Accesorios / Decoracion"},
		OnHand:         1,
		WarehouseStock: 10,
		Tier:           TierMedium,
		Bucket:         BucketAccessories,
		Subcategory:    "decoracion",
	})

	assert.Equal(t, 4, res.Quantity)
	assert.Equal(t, ReasonMinimumFloor, res.Reason)
}

func TestResolveTierOrderCap(t *testing.T) {
	rules := DefaultRuleSet()
	rules.MaxOrderCap = map[string]int{string(TierMedium): 10}
	r := newTestResolver(rules)

	res := r.Resolve(ResolveInput{
		Product:  Product{ID: 9, ReorderUnit: 1, CategoryPath: "All / Alimentos / Perro"},
		Forecast: 50,
		Tier:     TierMedium,
		Bucket:   BucketFood,
	})

	assert.Equal(t, 10, res.Quantity)
	assert.Equal(t, ReasonMaxCapAdjusted, res.Reason)
}

func TestResolveForecastMultiplierProfile(t *testing.T) {
	rules := DefaultRuleSet()
	rules.Profile = ProfileForecastMultiplier
	rules.ForecastMultipliers[string(TierMedium)] = 1.5
	r := newTestResolver(rules)

	res := r.Resolve(ResolveInput{
		Product:  Product{ID: 10, ReorderUnit: 1, CategoryPath: "All / Alimentos / Perro"},
		Forecast: 4,
		OnHand:   10,
		Tier:     TierMedium,
		Bucket:   BucketFood,
	})

	assert.Equal(t, 6, res.Target)
	assert.Equal(t, 6, res.Quantity)
	assert.Equal(t, ReasonTarget, res.Reason)
}

func TestTargetMonotonicInCoverage(t *testing.T) {
	in := ResolveInput{
		Product:  Product{ID: 11, ReorderUnit: 1, CategoryPath: "All / Alimentos"},
		Forecast: 7,
		Tier:     TierLarge,
		Bucket:   BucketFood,
	}

	prev := -1
	for _, months := range []float64{0.5, 1, 1.25, 2, 3, 6} {
		rules := DefaultRuleSet()
		rules.MonthsOfCoverage.Categories = map[string]float64{string(BucketFood): months}
		target := newTestResolver(rules).Target(in)
		assert.GreaterOrEqual(t, target, prev, "coverage %v", months)
		prev = target
	}
}

func TestResolveEmptyStoreGetsOneUnit(t *testing.T) {
	r := newTestResolver(DefaultRuleSet())

	tests := []struct {
		bucket   Bucket
		category string
	}{
		{BucketFood, "All / Alimentos / Perro / Seco"},
		{BucketSupplies, "All / Insumos / Limpieza"},
	}

	for _, tt := range tests {
		t.Run(string(tt.bucket), func(t *testing.T) {
			res := r.Resolve(ResolveInput{
				Product:        Product{ID: 7, ReorderUnit: 4, CategoryPath: tt.category},
				Forecast:       0,
				OnHand:         0,
				WarehouseStock: 50,
				Tier:           TierMedium,
				Bucket:         tt.bucket,
			})

			assert.Equal(t, 4, res.Quantity)
			assert.Equal(t, ReasonMinimumFloor, res.Reason)
		})
	}
}
