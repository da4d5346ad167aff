package replenishment

import "time"

// MonthlySamples is the fixed six-period sales history of a line. A nil entry
// means the ERP had no figure for that month.
type MonthlySamples [6]*float64

// DemandLine represents one (product, store) observation from the ERP snapshot
type DemandLine struct {
	ProductID      int64
	Store          string
	Months         MonthlySamples
	SuggestedQty   float64 // manual quantity to order (qty_to_order)
	RecommendedQty float64 // system recommendation (qty_to_order_recommend)
	StoreOnHand    int     // qty_to_hand at the store
	WarehouseStock int     // qty_in_wh, shared by every line of the product
	SalesRanking   float64 // historical average sales, higher is served first
}

// EffectiveSuggestion returns the manual quantity when positive, otherwise the recommendation.
func (l DemandLine) EffectiveSuggestion() int {
	if l.SuggestedQty > 0 {
		return int(l.SuggestedQty)
	}
	if l.RecommendedQty > 0 {
		return int(l.RecommendedQty)
	}
	return 0
}

// Product holds the catalog attributes the engine needs for a product
type Product struct {
	ID           int64      `json:"id"`
	Barcode      string     `json:"barcode"`
	Reference    string     `json:"reference"`
	Name         string     `json:"name"`
	CategoryPath string     `json:"category_path"`
	ReorderUnit  int        `json:"reorder_unit"`
	MinInventory *int       `json:"min_inventory,omitempty"`
	MaxInventory *int       `json:"max_inventory,omitempty"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
	Season       string     `json:"season,omitempty"` // explicit seasonal flag, empty means detect
}

// Catalog is the read-only product snapshot for one run
type Catalog map[int64]Product

// Snapshot is the fully materialized engine input
type Snapshot struct {
	Lines   []DemandLine
	Catalog Catalog
	// ReferenceTime anchors the new-product and seasonal windows.
	ReferenceTime time.Time
}

// Tier is a store size classification
type Tier string

const (
	TierLarge   Tier = "large"
	TierMedium  Tier = "medium"
	TierSmall   Tier = "small"
	TierRegular Tier = "regular"
)

// Bucket is the category type a product is classified into
type Bucket string

const (
	BucketFood        Bucket = "alimentos"
	BucketAccessories Bucket = "accesorios"
	BucketMedication  Bucket = "medicamentos"
	BucketSupplies    Bucket = "insumos"
	BucketOther       Bucket = "other"
)

// ReportBuckets is the fixed order buckets are reported in.
var ReportBuckets = []Bucket{BucketFood, BucketAccessories, BucketMedication, BucketSupplies, BucketOther}

// Reason codes describing why a line received its quantity.
type Reason string

const (
	ReasonTarget            Reason = "target-based order"
	ReasonMinimumFloor      Reason = "minimum-floor-driven order"
	ReasonMaxCapAdjusted    Reason = "maximum-cap-adjusted order"
	ReasonOverMaximum       Reason = "over maximum"
	ReasonNoNeed            Reason = "no replenishment needed"
	ReasonInvalidUnit       Reason = "invalid reorder unit"
	ReasonInsufficientStock Reason = "rejected-insufficient-stock"
	ReasonNewProduct        Reason = "new-product introduction"
	ReasonSeasonalSplit     Reason = "seasonal even split"
	ReasonOutOfSeason       Reason = "out of season"
)

// OrderLine is an accepted engine output line. Quantity is always zero or a
// positive multiple of the product reorder unit.
type OrderLine struct {
	ProductID   int64  `json:"product_id"`
	Barcode     string `json:"barcode"`
	Reference   string `json:"reference"`
	Description string `json:"description"`
	Store       string `json:"store"`
	Route       string `json:"route"`
	Bucket      Bucket `json:"bucket"`
	Category    string `json:"category"`
	Quantity    int    `json:"quantity"`
	Reason      Reason `json:"reason"`
}

// Shortfall records demand that warehouse stock could not cover
type Shortfall struct {
	ProductID   int64  `json:"product_id"`
	Description string `json:"description"`
	Store       string `json:"store"`
	Requested   int    `json:"requested"`
	Granted     int    `json:"granted"`
	Reason      Reason `json:"reason"`
}
