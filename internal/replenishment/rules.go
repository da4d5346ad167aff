package replenishment

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRules is returned when a rule profile is missing or malformed.
var ErrInvalidRules = errors.New("invalid replenishment rules")

// ProfileKind selects which quantity rule variant the resolver applies
type ProfileKind string

const (
	// ProfileMonthsOfCoverage orders up to forecast x months-of-coverage minus on-hand stock.
	ProfileMonthsOfCoverage ProfileKind = "months_of_coverage"
	// ProfileForecastMultiplier orders forecast x tier multiplier when there is a forecast,
	// otherwise tops the store up to its floor.
	ProfileForecastMultiplier ProfileKind = "forecast_multiplier"
)

// Blend modes combining the sales signal with the ERP suggestion.
const (
	BlendMax       = "max"
	BlendSignal    = "signal"
	BlendSuggested = "suggested"
)

// Tier schemes.
const (
	SchemeThreeTier = "three_tier"
	SchemeTwoTier   = "two_tier"
)

// Seasonal policies applied during a season's active window.
const (
	SeasonalEvenSplit = "even_split"
	SeasonalNormal    = "normal"
)

// RuleSet is one named rule profile. Field tags follow the YAML schema read by internal/rules.
type RuleSet struct {
	Name                 string                    `mapstructure:"name" json:"name"`
	Profile              ProfileKind               `mapstructure:"profile" json:"profile"`
	Signal               SignalRules               `mapstructure:"signal" json:"signal"`
	MonthsOfCoverage     CoverageRules             `mapstructure:"months_of_coverage" json:"months_of_coverage"`
	ForecastMultipliers  map[string]float64        `mapstructure:"forecast_multipliers" json:"forecast_multipliers,omitempty"`
	Tiers                TierRules                 `mapstructure:"tiers" json:"tiers"`
	CategoryMinimums     map[string]map[string]int `mapstructure:"category_minimums" json:"category_minimums"`
	FoodMinimums         map[string]int            `mapstructure:"food_minimums" json:"food_minimums"`
	BucketMinimums       map[string]int            `mapstructure:"bucket_minimums" json:"bucket_minimums,omitempty"`
	MaxOrderCap          map[string]int            `mapstructure:"max_order_cap" json:"max_order_cap,omitempty"`
	SubcategoryAliases   map[string][]string       `mapstructure:"subcategory_aliases" json:"subcategory_aliases,omitempty"`
	SubcategoryRules     []SubcategoryRule         `mapstructure:"subcategory_rules" json:"subcategory_rules,omitempty"`
	CategoryRules        []CategoryRule            `mapstructure:"category_rules" json:"category_rules"`
	Exclusions           []string                  `mapstructure:"exclusions" json:"exclusions,omitempty"`
	Routes               map[string][]string       `mapstructure:"routes" json:"routes"`
	Partition            PartitionRules            `mapstructure:"partition" json:"partition"`
	NewProduct           NewProductRules           `mapstructure:"new_product" json:"new_product"`
	Seasonal             SeasonalRules             `mapstructure:"seasonal" json:"seasonal"`
	SkipUnsuggestedLines bool                      `mapstructure:"skip_unsuggested_lines" json:"skip_unsuggested_lines"`
}

type SignalRules struct {
	TopK  int    `mapstructure:"top_k" json:"top_k"`
	Blend string `mapstructure:"blend" json:"blend"`
}

// CoverageRules holds months of coverage with per-bucket overrides
type CoverageRules struct {
	Default    float64            `mapstructure:"default" json:"default"`
	Categories map[string]float64 `mapstructure:"categories" json:"categories,omitempty"`
}

type TierRules struct {
	Scheme  string              `mapstructure:"scheme" json:"scheme"`
	Default Tier                `mapstructure:"default" json:"default"`
	Stores  map[string][]string `mapstructure:"stores" json:"stores"`
}

// CategoryRule maps any of its keywords, found in the category path, to a bucket.
type CategoryRule struct {
	Bucket   Bucket   `mapstructure:"bucket" json:"bucket"`
	Keywords []string `mapstructure:"keywords" json:"keywords"`
}

// SubcategoryRule overrides the floor and/or ordering unit for a bucket when
// every keyword appears in the product's category path.
type SubcategoryRule struct {
	Bucket      Bucket   `mapstructure:"bucket" json:"bucket"`
	Keywords    []string `mapstructure:"keywords" json:"keywords"`
	Floor       int      `mapstructure:"floor" json:"floor"`
	ReorderUnit int      `mapstructure:"reorder_unit" json:"reorder_unit,omitempty"`
}

type PartitionRules struct {
	MasterBuckets       []Bucket `mapstructure:"master_buckets" json:"master_buckets"`
	ConsolidatedBuckets []Bucket `mapstructure:"consolidated_buckets" json:"consolidated_buckets,omitempty"`
	SuppressedBuckets   []Bucket `mapstructure:"suppressed_buckets" json:"suppressed_buckets,omitempty"`
}

type NewProductRules struct {
	WindowDays     int      `mapstructure:"window_days" json:"window_days"`
	IntroQuantity  int      `mapstructure:"intro_quantity" json:"intro_quantity"`
	ExemptKeywords []string `mapstructure:"exempt_keywords" json:"exempt_keywords,omitempty"`
}

type SeasonalRules struct {
	Policy  string   `mapstructure:"policy" json:"policy"`
	Seasons []Season `mapstructure:"seasons" json:"seasons,omitempty"`
}

// Season describes one seasonal product family and the months it ships in.
type Season struct {
	Name             string   `mapstructure:"name" json:"name"`
	NameKeywords     []string `mapstructure:"name_keywords" json:"name_keywords,omitempty"`
	CategoryKeywords []string `mapstructure:"category_keywords" json:"category_keywords,omitempty"`
	ActiveMonths     []int    `mapstructure:"active_months" json:"active_months"`
}

// TierNames returns the tiers of the configured scheme.
func (r *RuleSet) TierNames() []Tier {
	if r.Tiers.Scheme == SchemeTwoTier {
		return []Tier{TierRegular, TierSmall}
	}
	return []Tier{TierLarge, TierMedium, TierSmall}
}

// CoverageFor returns the months of coverage for a bucket.
func (r *RuleSet) CoverageFor(b Bucket) float64 {
	if v, ok := r.MonthsOfCoverage.Categories[string(b)]; ok && v > 0 {
		return v
	}
	return r.MonthsOfCoverage.Default
}

// Validate checks every required table. All problems are reported together.
func (r *RuleSet) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	switch r.Profile {
	case ProfileMonthsOfCoverage:
		if r.MonthsOfCoverage.Default <= 0 {
			fail("months_of_coverage.default must be positive")
		}
		for cat, v := range r.MonthsOfCoverage.Categories {
			if v <= 0 {
				fail("months_of_coverage.categories.%s must be positive", cat)
			}
		}
	case ProfileForecastMultiplier:
		for _, t := range r.TierNames() {
			if v, ok := r.ForecastMultipliers[string(t)]; !ok || v <= 0 {
				fail("forecast_multipliers.%s must be positive", t)
			}
		}
	default:
		fail("unknown profile %q", r.Profile)
	}

	if r.Signal.TopK < 1 || r.Signal.TopK > len(MonthlySamples{}) {
		fail("signal.top_k must be between 1 and %d", len(MonthlySamples{}))
	}
	switch r.Signal.Blend {
	case BlendMax, BlendSignal, BlendSuggested:
	default:
		fail("unknown signal.blend %q", r.Signal.Blend)
	}

	if r.Tiers.Scheme != SchemeThreeTier && r.Tiers.Scheme != SchemeTwoTier {
		fail("unknown tiers.scheme %q", r.Tiers.Scheme)
	}
	tiers := map[Tier]bool{}
	for _, t := range r.TierNames() {
		tiers[t] = true
	}
	if !tiers[r.Tiers.Default] {
		fail("tiers.default %q is not part of scheme %s", r.Tiers.Default, r.Tiers.Scheme)
	}
	for t := range r.Tiers.Stores {
		if !tiers[Tier(t)] {
			fail("tiers.stores references unknown tier %q", t)
		}
	}

	for _, t := range r.TierNames() {
		mins, ok := r.CategoryMinimums[string(t)]
		if !ok {
			fail("category_minimums.%s is missing", t)
			continue
		}
		if _, ok := mins["default"]; !ok {
			fail("category_minimums.%s.default is missing", t)
		}
		if _, ok := r.FoodMinimums[string(t)]; !ok {
			fail("food_minimums.%s is missing", t)
		}
	}

	if len(r.CategoryRules) == 0 {
		fail("category_rules must not be empty")
	}
	for i, rule := range r.CategoryRules {
		if !validBucket(rule.Bucket) {
			fail("category_rules[%d]: unknown bucket %q", i, rule.Bucket)
		}
		if len(rule.Keywords) == 0 {
			fail("category_rules[%d]: keywords must not be empty", i)
		}
	}
	for i, rule := range r.SubcategoryRules {
		if !validBucket(rule.Bucket) || len(rule.Keywords) == 0 {
			fail("subcategory_rules[%d]: bucket and keywords are required", i)
		}
		if rule.Floor < 0 || rule.ReorderUnit < 0 {
			fail("subcategory_rules[%d]: floor and reorder_unit must not be negative", i)
		}
	}

	for _, group := range [][]Bucket{r.Partition.MasterBuckets, r.Partition.ConsolidatedBuckets, r.Partition.SuppressedBuckets} {
		for _, b := range group {
			if !validBucket(b) {
				fail("partition references unknown bucket %q", b)
			}
		}
	}

	if r.NewProduct.WindowDays < 0 || r.NewProduct.IntroQuantity < 0 {
		fail("new_product window_days and intro_quantity must not be negative")
	}

	switch r.Seasonal.Policy {
	case SeasonalEvenSplit, SeasonalNormal:
	default:
		fail("unknown seasonal.policy %q", r.Seasonal.Policy)
	}
	for _, s := range r.Seasonal.Seasons {
		if strings.TrimSpace(s.Name) == "" {
			fail("seasonal.seasons: name is required")
		}
		for _, m := range s.ActiveMonths {
			if m < 1 || m > 12 {
				fail("seasonal.seasons.%s: month %d out of range", s.Name, m)
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidRules, errors.Join(errs...))
	}
	return nil
}

func validBucket(b Bucket) bool {
	for _, known := range ReportBuckets {
		if b == known {
			return true
		}
	}
	return false
}
