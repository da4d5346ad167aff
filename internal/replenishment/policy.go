package replenishment

import (
	"slices"
	"strings"
	"time"
)

// NewProductPolicy decides whether a product is still in its introduction window.
type NewProductPolicy struct {
	Window         time.Duration
	IntroQuantity  int
	ExemptKeywords []string
}

// NewProductPolicyFrom builds the policy from the rule set
func NewProductPolicyFrom(rules *RuleSet) NewProductPolicy {
	return NewProductPolicy{
		Window:         time.Duration(rules.NewProduct.WindowDays) * 24 * time.Hour,
		IntroQuantity:  rules.NewProduct.IntroQuantity,
		ExemptKeywords: lowerAll(rules.NewProduct.ExemptKeywords),
	}
}

// IsNew reports whether a store holding onHand units is entitled to the
// introductory quantity of p at reference time ref.
func (np NewProductPolicy) IsNew(p Product, onHand int, ref time.Time) bool {
	if np.IntroQuantity <= 0 || np.Window <= 0 || p.CreatedAt == nil || onHand != 0 {
		return false
	}
	if !p.CreatedAt.After(ref.Add(-np.Window)) {
		return false
	}
	return !containsAny(strings.ToLower(p.CategoryPath), np.ExemptKeywords)
}

// SeasonalPolicy detects seasonal products and their shipping windows.
type SeasonalPolicy struct {
	Policy  string
	seasons []Season
}

// SeasonalPolicyFrom builds the policy from the rule set
func SeasonalPolicyFrom(rules *RuleSet) SeasonalPolicy {
	return SeasonalPolicy{Policy: rules.Seasonal.Policy, seasons: rules.Seasonal.Seasons}
}

// Season returns the season a product belongs to, or "" for regular
// products. An explicit catalog flag wins over keyword detection.
func (sp SeasonalPolicy) Season(p Product) string {
	if p.Season != "" {
		return strings.ToLower(p.Season)
	}
	name := strings.ToLower(p.Name)
	category := strings.ToLower(p.CategoryPath)
	for _, s := range sp.seasons {
		if containsAny(name, s.NameKeywords) || containsAny(category, s.CategoryKeywords) {
			return strings.ToLower(s.Name)
		}
	}
	return ""
}

// Active reports whether season ships in the month of ref. Unknown seasons
// are never active.
func (sp SeasonalPolicy) Active(season string, ref time.Time) bool {
	for _, s := range sp.seasons {
		if strings.EqualFold(s.Name, season) {
			return slices.Contains(s.ActiveMonths, int(ref.Month()))
		}
	}
	return false
}
