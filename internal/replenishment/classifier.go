package replenishment

import (
	"sort"
	"strings"
)

// UnroutedRoute is the partition bucket for stores that belong to no route.
const UnroutedRoute = "SIN_RUTA"

// Classifier maps stores to tiers and routes and products to buckets. It is
// built once from a rule set and is safe for concurrent use.
type Classifier struct {
	tiers       map[string]Tier
	defaultTier Tier
	routes      map[string]string
	rules       []CategoryRule
	exclusions  []string
	aliases     []subcategoryAlias
	subRules    []SubcategoryRule
}

type subcategoryAlias struct {
	key      string
	keywords []string
}

// NewClassifier creates a classifier from the rule set tables
func NewClassifier(rules *RuleSet) *Classifier {
	c := &Classifier{
		tiers:       make(map[string]Tier),
		defaultTier: rules.Tiers.Default,
		routes:      make(map[string]string),
		rules:       rules.CategoryRules,
		exclusions:  lowerAll(rules.Exclusions),
		subRules:    rules.SubcategoryRules,
	}

	for tier, stores := range rules.Tiers.Stores {
		for _, s := range stores {
			c.tiers[NormalizeStore(s)] = Tier(tier)
		}
	}

	// Route names are iterated sorted so a store listed twice lands deterministically.
	routeNames := make([]string, 0, len(rules.Routes))
	for name := range rules.Routes {
		routeNames = append(routeNames, name)
	}
	sort.Strings(routeNames)
	for _, name := range routeNames {
		for _, s := range rules.Routes[name] {
			key := NormalizeStore(s)
			if _, taken := c.routes[key]; !taken {
				c.routes[key] = strings.ToUpper(strings.TrimSpace(name))
			}
		}
	}

	aliasKeys := make([]string, 0, len(rules.SubcategoryAliases))
	for key := range rules.SubcategoryAliases {
		aliasKeys = append(aliasKeys, key)
	}
	sort.Strings(aliasKeys)
	for _, key := range aliasKeys {
		c.aliases = append(c.aliases, subcategoryAlias{key: key, keywords: lowerAll(rules.SubcategoryAliases[key])})
	}

	return c
}

// NormalizeStore lowercases and trims a store name.
func NormalizeStore(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Tier returns the store tier, falling back to the configured default.
func (c *Classifier) Tier(store string) Tier {
	if t, ok := c.tiers[NormalizeStore(store)]; ok {
		return t
	}
	return c.defaultTier
}

// Route returns the logistics route of a store or UnroutedRoute.
func (c *Classifier) Route(store string) string {
	if r, ok := c.routes[NormalizeStore(store)]; ok {
		return r
	}
	return UnroutedRoute
}

// Bucket classifies a product. Exclusion keywords in the name or category win
// over every rule; otherwise the first rule with a keyword contained in the
// category path decides, and no match yields BucketOther.
func (c *Classifier) Bucket(categoryPath, productName string) Bucket {
	category := strings.ToLower(categoryPath)
	name := strings.ToLower(productName)

	for _, ex := range c.exclusions {
		if ex == "" {
			continue
		}
		if strings.Contains(name, ex) || strings.Contains(category, ex) {
			return BucketOther
		}
	}

	for _, rule := range c.rules {
		if containsAny(category, rule.Keywords) {
			return rule.Bucket
		}
	}
	return BucketOther
}

// Subcategory returns the normalized part of the category path below the
// segment that decided the bucket, e.g. "All / Accesorios / Higiene / Pampers"
// gives "higiene/pampers". Paths without a deeper level yield "".
func (c *Classifier) Subcategory(categoryPath string, bucket Bucket) string {
	segments := splitCategoryPath(categoryPath)
	if len(segments) == 0 {
		return ""
	}

	var keywords []string
	for _, rule := range c.rules {
		if rule.Bucket == bucket {
			keywords = append(keywords, rule.Keywords...)
		}
	}

	start := -1
	for i, seg := range segments {
		if containsAny(seg, keywords) {
			start = i
			break
		}
	}
	if start < 0 || start == len(segments)-1 {
		return ""
	}
	return strings.Join(segments[start+1:], "/")
}

// MinimumKey resolves the key used against the per-tier minimum tables:
// the subcategory itself, an alias whose keyword it contains, or its first level.
func (c *Classifier) MinimumKey(sub string, table map[string]int) string {
	if sub == "" {
		return "default"
	}
	if _, ok := table[sub]; ok {
		return sub
	}
	for _, alias := range c.aliases {
		if containsAny(sub, alias.keywords) {
			if _, ok := table[alias.key]; ok {
				return alias.key
			}
		}
	}
	if i := strings.Index(sub, "/"); i > 0 {
		if _, ok := table[sub[:i]]; ok {
			return sub[:i]
		}
	}
	return "default"
}

// SubcategoryRule returns the first special rule of the bucket whose keywords
// all appear in the category path.
func (c *Classifier) SubcategoryRule(bucket Bucket, categoryPath string) (SubcategoryRule, bool) {
	path := strings.ToLower(categoryPath)
	for _, rule := range c.subRules {
		if rule.Bucket == bucket && containsAll(path, rule.Keywords) {
			return rule, true
		}
	}
	return SubcategoryRule{}, false
}

// CleanProductName removes copy markers and collapses repeated whitespace.
func CleanProductName(name string) string {
	name = strings.ReplaceAll(name, "(copia)", "")
	return strings.Join(strings.Fields(name), " ")
}

func splitCategoryPath(path string) []string {
	var out []string
	for _, part := range strings.Split(path, "/") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if k != "" && strings.Contains(s, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

func containsAll(s string, keywords []string) bool {
	if len(keywords) == 0 {
		return false
	}
	for _, k := range keywords {
		if !strings.Contains(s, strings.ToLower(k)) {
			return false
		}
	}
	return true
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToLower(strings.TrimSpace(s)))
	}
	return out
}
