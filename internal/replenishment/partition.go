package replenishment

import (
	"slices"
	"sort"
	"strings"
)

// BucketLines is the list of order lines of one bucket
type BucketLines struct {
	Bucket Bucket      `json:"bucket"`
	Lines  []OrderLine `json:"lines"`
}

// StoreGroup holds the per-bucket order lists of one store
type StoreGroup struct {
	Store   string        `json:"store"`
	Buckets []BucketLines `json:"buckets"`
}

// RouteGroup holds the stores of one route and its master lists
type RouteGroup struct {
	Route   string        `json:"route"`
	Stores  []StoreGroup  `json:"stores"`
	Masters []BucketLines `json:"masters,omitempty"`
}

// Partition is the shippable reshaping of the accepted order lines.
type Partition struct {
	Routes []RouteGroup `json:"routes"`
	// Consolidated lists are store-agnostic roll-ups across every route.
	Consolidated []BucketLines `json:"consolidated,omitempty"`
	Global       []OrderLine   `json:"global"`
}

type masterKey struct {
	barcode, reference, description, category string
}

// PartitionLines groups the accepted lines (quantity > 0) by route, store and
// bucket, and builds the master roll-ups. Lines of suppressed buckets are left
// out of every group. Quantities are never changed, only summed in roll-ups.
func PartitionLines(lines []OrderLine, rules *RuleSet) Partition {
	suppressed := rules.Partition.SuppressedBuckets
	accepted := make([]OrderLine, 0, len(lines))
	for _, l := range lines {
		if l.Quantity > 0 && !slices.Contains(suppressed, l.Bucket) {
			accepted = append(accepted, l)
		}
	}

	byRoute := map[string]map[string]map[Bucket][]OrderLine{}
	for _, l := range accepted {
		stores, ok := byRoute[l.Route]
		if !ok {
			stores = map[string]map[Bucket][]OrderLine{}
			byRoute[l.Route] = stores
		}
		buckets, ok := stores[l.Store]
		if !ok {
			buckets = map[Bucket][]OrderLine{}
			stores[l.Store] = buckets
		}
		buckets[l.Bucket] = append(buckets[l.Bucket], l)
	}

	var p Partition
	for _, route := range sortedKeys(byRoute) {
		rg := RouteGroup{Route: route}
		var routeLines []OrderLine
		for _, store := range sortedKeys(byRoute[route]) {
			sg := StoreGroup{Store: store}
			for _, b := range ReportBuckets {
				if bl := byRoute[route][store][b]; len(bl) > 0 {
					sortLines(bl)
					sg.Buckets = append(sg.Buckets, BucketLines{Bucket: b, Lines: bl})
					routeLines = append(routeLines, bl...)
				}
			}
			rg.Stores = append(rg.Stores, sg)
		}
		for _, b := range rules.Partition.MasterBuckets {
			if master := consolidate(filterBucket(routeLines, b), route); len(master) > 0 {
				rg.Masters = append(rg.Masters, BucketLines{Bucket: b, Lines: master})
			}
		}
		p.Routes = append(p.Routes, rg)
	}

	for _, b := range rules.Partition.ConsolidatedBuckets {
		if list := consolidate(filterBucket(accepted, b), ""); len(list) > 0 {
			p.Consolidated = append(p.Consolidated, BucketLines{Bucket: b, Lines: list})
		}
	}
	p.Global = consolidate(accepted, "")
	return p
}

// consolidate sums quantities of identical (product, category) keys. The
// resulting lines carry no store.
func consolidate(lines []OrderLine, route string) []OrderLine {
	index := map[masterKey]int{}
	var out []OrderLine
	for _, l := range lines {
		key := masterKey{l.Barcode, l.Reference, l.Description, l.Category}
		if i, ok := index[key]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		index[key] = len(out)
		out = append(out, OrderLine{
			ProductID:   l.ProductID,
			Barcode:     l.Barcode,
			Reference:   l.Reference,
			Description: l.Description,
			Route:       route,
			Bucket:      l.Bucket,
			Category:    l.Category,
			Quantity:    l.Quantity,
		})
	}
	sortLines(out)
	return out
}

func filterBucket(lines []OrderLine, b Bucket) []OrderLine {
	var out []OrderLine
	for _, l := range lines {
		if l.Bucket == b {
			out = append(out, l)
		}
	}
	return out
}

// sortLines orders by category, then description, then product id.
func sortLines(lines []OrderLine) {
	sort.SliceStable(lines, func(i, j int) bool {
		a, b := lines[i], lines[j]
		if c := strings.Compare(a.Category, b.Category); c != 0 {
			return c < 0
		}
		if c := strings.Compare(a.Description, b.Description); c != 0 {
			return c < 0
		}
		return a.ProductID < b.ProductID
	})
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
