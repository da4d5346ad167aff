// Package source materializes replenishment snapshots from the places ERP
// data lives: export files, the Postgres snapshot store and a Drive folder.
package source

import (
	"context"
	"sort"

	"github.com/andresuchdata/autopo-replenish/internal/replenishment"
)

// Loader produces one fully materialized engine input.
type Loader interface {
	Load(ctx context.Context) (*replenishment.Snapshot, error)
}

// productIDs returns the distinct product ids referenced by lines, sorted.
func productIDs(lines []replenishment.DemandLine) []int64 {
	seen := make(map[int64]struct{}, len(lines))
	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		if l.ProductID == 0 {
			continue
		}
		if _, ok := seen[l.ProductID]; ok {
			continue
		}
		seen[l.ProductID] = struct{}{}
		ids = append(ids, l.ProductID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
