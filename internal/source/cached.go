package source

import (
	"context"

	"github.com/andresuchdata/autopo-replenish/internal/replenishment"
	"github.com/rs/zerolog"
)

// ProductCache holds recently resolved products.
type ProductCache interface {
	GetProducts(ctx context.Context, ids []int64) (replenishment.Catalog, []int64, error)
	PutProducts(ctx context.Context, products []replenishment.Product) error
}

// CachedCatalog serves products from a cache and falls through to the
// underlying store for misses. Cache failures never fail a lookup.
type CachedCatalog struct {
	store  CatalogStore
	cache  ProductCache
	logger zerolog.Logger
}

func NewCachedCatalog(store CatalogStore, cache ProductCache, logger zerolog.Logger) *CachedCatalog {
	return &CachedCatalog{store: store, cache: cache, logger: logger}
}

func (c *CachedCatalog) Catalog(ctx context.Context, ids []int64) (replenishment.Catalog, error) {
	hits, misses, err := c.cache.GetProducts(ctx, ids)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Product cache read failed")
		hits, misses = nil, ids
	}
	if hits == nil {
		hits = make(replenishment.Catalog, len(ids))
	}
	if len(misses) == 0 {
		return hits, nil
	}

	loaded, err := c.store.Catalog(ctx, misses)
	if err != nil {
		return nil, err
	}

	fresh := make([]replenishment.Product, 0, len(loaded))
	for _, id := range misses {
		if p, ok := loaded[id]; ok {
			hits[id] = p
			fresh = append(fresh, p)
		}
	}
	if len(fresh) > 0 {
		if err := c.cache.PutProducts(ctx, fresh); err != nil {
			c.logger.Warn().Err(err).Int("products", len(fresh)).Msg("Product cache write failed")
		}
	}

	c.logger.Debug().Int("hits", len(ids)-len(misses)).Int("misses", len(misses)).Msg("Resolved catalog")
	return hits, nil
}
