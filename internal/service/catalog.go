package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"card-rewards-api/internal/cache"
	"card-rewards-api/internal/catalog"
	"card-rewards-api/internal/database"
	"card-rewards-api/internal/features"
	"card-rewards-api/internal/models"
)

const activeCatalogKey = "catalog:active"

// cardStore is the slice of the database the catalog reads from.
type cardStore interface {
	LoadCards(ctx context.Context) ([]models.CreditCard, error)
	ListCards(ctx context.Context, filter database.CardFilter) ([]catalog.CardDocument, error)
}

// cachedCatalog serves the active catalog, going through the cache when the
// catalog_cache flag is on. Cache failures degrade to a database read.
//
// generation counts invalidations. A snapshot read from the database is only
// written back when no invalidation happened since the read began.
type cachedCatalog struct {
	db       cardStore
	cache    cache.Cache
	ttl      time.Duration
	features *features.Manager
	logger   *zap.Logger

	mu         sync.Mutex
	generation uint64
}

func (c *cachedCatalog) enabled() bool {
	return c.cache != nil && c.features.IsEnabled(features.FeatureCatalogCache)
}

// LoadCards implements catalog.CardRepository.
func (c *cachedCatalog) LoadCards(ctx context.Context) ([]models.CreditCard, error) {
	if !c.enabled() {
		return c.db.LoadCards(ctx)
	}

	var docs []catalog.CardDocument
	err := cache.GetJSON(ctx, c.cache, activeCatalogKey, &docs)
	if err == nil {
		return catalog.NormalizeAll(docs), nil
	}
	if !errors.Is(err, cache.ErrNotFound) {
		c.logger.Warn("catalog cache read failed", zap.Error(err))
	}

	c.mu.Lock()
	generation := c.generation
	c.mu.Unlock()

	active := true
	docs, err = c.db.ListCards(ctx, database.CardFilter{Active: &active})
	if err != nil {
		return nil, err
	}

	c.store(ctx, generation, docs)
	return catalog.NormalizeAll(docs), nil
}

// store caches docs unless the catalog changed after they were read.
func (c *cachedCatalog) store(ctx context.Context, generation uint64, docs []catalog.CardDocument) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if generation != c.generation {
		c.logger.Debug("catalog changed during load, skipping cache write")
		return
	}
	if err := cache.SetJSON(ctx, c.cache, activeCatalogKey, docs, c.ttl); err != nil {
		c.logger.Warn("catalog cache write failed", zap.Error(err))
	}
}

func (c *cachedCatalog) invalidate(ctx context.Context) {
	if c.cache == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	if err := c.cache.Delete(ctx, activeCatalogKey); err != nil {
		c.logger.Warn("catalog cache invalidation failed", zap.Error(err))
	}
}
