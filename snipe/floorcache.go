// Package snipe holds the cross-cycle state of the sniping pipeline: the
// floor-price cache, the seen-listing set and the profit calculator.
package snipe

import (
	"context"
	"sync"
	"time"

	"giftsniper/logger"
	"giftsniper/models"
)

// FloorFetcher pulls per-model floor prices for a set of collections from the
// marketplace. Satisfied by the market client.
type FloorFetcher interface {
	FetchFloorPrices(ctx context.Context, collections []models.Collection) (map[string]map[string]float64, error)
}

type floorEntry struct {
	price      float64
	observedAt time.Time
}

// FloorCache caches per-collection floor prices with a freshness window.
// Staleness is checked pessimistically: one stale entry invalidates the whole
// collection's set, which is then refetched and replaced atomically.
type FloorCache struct {
	fetcher FloorFetcher
	ttl     time.Duration

	mu      sync.Mutex
	entries map[string]map[string]floorEntry

	log *logger.Log
}

// NewFloorCache creates a cache with the given freshness window.
func NewFloorCache(fetcher FloorFetcher, ttl time.Duration) *FloorCache {
	return &FloorCache{
		fetcher: fetcher,
		ttl:     ttl,
		entries: make(map[string]map[string]floorEntry),
		log:     logger.GetLogger(),
	}
}

// Get returns the model→floor mapping for one collection, fetching from the
// marketplace only on a miss or when any cached entry has gone stale. A fetch
// failure yields an empty mapping so one collection's outage never halts the
// others.
func (c *FloorCache) Get(ctx context.Context, collection models.Collection) map[string]float64 {
	slug := collection.ShortName
	now := time.Now()

	c.mu.Lock()
	if cached, ok := c.entries[slug]; ok {
		fresh := true
		for _, e := range cached {
			if now.Sub(e.observedAt) >= c.ttl {
				fresh = false
				break
			}
		}
		if fresh {
			out := make(map[string]float64, len(cached))
			for model, e := range cached {
				out[model] = e.price
			}
			c.mu.Unlock()
			return out
		}
	}
	c.mu.Unlock()

	log := c.log.WithComponent("floor_cache").WithFields(logger.Fields{"collection": slug})

	logger.IncrementFloorFetch()
	floors, err := c.fetcher.FetchFloorPrices(ctx, []models.Collection{collection})
	if err != nil {
		log.WithError(err).Warn("floor fetch failed, returning empty floors")
		return map[string]float64{}
	}

	prices := floors[slug]
	stamped := make(map[string]floorEntry, len(prices))
	out := make(map[string]float64, len(prices))
	for model, price := range prices {
		stamped[model] = floorEntry{price: price, observedAt: now}
		out[model] = price
	}

	c.mu.Lock()
	c.entries[slug] = stamped
	c.mu.Unlock()

	return out
}
