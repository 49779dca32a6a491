package internal

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// CollectionSource is where a cacheable entity type is fetched from.
type CollectionSource struct {
	AppName string
	APIPath string
}

// CollectionTable maps entity types to their proxy source. downloads is
// known but has no source yet.
func CollectionTable(svc ServicesConfig) map[EntityType]*CollectionSource {
	return map[EntityType]*CollectionSource{
		EntityShows:     {AppName: svc.SeriesApp, APIPath: svc.SeriesPath},
		EntityMovies:    {AppName: svc.MovieApp, APIPath: svc.MoviePath},
		EntityDownloads: nil,
	}
}

// CollectionCache memoizes the most recent sorted collection per entity
// type for the life of the process. Concurrent loads of one type share a
// single fetch; a failed load leaves the entry absent.
type CollectionCache struct {
	proxy  *ProxyClient
	cmp    *Comparator
	table  map[EntityType]*CollectionSource
	flight singleflight.Group

	mu      sync.RWMutex
	entries map[EntityType]*DecodedResult[[]Record]
}

func NewCollectionCache(proxy *ProxyClient, cmp *Comparator, table map[EntityType]*CollectionSource) *CollectionCache {
	return &CollectionCache{
		proxy:   proxy,
		cmp:     cmp,
		table:   table,
		entries: make(map[EntityType]*DecodedResult[[]Record]),
	}
}

// Peek returns the cached entry without loading.
func (c *CollectionCache) Peek(entity EntityType) (*DecodedResult[[]Record], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[entity]
	return e, ok
}

// GetCollection returns the cached collection or loads it.
func (c *CollectionCache) GetCollection(ctx context.Context, entity EntityType) (*DecodedResult[[]Record], error) {
	if e, ok := c.Peek(entity); ok {
		CollectionLookups.WithLabelValues(string(entity), "hit").Inc()
		return e, nil
	}
	// The shared load must outlive any single caller.
	detached := context.WithoutCancel(ctx)
	v, err, shared := c.flight.Do(string(entity), func() (interface{}, error) {
		if e, ok := c.Peek(entity); ok {
			return e, nil
		}
		e, err := c.loadCollection(detached, entity)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[entity] = e
		c.mu.Unlock()
		return e, nil
	})
	if err != nil {
		CollectionLookups.WithLabelValues(string(entity), "error").Inc()
		return nil, err
	}
	if shared {
		CollectionLookups.WithLabelValues(string(entity), "shared").Inc()
	} else {
		CollectionLookups.WithLabelValues(string(entity), "miss").Inc()
	}
	return v.(*DecodedResult[[]Record]), nil
}

func (c *CollectionCache) loadCollection(ctx context.Context, entity EntityType) (*DecodedResult[[]Record], error) {
	src, known := c.table[entity]
	if !known {
		return nil, fmt.Errorf("%w: no database '%s' to load", ErrUnknownCollection, entity)
	}
	if src == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotImplemented, entity)
	}
	raw, err := c.proxy.FetchEnvelope(ctx, src.AppName, src.APIPath, "")
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", entity, err)
	}
	res, err := DecodePayload[[]Record](raw)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", entity, err)
	}
	c.cmp.SortRecords(res.Payload)
	DashLog(INFO, "CollectionCache", "Loaded %d %s", len(res.Payload), entity)
	return res, nil
}
