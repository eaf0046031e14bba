// Package cache provides the directions cache: a typed key→route store with
// TTL, selectable between an in-process LRU, a MongoDB collection with
// TTL-indexed eviction, and a Redis keyspace.
package cache

import (
	"context"
	"fmt"

	"github.com/openparatransit/paraplan/config"
	"github.com/openparatransit/paraplan/internal/model"
)

// Cache is the capability the directions client memoizes through. Both
// operations may perform I/O on the persistent backends. A nil Cache means
// caching is disabled: every lookup misses and nothing is written.
type Cache interface {
	// Get returns the cached route for key, with found=false on a miss.
	Get(ctx context.Context, key string) (model.Route, bool, error)

	// Put stores the route under key with the backend's configured TTL.
	Put(ctx context.Context, key string, route model.Route) error
}

// New builds the cache backend selected by configuration. Returns (nil, nil)
// when caching is disabled.
func New(ctx context.Context, cfg config.CacheConfig) (Cache, error) {
	if !cfg.Enable {
		return nil, nil
	}
	switch cfg.Type {
	case "memory":
		return NewMemory(cfg.MemCapacity, cfg.TTL)
	case "mongodb":
		return NewMongo(ctx, cfg)
	case "redis":
		return NewRedis(ctx, cfg)
	default:
		return nil, fmt.Errorf("cache: unknown CACHE_TYPE %q", cfg.Type)
	}
}
