package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/openparatransit/paraplan/config"
	"github.com/openparatransit/paraplan/internal/model"
)

// Redis stores routes as JSON values with the configured TTL applied per key.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis creates the Redis-backed cache and verifies connectivity.
func NewRedis(ctx context.Context, cfg config.CacheConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache: redis ping failed: %w", err)
	}

	return &Redis{client: client, ttl: cfg.TTL}, nil
}

// Get looks the key up; redis.Nil is a plain miss.
func (r *Redis) Get(ctx context.Context, key string) (model.Route, bool, error) {
	payload, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Route{}, false, nil
	}
	if err != nil {
		return model.Route{}, false, fmt.Errorf("cache: redis get %q: %w", key, err)
	}
	var route model.Route
	if err := json.Unmarshal(payload, &route); err != nil {
		return model.Route{}, false, fmt.Errorf("cache: redis decode %q: %w", key, err)
	}
	return route, true, nil
}

// Put stores the route under key with the configured TTL.
func (r *Redis) Put(ctx context.Context, key string, route model.Route) error {
	payload, err := json.Marshal(route)
	if err != nil {
		return fmt.Errorf("cache: redis encode %q: %w", key, err)
	}
	if err := r.client.Set(ctx, key, payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("cache: redis put %q: %w", key, err)
	}
	return nil
}

// Close releases the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
