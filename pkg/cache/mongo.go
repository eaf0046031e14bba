package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/openparatransit/paraplan/config"
	"github.com/openparatransit/paraplan/internal/model"
	"github.com/openparatransit/paraplan/pkg/db"
)

// Mongo is the persistent cache backend: a collection with a unique index on
// the route key and a TTL index on created_at, so MongoDB evicts stale
// entries on its own. Used only with non-negative TTLs.
type Mongo struct {
	coll *mongo.Collection
}

type mongoEntry struct {
	Key       string      `bson:"key"`
	Route     model.Route `bson:"route"`
	CreatedAt time.Time   `bson:"created_at"`
}

// NewMongo connects to the configured collection and ensures its indexes.
func NewMongo(ctx context.Context, cfg config.CacheConfig) (*Mongo, error) {
	if cfg.TTL < 0 {
		return nil, fmt.Errorf("cache: mongodb backend requires a non-negative TTL, got %s", cfg.TTL)
	}

	client, err := db.ConnectMongo(ctx, cfg.MongoURI)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}

	coll := client.Database(cfg.MongoDB).Collection(cfg.MongoCollection)

	indexCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err = coll.Indexes().CreateMany(indexCtx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(cfg.TTL.Seconds())),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("cache: mongodb ensure indexes: %w", err)
	}

	return &Mongo{coll: coll}, nil
}

// Get looks the key up; a missing document is a plain miss.
func (m *Mongo) Get(ctx context.Context, key string) (model.Route, bool, error) {
	var entry mongoEntry
	err := m.coll.FindOne(ctx, bson.M{"key": key}).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Route{}, false, nil
	}
	if err != nil {
		return model.Route{}, false, fmt.Errorf("cache: mongodb get %q: %w", key, err)
	}
	return entry.Route, true, nil
}

// Put upserts the entry, restarting its TTL clock.
func (m *Mongo) Put(ctx context.Context, key string, route model.Route) error {
	entry := mongoEntry{Key: key, Route: route, CreatedAt: time.Now().UTC()}
	_, err := m.coll.ReplaceOne(ctx, bson.M{"key": key}, entry, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("cache: mongodb put %q: %w", key, err)
	}
	return nil
}
