// Package export transfers tenant cache contents to and from external stores.
// Supports local files, Redis, bbolt, SQLite, PostgreSQL and MongoDB backends. Exports are explicit snapshots
// used to seed caches, not a durability mechanism.
package export

import (
	"context"
	"fmt"
)

// Type constants for export backends
const (
	TypeLocal      = "local"
	TypeRedis      = "redis"
	TypeBolt       = "bolt"
	TypeSQLite     = "sqlite"
	TypePostgreSQL = "postgresql"
	TypeMongoDB    = "mongodb"
)

// Store holds encoded cache exports by key.
// Implementations must be safe for concurrent use.
type Store interface {
	// Load returns the export stored under key.
	// Returns nil, nil if nothing is stored yet.
	Load(ctx context.Context, key string) ([]byte, error)

	// Save stores data under key, replacing any previous export.
	Save(ctx context.Context, key string, data []byte) error

	// Delete removes the export stored under key, if any.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the store.
	Close() error
}

// Config holds export backend configuration.
type Config struct {
	// Type is one of "local", "redis", "bolt", "sqlite", "postgresql" or "mongodb"
	Type string

	// Local configures the file backend
	Local LocalConfig

	// Redis configures the Redis backend
	Redis RedisConfig

	// Bolt configures the bbolt backend
	Bolt BoltConfig

	SQLite     SQLiteConfig
	PostgreSQL PostgreSQLConfig
	MongoDB    MongoDBConfig
}

// NewStore creates the Store selected by cfg.Type.
func NewStore(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Type {
	case TypeLocal:
		return NewLocalStore(cfg.Local.Dir), nil
	case TypeRedis:
		return NewRedisStore(ctx, cfg.Redis)
	case TypeBolt:
		return NewBoltStore(cfg.Bolt)
	case TypeSQLite:
		return NewSQLiteStore(ctx, cfg.SQLite)
	case TypePostgreSQL:
		return NewPostgreSQLStore(ctx, cfg.PostgreSQL)
	case TypeMongoDB:
		return NewMongoDBStore(ctx, cfg.MongoDB)
	default:
		return nil, fmt.Errorf("unknown export type: %s (valid: local, redis, bolt, sqlite, postgresql, mongodb)", cfg.Type)
	}
}
