package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoDBConfig holds MongoDB backend configuration.
type MongoDBConfig struct {
	// URL is the connection string (e.g., mongodb://localhost:27017)
	URL string

	// Database is the database name (default: objcache)
	Database string
}

type mongoExport struct {
	Key       string    `bson:"_id"`
	Data      []byte    `bson:"data"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoDBStore implements Store in the "exports" collection.
type MongoDBStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoDBStore connects to MongoDB and verifies the connection.
func NewMongoDBStore(ctx context.Context, cfg MongoDBConfig) (*MongoDBStore, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("MongoDB URL is required")
	}

	dbName := cfg.Database
	if dbName == "" {
		dbName = "objcache"
	}

	client, err := mongo.Connect(options.Client().ApplyURI(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &MongoDBStore{
		client:     client,
		collection: client.Database(dbName).Collection("exports"),
	}, nil
}

// Load returns the export stored under key.
func (s *MongoDBStore) Load(ctx context.Context, key string) ([]byte, error) {
	var doc mongoExport
	err := s.collection.FindOne(ctx, bson.D{{Key: "_id", Value: key}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read export from mongodb: %w", err)
	}
	return doc.Data, nil
}

// Save replaces the document for key, inserting it if absent.
func (s *MongoDBStore) Save(ctx context.Context, key string, data []byte) error {
	doc := mongoExport{Key: key, Data: data, UpdatedAt: time.Now().UTC()}
	_, err := s.collection.ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: key}},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to write export to mongodb: %w", err)
	}
	return nil
}

// Delete removes the export stored under key.
func (s *MongoDBStore) Delete(ctx context.Context, key string) error {
	if _, err := s.collection.DeleteOne(ctx, bson.D{{Key: "_id", Value: key}}); err != nil {
		return fmt.Errorf("failed to delete export from mongodb: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (s *MongoDBStore) Close() error {
	if s.client != nil {
		return s.client.Disconnect(context.Background())
	}
	return nil
}
