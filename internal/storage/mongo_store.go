package storage

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConfig contains connection settings for the MongoDB region store.
type MongoConfig struct {
	URI        string // e.g. mongodb://localhost:27017
	Database   string // e.g. navgrid
	Collection string // e.g. regions
}

// MongoStore keeps one document per region snapshot.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoStore establishes connection and returns the store.
func NewMongoStore(cfg MongoConfig) (*MongoStore, error) {
	if cfg.URI == "" {
		cfg.URI = "mongodb://localhost:27017"
	}
	if cfg.Database == "" {
		cfg.Database = "navgrid"
	}
	if cfg.Collection == "" {
		cfg.Collection = "regions"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, err
	}

	store := &MongoStore{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
	}

	idx := mongo.IndexModel{
		Keys:    bson.D{{Key: "x", Value: 1}, {Key: "y", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("region_unique"),
	}
	if _, err := store.collection.Indexes().CreateOne(ctx, idx); err != nil {
		client.Disconnect(ctx)
		return nil, err
	}
	return store, nil
}

// Save upserts the region document.
func (m *MongoStore) Save(ctx context.Context, snap *RegionSnapshot) error {
	_, err := m.collection.ReplaceOne(ctx,
		bson.M{"x": snap.X, "y": snap.Y},
		snap,
		options.Replace().SetUpsert(true),
	)
	return err
}

func (m *MongoStore) Load(ctx context.Context, x, y int) (*RegionSnapshot, bool, error) {
	var snap RegionSnapshot
	err := m.collection.FindOne(ctx, bson.M{"x": x, "y": y}).Decode(&snap)
	if err == mongo.ErrNoDocuments {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &snap, true, nil
}

func (m *MongoStore) Delete(ctx context.Context, x, y int) error {
	_, err := m.collection.DeleteOne(ctx, bson.M{"x": x, "y": y})
	return err
}

// Close terminates connection.
func (m *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
