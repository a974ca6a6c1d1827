package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pevans/listwatch/record"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConfig locates the document holding the record set.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
	// Key is the _id of the snapshot document, so several watchers can
	// share one collection.
	Key string
}

// MongoBackend keeps the whole record set in a single MongoDB document,
// replaced with an upsert on every save. BSON datetimes hold milliseconds,
// so finer first_seen values come back truncated.
type MongoBackend struct {
	client     *mongo.Client
	collection *mongo.Collection
	key        string
}

type mongoSnapshot struct {
	ID      string                   `bson:"_id"`
	SavedAt time.Time                `bson:"saved_at"`
	Records map[string]record.Record `bson:"records"`
}

// NewMongoBackend connects to config.URI and checks the server is
// reachable.
func NewMongoBackend(ctx context.Context, config MongoConfig) (*MongoBackend, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(config.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	key := config.Key
	if key == "" {
		key = "records"
	}

	return &MongoBackend{
		client:     client,
		collection: client.Database(config.Database).Collection(config.Collection),
		key:        key,
	}, nil
}

// Load reads the snapshot document. A missing document is ErrNoState.
func (b *MongoBackend) Load(ctx context.Context) (map[string]record.Record, error) {
	var snapshot mongoSnapshot
	err := b.collection.FindOne(ctx, bson.M{"_id": b.key}).Decode(&snapshot)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNoState
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find snapshot: %w", err)
	}

	if snapshot.Records == nil {
		snapshot.Records = make(map[string]record.Record)
	}
	return snapshot.Records, nil
}

// Save replaces the snapshot document.
func (b *MongoBackend) Save(ctx context.Context, records map[string]record.Record) error {
	if records == nil {
		records = map[string]record.Record{}
	}

	snapshot := mongoSnapshot{
		ID:      b.key,
		SavedAt: time.Now().UTC(),
		Records: records,
	}

	opts := options.Replace().SetUpsert(true)
	if _, err := b.collection.ReplaceOne(ctx, bson.M{"_id": b.key}, snapshot, opts); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (b *MongoBackend) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return b.client.Disconnect(ctx)
}
