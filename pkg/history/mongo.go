package history

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/piercedata/acsdash/pkg/cache"
)

// listLimit caps how many records a MongoDB listing returns.
const listLimit = 100

// MongoStore persists run records in a MongoDB collection, for server
// deployments where multiple instances share history.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// MongoConfig holds connection settings for a MongoDB history backend.
type MongoConfig struct {
	URI        string // e.g. "mongodb://localhost:27017"
	Database   string // defaults to "acsdash"
	Collection string // defaults to "runs"
}

// NewMongoStore connects to MongoDB and verifies the connection with a ping.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	if cfg.Database == "" {
		cfg.Database = "acsdash"
	}
	if cfg.Collection == "" {
		cfg.Collection = "runs"
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	return &MongoStore{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

// retryable marks transient driver failures for retry. Context cancellation
// and timeouts abort immediately; history is not worth outliving its caller.
func retryable(err error) error {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return cache.Retryable(err)
}

// Save inserts the record, retrying transient failures with backoff. The
// fetch path never retries; history writes are bookkeeping against a shared
// backend and may ride out a blip.
func (s *MongoStore) Save(ctx context.Context, rec *Record) error {
	return cache.RetryWithBackoff(ctx, func() error {
		_, err := s.collection.InsertOne(ctx, rec)
		return retryable(err)
	})
}

// List returns the most recent records, newest first.
func (s *MongoStore) List(ctx context.Context) ([]Record, error) {
	var records []Record
	err := cache.RetryWithBackoff(ctx, func() error {
		opts := options.Find().
			SetSort(bson.D{{Key: "created_at", Value: -1}}).
			SetLimit(listLimit)
		cursor, err := s.collection.Find(ctx, bson.D{}, opts)
		if err != nil {
			return retryable(err)
		}
		defer cursor.Close(ctx)

		records = records[:0]
		return retryable(cursor.All(ctx, &records))
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Get retrieves a record by run id. A missing record is definitive, not
// retried.
func (s *MongoStore) Get(ctx context.Context, id string) (*Record, error) {
	var rec Record
	err := cache.RetryWithBackoff(ctx, func() error {
		err := s.collection.FindOne(ctx, bson.D{{Key: "id", Value: id}}).Decode(&rec)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrNotFound
		}
		return retryable(err)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

// Ensure MongoStore implements Store.
var _ Store = (*MongoStore)(nil)
