package usage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDBStore implements Store using a MongoDB collection. A TTL
// index on window_start expires stale counter documents so old
// windows don't accumulate forever.
type MongoDBStore struct {
	client  *mongo.Client
	db      *mongo.Database
	counters *mongo.Collection
}

type mongoCounter struct {
	UserID      string    `bson:"user_id"`
	FeePayer    string    `bson:"fee_payer"`
	WindowStart time.Time `bson:"window_start"`
	Count       uint64    `bson:"count"`
}

// NewMongoDBStore connects to connectionString and ensures the
// counters collection and its TTL index exist.
func NewMongoDBStore(ctx context.Context, connectionString, database string) (*MongoDBStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(connectionString))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	db := client.Database(database)
	store := &MongoDBStore{client: client, db: db, counters: db.Collection("usage_counters")}

	if err := store.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *MongoDBStore) ensureIndexes(ctx context.Context) error {
	_, err := s.counters.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "fee_payer", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "window_start", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(86400), // generous backstop; app logic rolls windows itself
		},
	})
	if err != nil {
		return fmt.Errorf("create usage counter indexes: %w", err)
	}
	return nil
}

// IncrementAndGet implements Store. It reads the existing document,
// decides whether the window has rolled over, then upserts — a
// find-then-upsert pair rather than a single atomic pipeline update,
// matching the teacher's MongoDB store's preference for explicit
// read/convert/write steps over aggregation pipelines.
func (s *MongoDBStore) IncrementAndGet(ctx context.Context, key Key, window time.Duration) (uint64, error) {
	filter := bson.M{"user_id": key.UserID, "fee_payer": key.FeePayer}

	var existing mongoCounter
	err := s.counters.FindOne(ctx, filter).Decode(&existing)
	now := time.Now()

	var nextCount uint64
	var windowStart time.Time
	switch {
	case err == mongo.ErrNoDocuments:
		nextCount, windowStart = 1, now
	case err != nil:
		return 0, fmt.Errorf("find usage counter: %w", err)
	case now.Sub(existing.WindowStart) >= window:
		nextCount, windowStart = 1, now
	default:
		nextCount, windowStart = existing.Count+1, existing.WindowStart
	}

	update := bson.M{"$set": bson.M{
		"user_id":      key.UserID,
		"fee_payer":    key.FeePayer,
		"window_start": windowStart,
		"count":        nextCount,
	}}
	opts := options.Update().SetUpsert(true)
	if _, err := s.counters.UpdateOne(ctx, filter, update, opts); err != nil {
		return 0, fmt.Errorf("upsert usage counter: %w", err)
	}
	return nextCount, nil
}

// Close disconnects the MongoDB client.
func (s *MongoDBStore) Close() error {
	return s.client.Disconnect(context.Background())
}
