package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"circlo/internal/app/middleware"
)

const idempotencyCollection = "command_results"

// IdempotencyStore keeps command results keyed by idempotency key. Each
// document carries its own expires_at and the TTL index removes it with
// expireAfterSeconds 0.
type IdempotencyStore struct {
	results *mongo.Collection
	ttl     time.Duration
	now     func() time.Time
}

func NewIdempotencyStore(ctx context.Context, db *mongo.Database, ttl time.Duration) (*IdempotencyStore, error) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	results := db.Collection(idempotencyCollection)
	_, err := results.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetName("expires_at_ttl").SetExpireAfterSeconds(0),
	})
	if err != nil {
		return nil, fmt.Errorf("%s ttl index: %w", idempotencyCollection, err)
	}
	return &IdempotencyStore{results: results, ttl: ttl, now: time.Now}, nil
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	// the TTL monitor only sweeps once a minute, so expiry is checked here too
	filter := bson.M{"_id": key, "expires_at": bson.M{"$gt": s.now().UTC()}}
	var doc resultDocument
	switch err := s.results.FindOne(ctx, filter).Decode(&doc); {
	case errors.Is(err, mongo.ErrNoDocuments):
		return middleware.IdempotencyRecord{}, false, nil
	case err != nil:
		return middleware.IdempotencyRecord{}, false, err
	}
	return middleware.IdempotencyRecord{Key: doc.Key, Payload: doc.Result, OccurredAt: doc.StoredAt}, true, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	stored := rec.OccurredAt.UTC()
	if stored.IsZero() {
		stored = s.now().UTC()
	}
	update := bson.M{"$set": resultDocument{
		Key:       rec.Key,
		Result:    rec.Payload,
		StoredAt:  stored,
		ExpiresAt: s.now().UTC().Add(s.ttl),
	}}
	_, err := s.results.UpdateOne(ctx, bson.M{"_id": rec.Key}, update, options.Update().SetUpsert(true))
	return err
}

type resultDocument struct {
	Key       string    `bson:"_id"`
	Result    []byte    `bson:"result,omitempty"`
	StoredAt  time.Time `bson:"stored_at"`
	ExpiresAt time.Time `bson:"expires_at"`
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
