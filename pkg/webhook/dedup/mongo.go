package dedup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sokol111/ecommerce-eventbus/pkg/persistence/mongo"
	"go.mongodb.org/mongo-driver/v2/bson"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const DefaultCollection = "webhook_dedup"

type record struct {
	Key       string    `bson:"_id"`
	Owner     string    `bson:"owner"`
	FirstSeen time.Time `bson:"first_seen"`
	ExpiresAt time.Time `bson:"expires_at"`
}

// MongoStore keeps one document per key. Expired documents are removed by a
// TTL index, but claims never rely on that sweep having run.
type MongoStore struct {
	coll mongo.Collection
	now  func() time.Time
}

func NewMongoStore(coll mongo.Collection) *MongoStore {
	return &MongoStore{coll: coll, now: time.Now}
}

// EnsureIndexes creates the TTL index on expires_at.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongodriver.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetName("expires_at_ttl").SetExpireAfterSeconds(0),
	})
	if err != nil {
		return fmt.Errorf("create dedup ttl index: %w", err)
	}
	return nil
}

// Claim upserts the key when it is absent, expired or already owned by owner.
// A live record of another owner makes the upsert collide on _id.
func (s *MongoStore) Claim(ctx context.Context, key Key, owner string, ttl time.Duration) (bool, error) {
	if err := key.validate(); err != nil {
		return false, err
	}
	now := s.now().UTC()

	filter := bson.D{
		{Key: "_id", Value: key.String()},
		{Key: "$or", Value: bson.A{
			bson.D{{Key: "expires_at", Value: bson.D{{Key: "$lte", Value: now}}}},
			bson.D{{Key: "owner", Value: owner}},
		}},
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "owner", Value: owner},
		{Key: "first_seen", Value: now},
		{Key: "expires_at", Value: now.Add(ttl)},
	}}}

	err := s.coll.FindOneAndUpdate(ctx, filter, update, options.FindOneAndUpdate().SetUpsert(true)).Err()
	switch {
	case err == nil, errors.Is(err, mongodriver.ErrNoDocuments):
		// ErrNoDocuments: inserted, nothing to return before the upsert
		return true, nil
	case mongodriver.IsDuplicateKeyError(err):
		return false, nil
	default:
		return false, fmt.Errorf("claim %s in mongo: %w", key, err)
	}
}
