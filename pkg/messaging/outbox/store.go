package outbox

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

var errEntryNotFound = errors.New("no outbox entry due")

const (
	idxCreatedAtTTL          = "outbox_createdAt_ttl"
	idxStatusNextAttemptLock = "outbox_status_nextAttemptAfter_lockExpiresAt"
)

type store interface {
	// FetchAndLock returns errEntryNotFound when nothing is due.
	FetchAndLock(ctx context.Context) (*entry, error)

	Create(ctx context.Context, e *entry) error

	UpdateAsSentByIds(ctx context.Context, ids []string) error
}

type mongoStore struct {
	coll mongo.Collection
	cfg  Config
	now  func() time.Time
}

func newMongoStore(coll mongo.Collection, cfg Config) *mongoStore {
	return &mongoStore{coll: coll, cfg: cfg, now: time.Now}
}

// EnsureIndexes creates the retention TTL index and the index behind
// FetchAndLock. It is idempotent.
func (s *mongoStore) EnsureIndexes(ctx context.Context) error {
	indexes := []mongodriver.IndexModel{
		{
			Keys: bson.D{{Key: "createdAt", Value: 1}},
			Options: options.Index().
				SetName(idxCreatedAtTTL).
				SetExpireAfterSeconds(int32(s.cfg.Retention / time.Second)),
		},
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "nextAttemptAfter", Value: 1},
				{Key: "lockExpiresAt", Value: 1},
			},
			Options: options.Index().SetName(idxStatusNextAttemptLock),
		},
	}
	if _, err := s.coll.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("create outbox indexes: %w", err)
	}
	return nil
}

func (s *mongoStore) FetchAndLock(ctx context.Context) (*entry, error) {
	now := s.now().UTC()

	opts := options.FindOneAndUpdate().SetSort(bson.D{
		{Key: "nextAttemptAfter", Value: 1},
		{Key: "createdAt", Value: 1},
	}).SetReturnDocument(options.After)

	filter := bson.D{
		{Key: "status", Value: StatusProcessing},
		{Key: "nextAttemptAfter", Value: bson.D{{Key: "$lt", Value: now}}},
		{Key: "lockExpiresAt", Value: bson.D{{Key: "$lt", Value: now}}},
	}

	// nextAttemptAfter = now + min(base * 2^attempts, max)
	update := mongodriver.Pipeline{
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "lockExpiresAt", Value: now.Add(s.cfg.LockTimeout)},
			{Key: "attemptsToSend", Value: bson.D{{Key: "$add", Value: bson.A{"$attemptsToSend", 1}}}},
			{Key: "nextAttemptAfter", Value: bson.D{{Key: "$add", Value: bson.A{
				now,
				bson.D{{Key: "$min", Value: bson.A{
					bson.D{{Key: "$multiply", Value: bson.A{
						s.cfg.BaseBackoff.Milliseconds(),
						bson.D{{Key: "$pow", Value: bson.A{2, "$attemptsToSend"}}},
					}}},
					s.cfg.MaxBackoff.Milliseconds(),
				}}},
			}}}},
		}}},
	}

	var e entry
	err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&e)
	if err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, errEntryNotFound
		}
		return nil, fmt.Errorf("failed to fetch outbox entry: %w", err)
	}
	return &e, nil
}

// Create inserts e. Inside a transaction ctx the insert joins it.
func (s *mongoStore) Create(ctx context.Context, e *entry) error {
	now := s.now().UTC()
	e.Status = StatusProcessing
	e.CreatedAt = now
	// the caller's SendFunc relays first; the fetcher picks up what it misses
	e.LockExpiresAt = now.Add(s.cfg.LockTimeout)
	e.NextAttemptAfter = now.Add(s.cfg.LockTimeout)
	if _, err := s.coll.InsertOne(ctx, e); err != nil {
		return fmt.Errorf("failed to insert outbox entry: %w", err)
	}
	return nil
}

func (s *mongoStore) UpdateAsSentByIds(ctx context.Context, ids []string) error {
	_, err := s.coll.UpdateMany(ctx,
		bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}},
		bson.D{
			{Key: "$set", Value: bson.D{
				{Key: "status", Value: StatusSent},
				{Key: "sentAt", Value: s.now().UTC()},
			}},
			{Key: "$unset", Value: bson.D{
				{Key: "lockExpiresAt", Value: ""},
				{Key: "nextAttemptAfter", Value: ""},
			}},
		})
	if err != nil {
		return fmt.Errorf("failed to update outbox entries: %w", err)
	}
	return nil
}
