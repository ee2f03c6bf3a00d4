package dedup

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const DefaultKeyPrefix = "webhook:dedup:"

type RedisStore struct {
	client goredis.UniversalClient
	prefix string
}

func NewRedisStore(client goredis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Claim issues SET key owner NX PX ttl GET, which sets and reads in one step.
func (s *RedisStore) Claim(ctx context.Context, key Key, owner string, ttl time.Duration) (bool, error) {
	if err := key.validate(); err != nil {
		return false, err
	}

	current, err := s.client.SetArgs(ctx, s.prefix+key.String(), owner, goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
		Get:  true,
	}).Result()
	if errors.Is(err, goredis.Nil) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("claim %s in redis: %w", key, err)
	}
	return current == owner, nil
}
