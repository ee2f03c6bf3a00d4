package container

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// RedisContainer is a running Redis with a connected client.
type RedisContainer struct {
	Container *tcredis.RedisContainer
	Client    *goredis.Client
	URL       string
}

type RedisOption func(*redisOptions)

type redisOptions struct {
	image string
}

func WithRedisImage(image string) RedisOption {
	return func(o *redisOptions) { o.image = image }
}

func StartRedisContainer(ctx context.Context, opts ...RedisOption) (*RedisContainer, error) {
	o := &redisOptions{image: "redis:7"}
	for _, opt := range opts {
		opt(o)
	}

	ctr, err := tcredis.Run(ctx, o.image)
	if err != nil {
		return nil, fmt.Errorf("failed to start redis container: %w", err)
	}
	r := &RedisContainer{Container: ctr}

	if r.URL, err = ctr.ConnectionString(ctx); err != nil {
		return nil, r.abort(fmt.Errorf("failed to get redis url: %w", err))
	}
	clientOpts, err := goredis.ParseURL(r.URL)
	if err != nil {
		return nil, r.abort(fmt.Errorf("failed to parse redis url: %w", err))
	}
	r.Client = goredis.NewClient(clientOpts)
	if err := r.Client.Ping(ctx).Err(); err != nil {
		return nil, r.abort(fmt.Errorf("failed to ping redis: %w", err))
	}
	return r, nil
}

func (r *RedisContainer) Terminate(ctx context.Context) error {
	var errs []error
	if r.Client != nil {
		if err := r.Client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis client: %w", err))
		}
	}
	if r.Container != nil {
		if err := testcontainers.TerminateContainer(r.Container); err != nil {
			errs = append(errs, fmt.Errorf("failed to terminate redis container: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (r *RedisContainer) abort(cause error) error {
	return errors.Join(cause, r.Terminate(context.Background()))
}
