package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func newClient(cfg Config) (*goredis.Client, error) {
	opts := &goredis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.URL != "" {
		parsed, err := goredis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		opts = parsed
	}
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout
	opts.PoolSize = cfg.PoolSize

	return goredis.NewClient(opts), nil
}

func ping(ctx context.Context, client *goredis.Client, cfg Config, log *zap.Logger) error {
	c, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(c).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	log.Info("connected to redis",
		zap.String("addr", client.Options().Addr),
		zap.Int("db", client.Options().DB),
		zap.Int("pool-size", client.Options().PoolSize))
	return nil
}
