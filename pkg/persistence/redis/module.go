package redis

import (
	"context"

	"github.com/Sokol111/ecommerce-eventbus/pkg/core/health"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type redisOptions struct {
	config *Config
}

type Option func(*redisOptions)

func WithRedisConfig(cfg Config) Option {
	return func(o *redisOptions) { o.config = &cfg }
}

// NewRedisModule provides a *goredis.Client and goredis.UniversalClient.
func NewRedisModule(opts ...Option) fx.Option {
	o := &redisOptions{}
	for _, opt := range opts {
		opt(o)
	}

	configProvider := fx.Provide(newConfig)
	if o.config != nil {
		cfg := *o.config
		applyDefaults(&cfg)
		configProvider = fx.Provide(func() (Config, error) {
			return cfg, validateConfig(cfg)
		})
	}

	return fx.Module("redis",
		configProvider,
		fx.Provide(
			provideClient,
			func(c *goredis.Client) goredis.UniversalClient { return c },
		),
	)
}

func provideClient(lc fx.Lifecycle, log *zap.Logger, cfg Config, readiness health.ComponentManager) (*goredis.Client, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}

	markReady := readiness.AddComponent("redis")
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := ping(ctx, client, cfg, log); err != nil {
				return err
			}
			markReady()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("closing redis client")
			return client.Close()
		},
	})
	return client, nil
}
