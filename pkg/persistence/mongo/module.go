package mongo

import (
	"context"

	"github.com/Sokol111/ecommerce-eventbus/pkg/core/config"
	"github.com/Sokol111/ecommerce-eventbus/pkg/core/health"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type mongoOptions struct {
	config *Config
}

type Option func(*mongoOptions)

func WithMongoConfig(cfg Config) Option {
	return func(o *mongoOptions) { o.config = &cfg }
}

func NewMongoModule(opts ...Option) fx.Option {
	o := &mongoOptions{}
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

	return fx.Module("mongo",
		configProvider,
		fx.Provide(provideMongo, NewTxManager),
	)
}

func provideMongo(lc fx.Lifecycle, log *zap.Logger, appConf config.AppConfig, conf Config, readiness health.ComponentManager) (Mongo, error) {
	m, err := newMongo(log, conf, appConf.ServiceName)
	if err != nil {
		return nil, err
	}

	markReady := readiness.AddComponent("mongo")
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := m.connect(ctx); err != nil {
				return err
			}
			markReady()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return m.disconnect(ctx)
		},
	})
	return m, nil
}
