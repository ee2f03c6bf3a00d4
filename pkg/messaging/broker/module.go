package broker

import (
	"context"

	"github.com/Sokol111/ecommerce-eventbus/pkg/core/config"
	"github.com/Sokol111/ecommerce-eventbus/pkg/core/health"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type brokerOptions struct {
	config *Config
}

type Option func(*brokerOptions)

func WithBrokerConfig(cfg Config) Option {
	return func(o *brokerOptions) { o.config = &cfg }
}

// NewBrokerModule connects to NATS at construction time and provides the
// *Broker, *nats.Conn and jetstream.JetStream. The connection is drained on stop.
func NewBrokerModule(opts ...Option) fx.Option {
	o := &brokerOptions{}
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

	return fx.Module("broker",
		configProvider,
		fx.Provide(
			provideBroker,
			func(b *Broker) *nats.Conn { return b.Conn() },
			func(b *Broker) jetstream.JetStream { return b.JetStream() },
		),
	)
}

func provideBroker(lc fx.Lifecycle, log *zap.Logger, appConf config.AppConfig, cfg Config, readiness health.ComponentManager) (*Broker, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout*2)
	defer cancel()

	b, err := connect(ctx, cfg, appConf.ServiceName, log)
	if err != nil {
		return nil, err
	}

	markReady := readiness.AddComponent("nats")
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			markReady()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return b.close(ctx)
		},
	})
	return b, nil
}
