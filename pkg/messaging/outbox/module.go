package outbox

import (
	"context"
	"fmt"

	"github.com/Sokol111/ecommerce-eventbus/pkg/core/health"
	"github.com/Sokol111/ecommerce-eventbus/pkg/core/worker"
	"github.com/Sokol111/ecommerce-eventbus/pkg/messaging/dispatcher"
	"github.com/Sokol111/ecommerce-eventbus/pkg/persistence/mongo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type outboxOptions struct {
	config *Config
}

type Option func(*outboxOptions)

func WithOutboxConfig(cfg Config) Option {
	return func(o *outboxOptions) { o.config = &cfg }
}

// NewOutboxModule provides Outbox and runs the relay workers. It needs the
// mongo and dispatcher modules.
func NewOutboxModule(opts ...Option) fx.Option {
	o := &outboxOptions{}
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

	return fx.Module("outbox",
		fx.Decorate(func(log *zap.Logger) *zap.Logger {
			return log.With(zap.String("component", "outbox"))
		}),
		configProvider,
		fx.Provide(
			fx.Private,
			newChannels,
			provideStore,
			provideFetcher,
			provideSender,
			provideConfirmer,
		),
		fx.Provide(
			provideOutbox,
			worker.Register[*fetcher]("outbox-fetcher", worker.WithTrafficReady()),
			worker.Register[*sender]("outbox-sender", worker.WithReady()),
			worker.Register[*confirmer]("outbox-confirmer"),
		),
		worker.Invoke(),
	)
}

type propagatorParams struct {
	fx.In

	Propagator propagation.TextMapPropagator `optional:"true"`
}

func (p propagatorParams) get() propagation.TextMapPropagator {
	if p.Propagator == nil {
		return otel.GetTextMapPropagator()
	}
	return p.Propagator
}

func provideStore(lc fx.Lifecycle, m mongo.Mongo, cfg Config, readiness health.ComponentManager, log *zap.Logger) store {
	s := newMongoStore(m.Collection(cfg.Collection), cfg)

	markReady := readiness.AddComponent("outbox")
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := s.EnsureIndexes(ctx); err != nil {
				return fmt.Errorf("outbox: %w", err)
			}
			log.Info("outbox indexes ensured", zap.String("collection", cfg.Collection))
			markReady()
			return nil
		},
	})
	return s
}

func provideOutbox(s store, p *dispatcher.Publisher, pp propagatorParams, ch *channels) Outbox {
	return newOutbox(s, p, pp.get(), ch.entries)
}

func provideFetcher(s store, ch *channels, cfg Config, log *zap.Logger) *fetcher {
	return newFetcher(s, ch.entries, cfg, log)
}

func provideSender(p *dispatcher.Publisher, pp propagatorParams, ch *channels, log *zap.Logger) *sender {
	return newSender(p, pp.get(), ch.entries, ch.confirmed, log)
}

func provideConfirmer(s store, ch *channels, cfg Config, log *zap.Logger) *confirmer {
	return newConfirmer(s, ch.confirmed, cfg, log)
}
