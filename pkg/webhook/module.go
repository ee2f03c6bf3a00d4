package webhook

import (
	"context"
	"errors"

	"github.com/Sokol111/ecommerce-eventbus/pkg/http/server"
	"github.com/Sokol111/ecommerce-eventbus/pkg/messaging/events"
	"github.com/Sokol111/ecommerce-eventbus/pkg/persistence/mongo"
	"github.com/Sokol111/ecommerce-eventbus/pkg/webhook/dedup"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type webhookOptions struct {
	config *Config
	intake bool
}

type Option func(*webhookOptions)

func WithWebhookConfig(cfg Config) Option {
	return func(o *webhookOptions) { o.config = &cfg }
}

// WithIntake provides *Intake, mounts it at POST /webhooks/{source} when the
// HTTP server module is present and declares webhook.received as outbound.
// Without it the event is declared inbound.
func WithIntake() Option {
	return func(o *webhookOptions) { o.intake = true }
}

// NewWebhookModule provides the dedup store selected by webhook.dedup.store,
// the *Classifier and the *Verifier.
func NewWebhookModule(opts ...Option) fx.Option {
	o := &webhookOptions{}
	for _, opt := range opts {
		opt(o)
	}

	configProvider := fx.Provide(newConfig)
	if o.config != nil {
		configProvider = fx.Provide(func() (Config, error) {
			cfg := *o.config
			applyDefaults(&cfg)
			return cfg, validateConfig(cfg)
		})
	}

	direction := events.Inbound
	options := []fx.Option{
		configProvider,
		fx.Provide(
			provideStore,
			func(r *events.Registry, store dedup.Store, cfg Config) *Classifier {
				return NewClassifier(r, store, cfg.Dedup.TTL)
			},
			func(cfg Config) *Verifier { return NewVerifier(cfg.SignatureTolerance) },
		),
	}
	if o.intake {
		direction = events.Outbound
		options = append(options, fx.Provide(NewIntake, NewIntakeHandler, server.AsRoute(intakeRoute)))
	}
	options = append(options, events.ProvideCatalog("webhook", []events.Descriptor{ReceivedDescriptor(direction)}))

	return fx.Module("webhook", options...)
}

type storeParams struct {
	fx.In

	Lc    fx.Lifecycle
	Log   *zap.Logger
	Cfg   Config
	Redis goredis.UniversalClient `optional:"true"`
	Mongo mongo.Mongo             `optional:"true"`
}

func provideStore(p storeParams) (dedup.Store, error) {
	switch p.Cfg.Dedup.Store {
	case StoreRedis:
		if p.Redis == nil {
			return nil, errors.New("webhook.dedup.store is redis but no redis client is provided")
		}
		p.Log.Info("webhook dedup store", zap.String("store", StoreRedis), zap.String("key-prefix", p.Cfg.Dedup.KeyPrefix))
		return dedup.NewRedisStore(p.Redis, p.Cfg.Dedup.KeyPrefix), nil
	case StoreMongo:
		if p.Mongo == nil {
			return nil, errors.New("webhook.dedup.store is mongo but no mongo client is provided")
		}
		store := dedup.NewMongoStore(p.Mongo.Collection(p.Cfg.Dedup.Collection))
		p.Lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error { return store.EnsureIndexes(ctx) },
		})
		p.Log.Info("webhook dedup store", zap.String("store", StoreMongo), zap.String("collection", p.Cfg.Dedup.Collection))
		return store, nil
	default:
		p.Log.Warn("webhook dedup store is in-memory, replicas do not share claims")
		return dedup.NewMemoryStore(), nil
	}
}
