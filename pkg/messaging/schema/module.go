package schema

import (
	"context"

	"github.com/Sokol111/ecommerce-eventbus/pkg/core/health"
	"github.com/Sokol111/ecommerce-eventbus/pkg/messaging/events"
	"github.com/confluentinc/confluent-kafka-go/v2/schemaregistry"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewValidatorModule provides a *Validator backed by the event registry.
func NewValidatorModule() fx.Option {
	return fx.Module("schema",
		fx.Provide(func(r *events.Registry) *Validator { return NewValidator(r) }),
	)
}

type syncOptions struct {
	config      *RegistryConfig
	pushOnStart bool
}

type SyncOption func(*syncOptions)

func WithRegistryConfig(cfg RegistryConfig) SyncOption {
	return func(o *syncOptions) { o.config = &cfg }
}

// WithPushOnStart registers the sealed registry's schemas when the application starts.
func WithPushOnStart() SyncOption {
	return func(o *syncOptions) { o.pushOnStart = true }
}

// NewRegistrySyncModule provides a Schema Registry client and a *RegistrySync.
func NewRegistrySyncModule(opts ...SyncOption) fx.Option {
	o := &syncOptions{}
	for _, opt := range opts {
		opt(o)
	}

	configProvider := fx.Provide(newRegistryConfig)
	if o.config != nil {
		configProvider = fx.Supply(*o.config)
	}

	options := []fx.Option{
		configProvider,
		fx.Provide(provideRegistryClient, NewRegistrySync),
	}
	if o.pushOnStart {
		options = append(options, fx.Invoke(pushOnStart))
	}
	return fx.Module("schema-registry", options...)
}

func provideRegistryClient(lc fx.Lifecycle, cfg RegistryConfig, log *zap.Logger) (schemaregistry.Client, error) {
	conf := schemaregistry.NewConfig(cfg.URL)
	conf.RequestTimeoutMs = int(cfg.RequestTimeout.Milliseconds())

	client, err := schemaregistry.NewClient(conf)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info("closing schema registry client")
			return client.Close()
		},
	})
	return client, nil
}

func pushOnStart(lc fx.Lifecycle, sync *RegistrySync, registry *events.Registry, cm health.ComponentManager) {
	markReady := cm.AddComponent("schema_registry_sync")
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if _, err := sync.Push(registry.Descriptors()); err != nil {
				return err
			}
			markReady()
			return nil
		},
	})
}
