package events

import (
	"context"
	"fmt"

	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const catalogGroup = `group:"event_catalogs"`

type topicConfig struct {
	Topic string `mapstructure:"topic"`
	Event string `mapstructure:"event"`
}

type sourceConfig struct {
	Topics []topicConfig `mapstructure:"topics"`
}

type registryOptions struct {
	topics TopicMap
}

type RegistryOption func(*registryOptions)

// WithTopicMap replaces the allow-list that would otherwise be built from
// the defaults and the webhook.sources config.
func WithTopicMap(m TopicMap) RegistryOption {
	return func(o *registryOptions) { o.topics = m }
}

// NewRegistryModule provides a *Registry filled from every Catalog in the
// event_catalogs group. The registry is sealed when the application starts.
func NewRegistryModule(opts ...RegistryOption) fx.Option {
	o := &registryOptions{}
	for _, opt := range opts {
		opt(o)
	}

	return fx.Module("events",
		fx.Provide(
			fx.Annotate(
				func(lc fx.Lifecycle, log *zap.Logger, v *viper.Viper, catalogs []Catalog) (*Registry, error) {
					topics := o.topics
					if topics == nil {
						var err error
						if topics, err = loadTopicMap(v); err != nil {
							return nil, err
						}
					}
					return provideRegistry(lc, log, topics, catalogs)
				},
				fx.ParamTags(``, ``, ``, catalogGroup),
			),
		),
	)
}

// ProvideCatalog contributes a service's event catalog to the registry.
func ProvideCatalog(service string, descriptors []Descriptor) fx.Option {
	return fx.Provide(
		fx.Annotate(
			func() Catalog { return Catalog{Service: service, Descriptors: descriptors} },
			fx.ResultTags(catalogGroup),
		),
	)
}

func provideRegistry(lc fx.Lifecycle, log *zap.Logger, topics TopicMap, catalogs []Catalog) (*Registry, error) {
	if err := topics.Validate(); err != nil {
		return nil, fmt.Errorf("webhook topic map: %w", err)
	}
	if err := CheckCollisions(catalogs...); err != nil {
		return nil, err
	}

	r := NewRegistry(topics)
	for _, catalog := range catalogs {
		for _, d := range catalog.Descriptors {
			if err := r.Register(d); err != nil {
				return nil, fmt.Errorf("catalog %s: %w", catalog.Service, err)
			}
		}
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			r.Seal()
			log.Info("event registry sealed", zap.Int("events", len(r.Names())), zap.Int("catalogs", len(catalogs)))
			return nil
		},
	})
	return r, nil
}

func loadTopicMap(v *viper.Viper) (TopicMap, error) {
	sub := v.Sub("webhook.sources")
	if sub == nil {
		return DefaultTopicMap(), nil
	}
	var sources map[string]sourceConfig
	if err := sub.Unmarshal(&sources); err != nil {
		return nil, fmt.Errorf("failed to load webhook sources config: %w", err)
	}

	overrides := make(TopicMap, len(sources))
	for source, cfg := range sources {
		topics := make(map[string]Name, len(cfg.Topics))
		for _, t := range cfg.Topics {
			topics[t.Topic] = Name(t.Event)
		}
		overrides[source] = topics
	}
	return DefaultTopicMap().Merge(overrides), nil
}
