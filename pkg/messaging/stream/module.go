package stream

import (
	"context"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type streamOptions struct {
	config    *Config
	skipCheck bool
}

type Option func(*streamOptions)

// WithStreamConfig supplies the stream declarations instead of reading the
// streams config key.
func WithStreamConfig(cfg Config) Option {
	return func(o *streamOptions) { o.config = &cfg }
}

// WithoutStartupCheck drops the topology check on start, for tools that
// change the topology themselves.
func WithoutStartupCheck() Option {
	return func(o *streamOptions) { o.skipCheck = true }
}

// NewStreamModule provides Config, *Topology and *Manager, and checks the
// broker topology on start. It never reconciles; a mismatch is only logged.
func NewStreamModule(opts ...Option) fx.Option {
	o := &streamOptions{}
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

	options := []fx.Option{
		configProvider,
		fx.Provide(
			NewTopology,
			func(js jetstream.JetStream) Admin { return NewJetStreamAdmin(js) },
			NewManager,
		),
	}
	if !o.skipCheck {
		options = append(options, fx.Invoke(verifyOnStart))
	}
	return fx.Module("stream", options...)
}

func verifyOnStart(lc fx.Lifecycle, m *Manager, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := m.Verify(ctx); err != nil {
				log.Error("stream topology differs from configuration; run 'eventctl streams reconcile' during maintenance", zap.Error(err))
				return nil
			}
			log.Info("stream topology verified")
			return nil
		},
	})
}
