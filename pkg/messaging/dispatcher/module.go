// Package dispatcher publishes validated events to the primary stream and
// runs durable consumers that dispatch them to handlers.
package dispatcher

import (
	"errors"

	appconfig "github.com/Sokol111/ecommerce-eventbus/pkg/core/config"
	"github.com/Sokol111/ecommerce-eventbus/pkg/core/worker"
	"github.com/Sokol111/ecommerce-eventbus/pkg/messaging/events"
	"github.com/Sokol111/ecommerce-eventbus/pkg/messaging/schema"
	"github.com/Sokol111/ecommerce-eventbus/pkg/messaging/stream"
	"github.com/Sokol111/ecommerce-eventbus/pkg/webhook"
	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type dispatcherOptions struct {
	config *Config
}

type Option func(*dispatcherOptions)

func WithDispatcherConfig(cfg Config) Option {
	return func(o *dispatcherOptions) { o.config = &cfg }
}

// NewDispatcherModule provides Config, *Metrics and *Publisher. The publisher
// is also provided as webhook.Publisher for the webhook intake.
func NewDispatcherModule(opts ...Option) fx.Option {
	o := &dispatcherOptions{}
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

	return fx.Module("dispatcher",
		configProvider,
		fx.Provide(
			provideMetrics,
			provideMessageTracer,
			providePublisher,
			func(p *Publisher) webhook.Publisher { return p },
		),
		worker.Invoke(),
	)
}

type telemetryParams struct {
	fx.In

	MeterProvider  metric.MeterProvider          `optional:"true"`
	TracerProvider trace.TracerProvider          `optional:"true"`
	Propagator     propagation.TextMapPropagator `optional:"true"`
}

func provideMetrics(p telemetryParams) (*Metrics, error) {
	mp := p.MeterProvider
	if mp == nil {
		mp = noop.NewMeterProvider()
	}
	return NewMetrics(mp)
}

func provideMessageTracer(p telemetryParams) *messageTracer {
	tp := p.TracerProvider
	if tp == nil {
		tp = tracenoop.NewTracerProvider()
	}
	prop := p.Propagator
	if prop == nil {
		prop = otel.GetTextMapPropagator()
	}
	return newMessageTracer(tp, prop)
}

func providePublisher(
	registry *events.Registry,
	validator *schema.Validator,
	topology *stream.Topology,
	js jetstream.JetStream,
	cfg Config,
	appCfg appconfig.AppConfig,
	metrics *Metrics,
	tracer *messageTracer,
	log *zap.Logger,
) *Publisher {
	return newPublisher(registry, validator, topology, js, cfg.Publisher, appCfg.ServiceName, metrics, tracer,
		log.With(zap.String("component", "publisher")))
}

// RegisterConsumer runs the consumer configured under consumerName with the
// handlers built by handlerConstructors. Each constructor returns a Handler.
//
//	dispatcher.RegisterConsumer("catalog",
//	    newItemUpdatedHandler,
//	    newMerchantCreatedHandler,
//	)
func RegisterConsumer(consumerName string, handlerConstructors ...any) fx.Option {
	group := `group:"handlers-` + consumerName + `"`

	provides := make([]any, 0, len(handlerConstructors)+2)
	for _, ctor := range handlerConstructors {
		provides = append(provides, fx.Annotate(ctor, fx.As(new(Handler)), fx.ResultTags(group)))
	}
	provides = append(provides,
		fx.Annotate(
			provideConsumer,
			fx.ParamTags(`name:"consumerName"`, group, ``, ``, ``, ``, ``, `optional:"true"`),
		),
		fx.Private,
	)

	return fx.Module(
		consumerName,
		fx.Decorate(
			func(log *zap.Logger) *zap.Logger {
				return log.With(
					zap.String("component", "consumer"),
					zap.String("consumer_name", consumerName),
				)
			},
		),
		fx.Supply(
			fx.Annotate(
				consumerName,
				fx.ResultTags(`name:"consumerName"`),
			),
			fx.Private,
		),
		fx.Provide(provides...),
		fx.Provide(worker.Register[*Consumer](consumerName+"-consumer", worker.WithReady(), worker.WithShutdown())),
	)
}

func provideConsumer(
	consumerName string,
	handlers []Handler,
	config Config,
	topology *stream.Topology,
	registry *events.Registry,
	js jetstream.JetStream,
	validator *schema.Validator,
	wc *webhook.Classifier,
	tracer *messageTracer,
	metrics *Metrics,
	log *zap.Logger,
) (*Consumer, error) {
	cfg, err := config.Consumer(consumerName)
	if err != nil {
		return nil, err
	}

	var classifier webhookClassifier
	if wc != nil {
		classifier = wc
	} else {
		for _, h := range handlers {
			if registry.IsWebhookEvent(h.Event()) {
				return nil, errors.New("consumer " + consumerName + " handles webhook event " + string(h.Event()) + " but the webhook module is not installed")
			}
		}
	}

	return newConsumer(consumerDeps{
		cfg:        cfg,
		handlers:   handlers,
		topology:   topology,
		webhooks:   registry,
		binder:     js,
		publisher:  js,
		validator:  validator,
		classifier: classifier,
		tracer:     tracer,
		metrics:    metrics,
		log:        log,
	})
}
