// Package observability provides the OpenTelemetry providers picked up by the
// dispatcher, the outbox relay and the mongo client. Without this module
// those components fall back to noop providers.
//
//	fx.New(
//	    core.NewCoreModule(),
//	    observability.NewObservabilityModule(),
//	    modules.NewMessagingModule(),
//	)
package observability

import (
	"github.com/Sokol111/ecommerce-eventbus/pkg/observability/config"
	"github.com/Sokol111/ecommerce-eventbus/pkg/observability/metrics"
	"github.com/Sokol111/ecommerce-eventbus/pkg/observability/tracing"
	"go.uber.org/fx"
)

type Option func(*[]config.Option)

// WithObservabilityConfig replaces the "observability" config section.
func WithObservabilityConfig(cfg config.Config) Option {
	return func(o *[]config.Option) { *o = append(*o, config.WithConfig(cfg)) }
}

// WithoutTracing forces a noop tracer provider. Trace context found in
// message headers is still forwarded.
func WithoutTracing() Option {
	return func(o *[]config.Option) { *o = append(*o, config.WithDisableTracing()) }
}

// WithoutMetrics forces a noop meter provider.
func WithoutMetrics() Option {
	return func(o *[]config.Option) { *o = append(*o, config.WithDisableMetrics()) }
}

// NewObservabilityModule provides otel config, a trace.TracerProvider, a
// propagation.TextMapPropagator and a metric.MeterProvider.
func NewObservabilityModule(opts ...Option) fx.Option {
	var configOpts []config.Option
	for _, opt := range opts {
		opt(&configOpts)
	}

	return fx.Module("observability",
		config.NewObservabilityConfigModule(configOpts...),
		tracing.NewTracingModule(),
		metrics.NewMetricsModule(),
	)
}
