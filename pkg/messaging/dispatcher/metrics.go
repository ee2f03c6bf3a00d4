package dispatcher

import (
	"context"
	"time"

	"github.com/Sokol111/ecommerce-eventbus/pkg/messaging/events"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/Sokol111/ecommerce-eventbus/dispatcher"

// Outcomes recorded on the consumed counter.
const (
	OutcomeAcked        = "acked"
	OutcomeSkipped      = "skipped"
	OutcomeDuplicate    = "duplicate"
	OutcomeUnhandled    = "unhandled"
	OutcomeRetried      = "retried"
	OutcomeDeadLettered = "dead_lettered"
)

// Metrics holds the dispatcher instruments. One value is shared by the
// publisher, every consumer and any handler that wants to record through it.
type Metrics struct {
	published       metric.Int64Counter
	publishFailures metric.Int64Counter
	consumed        metric.Int64Counter
	deadLettered    metric.Int64Counter
	duplicates      metric.Int64Counter
	handlerDuration metric.Float64Histogram
}

func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(meterName)
	m := &Metrics{}
	var err error

	if m.published, err = meter.Int64Counter("eventbus.published",
		metric.WithDescription("Events acknowledged by the broker")); err != nil {
		return nil, err
	}
	if m.publishFailures, err = meter.Int64Counter("eventbus.publish.failures",
		metric.WithDescription("Publishes rejected or not acknowledged")); err != nil {
		return nil, err
	}
	if m.consumed, err = meter.Int64Counter("eventbus.consumed",
		metric.WithDescription("Consumed messages by outcome")); err != nil {
		return nil, err
	}
	if m.deadLettered, err = meter.Int64Counter("eventbus.dead_lettered",
		metric.WithDescription("Messages moved to the dead-letter stream")); err != nil {
		return nil, err
	}
	if m.duplicates, err = meter.Int64Counter("eventbus.duplicates",
		metric.WithDescription("External events dropped as duplicates")); err != nil {
		return nil, err
	}
	if m.handlerDuration, err = meter.Float64Histogram("eventbus.handler.duration",
		metric.WithDescription("Handler invocation time"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	return m, nil
}

// NoopMetrics records nothing.
func NoopMetrics() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider())
	return m
}

func eventAttr(name events.Name) attribute.KeyValue {
	return attribute.String("event", string(name))
}

func (m *Metrics) RecordPublished(ctx context.Context, name events.Name) {
	m.published.Add(ctx, 1, metric.WithAttributes(eventAttr(name)))
}

func (m *Metrics) RecordPublishFailure(ctx context.Context, name events.Name, reason string) {
	m.publishFailures.Add(ctx, 1, metric.WithAttributes(eventAttr(name), attribute.String("reason", reason)))
}

func (m *Metrics) RecordConsumed(ctx context.Context, consumer string, name events.Name, outcome string) {
	m.consumed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("consumer", consumer), eventAttr(name), attribute.String("outcome", outcome)))
}

func (m *Metrics) RecordDeadLettered(ctx context.Context, consumer string, name events.Name) {
	m.deadLettered.Add(ctx, 1, metric.WithAttributes(attribute.String("consumer", consumer), eventAttr(name)))
}

func (m *Metrics) RecordDuplicate(ctx context.Context, source string) {
	m.duplicates.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}

func (m *Metrics) RecordHandlerDuration(ctx context.Context, consumer string, name events.Name, d time.Duration, failed bool) {
	m.handlerDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("consumer", consumer), eventAttr(name), attribute.Bool("error", failed)))
}
