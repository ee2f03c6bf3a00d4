package dispatcher

import (
	"context"

	"github.com/Sokol111/ecommerce-eventbus/pkg/messaging/events"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/Sokol111/ecommerce-eventbus/dispatcher"

// headerCarrier adapts nats.Header to the otel propagator.
type headerCarrier nats.Header

func (c headerCarrier) Get(key string) string {
	return nats.Header(c).Get(key)
}

func (c headerCarrier) Set(key, value string) {
	nats.Header(c).Set(key, value)
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}

type messageTracer struct {
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
}

func newMessageTracer(tp trace.TracerProvider, propagator propagation.TextMapPropagator) *messageTracer {
	return &messageTracer{tracer: tp.Tracer(tracerName), propagator: propagator}
}

func (t *messageTracer) inject(ctx context.Context, msg *nats.Msg) {
	if msg.Header == nil {
		msg.Header = nats.Header{}
	}
	t.propagator.Inject(ctx, headerCarrier(msg.Header))
}

func (t *messageTracer) extract(ctx context.Context, msg headerReader) context.Context {
	h := msg.Headers()
	if len(h) == 0 {
		return ctx
	}
	return t.propagator.Extract(ctx, headerCarrier(h))
}

func envelopeAttrs(env events.Envelope) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("messaging.system", "nats"),
		attribute.String("messaging.message.id", env.ID),
		attribute.String("eventbus.event", string(env.Event)),
		attribute.Int("eventbus.version", env.Version),
		attribute.String("eventbus.correlation_id", env.CorrelationID),
	}
}

func (t *messageTracer) startPublish(ctx context.Context, env events.Envelope, subject string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "eventbus.publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(append(envelopeAttrs(env), attribute.String("messaging.destination.name", subject))...),
	)
}

func (t *messageTracer) startConsume(ctx context.Context, consumer, subject string, delivered uint64) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "eventbus.consume",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "nats"),
			attribute.String("messaging.consumer.group.name", consumer),
			attribute.String("messaging.destination.name", subject),
			attribute.Int64("messaging.nats.delivery_count", int64(delivered)),
		),
	)
}

func (t *messageTracer) startDeadLetter(ctx context.Context, subject, dlqSubject string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "eventbus.dead_letter",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "nats"),
			attribute.String("messaging.destination.name", dlqSubject),
			attribute.String("messaging.source.name", subject),
		),
	)
}

func failSpan(span trace.Span, err error, msg string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
}
