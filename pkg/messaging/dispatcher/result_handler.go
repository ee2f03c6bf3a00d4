package dispatcher

import (
	"context"
	"errors"
	"time"

	"github.com/Sokol111/ecommerce-eventbus/pkg/messaging/events"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// outcome is what processing decided for one message.
type outcome struct {
	event     events.Name
	messageID string
	delivered uint64
	// quiet is set for duplicate and unhandled webhooks.
	quiet string
	err   error
}

type resultHandler struct {
	consumer   string
	maxDeliver int
	initial    time.Duration
	max        time.Duration
	deadLetter *deadLetterer
	metrics    *Metrics
	log        *zap.Logger
}

func newResultHandler(cfg ConsumerConfig, deadLetter *deadLetterer, metrics *Metrics, log *zap.Logger) *resultHandler {
	return &resultHandler{
		consumer:   cfg.Name,
		maxDeliver: cfg.MaxDeliver,
		initial:    cfg.InitialBackoff,
		max:        cfg.MaxBackoff,
		deadLetter: deadLetter,
		metrics:    metrics,
		log:        log,
	}
}

// handle settles msg. Every path ends in an ack or a nak.
func (h *resultHandler) handle(ctx context.Context, msg inboundMsg, res outcome, span trace.Span) {
	fields := []zap.Field{
		zap.String("event", string(res.event)),
		zap.String("message_id", res.messageID),
		zap.String("subject", msg.Subject()),
		zap.Uint64("delivered", res.delivered),
	}
	err := res.err

	switch {
	case err == nil && res.quiet != "":
		span.SetStatus(codes.Ok, "webhook "+res.quiet)
		h.log.Debug("acknowledging webhook without dispatch", append(fields, zap.String("reason", res.quiet))...)
		h.ack(ctx, msg, res, res.quiet, fields)

	case err == nil:
		span.SetStatus(codes.Ok, "message processed")
		h.ack(ctx, msg, res, OutcomeAcked, fields)

	case errors.Is(err, ErrSkipMessage):
		span.SetStatus(codes.Ok, "message skipped")
		h.log.Info("skipping message", fields...)
		h.ack(ctx, msg, res, OutcomeSkipped, fields)

	case errors.Is(err, context.Canceled):
		// shutdown: leave it for another replica. Redelivery is unbounded on
		// the broker, so this holds on the last counted delivery too.
		span.SetStatus(codes.Error, "cancelled")
		h.log.Warn("handler cancelled, requeueing message", append(fields, zap.Error(err))...)
		h.nak(ctx, msg, res, 0, fields)

	case errors.Is(err, ErrPermanent):
		failSpan(span, err, "permanent error")
		h.log.Error("permanent error, dead-lettering message", append(fields, zap.Error(err))...)
		h.deadLetterOrNak(ctx, msg, res, fields)

	case h.exhausted(res.delivered):
		failSpan(span, err, "deliveries exhausted")
		h.log.Error("deliveries exhausted, dead-lettering message", append(fields, zap.Error(err))...)
		h.deadLetterOrNak(ctx, msg, res, fields)

	default:
		span.RecordError(err)
		delay := h.nakDelay(res.delivered)
		h.log.Warn("handler failed, message will be redelivered",
			append(fields, zap.Duration("delay", delay), zap.Error(err))...)
		h.nak(ctx, msg, res, delay, fields)
	}
}

func (h *resultHandler) exhausted(delivered uint64) bool {
	return delivered >= uint64(h.maxDeliver)
}

// nakDelay doubles from the initial backoff per delivery, capped at max.
func (h *resultHandler) nakDelay(delivered uint64) time.Duration {
	d := h.initial
	for i := uint64(1); i < delivered && d < h.max; i++ {
		d *= 2
	}
	return min(d, h.max)
}

func (h *resultHandler) deadLetterOrNak(ctx context.Context, msg inboundMsg, res outcome, fields []zap.Field) {
	name := res.event
	if name == "" {
		name = eventFromSubject(msg.Subject())
	}
	if err := h.deadLetter.send(ctx, msg, name, res.messageID, res.delivered, res.err); err != nil {
		h.log.Error("failed to dead-letter message, requeueing", append(fields, zap.Error(err))...)
		h.nak(ctx, msg, res, h.nakDelay(res.delivered), fields)
		return
	}
	h.metrics.RecordDeadLettered(ctx, h.consumer, name)
	h.ack(ctx, msg, res, OutcomeDeadLettered, fields)
}

func (h *resultHandler) ack(ctx context.Context, msg inboundMsg, res outcome, result string, fields []zap.Field) {
	if err := msg.Ack(); err != nil {
		h.log.Error("failed to ack message", append(fields, zap.Error(err))...)
	}
	h.metrics.RecordConsumed(ctx, h.consumer, res.event, result)
}

func (h *resultHandler) nak(ctx context.Context, msg inboundMsg, res outcome, delay time.Duration, fields []zap.Field) {
	var err error
	if delay > 0 {
		err = msg.NakWithDelay(delay)
	} else {
		err = msg.Nak()
	}
	if err != nil {
		h.log.Error("failed to nak message", append(fields, zap.Error(err))...)
	}
	h.metrics.RecordConsumed(ctx, h.consumer, res.event, OutcomeRetried)
}
