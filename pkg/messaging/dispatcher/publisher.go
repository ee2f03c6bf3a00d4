package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/Sokol111/ecommerce-eventbus/pkg/messaging/correlation"
	"github.com/Sokol111/ecommerce-eventbus/pkg/messaging/events"
	"github.com/Sokol111/ecommerce-eventbus/pkg/messaging/schema"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// ErrInboundEvent is returned when publishing an event the service only consumes.
var ErrInboundEvent = errors.New("event is declared inbound")

// streamPublisher is the part of jetstream.JetStream the publisher needs.
type streamPublisher interface {
	PublishMsg(ctx context.Context, msg *nats.Msg, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

type subjectResolver interface {
	SubjectFor(name events.Name) (string, error)
}

// Publisher validates events and sends them to the primary stream.
type Publisher struct {
	catalog   schema.Catalog
	validator *schema.Validator
	topology  subjectResolver
	js        streamPublisher
	cfg       PublisherConfig
	source    string
	metrics   *Metrics
	tracer    *messageTracer
	log       *zap.Logger
}

func newPublisher(
	catalog schema.Catalog,
	validator *schema.Validator,
	topology subjectResolver,
	js streamPublisher,
	cfg PublisherConfig,
	source string,
	metrics *Metrics,
	tracer *messageTracer,
	log *zap.Logger,
) *Publisher {
	return &Publisher{
		catalog:   catalog,
		validator: validator,
		topology:  topology,
		js:        js,
		cfg:       cfg,
		source:    source,
		metrics:   metrics,
		tracer:    tracer,
		log:       log,
	}
}

// CausedBy continues parent's correlation chain regardless of ctx.
func CausedBy(parent events.Envelope) events.EnvelopeOption {
	return correlation.ReactionTo(correlation.ParentOf(parent)).Option()
}

// Publish sends payload as the latest registered version of name and waits
// for the broker acknowledgment. Schema errors are returned at once; broker
// errors are retried and end in *PublishFailedError.
func (p *Publisher) Publish(ctx context.Context, name events.Name, payload any, opts ...events.EnvelopeOption) (events.Envelope, error) {
	env, err := p.Prepare(ctx, name, payload, opts...)
	if err != nil {
		return events.Envelope{}, err
	}

	subject, err := p.topology.SubjectFor(name)
	if err != nil {
		p.metrics.RecordPublishFailure(ctx, name, "routing")
		return events.Envelope{}, err
	}

	if err := p.send(ctx, env, subject); err != nil {
		return events.Envelope{}, err
	}
	return env, nil
}

// Prepare builds the envelope Publish would send: payload validated, source
// stamped and correlation taken from ctx. Nothing is sent.
func (p *Publisher) Prepare(ctx context.Context, name events.Name, payload any, opts ...events.EnvelopeOption) (events.Envelope, error) {
	d, err := p.catalog.Lookup(name)
	if err != nil {
		return events.Envelope{}, err
	}
	if d.Direction == events.Inbound {
		return events.Envelope{}, fmt.Errorf("publish %s: %w", name, ErrInboundEvent)
	}

	raw, res := p.validator.ValidateValue(name, d.Version, payload)
	if !res.OK() {
		p.metrics.RecordPublishFailure(ctx, name, "validation")
		return events.Envelope{}, res.Err
	}

	id := uuid.NewString()
	base := []events.EnvelopeOption{
		events.WithID(id),
		events.WithSource(p.source),
		correlation.For(ctx, id).Option(),
	}
	env := events.NewEnvelope(name, d.Version, raw, append(base, opts...)...)
	if env.ID != id && env.CausationID == id {
		// a caller-chosen id heads its own root chain
		env.CausationID = env.ID
	}
	return env, nil
}

// PublishEnvelope sends an already built envelope as is. The payload is
// still validated against the version the envelope names.
func (p *Publisher) PublishEnvelope(ctx context.Context, env events.Envelope) error {
	if res := p.validator.Validate(env.Event, env.Version, env.Payload); !res.OK() {
		p.metrics.RecordPublishFailure(ctx, env.Event, "validation")
		return res.Err
	}
	subject, err := p.topology.SubjectFor(env.Event)
	if err != nil {
		p.metrics.RecordPublishFailure(ctx, env.Event, "routing")
		return err
	}
	return p.send(ctx, env, subject)
}

func (p *Publisher) send(ctx context.Context, env events.Envelope, subject string) error {
	data, err := env.Marshal()
	if err != nil {
		return fmt.Errorf("encode envelope %s: %w", env.ID, err)
	}

	ctx, span := p.tracer.startPublish(ctx, env, subject)
	defer span.End()

	msg := nats.NewMsg(subject)
	msg.Data = data
	msg.Header.Set(HeaderEvent, string(env.Event))
	msg.Header.Set(HeaderVersion, strconv.Itoa(env.Version))
	msg.Header.Set(HeaderCorrelationID, env.CorrelationID)
	msg.Header.Set(HeaderCausationID, env.CausationID)
	p.tracer.inject(ctx, msg)

	attempts := 0
	var ack *jetstream.PubAck
	operation := func() error {
		attempts++
		attemptCtx, cancel := context.WithTimeout(ctx, p.cfg.PublishTimeout)
		defer cancel()

		var err error
		ack, err = p.js.PublishMsg(attemptCtx, msg, jetstream.WithMsgID(env.ID))
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			return backoff.Permanent(err)
		}
		p.log.Warn("publish attempt failed",
			zap.String("event", string(env.Event)),
			zap.String("message_id", env.ID),
			zap.Int("attempt", attempts),
			zap.Error(err))
		return err
	}

	if err := backoff.Retry(operation, p.retryPolicy(ctx)); err != nil {
		failSpan(span, err, "publish failed")
		p.metrics.RecordPublishFailure(ctx, env.Event, "broker")
		return &PublishFailedError{Event: env.Event, Subject: subject, Attempts: attempts, Err: err}
	}

	if ack != nil && ack.Duplicate {
		p.log.Debug("broker dropped duplicate publish", zap.String("message_id", env.ID), zap.String("stream", ack.Stream))
	}
	span.SetStatus(codes.Ok, "")
	p.metrics.RecordPublished(ctx, env.Event)
	return nil
}

func (p *Publisher) retryPolicy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.cfg.InitialBackoff
	b.MaxInterval = p.cfg.MaxBackoff
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.cfg.MaxAttempts-1)), ctx)
}

// isTransient reports broker conditions that may clear on their own.
func isTransient(err error) bool {
	switch {
	case errors.Is(err, nats.ErrTimeout),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, nats.ErrNoResponders),
		errors.Is(err, jetstream.ErrNoStreamResponse),
		errors.Is(err, nats.ErrDisconnected),
		errors.Is(err, nats.ErrConnectionReconnecting),
		errors.Is(err, nats.ErrStaleConnection):
		return true
	}
	return false
}
