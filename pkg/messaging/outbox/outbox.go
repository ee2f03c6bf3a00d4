// Package outbox stores envelopes in Mongo inside the caller's transaction
// and relays them to the primary stream after commit.
package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sokol111/ecommerce-eventbus/pkg/core/logger"
	"github.com/Sokol111/ecommerce-eventbus/pkg/messaging/events"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

var errQueueFull = errors.New("outbox relay queue is full")

// Message is an event to be written through the outbox.
type Message struct {
	Event   events.Name
	Payload any
	Options []events.EnvelopeOption
}

// Outbox records messages for delivery after the surrounding transaction
// commits.
type Outbox interface {
	// Create stores msg with ctx, so it joins a transaction carried by ctx.
	// The returned SendFunc hands the entry to the relay and should be called
	// after commit; entries it never reaches are relayed by the fetcher.
	Create(ctx context.Context, msg Message) (events.Envelope, SendFunc, error)
}

// SendFunc triggers delivery of a created entry.
type SendFunc func(ctx context.Context) error

// EnvelopePreparer builds validated envelopes without sending them.
type EnvelopePreparer interface {
	Prepare(ctx context.Context, name events.Name, payload any, opts ...events.EnvelopeOption) (events.Envelope, error)
}

type outbox struct {
	store      store
	preparer   EnvelopePreparer
	propagator propagation.TextMapPropagator
	entries    chan<- *entry
	handoff    time.Duration
}

func newOutbox(s store, preparer EnvelopePreparer, propagator propagation.TextMapPropagator, entries chan<- *entry) *outbox {
	return &outbox{
		store:      s,
		preparer:   preparer,
		propagator: propagator,
		entries:    entries,
		handoff:    time.Second,
	}
}

func (o *outbox) Create(ctx context.Context, msg Message) (events.Envelope, SendFunc, error) {
	env, err := o.preparer.Prepare(ctx, msg.Event, msg.Payload, msg.Options...)
	if err != nil {
		return events.Envelope{}, nil, err
	}
	data, err := env.Marshal()
	if err != nil {
		return events.Envelope{}, nil, fmt.Errorf("encode outbox envelope: %w", err)
	}

	headers := make(map[string]string)
	o.propagator.Inject(ctx, propagation.MapCarrier(headers))

	e := &entry{
		ID:       env.ID,
		Event:    string(env.Event),
		Envelope: data,
		Headers:  headers,
	}
	if err := o.store.Create(ctx, e); err != nil {
		return events.Envelope{}, nil, err
	}

	o.log(ctx).Debug("outbox entry created", zap.String("id", e.ID), zap.String("event", e.Event))
	return env, o.sendFunc(e), nil
}

func (o *outbox) sendFunc(e *entry) SendFunc {
	return func(ctx context.Context) error {
		timer := time.NewTimer(o.handoff)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return fmt.Errorf("outbox entry %s not handed off: %w", e.ID, ctx.Err())
		case o.entries <- e:
			return nil
		case <-timer.C:
			o.log(ctx).Warn("relay queue full, leaving entry to the fetcher", zap.String("id", e.ID))
			return errQueueFull
		}
	}
}

func (o *outbox) log(ctx context.Context) *zap.Logger {
	return logger.Get(ctx).With(zap.String("component", "outbox"))
}
