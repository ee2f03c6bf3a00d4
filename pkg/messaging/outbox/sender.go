package outbox

import (
	"context"
	"fmt"

	"github.com/Sokol111/ecommerce-eventbus/pkg/messaging/events"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

// EnvelopeRelayer sends a stored envelope as is.
type EnvelopeRelayer interface {
	PublishEnvelope(ctx context.Context, env events.Envelope) error
}

type sender struct {
	relayer    EnvelopeRelayer
	propagator propagation.TextMapPropagator
	entries    <-chan *entry
	confirmed  chan<- string
	log        *zap.Logger
}

func newSender(relayer EnvelopeRelayer, propagator propagation.TextMapPropagator, entries <-chan *entry, confirmed chan<- string, log *zap.Logger) *sender {
	return &sender{
		relayer:    relayer,
		propagator: propagator,
		entries:    entries,
		confirmed:  confirmed,
		log:        log,
	}
}

func (s *sender) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-s.entries:
			if err := s.send(ctx, e); err != nil {
				// still PROCESSING: the fetcher retries after backoff
				s.log.Error("failed to relay outbox entry", zap.String("id", e.ID), zap.Error(err))
				continue
			}
			select {
			case <-ctx.Done():
				return nil
			case s.confirmed <- e.ID:
			}
		}
	}
}

func (s *sender) send(ctx context.Context, e *entry) error {
	env, err := events.DecodeEnvelope(e.Envelope)
	if err != nil {
		return fmt.Errorf("decode stored envelope: %w", err)
	}
	// the publish span becomes a child of the span that created the entry
	ctx = s.propagator.Extract(ctx, propagation.MapCarrier(e.Headers))
	if err := s.relayer.PublishEnvelope(ctx, env); err != nil {
		return err
	}
	s.log.Debug("outbox entry relayed", zap.String("id", e.ID), zap.String("event", e.Event))
	return nil
}
