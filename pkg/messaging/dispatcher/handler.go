package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Sokol111/ecommerce-eventbus/pkg/messaging/events"
)

// Message is what a handler receives. For a webhook delivery Event is the
// mapped internal name while Envelope still describes webhook.received.
type Message struct {
	Event    events.Name
	Envelope events.Envelope
	// Payload is the validated payload, numbers as json.Number. For a
	// webhook it is the provider body checked against Event.
	Payload   map[string]any
	Subject   string
	Delivered uint64

	// raw backs Decode when it differs from the envelope payload.
	raw []byte
}

// Decode unmarshals the dispatched payload into v.
func (m Message) Decode(v any) error {
	raw := m.raw
	if raw == nil {
		raw = m.Envelope.Payload
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", m.Event, err)
	}
	return nil
}

// Handler processes one event. Return nil to acknowledge, ErrSkipMessage to
// acknowledge without further action, an ErrPermanent wrapped error to
// dead-letter at once, and any other error to have the message redelivered.
type Handler interface {
	Event() events.Name
	Handle(ctx context.Context, msg Message) error
}

type funcHandler struct {
	event events.Name
	fn    func(ctx context.Context, msg Message) error
}

func (h funcHandler) Event() events.Name { return h.event }

func (h funcHandler) Handle(ctx context.Context, msg Message) error { return h.fn(ctx, msg) }

// On binds fn to event.
func On(event events.Name, fn func(ctx context.Context, msg Message) error) Handler {
	return funcHandler{event: event, fn: fn}
}

// routes maps event names to handlers of one consumer.
type routes map[events.Name]Handler

func newRoutes(handlers []Handler) (routes, error) {
	r := make(routes, len(handlers))
	for _, h := range handlers {
		name := h.Event()
		if err := name.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r[name]; dup {
			return nil, fmt.Errorf("event %s has more than one handler", name)
		}
		r[name] = h
	}
	return r, nil
}
