package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// External marks an envelope as originating outside the fleet.
type External struct {
	Source string `json:"source"`
	Topic  string `json:"topic"`
	ID     string `json:"id"`
}

// Envelope is the wire wrapper for every event. Values are passed by copy and
// never mutated after NewEnvelope.
type Envelope struct {
	ID             string          `json:"id"`
	Event          Name            `json:"event"`
	Version        int             `json:"version"`
	CorrelationID  string          `json:"correlation_id"`
	CausationID    string          `json:"causation_id"`
	OccurredAt     time.Time       `json:"occurred_at"`
	Source         string          `json:"source,omitempty"`
	Payload        json.RawMessage `json:"payload"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
	External       *External       `json:"external,omitempty"`
}

type EnvelopeOption func(*Envelope)

// WithID overrides the generated message id.
func WithID(id string) EnvelopeOption {
	return func(e *Envelope) { e.ID = id }
}

func WithCorrelation(correlationID, causationID string) EnvelopeOption {
	return func(e *Envelope) {
		e.CorrelationID = correlationID
		e.CausationID = causationID
	}
}

func WithOccurredAt(t time.Time) EnvelopeOption {
	return func(e *Envelope) { e.OccurredAt = t.UTC() }
}

func WithSource(service string) EnvelopeOption {
	return func(e *Envelope) { e.Source = service }
}

func WithIdempotencyKey(key string) EnvelopeOption {
	return func(e *Envelope) { e.IdempotencyKey = key }
}

func WithExternal(ext External) EnvelopeOption {
	return func(e *Envelope) { e.External = &ext }
}

// NewEnvelope builds an envelope with a fresh id and the current time.
// Correlation defaults to a root chain headed by the new id.
func NewEnvelope(name Name, version int, payload json.RawMessage, opts ...EnvelopeOption) Envelope {
	e := Envelope{
		ID:         uuid.NewString(),
		Event:      name,
		Version:    version,
		OccurredAt: time.Now().UTC(),
		Payload:    append(json.RawMessage(nil), payload...),
	}
	for _, opt := range opts {
		opt(&e)
	}
	if e.CorrelationID == "" {
		e.CorrelationID = uuid.NewString()
	}
	if e.CausationID == "" {
		e.CausationID = e.ID
	}
	return e
}

// IsExternal reports whether the envelope carries a webhook reference.
func (e Envelope) IsExternal() bool {
	return e.External != nil
}

func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEnvelope parses and structurally checks a wire message.
// The payload itself is not validated here.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}

	var missing []string
	if e.ID == "" {
		missing = append(missing, "id")
	}
	if e.Event == "" {
		missing = append(missing, "event")
	}
	if e.Version < 1 {
		missing = append(missing, "version")
	}
	if e.CorrelationID == "" {
		missing = append(missing, "correlation_id")
	}
	if e.CausationID == "" {
		missing = append(missing, "causation_id")
	}
	if len(e.Payload) == 0 {
		missing = append(missing, "payload")
	}
	if len(missing) > 0 {
		return Envelope{}, fmt.Errorf("decode envelope: missing %v", missing)
	}
	if e.External != nil && (e.External.Source == "" || e.External.ID == "") {
		return Envelope{}, errors.New("decode envelope: external reference requires source and id")
	}
	return e, nil
}
