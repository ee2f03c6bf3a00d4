// Package correlation carries correlation and causation ids across event hops.
//
// A root publish starts a chain: its correlation id is fresh and its causation
// id is its own message id. A publish made while handling another event
// continues that chain: the correlation id is copied and the causation id
// points at the consumed event.
package correlation

import (
	"context"

	"github.com/Sokol111/ecommerce-eventbus/pkg/core/logger"
	"github.com/Sokol111/ecommerce-eventbus/pkg/messaging/events"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// IDs are the chain identifiers stamped on an envelope.
type IDs struct {
	CorrelationID string
	CausationID   string
}

// Parent identifies the consumed event a publish reacts to.
type Parent struct {
	ID            string
	CorrelationID string
}

// ParentOf extracts the chain identity of a consumed envelope.
func ParentOf(env events.Envelope) Parent {
	return Parent{ID: env.ID, CorrelationID: env.CorrelationID}
}

func Root(messageID string) IDs {
	return IDs{CorrelationID: uuid.NewString(), CausationID: messageID}
}

func ReactionTo(parent Parent) IDs {
	return IDs{CorrelationID: parent.CorrelationID, CausationID: parent.ID}
}

// For picks Root or ReactionTo depending on whether ctx carries a parent.
func For(ctx context.Context, messageID string) IDs {
	if parent, ok := ParentFrom(ctx); ok {
		return ReactionTo(parent)
	}
	return Root(messageID)
}

// Option converts the ids into an envelope option.
func (ids IDs) Option() events.EnvelopeOption {
	return events.WithCorrelation(ids.CorrelationID, ids.CausationID)
}

type parentKey struct{}

func WithParent(ctx context.Context, parent Parent) context.Context {
	return context.WithValue(ctx, parentKey{}, parent)
}

func ParentFrom(ctx context.Context) (Parent, bool) {
	parent, ok := ctx.Value(parentKey{}).(Parent)
	return parent, ok && parent.ID != ""
}

// Fields returns the zap fields describing env's position in its chain.
func Fields(env events.Envelope) []zap.Field {
	return []zap.Field{
		zap.String("message_id", env.ID),
		zap.String("event", string(env.Event)),
		zap.String("correlation_id", env.CorrelationID),
		zap.String("causation_id", env.CausationID),
	}
}

// Handling prepares a handler context: the envelope becomes the parent of any
// publish made with it, and the context logger gains the chain ids.
func Handling(ctx context.Context, env events.Envelope) context.Context {
	ctx = WithParent(ctx, ParentOf(env))
	return logger.WithFields(ctx, Fields(env)...)
}
