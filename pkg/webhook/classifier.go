// Package webhook admits externally sourced events into the internal event
// space: it verifies their signatures, maps their topics onto internal event
// names and filters out repeats.
package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/Sokol111/ecommerce-eventbus/pkg/messaging/events"
	"github.com/Sokol111/ecommerce-eventbus/pkg/webhook/dedup"
)

type Outcome int

const (
	Unhandled Outcome = iota
	Duplicate
	Fresh
)

func (o Outcome) String() string {
	switch o {
	case Unhandled:
		return "unhandled"
	case Duplicate:
		return "duplicate"
	case Fresh:
		return "fresh"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Classification is the verdict for one external event. Event is set only
// for Fresh and Duplicate.
type Classification struct {
	Outcome Outcome
	Event   events.Name
	Key     dedup.Key
}

// TopicClassifier resolves an allowed external topic to an internal name.
type TopicClassifier interface {
	ClassifyWebhookTopic(source, rawTopic string) (events.Name, bool)
}

type Classifier struct {
	topics TopicClassifier
	store  dedup.Store
	ttl    time.Duration
}

func NewClassifier(topics TopicClassifier, store dedup.Store, ttl time.Duration) *Classifier {
	return &Classifier{topics: topics, store: store, ttl: ttl}
}

// Classify maps rawTopic through the allow-list and claims (source,
// externalID) for owner. Topics off the allow-list never touch the store.
func (c *Classifier) Classify(ctx context.Context, source, rawTopic, externalID, owner string) (Classification, error) {
	name, ok := c.topics.ClassifyWebhookTopic(source, rawTopic)
	if !ok {
		return Classification{Outcome: Unhandled}, nil
	}

	key := dedup.Key{Source: source, ExternalID: externalID}
	fresh, err := c.store.Claim(ctx, key, owner, c.ttl)
	if err != nil {
		return Classification{}, fmt.Errorf("classify %s %s: %w", source, rawTopic, err)
	}

	out := Classification{Outcome: Duplicate, Event: name, Key: key}
	if fresh {
		out.Outcome = Fresh
	}
	return out, nil
}

// ClassifyEnvelope classifies an externally sourced envelope, using its
// message id as the owner.
func (c *Classifier) ClassifyEnvelope(ctx context.Context, env events.Envelope) (Classification, error) {
	if env.External == nil {
		return Classification{}, ErrNotExternal
	}
	return c.Classify(ctx, env.External.Source, env.External.Topic, env.External.ID, env.ID)
}
