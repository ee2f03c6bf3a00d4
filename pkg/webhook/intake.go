package webhook

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Sokol111/ecommerce-eventbus/pkg/messaging/events"
	"go.uber.org/zap"
)

const (
	headerShopifyTopic     = "X-Shopify-Topic"
	headerShopifyWebhookID = "X-Shopify-Webhook-Id"
	headerShopifyEventID   = "X-Shopify-Event-Id"
	headerGitHubEvent      = "X-GitHub-Event"
	headerGitHubDelivery   = "X-GitHub-Delivery"
)

// Delivery is one inbound webhook request.
type Delivery struct {
	Source  string
	Headers http.Header
	Body    []byte
}

// Publisher sends an event into the stream.
type Publisher interface {
	Publish(ctx context.Context, name events.Name, payload any, opts ...events.EnvelopeOption) (events.Envelope, error)
}

// Intake authenticates deliveries and republishes them as webhook.received.
type Intake struct {
	publisher Publisher
	verifier  *Verifier
	secrets   map[string]string
	log       *zap.Logger
}

func NewIntake(publisher Publisher, verifier *Verifier, cfg Config, log *zap.Logger) *Intake {
	secrets := make(map[string]string, len(cfg.Sources))
	for source, sc := range cfg.Sources {
		secrets[strings.ToLower(source)] = sc.Secret
	}
	return &Intake{publisher: publisher, verifier: verifier, secrets: secrets, log: log}
}

// Accept verifies d and publishes it. The returned envelope carries the
// external reference consumers deduplicate on.
func (i *Intake) Accept(ctx context.Context, d Delivery) (events.Envelope, error) {
	source := strings.ToLower(d.Source)
	secret, ok := i.secrets[source]
	if !ok || secret == "" {
		return events.Envelope{}, fmt.Errorf("%w: no secret configured for %q", ErrUnsupportedSource, d.Source)
	}
	if err := i.verifier.Verify(source, secret, d.Headers, d.Body); err != nil {
		i.log.Warn("webhook rejected", zap.String("source", source), zap.Error(err))
		return events.Envelope{}, err
	}

	ext := identify(source, d.Headers, d.Body)
	payload := Received{
		Source:     ext.Source,
		Topic:      ext.Topic,
		ExternalID: ext.ID,
		ReceivedAt: time.Now().UTC().Format(time.RFC3339Nano),
		Body:       string(d.Body),
	}

	env, err := i.publisher.Publish(ctx, ReceivedEvent, payload,
		events.WithExternal(ext),
		events.WithIdempotencyKey(ext.Source+":"+ext.ID),
	)
	if err != nil {
		return events.Envelope{}, fmt.Errorf("publish %s webhook %s: %w", source, ext.ID, err)
	}

	i.log.Debug("webhook accepted",
		zap.String("source", source),
		zap.String("topic", ext.Topic),
		zap.String("external_id", ext.ID),
		zap.String("message_id", env.ID))
	return env, nil
}

// identify reads the provider's topic and delivery id. A delivery without an
// id is keyed by the SHA-256 of its body.
func identify(source string, headers http.Header, body []byte) events.External {
	ext := events.External{Source: source}
	switch source {
	case SourceShopify:
		ext.Topic = headers.Get(headerShopifyTopic)
		ext.ID = headers.Get(headerShopifyWebhookID)
		if ext.ID == "" {
			ext.ID = headers.Get(headerShopifyEventID)
		}
	case SourceGitHub:
		ext.Topic = headers.Get(headerGitHubEvent)
		ext.ID = headers.Get(headerGitHubDelivery)
	case SourceStripe:
		var evt struct {
			ID   string `json:"id"`
			Type string `json:"type"`
		}
		if json.Unmarshal(body, &evt) == nil {
			ext.Topic, ext.ID = evt.Type, evt.ID
		}
	}
	if ext.ID == "" {
		sum := sha256.Sum256(body)
		ext.ID = hex.EncodeToString(sum[:])
	}
	return ext
}
