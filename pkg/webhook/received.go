package webhook

import "github.com/Sokol111/ecommerce-eventbus/pkg/messaging/events"

// ReceivedEvent carries every verified webhook into the stream. Consumers
// classify it and dispatch on the mapped internal name.
const ReceivedEvent events.Name = "webhook.received"

const receivedSchema = `{
  "type": "record",
  "name": "WebhookReceived",
  "namespace": "eventbus.webhook",
  "fields": [
    {"name": "source", "type": "string"},
    {"name": "topic", "type": "string"},
    {"name": "external_id", "type": "string"},
    {"name": "received_at", "type": "string"},
    {"name": "body", "type": "string"}
  ]
}`

// Received is the webhook.received payload. Body is the raw request body.
type Received struct {
	Source     string `json:"source"`
	Topic      string `json:"topic"`
	ExternalID string `json:"external_id"`
	ReceivedAt string `json:"received_at"`
	Body       string `json:"body"`
}

// ReceivedDescriptor declares webhook.received with the given direction.
func ReceivedDescriptor(direction events.Direction) events.Descriptor {
	return events.Descriptor{
		Name:        ReceivedEvent,
		Version:     1,
		Direction:   direction,
		ExtraFields: events.Strict,
		Schema:      receivedSchema,
		Description: "verified external webhook delivery",
	}
}
