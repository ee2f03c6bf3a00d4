package dispatcher

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Sokol111/ecommerce-eventbus/pkg/messaging/events"
	"github.com/Sokol111/ecommerce-eventbus/pkg/messaging/schema"
	"github.com/Sokol111/ecommerce-eventbus/pkg/messaging/stream"
	"github.com/Sokol111/ecommerce-eventbus/pkg/webhook"
	"github.com/Sokol111/ecommerce-eventbus/pkg/webhook/dedup"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/propagation"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

const merchantCreatedSchema = `{
	"type": "record",
	"name": "MerchantCreated",
	"fields": [
		{"name": "merchant_id", "type": "string"},
		{"name": "email", "type": "string"}
	]
}`

const itemUpdatedSchema = `{
	"type": "record",
	"name": "ItemUpdated",
	"fields": [
		{"name": "id", "type": "long"}
	]
}`

type merchantCreated struct {
	MerchantID string `json:"merchant_id"`
	Email      string `json:"email"`
}

func newTestRegistry(t *testing.T) *events.Registry {
	t.Helper()
	r := events.NewRegistry(nil)
	require.NoError(t, r.Register(events.Descriptor{
		Name: "merchant.created", Version: 1, Direction: events.Outbound, Schema: merchantCreatedSchema,
	}))
	require.NoError(t, r.Register(events.Descriptor{
		Name: "merchant.synced", Version: 1, Direction: events.Inbound, Schema: merchantCreatedSchema,
	}))
	require.NoError(t, r.Register(events.Descriptor{
		Name: "webhook.catalog.item_updated", Version: 1, Direction: events.Inbound,
		ExtraFields: events.Lenient, Schema: itemUpdatedSchema,
	}))
	require.NoError(t, r.Register(webhook.ReceivedDescriptor(events.Outbound)))
	r.Seal()
	return r
}

func newTestTracer() *messageTracer {
	return newMessageTracer(tracenoop.NewTracerProvider(), propagation.TraceContext{})
}

// fakeJetStream records published messages.
type fakeJetStream struct {
	mu        sync.Mutex
	published []*nats.Msg
	calls     atomic.Int32
	publishFn func(call int, msg *nats.Msg) error
}

func (f *fakeJetStream) PublishMsg(ctx context.Context, msg *nats.Msg, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	call := int(f.calls.Add(1))
	if f.publishFn != nil {
		if err := f.publishFn(call, msg); err != nil {
			return nil, err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, msg)
	return &jetstream.PubAck{Stream: "EVENTS", Sequence: uint64(call)}, nil
}

func (f *fakeJetStream) messages() []*nats.Msg {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*nats.Msg(nil), f.published...)
}

// fakeMsg implements jetstream.Msg.
type fakeMsg struct {
	subject   string
	data      []byte
	headers   nats.Header
	delivered uint64

	acks       atomic.Int32
	naks       atomic.Int32
	inProgress atomic.Int32
	nakDelays  []time.Duration
	mu         sync.Mutex
}

func newFakeMsg(t *testing.T, env events.Envelope, delivered uint64) *fakeMsg {
	t.Helper()
	data, err := env.Marshal()
	require.NoError(t, err)
	return &fakeMsg{
		subject:   stream.SubjectPrefix + "." + stream.EncodeName(env.Event),
		data:      data,
		headers:   nats.Header{HeaderEvent: []string{string(env.Event)}},
		delivered: delivered,
	}
}

func (m *fakeMsg) Metadata() (*jetstream.MsgMetadata, error) {
	return &jetstream.MsgMetadata{NumDelivered: m.delivered}, nil
}
func (m *fakeMsg) Data() []byte                    { return m.data }
func (m *fakeMsg) Headers() nats.Header            { return m.headers }
func (m *fakeMsg) Subject() string                 { return m.subject }
func (m *fakeMsg) Reply() string                   { return "" }
func (m *fakeMsg) Ack() error                      { m.acks.Add(1); return nil }
func (m *fakeMsg) DoubleAck(context.Context) error { m.acks.Add(1); return nil }
func (m *fakeMsg) Nak() error                      { return m.NakWithDelay(0) }
func (m *fakeMsg) InProgress() error               { m.inProgress.Add(1); return nil }
func (m *fakeMsg) Term() error                     { return nil }
func (m *fakeMsg) TermWithReason(string) error     { return nil }
func (m *fakeMsg) NakWithDelay(delay time.Duration) error {
	m.naks.Add(1)
	m.mu.Lock()
	m.nakDelays = append(m.nakDelays, delay)
	m.mu.Unlock()
	return nil
}

func (m *fakeMsg) lastNakDelay() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.nakDelays) == 0 {
		return -1
	}
	return m.nakDelays[len(m.nakDelays)-1]
}

// fakeBatch implements jetstream.MessageBatch.
type fakeBatch struct {
	ch chan jetstream.Msg
}

func newFakeBatch(msgs ...jetstream.Msg) *fakeBatch {
	ch := make(chan jetstream.Msg, len(msgs))
	for _, m := range msgs {
		ch <- m
	}
	close(ch)
	return &fakeBatch{ch: ch}
}

func (b *fakeBatch) Messages() <-chan jetstream.Msg { return b.ch }
func (b *fakeBatch) Error() error                   { return nil }

// fakeSource hands out the queued batches, then empty ones.
type fakeSource struct {
	mu      sync.Mutex
	batches []*fakeBatch
}

func (s *fakeSource) Fetch(int, ...jetstream.FetchOpt) (jetstream.MessageBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.batches) == 0 {
		time.Sleep(time.Millisecond)
		return newFakeBatch(), nil
	}
	b := s.batches[0]
	s.batches = s.batches[1:]
	return b, nil
}

// fakeBinder records the consumer configuration it was asked to bind.
type fakeBinder struct {
	stream string
	cfg    jetstream.ConsumerConfig
}

func (b *fakeBinder) CreateOrUpdateConsumer(_ context.Context, stream string, cfg jetstream.ConsumerConfig) (jetstream.Consumer, error) {
	b.stream = stream
	b.cfg = cfg
	return nil, nil
}

func testConsumerConfig() ConsumerConfig {
	cfg := ConsumerConfig{Name: "catalog"}
	applyConsumerDefaults(&cfg)
	return cfg
}

type consumerFixture struct {
	consumer *Consumer
	js       *fakeJetStream
	registry *events.Registry
}

func newConsumerFixture(t *testing.T, cfg ConsumerConfig, handlers ...Handler) *consumerFixture {
	t.Helper()
	registry := newTestRegistry(t)
	js := &fakeJetStream{}
	c, err := newConsumer(consumerDeps{
		cfg:        cfg,
		handlers:   handlers,
		topology:   stream.NewTopology(stream.DefaultConfig()),
		webhooks:   registry,
		publisher:  js,
		validator:  schema.NewValidator(registry),
		classifier: webhook.NewClassifier(registry, dedup.NewMemoryStore(), time.Hour),
		tracer:     newTestTracer(),
		metrics:    NoopMetrics(),
		log:        zap.NewNop(),
	})
	require.NoError(t, err)
	return &consumerFixture{consumer: c, js: js, registry: registry}
}

func merchantEnvelope(t *testing.T) events.Envelope {
	t.Helper()
	payload, err := json.Marshal(merchantCreated{MerchantID: "m-1", Email: "a@example.com"})
	require.NoError(t, err)
	return events.NewEnvelope("merchant.created", 1, payload)
}

func webhookEnvelope(t *testing.T, topic, externalID string) events.Envelope {
	t.Helper()
	return webhookEnvelopeWithBody(t, topic, externalID, `{"id": 42}`)
}

func webhookEnvelopeWithBody(t *testing.T, topic, externalID, body string) events.Envelope {
	t.Helper()
	payload, err := json.Marshal(webhook.Received{
		Source:     "shopify",
		Topic:      topic,
		ExternalID: externalID,
		ReceivedAt: time.Now().UTC().Format(time.RFC3339),
		Body:       body,
	})
	require.NoError(t, err)
	return events.NewEnvelope(webhook.ReceivedEvent, 1, payload,
		events.WithExternal(events.External{Source: "shopify", Topic: topic, ID: externalID}))
}
