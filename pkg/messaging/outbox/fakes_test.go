package outbox

import (
	"context"
	"sync"
	"time"

	"github.com/Sokol111/ecommerce-eventbus/pkg/messaging/events"
)

type fakeStore struct {
	mu        sync.Mutex
	created   []*entry
	createErr error
	due       []*entry
	fetchErr  error
	sent      []string
	sentErr   error
}

func (s *fakeStore) Create(_ context.Context, e *entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	e.Status = StatusProcessing
	s.created = append(s.created, e)
	return nil
}

func (s *fakeStore) FetchAndLock(context.Context) (*entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	if len(s.due) == 0 {
		return nil, errEntryNotFound
	}
	e := s.due[0]
	s.due = s.due[1:]
	e.AttemptsToSend++
	return e, nil
}

func (s *fakeStore) UpdateAsSentByIds(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sentErr != nil {
		return s.sentErr
	}
	s.sent = append(s.sent, ids...)
	return nil
}

func (s *fakeStore) sentIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

type fakePreparer struct {
	err error
}

func (p fakePreparer) Prepare(_ context.Context, name events.Name, _ any, opts ...events.EnvelopeOption) (events.Envelope, error) {
	if p.err != nil {
		return events.Envelope{}, p.err
	}
	base := []events.EnvelopeOption{events.WithID("evt-1"), events.WithSource("merchant-service")}
	return events.NewEnvelope(name, 1, []byte(`{"merchant_id":"m-1"}`), append(base, opts...)...), nil
}

type fakeRelayer struct {
	mu   sync.Mutex
	envs []events.Envelope
	ctxs []context.Context
	err  error
}

func (r *fakeRelayer) PublishEnvelope(ctx context.Context, env events.Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.envs = append(r.envs, env)
	r.ctxs = append(r.ctxs, ctx)
	return nil
}

func (r *fakeRelayer) relayed() []events.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Envelope(nil), r.envs...)
}

func testConfig() Config {
	cfg := Config{PollInterval: 5 * time.Millisecond, ErrorInterval: 5 * time.Millisecond, ConfirmBatch: 2, ConfirmInterval: 10 * time.Millisecond}
	applyDefaults(&cfg)
	return cfg
}
