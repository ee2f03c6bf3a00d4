package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Sokol111/ecommerce-eventbus/pkg/core/logger"
	"github.com/Sokol111/ecommerce-eventbus/pkg/messaging/correlation"
	"github.com/Sokol111/ecommerce-eventbus/pkg/messaging/events"
	"github.com/Sokol111/ecommerce-eventbus/pkg/messaging/schema"
	"github.com/Sokol111/ecommerce-eventbus/pkg/messaging/stream"
	"github.com/Sokol111/ecommerce-eventbus/pkg/observability/tracing"
	"github.com/Sokol111/ecommerce-eventbus/pkg/webhook"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const fetchErrorPause = time.Second

type headerReader interface {
	Headers() nats.Header
}

// inboundMsg is the part of jetstream.Msg the consumer touches.
type inboundMsg interface {
	headerReader
	Metadata() (*jetstream.MsgMetadata, error)
	Data() []byte
	Subject() string
	Ack() error
	Nak() error
	NakWithDelay(delay time.Duration) error
	InProgress() error
}

// messageSource binds the durable consumer and fetches from it.
type messageSource interface {
	Fetch(batch int, opts ...jetstream.FetchOpt) (jetstream.MessageBatch, error)
}

type consumerBinder interface {
	CreateOrUpdateConsumer(ctx context.Context, stream string, cfg jetstream.ConsumerConfig) (jetstream.Consumer, error)
}

type webhookClassifier interface {
	ClassifyEnvelope(ctx context.Context, env events.Envelope) (webhook.Classification, error)
}

type webhookTopics interface {
	IsWebhookEvent(name events.Name) bool
}

func eventFromSubject(subject string) events.Name {
	if name, ok := stream.DecodeSubject(subject); ok {
		return name
	}
	return "unknown"
}

// Consumer drives one durable pull consumer on the primary stream.
type Consumer struct {
	cfg        ConsumerConfig
	routes     routes
	subjects   []string
	stream     string
	binder     consumerBinder
	validator  *schema.Validator
	classifier webhookClassifier
	executor   *handlerExecutor
	results    *resultHandler
	tracer     *messageTracer
	metrics    *Metrics
	throttler  *logger.LogThrottler
	log        *zap.Logger

	// running holds the subjects of messages being processed.
	running     sync.Map
	cancelGrace time.Duration

	// source is set by Run; tests may set it directly.
	source messageSource
}

type consumerDeps struct {
	cfg        ConsumerConfig
	handlers   []Handler
	topology   *stream.Topology
	webhooks   webhookTopics
	binder     consumerBinder
	publisher  streamPublisher
	validator  *schema.Validator
	classifier webhookClassifier
	tracer     *messageTracer
	metrics    *Metrics
	log        *zap.Logger
}

func newConsumer(d consumerDeps) (*Consumer, error) {
	r, err := newRoutes(d.handlers)
	if err != nil {
		return nil, fmt.Errorf("consumer %s: %w", d.cfg.Name, err)
	}
	if len(r) == 0 {
		return nil, fmt.Errorf("consumer %s: no handlers registered", d.cfg.Name)
	}
	subjects, err := filterSubjects(r, d.topology, d.webhooks)
	if err != nil {
		return nil, fmt.Errorf("consumer %s: %w", d.cfg.Name, err)
	}

	return &Consumer{
		cfg:         d.cfg,
		routes:      r,
		subjects:    subjects,
		stream:      d.topology.PrimaryStream(),
		binder:      d.binder,
		validator:   d.validator,
		classifier:  d.classifier,
		executor:    newHandlerExecutor(d.cfg.Name, d.cfg.ProcessingTimeout, d.metrics, d.log),
		results:     newResultHandler(d.cfg, newDeadLetterer(d.publisher, d.topology, d.cfg, d.tracer, d.log), d.metrics, d.log),
		tracer:      d.tracer,
		metrics:     d.metrics,
		throttler:   logger.NewLogThrottler(d.log, time.Minute),
		log:         d.log,
		cancelGrace: handlerCancelGrace,
	}, nil
}

// filterSubjects returns the subjects a consumer must receive: one per
// handled event, with webhook targets folded into webhook.received.
func filterSubjects(r routes, topology *stream.Topology, webhooks webhookTopics) ([]string, error) {
	var subjects []string
	for name := range r {
		target := name
		if webhooks != nil && webhooks.IsWebhookEvent(name) {
			target = webhook.ReceivedEvent
		}
		subject, err := topology.SubjectFor(target)
		if err != nil {
			return nil, err
		}
		subjects = append(subjects, subject)
	}
	subjects = lo.Uniq(subjects)
	sort.Strings(subjects)
	return subjects, nil
}

// Subjects are the filter subjects of the durable consumer.
func (c *Consumer) Subjects() []string {
	return c.subjects
}

func (c *Consumer) bind(ctx context.Context) (messageSource, error) {
	cons, err := c.binder.CreateOrUpdateConsumer(ctx, c.stream, jetstream.ConsumerConfig{
		Durable:        c.cfg.Durable,
		AckPolicy:      jetstream.AckExplicitPolicy,
		AckWait:        c.cfg.AckWait,
		MaxDeliver:     unlimitedDeliveries,
		MaxAckPending:  c.cfg.Concurrency * c.cfg.BatchSize,
		FilterSubjects: c.subjects,
	})
	if err != nil {
		return nil, fmt.Errorf("bind consumer %s on stream %s: %w", c.cfg.Durable, c.stream, err)
	}
	return cons, nil
}

// Run fetches and dispatches until ctx is cancelled, then drains.
func (c *Consumer) Run(ctx context.Context) error {
	if c.source == nil {
		src, err := c.bind(ctx)
		if err != nil {
			return err
		}
		c.source = src
	}
	c.log.Info("consumer started", zap.Strings("subjects", c.subjects), zap.String("stream", c.stream))

	// handlers outlive ctx until the drain deadline
	handlerCtx, cancelHandlers := context.WithCancel(logger.With(context.WithoutCancel(ctx), c.log))
	defer cancelHandlers()

	sem := semaphore.NewWeighted(int64(c.cfg.Concurrency))
	var inFlight errgroup.Group

	for ctx.Err() == nil {
		batch, err := c.source.Fetch(c.cfg.BatchSize, jetstream.FetchMaxWait(c.cfg.FetchWait))
		if err != nil {
			c.throttler.Warn("fetch", "fetch failed", zap.Error(err))
			sleep(ctx, fetchErrorPause)
			continue
		}

		for msg := range batch.Messages() {
			if ctx.Err() != nil {
				c.requeue(msg)
				continue
			}
			if err := sem.Acquire(ctx, 1); err != nil {
				c.requeue(msg)
				continue
			}
			inFlight.Go(func() error {
				defer sem.Release(1)
				c.process(handlerCtx, msg)
				return nil
			})
		}
		if err := batch.Error(); err != nil && !errors.Is(err, nats.ErrTimeout) && !errors.Is(err, context.DeadlineExceeded) {
			c.throttler.Warn("batch", "fetch batch ended with error", zap.Error(err))
		}
	}

	c.drain(&inFlight, cancelHandlers)
	return nil
}

// drain waits for in-flight handlers, cancelling them at the deadline.
func (c *Consumer) drain(inFlight *errgroup.Group, cancelHandlers context.CancelFunc) {
	done := make(chan struct{})
	go func() {
		_ = inFlight.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.log.Info("consumer drained")
		return
	case <-time.After(c.cfg.DrainTimeout):
		c.log.Warn("drain timeout reached, cancelling in-flight handlers", zap.Duration("drain_timeout", c.cfg.DrainTimeout))
		cancelHandlers()
	}

	select {
	case <-done:
		c.log.Info("consumer drained after cancelling handlers")
	case <-time.After(c.cancelGrace):
		// left to JetStream redelivery once ack-wait expires
		c.log.Error("handlers ignored cancellation, abandoning them",
			zap.Strings("subjects", c.stragglers()),
			zap.Duration("grace", c.cancelGrace))
	}
}

func (c *Consumer) stragglers() []string {
	var subjects []string
	c.running.Range(func(_, subject any) bool {
		subjects = append(subjects, subject.(string))
		return true
	})
	sort.Strings(subjects)
	return subjects
}

func (c *Consumer) requeue(msg inboundMsg) {
	if err := msg.Nak(); err != nil {
		c.log.Warn("failed to nak unstarted message", zap.String("subject", msg.Subject()), zap.Error(err))
	}
}

func (c *Consumer) process(ctx context.Context, msg inboundMsg) {
	c.running.Store(msg, msg.Subject())
	defer c.running.Delete(msg)

	var delivered uint64 = 1
	if meta, err := msg.Metadata(); err == nil {
		delivered = meta.NumDelivered
	}

	ctx = c.tracer.extract(ctx, msg)
	ctx, span := c.tracer.startConsume(ctx, c.cfg.Name, msg.Subject(), delivered)
	defer span.End()

	res := c.dispatch(ctx, msg, delivered)
	res.delivered = delivered
	c.results.handle(ctx, msg, res, span)
}

// dispatch walks received, validated, classified and dispatched.
func (c *Consumer) dispatch(ctx context.Context, msg inboundMsg, delivered uint64) outcome {
	env, err := events.DecodeEnvelope(msg.Data())
	if err != nil {
		return outcome{event: eventFromSubject(msg.Subject()), err: Permanent(err)}
	}
	res := outcome{event: env.Event, messageID: env.ID}

	ctx = correlation.Handling(ctx, env)
	ctx = logger.WithFields(ctx, tracing.LogFields(ctx)...)

	valid := c.validator.Validate(env.Event, env.Version, env.Payload)
	if !valid.OK() {
		res.err = Permanent(valid.Err)
		return res
	}

	target := env.Event
	if env.IsExternal() && c.classifier != nil {
		cls, err := c.classifier.ClassifyEnvelope(ctx, env)
		if err != nil {
			// dedup store outage is transient
			res.err = err
			return res
		}
		switch cls.Outcome {
		case webhook.Unhandled:
			res.quiet = OutcomeUnhandled
			return res
		case webhook.Duplicate:
			c.metrics.RecordDuplicate(ctx, env.External.Source)
			logger.Get(ctx).Info("duplicate webhook dropped",
				zap.Error(&DuplicateMessageError{MessageID: env.ID, Event: cls.Event, Key: cls.Key.String()}))
			res.event = cls.Event
			res.quiet = OutcomeDuplicate
			return res
		}
		target = cls.Event
		res.event = target
	}

	h, ok := c.routes[target]
	if !ok {
		if target != env.Event {
			// another consumer owns this webhook
			res.quiet = OutcomeUnhandled
			return res
		}
		res.err = fmt.Errorf("%w: %w for %s", ErrPermanent, ErrNoHandler, target)
		return res
	}

	out := Message{
		Event:     target,
		Envelope:  env,
		Payload:   valid.Payload,
		Subject:   msg.Subject(),
		Delivered: delivered,
	}
	if target != env.Event {
		if err := c.webhookBody(target, &out); err != nil {
			res.err = Permanent(err)
			return res
		}
	}

	res.err = c.executor.execute(ctx, h, out)
	return res
}

// webhookBody swaps in the provider body, validated against the mapped
// event. Bodies of unregistered targets leave msg untouched.
func (c *Consumer) webhookBody(target events.Name, msg *Message) error {
	body, _ := msg.Payload["body"].(string)
	res := c.validator.ValidateCurrent(target, []byte(body))
	var notFound *events.NotFoundError
	if errors.As(res.Err, &notFound) {
		return nil
	}
	if res.Err != nil {
		return res.Err
	}
	msg.Payload = res.Payload
	msg.raw = []byte(body)
	return nil
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
