package dispatcher

import (
	"context"
	"strconv"
	"time"

	"github.com/Sokol111/ecommerce-eventbus/pkg/messaging/events"
	"github.com/cenkalti/backoff/v4"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

type deadLetterResolver interface {
	DeadLetterSubjectFor(name events.Name) (string, error)
}

// deadLetterer republishes a failed message, body untouched, to dlq.<name>.
type deadLetterer struct {
	js       streamPublisher
	topology deadLetterResolver
	timeout  time.Duration
	tries    int
	tracer   *messageTracer
	log      *zap.Logger
	now      func() time.Time
}

func newDeadLetterer(js streamPublisher, topology deadLetterResolver, cfg ConsumerConfig, tracer *messageTracer, log *zap.Logger) *deadLetterer {
	return &deadLetterer{
		js:       js,
		topology: topology,
		timeout:  cfg.DeadLetterTimeout,
		tries:    cfg.DeadLetterTries,
		tracer:   tracer,
		log:      log,
		now:      time.Now,
	}
}

// send returns an error when the dead-letter stream did not acknowledge
// any attempt. The caller must then leave the message on the primary stream.
// The ack timer of msg is restarted before every attempt.
func (d *deadLetterer) send(ctx context.Context, msg inboundMsg, name events.Name, messageID string, delivered uint64, cause error) error {
	subject, err := d.topology.DeadLetterSubjectFor(name)
	if err != nil {
		return err
	}

	ctx, span := d.tracer.startDeadLetter(ctx, msg.Subject(), subject)
	defer span.End()

	out := nats.NewMsg(subject)
	out.Data = msg.Data()
	for k, v := range msg.Headers() {
		out.Header[k] = append([]string(nil), v...)
	}
	out.Header.Del(jetstream.MsgIDHeader)
	out.Header.Set(HeaderDLQError, cause.Error())
	out.Header.Set(HeaderDLQOriginalSubject, msg.Subject())
	out.Header.Set(HeaderDLQDeliveryCount, strconv.FormatUint(delivered, 10))
	out.Header.Set(HeaderDLQTimestamp, d.now().UTC().Format(time.RFC3339))
	d.tracer.inject(ctx, out)

	var opts []jetstream.PublishOpt
	if messageID != "" {
		opts = append(opts, jetstream.WithMsgID(messageID))
	}

	attempt := 0
	operation := func() error {
		attempt++
		if err := msg.InProgress(); err != nil {
			d.log.Warn("failed to extend ack deadline", zap.String("subject", msg.Subject()), zap.Error(err))
		}
		pubCtx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()
		_, err := d.js.PublishMsg(pubCtx, out, opts...)
		if err != nil && attempt < d.tries {
			d.log.Warn("dead-letter publish attempt failed",
				zap.String("dlq_subject", subject),
				zap.Int("attempt", attempt),
				zap.Error(err))
		}
		return err
	}
	if err := backoff.Retry(operation, d.retryPolicy(ctx)); err != nil {
		failSpan(span, err, "dead-letter publish failed")
		return err
	}

	span.SetStatus(codes.Ok, "message dead-lettered")
	d.log.Info("message dead-lettered",
		zap.String("dlq_subject", subject),
		zap.String("original_subject", msg.Subject()),
		zap.Uint64("delivered", delivered),
		zap.NamedError("cause", cause))
	return nil
}

func (d *deadLetterer) retryPolicy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = deadLetterRetryInitial
	b.MaxInterval = deadLetterRetryMax
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(d.tries-1)), ctx)
}
