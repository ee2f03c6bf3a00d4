package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
)

// handlerExecutor runs one handler invocation under a deadline and turns a
// panic into a permanent failure.
type handlerExecutor struct {
	consumer string
	timeout  time.Duration
	metrics  *Metrics
	log      *zap.Logger
}

func newHandlerExecutor(consumer string, timeout time.Duration, metrics *Metrics, log *zap.Logger) *handlerExecutor {
	return &handlerExecutor{consumer: consumer, timeout: timeout, metrics: metrics, log: log}
}

func (e *handlerExecutor) execute(ctx context.Context, h Handler, msg Message) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	err := e.invoke(ctx, h, msg)
	e.metrics.RecordHandlerDuration(ctx, e.consumer, msg.Event, time.Since(start), err != nil && !errors.Is(err, ErrSkipMessage))

	if err == nil || errors.Is(err, ErrSkipMessage) {
		return err
	}
	var panicErr *PanicError
	if errors.As(err, &panicErr) {
		e.log.Error("handler panicked",
			zap.String("event", string(msg.Event)),
			zap.Any("panic", panicErr.Panic),
			zap.ByteString("stack", panicErr.Stack))
	}
	return &HandlerError{Event: msg.Event, MessageID: msg.Envelope.ID, Err: err}
}

func (e *handlerExecutor) invoke(ctx context.Context, h Handler, msg Message) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %w", ErrPermanent, &PanicError{Panic: rec, Stack: debug.Stack()})
		}
	}()
	return h.Handle(ctx, msg)
}
