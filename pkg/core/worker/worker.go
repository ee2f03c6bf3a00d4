package worker

import (
	"context"
	"fmt"

	"github.com/Sokol111/ecommerce-eventbus/pkg/core/health"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Runnable is a long-lived loop. Run returns nil on cancellation and an error
// only when the loop cannot continue.
type Runnable interface {
	Run(ctx context.Context) error
}

type Options struct {
	WaitReady       bool
	WaitTraffic     bool
	ShutdownOnError bool
}

type Option func(*Options)

// WithReady delays Run until every registered component is ready.
func WithReady() Option {
	return func(o *Options) { o.WaitReady = true }
}

// WithTrafficReady delays Run until the process is allowed to take work.
func WithTrafficReady() Option {
	return func(o *Options) { o.WaitTraffic = true }
}

// WithShutdown stops the application when Run fails.
func WithShutdown() Option {
	return func(o *Options) { o.ShutdownOnError = true }
}

// Worker is the handle collected in the "workers" group.
type Worker struct {
	name       string
	run        func(ctx context.Context) error
	opts       Options
	log        *zap.Logger
	readiness  health.ReadinessWaiter
	shutdowner fx.Shutdowner

	cancel context.CancelFunc
	done   chan struct{}
}

func (w *Worker) Name() string { return w.name }

func (w *Worker) start() {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})
	go func() {
		defer close(w.done)
		w.loop(ctx)
	}()
}

func (w *Worker) loop(ctx context.Context) {
	if w.opts.WaitReady {
		if err := w.readiness.WaitReady(ctx); err != nil {
			w.log.Info("worker cancelled before components were ready")
			return
		}
	}
	if w.opts.WaitTraffic {
		if err := w.readiness.WaitForTrafficReady(ctx); err != nil {
			w.log.Info("worker cancelled before traffic readiness")
			return
		}
	}

	w.log.Info("worker started")
	err := w.run(ctx)
	if err == nil {
		w.log.Info("worker stopped")
		return
	}

	if !w.opts.ShutdownOnError {
		w.log.Error("worker stopped with error", zap.Error(err))
		return
	}
	w.log.Error("worker failed, shutting down", zap.Error(err))
	if shutdownErr := w.shutdowner.Shutdown(fx.ExitCode(1)); shutdownErr != nil {
		w.log.Error("failed to initiate shutdown", zap.Error(shutdownErr))
	}
}

// stop cancels the loop and waits for it until ctx expires.
func (w *Worker) stop(ctx context.Context) error {
	if w.cancel == nil {
		return nil
	}
	w.cancel()
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.log.Error("worker did not stop before the shutdown deadline", zap.Error(ctx.Err()))
		return fmt.Errorf("worker %s: %w", w.name, ctx.Err())
	}
}

func newWorker(
	lc fx.Lifecycle,
	log *zap.Logger,
	shutdowner fx.Shutdowner,
	readiness health.ReadinessWaiter,
	name string,
	run func(context.Context) error,
	opts Options,
) *Worker {
	w := &Worker{
		name:       name,
		run:        run,
		opts:       opts,
		log:        log.With(zap.String("worker", name)),
		readiness:  readiness,
		shutdowner: shutdowner,
	}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			w.start()
			return nil
		},
		OnStop: w.stop,
	})
	return w
}

// Register provides a Worker driving the Run method of the T found in the container.
//
//	worker.Register[*dispatcher.Consumer]("orders-consumer", worker.WithReady(), worker.WithShutdown())
func Register[T Runnable](name string, opts ...Option) any {
	o := Options{}
	for _, opt := range opts {
		opt(&o)
	}
	return fx.Annotate(
		func(lc fx.Lifecycle, log *zap.Logger, shutdowner fx.Shutdowner, readiness health.ReadinessWaiter, dep T) *Worker {
			return newWorker(lc, log, shutdowner, readiness, name, dep.Run, o)
		},
		fx.ResultTags(`group:"workers"`),
	)
}

// Invoke forces construction of every worker in the group.
func Invoke() fx.Option {
	return fx.Invoke(fx.Annotate(func([]*Worker) {}, fx.ParamTags(`group:"workers"`)))
}
