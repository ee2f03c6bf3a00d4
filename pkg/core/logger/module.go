package logger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

type loggerOptions struct {
	config *Config
}

// Option configures the logging module.
type Option func(*loggerOptions)

// WithLoggerConfig supplies a static Config instead of reading viper.
func WithLoggerConfig(cfg Config) Option {
	return func(o *loggerOptions) {
		o.config = &cfg
	}
}

// NewZapLoggingModule provides *zap.Logger and zap.AtomicLevel and routes fx events through zap.
func NewZapLoggingModule(opts ...Option) fx.Option {
	o := &loggerOptions{}
	for _, opt := range opts {
		opt(o)
	}

	var configOption fx.Option
	if o.config != nil {
		configOption = fx.Supply(*o.config)
	} else {
		configOption = fx.Provide(newConfig)
	}

	return fx.Options(
		configOption,
		fx.Provide(provideLogger),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
	)
}

func provideLogger(lc fx.Lifecycle, conf Config) (*zap.Logger, zap.AtomicLevel, error) {
	log, level, err := newLogger(conf)
	if err != nil {
		return nil, zap.AtomicLevel{}, fmt.Errorf("failed to create logger: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return ignoreSyncError(log.Sync())
		},
	})

	return log, level, nil
}

// ignoreSyncError drops the EINVAL/ENOTTY returned when syncing stderr on a terminal.
func ignoreSyncError(err error) error {
	if err == nil {
		return nil
	}
	var pathErr *os.PathError
	if errors.As(err, &pathErr) && (errors.Is(pathErr.Err, syscall.EINVAL) || errors.Is(pathErr.Err, syscall.ENOTTY)) {
		return nil
	}
	return err
}
