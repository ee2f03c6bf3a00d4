package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Sokol111/ecommerce-eventbus/pkg/core"
	"github.com/Sokol111/ecommerce-eventbus/pkg/core/config"
	"github.com/Sokol111/ecommerce-eventbus/pkg/core/logger"
	"go.uber.org/fx"
	"go.uber.org/zap/zapcore"
)

const (
	serviceName    = "eventctl"
	startupTimeout = 30 * time.Second
	stopTimeout    = 10 * time.Second
)

// runApp starts an fx application made of the core modules and opts, calls
// run and stops the application again.
func runApp(flags *globalFlags, run func(ctx context.Context) error, opts ...fx.Option) error {
	level := zapcore.WarnLevel
	if flags.verbose {
		level = zapcore.InfoLevel
	}

	coreOpts := []core.Option{
		core.WithAppConfig(config.AppConfig{
			ConfigFile:     flags.configPath,
			ServiceName:    serviceName,
			ServiceVersion: version,
			Environment:    flags.environment,
		}),
		core.WithLoggerConfig(logger.Config{Level: level, Development: true, StacktraceLevel: zapcore.FatalLevel}),
	}
	if flags.configPath != "" {
		coreOpts = append(coreOpts, core.WithConfigPath(flags.configPath))
	} else {
		coreOpts = append(coreOpts, core.WithoutConfigFile())
	}

	app := fx.New(append([]fx.Option{core.NewCoreModule(coreOpts...)}, opts...)...)
	if err := app.Err(); err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}

	startCtx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}

	runErr := run(startCtx)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil && runErr == nil {
		return fmt.Errorf("failed to stop: %w", err)
	}
	return runErr
}
