package core

import (
	"time"

	"github.com/Sokol111/ecommerce-eventbus/pkg/core/config"
	"github.com/Sokol111/ecommerce-eventbus/pkg/core/health"
	"github.com/Sokol111/ecommerce-eventbus/pkg/core/logger"
	"go.uber.org/fx"
)

const (
	// consumers drain in-flight messages on stop, so both phases get generous budgets
	startTimeout = 2 * time.Minute
	stopTimeout  = 2 * time.Minute
)

type coreOptions struct {
	appConfig     *config.AppConfig
	loggerConfig  *logger.Config
	configPath    string
	withoutDotEnv bool
	withoutFile   bool
}

type Option func(*coreOptions)

// WithAppConfig skips environment lookup and uses cfg as is.
func WithAppConfig(cfg config.AppConfig) Option {
	return func(o *coreOptions) { o.appConfig = &cfg }
}

// WithLoggerConfig skips the logger section of the config file.
func WithLoggerConfig(cfg logger.Config) Option {
	return func(o *coreOptions) { o.loggerConfig = &cfg }
}

// WithConfigPath pins the YAML file; a missing file then fails startup.
func WithConfigPath(path string) Option {
	return func(o *coreOptions) { o.configPath = path }
}

func WithoutEnvFile() Option {
	return func(o *coreOptions) { o.withoutDotEnv = true }
}

func WithoutConfigFile() Option {
	return func(o *coreOptions) { o.withoutFile = true }
}

// NewCoreModule wires configuration, logging and readiness tracking.
//
//	fx.New(
//	    core.NewCoreModule(),
//	    broker.NewBrokerModule(),
//	    dispatcher.NewDispatcherModule(),
//	)
func NewCoreModule(opts ...Option) fx.Option {
	o := &coreOptions{}
	for _, opt := range opts {
		opt(o)
	}

	var viperOpts []config.ViperOption
	if o.configPath != "" {
		viperOpts = append(viperOpts, config.WithConfigPath(o.configPath))
	}
	if o.withoutFile {
		viperOpts = append(viperOpts, config.WithoutConfigFile())
	}

	var appOpts []config.AppConfigOption
	if o.appConfig != nil {
		appOpts = append(appOpts, config.WithAppConfig(*o.appConfig))
	}

	var logOpts []logger.Option
	if o.loggerConfig != nil {
		logOpts = append(logOpts, logger.WithLoggerConfig(*o.loggerConfig))
	}

	dotEnv := fx.Options()
	if !o.withoutDotEnv {
		dotEnv = config.NewDotEnvModule()
	}

	return fx.Options(
		fx.StartTimeout(startTimeout),
		fx.StopTimeout(stopTimeout),
		dotEnv,
		config.NewViperModule(viperOpts...),
		config.NewAppConfigModule(appOpts...),
		logger.NewZapLoggingModule(logOpts...),
		health.NewReadinessModule(),
	)
}
