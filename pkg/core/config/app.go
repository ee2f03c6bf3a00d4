package config

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Environment variable names
const (
	envAppEnv            = "APP_ENV"
	envAppServiceName    = "APP_SERVICE_NAME"
	envAppServiceVersion = "APP_SERVICE_VERSION"
	envConfigFile        = "CONFIG_FILE"
	envConfigDir         = "CONFIG_DIR"
	envConfigName        = "CONFIG_NAME"
	envKubernetesHost    = "KUBERNETES_SERVICE_HOST"
)

const defaultConfigDir = "./configs"

// AppConfig describes the identity of the process that embeds the event bus.
// ServiceName is stamped into every published envelope as its source.
type AppConfig struct {
	// ConfigFile is the full path to the config file
	ConfigFile string
	// ServiceName is the name of the service
	ServiceName string
	// ServiceVersion is the version of the service
	ServiceVersion string
	// Environment is the deployment environment (e.g., "local", "staging", "pro")
	Environment string
	// IsKubernetes reports whether the process runs inside a Kubernetes pod
	IsKubernetes bool
}

type appConfigOptions struct {
	static *AppConfig
}

// AppConfigOption configures the app config module.
type AppConfigOption func(*appConfigOptions)

// WithAppConfig supplies a static AppConfig instead of reading environment variables.
func WithAppConfig(cfg AppConfig) AppConfigOption {
	return func(o *appConfigOptions) {
		o.static = &cfg
	}
}

// NewAppConfigModule provides AppConfig.
//
// Required environment variables:
//   - APP_ENV
//   - APP_SERVICE_NAME
//   - APP_SERVICE_VERSION
//
// Optional: CONFIG_FILE, CONFIG_DIR, CONFIG_NAME.
func NewAppConfigModule(opts ...AppConfigOption) fx.Option {
	o := &appConfigOptions{}
	for _, opt := range opts {
		opt(o)
	}

	var provide fx.Option
	if o.static != nil {
		provide = fx.Supply(*o.static)
	} else {
		provide = fx.Provide(newAppConfig)
	}

	return fx.Module("appconfig",
		provide,
		fx.Invoke(func(log *zap.Logger, conf AppConfig) {
			log.Info("loaded application configuration",
				zap.String("service", conf.ServiceName),
				zap.String("version", conf.ServiceVersion),
				zap.String("environment", conf.Environment),
				zap.String("configFile", conf.ConfigFile),
				zap.Bool("kubernetes", conf.IsKubernetes),
			)
		}),
	)
}

func newAppConfig() (AppConfig, error) {
	env := os.Getenv(envAppEnv)
	if env == "" {
		return AppConfig{}, fmt.Errorf("%s is required", envAppEnv)
	}

	serviceName := os.Getenv(envAppServiceName)
	if serviceName == "" {
		return AppConfig{}, fmt.Errorf("%s is required", envAppServiceName)
	}

	serviceVersion := os.Getenv(envAppServiceVersion)
	if serviceVersion == "" {
		return AppConfig{}, fmt.Errorf("%s is required", envAppServiceVersion)
	}

	return AppConfig{
		ConfigFile:     resolveConfigFile(env),
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
		Environment:    env,
		IsKubernetes:   os.Getenv(envKubernetesHost) != "",
	}, nil
}

func resolveConfigFile(env string) string {
	if configFile := os.Getenv(envConfigFile); configFile != "" {
		return configFile
	}

	configDir := os.Getenv(envConfigDir)
	if configDir == "" {
		configDir = defaultConfigDir
	}

	configName := os.Getenv(envConfigName)
	if configName == "" {
		configName = "config." + env
	}

	return filepath.Join(configDir, configName+".yaml")
}
