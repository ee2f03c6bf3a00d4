package config

import (
	"context"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type dotenvConfig struct {
	path   string
	loaded bool
}

// DotEnvOption is a functional option for configuring the dotenv module.
type DotEnvOption func(*dotenvConfig)

// WithDotEnvPath sets a custom path to the .env file.
func WithDotEnvPath(path string) DotEnvOption {
	return func(cfg *dotenvConfig) {
		cfg.path = path
	}
}

// NewDotEnvModule loads environment variables from a .env file.
// Loading happens when the module is built so that APP_* variables are
// visible to newAppConfig.
func NewDotEnvModule(opts ...DotEnvOption) fx.Option {
	cfg := &dotenvConfig{path: ".env"}
	for _, opt := range opts {
		opt(cfg)
	}

	cfg.loaded = godotenv.Load(cfg.path) == nil

	return fx.Module("dotenv",
		fx.Invoke(func(lc fx.Lifecycle, log *zap.Logger) {
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					if cfg.loaded {
						log.Info("loaded .env file", zap.String("path", cfg.path))
					} else {
						log.Debug("no .env file loaded", zap.String("path", cfg.path))
					}
					return nil
				},
			})
		}),
	)
}
