package broker

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultURL            = "nats://localhost:4222"
	defaultConnectTimeout = 5 * time.Second
	defaultReconnectWait  = 2 * time.Second
	defaultMaxReconnects  = 60
	defaultDrainTimeout   = 30 * time.Second

	minConnectTimeout = 100 * time.Millisecond
	maxConnectTimeout = time.Minute
)

type Config struct {
	URL            string        `mapstructure:"url"`
	Name           string        `mapstructure:"name"`
	User           string        `mapstructure:"user"`
	Password       string        `mapstructure:"password"`
	Token          string        `mapstructure:"token"`
	ConnectTimeout time.Duration `mapstructure:"connect-timeout"`
	ReconnectWait  time.Duration `mapstructure:"reconnect-wait"`
	// MaxReconnects of -1 retries forever.
	MaxReconnects int           `mapstructure:"max-reconnects"`
	DrainTimeout  time.Duration `mapstructure:"drain-timeout"`
}

func newConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	if sub := v.Sub("broker"); sub != nil {
		if err := sub.Unmarshal(&cfg); err != nil {
			return Config{}, fmt.Errorf("failed to load broker config: %w", err)
		}
	}
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.URL == "" {
		cfg.URL = defaultURL
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = defaultReconnectWait
	}
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = defaultMaxReconnects
	}
	if cfg.DrainTimeout == 0 {
		cfg.DrainTimeout = defaultDrainTimeout
	}
}

func validateConfig(cfg Config) error {
	if cfg.ConnectTimeout < minConnectTimeout || cfg.ConnectTimeout > maxConnectTimeout {
		return fmt.Errorf("broker.connect-timeout must be between %s and %s, got %s", minConnectTimeout, maxConnectTimeout, cfg.ConnectTimeout)
	}
	if cfg.MaxReconnects < -1 {
		return fmt.Errorf("broker.max-reconnects must be -1 or greater, got %d", cfg.MaxReconnects)
	}
	if cfg.Token != "" && cfg.User != "" {
		return errors.New("broker: token and user authentication are mutually exclusive")
	}
	return nil
}
