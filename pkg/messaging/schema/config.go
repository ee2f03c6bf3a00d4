package schema

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultRequestTimeout = 5 * time.Second
	minRequestTimeout     = 100 * time.Millisecond
	maxRequestTimeout     = 2 * time.Minute
)

// RegistryConfig points at a Confluent Schema Registry.
type RegistryConfig struct {
	URL            string        `mapstructure:"url"`
	RequestTimeout time.Duration `mapstructure:"request-timeout"`
}

func newRegistryConfig(v *viper.Viper) (RegistryConfig, error) {
	var cfg RegistryConfig
	if sub := v.Sub("schema-registry"); sub != nil {
		if err := sub.Unmarshal(&cfg); err != nil {
			return RegistryConfig{}, fmt.Errorf("failed to load schema registry config: %w", err)
		}
	}
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return RegistryConfig{}, err
	}
	return cfg, nil
}

func applyDefaults(cfg *RegistryConfig) {
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
}

func validateConfig(cfg RegistryConfig) error {
	if cfg.URL == "" {
		return errors.New("schema-registry.url is required")
	}
	if cfg.RequestTimeout < minRequestTimeout || cfg.RequestTimeout > maxRequestTimeout {
		return fmt.Errorf("schema-registry.request-timeout must be between %s and %s, got %s", minRequestTimeout, maxRequestTimeout, cfg.RequestTimeout)
	}
	return nil
}
