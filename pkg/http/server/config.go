package server

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultPort              = 8080
	defaultReadHeaderTimeout = 10 * time.Second
	defaultReadTimeout       = 30 * time.Second
	defaultWriteTimeout      = 30 * time.Second
	defaultIdleTimeout       = 120 * time.Second
	defaultMaxHeaderBytes    = 1 << 20
	defaultMaxBodyBytes      = 1 << 20

	maxMaxBodyBytes = 32 << 20
)

// Config is read from the "server" key.
type Config struct {
	Port int `mapstructure:"port"`

	// ReadHeaderTimeout bounds header reads (Slowloris protection).
	ReadHeaderTimeout time.Duration `mapstructure:"read-header-timeout"`
	ReadTimeout       time.Duration `mapstructure:"read-timeout"`
	WriteTimeout      time.Duration `mapstructure:"write-timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle-timeout"`
	MaxHeaderBytes    int           `mapstructure:"max-header-bytes"`
	// MaxBodyBytes caps request bodies read by routes such as webhook intake.
	MaxBodyBytes int64 `mapstructure:"max-body-bytes"`
}

func newConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	if sub := v.Sub("server"); sub != nil {
		if err := sub.Unmarshal(&cfg); err != nil {
			return Config{}, fmt.Errorf("failed to load server config: %w", err)
		}
	}
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.ReadHeaderTimeout == 0 {
		cfg.ReadHeaderTimeout = defaultReadHeaderTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}
	if cfg.MaxHeaderBytes == 0 {
		cfg.MaxHeaderBytes = defaultMaxHeaderBytes
	}
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
}

func validateConfig(cfg Config) error {
	if cfg.Port < 0 || cfg.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535, got %d", cfg.Port)
	}
	if cfg.ReadHeaderTimeout > cfg.ReadTimeout {
		return fmt.Errorf("server.read-header-timeout (%s) must not exceed read-timeout (%s)", cfg.ReadHeaderTimeout, cfg.ReadTimeout)
	}
	if cfg.MaxBodyBytes < 0 || cfg.MaxBodyBytes > maxMaxBodyBytes {
		return fmt.Errorf("server.max-body-bytes must be between 1 and %d, got %d", maxMaxBodyBytes, cfg.MaxBodyBytes)
	}
	return nil
}
