package outbox

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultCollection    = "outbox"
	defaultMaxBackoff    = 10 * time.Hour
	defaultBaseBackoff   = 30 * time.Second
	defaultLockTimeout   = 30 * time.Second
	defaultPollInterval  = 2 * time.Second
	defaultErrorInterval = 5 * time.Second
	defaultConfirmBatch  = 100
	defaultConfirmEvery  = 2 * time.Second
	defaultRetention     = 5 * 24 * time.Hour
)

type Config struct {
	Collection string `mapstructure:"collection"`
	// BaseBackoff is the delay after the first failed relay; it doubles per
	// attempt up to MaxBackoff.
	BaseBackoff time.Duration `mapstructure:"base-backoff"`
	MaxBackoff  time.Duration `mapstructure:"max-backoff"`
	// LockTimeout is how long a fetched entry stays hidden from other relays.
	LockTimeout     time.Duration `mapstructure:"lock-timeout"`
	PollInterval    time.Duration `mapstructure:"poll-interval"`
	ErrorInterval   time.Duration `mapstructure:"error-interval"`
	ConfirmBatch    int           `mapstructure:"confirm-batch"`
	ConfirmInterval time.Duration `mapstructure:"confirm-interval"`
	// Retention removes entries this long after creation, sent or not.
	Retention time.Duration `mapstructure:"retention"`
}

func newConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	if sub := v.Sub("outbox"); sub != nil {
		if err := sub.Unmarshal(&cfg); err != nil {
			return Config{}, fmt.Errorf("failed to load outbox config: %w", err)
		}
	}
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Collection == "" {
		cfg.Collection = defaultCollection
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = defaultBaseBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = defaultMaxBackoff
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = defaultLockTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.ErrorInterval <= 0 {
		cfg.ErrorInterval = defaultErrorInterval
	}
	if cfg.ConfirmBatch <= 0 {
		cfg.ConfirmBatch = defaultConfirmBatch
	}
	if cfg.ConfirmInterval <= 0 {
		cfg.ConfirmInterval = defaultConfirmEvery
	}
	if cfg.Retention <= 0 {
		cfg.Retention = defaultRetention
	}
}

func validateConfig(cfg Config) error {
	if cfg.BaseBackoff > cfg.MaxBackoff {
		return errors.New("outbox: base-backoff must not exceed max-backoff")
	}
	if cfg.ConfirmBatch > 1000 {
		return fmt.Errorf("outbox: confirm-batch %d exceeds 1000", cfg.ConfirmBatch)
	}
	if cfg.Retention < cfg.MaxBackoff {
		return errors.New("outbox: retention must cover max-backoff")
	}
	return nil
}
