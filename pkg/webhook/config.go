package webhook

import (
	"fmt"
	"time"

	"github.com/Sokol111/ecommerce-eventbus/pkg/webhook/dedup"
	"github.com/spf13/viper"
)

const (
	StoreRedis  = "redis"
	StoreMongo  = "mongo"
	StoreMemory = "memory"

	defaultStore              = StoreRedis
	defaultDedupTTL           = 24 * time.Hour
	defaultSignatureTolerance = 5 * time.Minute

	minDedupTTL           = time.Minute
	maxDedupTTL           = 30 * 24 * time.Hour
	minSignatureTolerance = 10 * time.Second
	maxSignatureTolerance = time.Hour
)

type DedupConfig struct {
	Store      string        `mapstructure:"store"`
	TTL        time.Duration `mapstructure:"ttl"`
	KeyPrefix  string        `mapstructure:"key-prefix"`
	Collection string        `mapstructure:"collection"`
}

type SourceConfig struct {
	Secret string `mapstructure:"secret"`
}

type Config struct {
	Dedup              DedupConfig             `mapstructure:"dedup"`
	SignatureTolerance time.Duration           `mapstructure:"signature-tolerance"`
	Sources            map[string]SourceConfig `mapstructure:"sources"`
}

func newConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	if sub := v.Sub("webhook"); sub != nil {
		if err := sub.Unmarshal(&cfg); err != nil {
			return Config{}, fmt.Errorf("failed to load webhook config: %w", err)
		}
	}
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Dedup.Store == "" {
		cfg.Dedup.Store = defaultStore
	}
	if cfg.Dedup.TTL == 0 {
		cfg.Dedup.TTL = defaultDedupTTL
	}
	if cfg.Dedup.KeyPrefix == "" {
		cfg.Dedup.KeyPrefix = dedup.DefaultKeyPrefix
	}
	if cfg.Dedup.Collection == "" {
		cfg.Dedup.Collection = dedup.DefaultCollection
	}
	if cfg.SignatureTolerance == 0 {
		cfg.SignatureTolerance = defaultSignatureTolerance
	}
}

func validateConfig(cfg Config) error {
	switch cfg.Dedup.Store {
	case StoreRedis, StoreMongo, StoreMemory:
	default:
		return fmt.Errorf("webhook.dedup.store must be one of %s, %s, %s, got %q", StoreRedis, StoreMongo, StoreMemory, cfg.Dedup.Store)
	}
	if cfg.Dedup.TTL < minDedupTTL || cfg.Dedup.TTL > maxDedupTTL {
		return fmt.Errorf("webhook.dedup.ttl must be between %s and %s, got %s", minDedupTTL, maxDedupTTL, cfg.Dedup.TTL)
	}
	if cfg.SignatureTolerance < minSignatureTolerance || cfg.SignatureTolerance > maxSignatureTolerance {
		return fmt.Errorf("webhook.signature-tolerance must be between %s and %s, got %s", minSignatureTolerance, maxSignatureTolerance, cfg.SignatureTolerance)
	}
	return nil
}
