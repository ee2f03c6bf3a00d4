package mongo

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultPort                = 27017
	defaultMaxPoolSize         = 100
	defaultMinPoolSize         = 5
	defaultMaxConnIdleTime     = 5 * time.Minute
	defaultConnectTimeout      = 10 * time.Second
	defaultServerSelectTimeout = 30 * time.Second
	defaultQueryTimeout        = 30 * time.Second
)

type Config struct {
	ConnectionString string `mapstructure:"connection-string"`
	Host             string `mapstructure:"host"`
	Port             int    `mapstructure:"port"`
	ReplicaSet       string `mapstructure:"replica-set"`
	Username         string `mapstructure:"username"`
	Password         string `mapstructure:"password"`
	Database         string `mapstructure:"database"`
	DirectConnection bool   `mapstructure:"direct-connection"`

	MaxPoolSize         uint64        `mapstructure:"max-pool-size"`
	MinPoolSize         uint64        `mapstructure:"min-pool-size"`
	MaxConnIdleTime     time.Duration `mapstructure:"max-conn-idle-time"`
	ConnectTimeout      time.Duration `mapstructure:"connect-timeout"`
	ServerSelectTimeout time.Duration `mapstructure:"server-select-timeout"`
	// QueryTimeout bounds every operation through the driver's client side timeout.
	QueryTimeout time.Duration `mapstructure:"query-timeout"`
}

func newConfig(v *viper.Viper) (Config, error) {
	sub := v.Sub("mongo")
	if sub == nil {
		return Config{}, errors.New("mongo config section is missing")
	}
	var cfg Config
	if err := sub.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to load mongo config: %w", err)
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
	if cfg.MaxPoolSize == 0 {
		cfg.MaxPoolSize = defaultMaxPoolSize
	}
	if cfg.MinPoolSize == 0 {
		cfg.MinPoolSize = defaultMinPoolSize
	}
	if cfg.MaxConnIdleTime == 0 {
		cfg.MaxConnIdleTime = defaultMaxConnIdleTime
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.ServerSelectTimeout == 0 {
		cfg.ServerSelectTimeout = defaultServerSelectTimeout
	}
	if cfg.QueryTimeout == 0 {
		cfg.QueryTimeout = defaultQueryTimeout
	}
}

func validateConfig(cfg Config) error {
	if cfg.Database == "" {
		return errors.New("mongo.database is required")
	}
	if cfg.ConnectionString == "" && cfg.Host == "" {
		return errors.New("mongo: either connection-string or host is required")
	}
	if cfg.MinPoolSize > cfg.MaxPoolSize {
		return fmt.Errorf("mongo.min-pool-size %d exceeds max-pool-size %d", cfg.MinPoolSize, cfg.MaxPoolSize)
	}
	return nil
}
