package stream

import (
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/spf13/viper"
)

// StreamConfig declares one durable stream.
type StreamConfig struct {
	Name            string        `mapstructure:"name"`
	Subjects        []string      `mapstructure:"subjects"`
	MaxAge          time.Duration `mapstructure:"max-age"`
	MaxMessages     int64         `mapstructure:"max-messages"`
	Storage         string        `mapstructure:"storage"`
	Replicas        int           `mapstructure:"replicas"`
	DuplicateWindow time.Duration `mapstructure:"duplicate-window"`
}

type Config struct {
	Primary    StreamConfig `mapstructure:"primary"`
	DeadLetter StreamConfig `mapstructure:"dead-letter"`
}

// Streams lists the configured streams, primary first.
func (c Config) Streams() []StreamConfig {
	return []StreamConfig{c.Primary, c.DeadLetter}
}

// DefaultConfig is the EVENTS / DLQ pair with its standard retention.
func DefaultConfig() Config {
	cfg := Config{}
	applyDefaults(&cfg)
	return cfg
}

func newConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	if sub := v.Sub("streams"); sub != nil {
		if err := sub.Unmarshal(&cfg); err != nil {
			return Config{}, fmt.Errorf("failed to load streams config: %w", err)
		}
	}
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	applyStreamDefaults(&cfg.Primary, defaultPrimaryName, SubjectPrefix+".*", defaultPrimaryMaxAge, defaultPrimaryMaxMessages)
	applyStreamDefaults(&cfg.DeadLetter, defaultDeadLetterName, DeadLetterPrefix+".*", defaultDeadLetterMaxAge, defaultDeadLetterMaxMessages)
}

func applyStreamDefaults(s *StreamConfig, name, subject string, maxAge time.Duration, maxMessages int64) {
	if s.Name == "" {
		s.Name = name
	}
	if len(s.Subjects) == 0 {
		s.Subjects = []string{subject}
	}
	if s.MaxAge == 0 {
		s.MaxAge = maxAge
	}
	if s.MaxMessages == 0 {
		s.MaxMessages = maxMessages
	}
	if s.Storage == "" {
		s.Storage = defaultStorage
	}
	if s.Replicas == 0 {
		s.Replicas = defaultReplicas
	}
	if s.DuplicateWindow == 0 {
		s.DuplicateWindow = defaultDuplicateWindow
	}
}

func validateConfig(cfg Config) error {
	if cfg.Primary.Name == cfg.DeadLetter.Name {
		return fmt.Errorf("streams: primary and dead-letter streams share the name %q", cfg.Primary.Name)
	}
	var errs []error
	for _, s := range cfg.Streams() {
		errs = append(errs, validateStream(s))
	}
	return errors.Join(errs...)
}

func validateStream(s StreamConfig) error {
	if s.Name == "" {
		return errors.New("stream name is required")
	}
	for _, subject := range s.Subjects {
		if err := validatePattern(subject); err != nil {
			return fmt.Errorf("stream %s: %w", s.Name, err)
		}
	}
	if s.MaxAge < minMaxAge {
		return fmt.Errorf("stream %s: max-age must be at least %s, got %s", s.Name, minMaxAge, s.MaxAge)
	}
	if s.MaxMessages < 1 {
		return fmt.Errorf("stream %s: max-messages must be positive, got %d", s.Name, s.MaxMessages)
	}
	if s.Storage != StorageFile && s.Storage != StorageMemory {
		return fmt.Errorf("stream %s: storage must be %q or %q, got %q", s.Name, StorageFile, StorageMemory, s.Storage)
	}
	if s.Replicas < 1 || s.Replicas > maxReplicas {
		return fmt.Errorf("stream %s: replicas must be between 1 and %d, got %d", s.Name, maxReplicas, s.Replicas)
	}
	if s.DuplicateWindow > s.MaxAge {
		return fmt.Errorf("stream %s: duplicate-window %s exceeds max-age %s", s.Name, s.DuplicateWindow, s.MaxAge)
	}
	return nil
}

func (s StreamConfig) jetStream() jetstream.StreamConfig {
	storage := jetstream.FileStorage
	if s.Storage == StorageMemory {
		storage = jetstream.MemoryStorage
	}
	return jetstream.StreamConfig{
		Name:       s.Name,
		Subjects:   append([]string(nil), s.Subjects...),
		Retention:  jetstream.LimitsPolicy,
		Discard:    jetstream.DiscardOld,
		MaxAge:     s.MaxAge,
		MaxMsgs:    s.MaxMessages,
		Storage:    storage,
		Replicas:   s.Replicas,
		Duplicates: s.DuplicateWindow,
	}
}
