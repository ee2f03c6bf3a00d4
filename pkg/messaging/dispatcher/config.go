package dispatcher

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type PublisherConfig struct {
	MaxAttempts    int           `mapstructure:"max-attempts"`    // Attempts per publish including the first (1-20)
	InitialBackoff time.Duration `mapstructure:"initial-backoff"` // First retry delay (10ms-1m)
	MaxBackoff     time.Duration `mapstructure:"max-backoff"`     // Retry delay ceiling (10ms-1m)
	PublishTimeout time.Duration `mapstructure:"publish-timeout"` // Ack wait per attempt (100ms-1m)
}

type ConsumerConfig struct {
	Name              string        `mapstructure:"name"`                // Consumer name referenced by RegisterConsumer (required)
	Durable           string        `mapstructure:"durable"`             // JetStream durable name (defaults to Name)
	MaxDeliver        int           `mapstructure:"max-deliver"`         // Deliveries before dead-lettering (1-100)
	AckWait           time.Duration `mapstructure:"ack-wait"`            // Redelivery timer for unacknowledged messages (1s-10m)
	BatchSize         int           `mapstructure:"batch-size"`          // Messages per fetch (1-500)
	FetchWait         time.Duration `mapstructure:"fetch-wait"`          // Max wait of one fetch (100ms-1m)
	Concurrency       int           `mapstructure:"concurrency"`         // Concurrent handler invocations (1-1024)
	ProcessingTimeout time.Duration `mapstructure:"processing-timeout"`  // Deadline of one handler invocation, below ack-wait
	DrainTimeout      time.Duration `mapstructure:"drain-timeout"`       // Time in-flight handlers get on shutdown (0-5m)
	InitialBackoff    time.Duration `mapstructure:"initial-backoff"`     // First nak delay
	MaxBackoff        time.Duration `mapstructure:"max-backoff"`         // Nak delay ceiling
	DeadLetterTimeout time.Duration `mapstructure:"dead-letter-timeout"` // Ack wait per dead-letter publish attempt, below ack-wait
	DeadLetterTries   int           `mapstructure:"dead-letter-tries"`   // Dead-letter publish attempts per delivery (1-10)
}

type Config struct {
	Publisher PublisherConfig  `mapstructure:"publisher"`
	Consumers []ConsumerConfig `mapstructure:"consumers"`
}

// Consumer returns the settings of the named consumer.
func (c Config) Consumer(name string) (ConsumerConfig, error) {
	for _, cc := range c.Consumers {
		if cc.Name == name {
			return cc, nil
		}
	}
	return ConsumerConfig{}, fmt.Errorf("no consumer config found for consumer name: %s", name)
}

func newConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	if sub := v.Sub("dispatcher"); sub != nil {
		if err := sub.Unmarshal(&cfg); err != nil {
			return Config{}, fmt.Errorf("failed to load dispatcher config: %w", err)
		}
	}
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	p := &cfg.Publisher
	if p.MaxAttempts == 0 {
		p.MaxAttempts = defaultPublishMaxAttempts
	}
	if p.InitialBackoff == 0 {
		p.InitialBackoff = defaultPublishInitial
	}
	if p.MaxBackoff == 0 {
		p.MaxBackoff = defaultPublishMaxBackoff
	}
	if p.PublishTimeout == 0 {
		p.PublishTimeout = defaultPublishTimeout
	}
	for i := range cfg.Consumers {
		applyConsumerDefaults(&cfg.Consumers[i])
	}
}

func applyConsumerDefaults(c *ConsumerConfig) {
	if c.Durable == "" {
		c.Durable = c.Name
	}
	if c.MaxDeliver == 0 {
		c.MaxDeliver = defaultMaxDeliver
	}
	if c.AckWait == 0 {
		c.AckWait = defaultAckWait
	}
	if c.BatchSize == 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.FetchWait == 0 {
		c.FetchWait = defaultFetchWait
	}
	if c.Concurrency == 0 {
		c.Concurrency = defaultConcurrency
	}
	if c.ProcessingTimeout == 0 {
		c.ProcessingTimeout = min(defaultProcessingTimeout, c.AckWait*5/6)
	}
	if c.DrainTimeout == 0 {
		c.DrainTimeout = defaultDrainTimeout
	}
	if c.InitialBackoff == 0 {
		c.InitialBackoff = defaultInitialBackoff
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = defaultMaxBackoff
	}
	if c.DeadLetterTimeout == 0 {
		c.DeadLetterTimeout = min(defaultDeadLetterTimeout, c.AckWait/2)
	}
	if c.DeadLetterTries == 0 {
		c.DeadLetterTries = defaultDeadLetterTries
	}
}

func validateConfig(cfg Config) error {
	if err := validatePublisher(cfg.Publisher); err != nil {
		return err
	}
	seen := make(map[string]bool, len(cfg.Consumers))
	for i, c := range cfg.Consumers {
		if err := validateConsumer(i, c); err != nil {
			return err
		}
		if seen[c.Name] {
			return fmt.Errorf("consumer[%d] (%s): duplicate consumer name", i, c.Name)
		}
		seen[c.Name] = true
	}
	return nil
}

func validatePublisher(p PublisherConfig) error {
	if p.MaxAttempts < minAttempts || p.MaxAttempts > maxAttempts {
		return fmt.Errorf("publisher max attempts must be between %d and %d, got: %d", minAttempts, maxAttempts, p.MaxAttempts)
	}
	if p.InitialBackoff < minPublishBackoff || p.InitialBackoff > maxPublishBackoff {
		return fmt.Errorf("publisher initial backoff must be between %v and %v, got: %v", minPublishBackoff, maxPublishBackoff, p.InitialBackoff)
	}
	if p.MaxBackoff < minPublishBackoff || p.MaxBackoff > maxPublishBackoff {
		return fmt.Errorf("publisher max backoff must be between %v and %v, got: %v", minPublishBackoff, maxPublishBackoff, p.MaxBackoff)
	}
	if p.InitialBackoff > p.MaxBackoff {
		return fmt.Errorf("publisher initial backoff (%v) cannot be greater than max backoff (%v)", p.InitialBackoff, p.MaxBackoff)
	}
	if p.PublishTimeout < minPublishTimeout || p.PublishTimeout > maxPublishTimeout {
		return fmt.Errorf("publisher publish timeout must be between %v and %v, got: %v", minPublishTimeout, maxPublishTimeout, p.PublishTimeout)
	}
	return nil
}

func validateConsumer(index int, c ConsumerConfig) error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("consumer[%d]: name cannot be empty", index)
	}
	if strings.ContainsAny(c.Durable, ".*> ") {
		return fmt.Errorf("consumer[%d] (%s): durable name %q cannot contain '.', '*', '>' or spaces", index, c.Name, c.Durable)
	}
	checks := []struct {
		ok   bool
		what string
		min  any
		max  any
		got  any
	}{
		{c.MaxDeliver >= minMaxDeliver && c.MaxDeliver <= maxMaxDeliver, "max deliver", minMaxDeliver, maxMaxDeliver, c.MaxDeliver},
		{c.AckWait >= minAckWait && c.AckWait <= maxAckWait, "ack wait", minAckWait, maxAckWait, c.AckWait},
		{c.BatchSize >= minBatchSize && c.BatchSize <= maxBatchSize, "batch size", minBatchSize, maxBatchSize, c.BatchSize},
		{c.FetchWait >= minFetchWait && c.FetchWait <= maxFetchWait, "fetch wait", minFetchWait, maxFetchWait, c.FetchWait},
		{c.Concurrency >= minConcurrency && c.Concurrency <= maxConcurrency, "concurrency", minConcurrency, maxConcurrency, c.Concurrency},
		{c.ProcessingTimeout >= minProcessingTimeout && c.ProcessingTimeout <= maxProcessingTimeout, "processing timeout", minProcessingTimeout, maxProcessingTimeout, c.ProcessingTimeout},
		{c.DrainTimeout >= minDrainTimeout && c.DrainTimeout <= maxDrainTimeout, "drain timeout", time.Duration(minDrainTimeout), maxDrainTimeout, c.DrainTimeout},
		{c.InitialBackoff >= minNakBackoff && c.InitialBackoff <= maxNakBackoff, "initial backoff", minNakBackoff, maxNakBackoff, c.InitialBackoff},
		{c.MaxBackoff >= minNakBackoff && c.MaxBackoff <= maxNakBackoff, "max backoff", minNakBackoff, maxNakBackoff, c.MaxBackoff},
		{c.DeadLetterTimeout >= minDeadLetterTimeout && c.DeadLetterTimeout <= maxDeadLetterTimeout, "dead-letter timeout", minDeadLetterTimeout, maxDeadLetterTimeout, c.DeadLetterTimeout},
		{c.DeadLetterTries >= minDeadLetterTries && c.DeadLetterTries <= maxDeadLetterTries, "dead-letter tries", minDeadLetterTries, maxDeadLetterTries, c.DeadLetterTries},
	}
	for _, chk := range checks {
		if !chk.ok {
			return fmt.Errorf("consumer[%d] (%s): %s must be between %v and %v, got: %v", index, c.Name, chk.what, chk.min, chk.max, chk.got)
		}
	}
	if c.InitialBackoff > c.MaxBackoff {
		return fmt.Errorf("consumer[%d] (%s): initial backoff (%v) cannot be greater than max backoff (%v)", index, c.Name, c.InitialBackoff, c.MaxBackoff)
	}
	if c.ProcessingTimeout >= c.AckWait {
		return fmt.Errorf("consumer[%d] (%s): processing timeout (%v) must be below ack wait (%v)", index, c.Name, c.ProcessingTimeout, c.AckWait)
	}
	if c.DeadLetterTimeout >= c.AckWait {
		return fmt.Errorf("consumer[%d] (%s): dead-letter timeout (%v) must be below ack wait (%v)", index, c.Name, c.DeadLetterTimeout, c.AckWait)
	}
	return nil
}
