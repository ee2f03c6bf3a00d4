package dispatcher

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults(t *testing.T) {
	cfg := Config{Consumers: []ConsumerConfig{{Name: "catalog"}, {Name: "billing", AckWait: 6 * time.Second}}}

	applyDefaults(&cfg)

	assert.Equal(t, defaultPublishMaxAttempts, cfg.Publisher.MaxAttempts)
	assert.Equal(t, defaultPublishTimeout, cfg.Publisher.PublishTimeout)

	catalog := cfg.Consumers[0]
	assert.Equal(t, "catalog", catalog.Durable)
	assert.Equal(t, 3, catalog.MaxDeliver)
	assert.Equal(t, 30*time.Second, catalog.AckWait)
	assert.Equal(t, 10, catalog.BatchSize)
	assert.Equal(t, 25*time.Second, catalog.ProcessingTimeout)
	assert.Equal(t, 5*time.Second, catalog.DeadLetterTimeout)
	assert.Equal(t, 3, catalog.DeadLetterTries)

	assert.Equal(t, 5*time.Second, cfg.Consumers[1].ProcessingTimeout, "processing timeout stays below a short ack wait")
	assert.Equal(t, 3*time.Second, cfg.Consumers[1].DeadLetterTimeout, "dead-letter timeout stays below a short ack wait")
	require.NoError(t, validateConfig(cfg))
}

func TestValidateConfig(t *testing.T) {
	valid := func() Config {
		cfg := Config{Consumers: []ConsumerConfig{{Name: "catalog"}}}
		applyDefaults(&cfg)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"publisher attempts", func(c *Config) { c.Publisher.MaxAttempts = 50 }, "max attempts"},
		{"publisher backoff order", func(c *Config) { c.Publisher.InitialBackoff = 10 * time.Second }, "initial backoff"},
		{"empty name", func(c *Config) { c.Consumers[0].Name = " " }, "name cannot be empty"},
		{"durable with dot", func(c *Config) { c.Consumers[0].Durable = "catalog.v2" }, "durable name"},
		{"duplicate consumer", func(c *Config) { c.Consumers = append(c.Consumers, c.Consumers[0]) }, "duplicate consumer name"},
		{"max deliver", func(c *Config) { c.Consumers[0].MaxDeliver = 0 }, "max deliver"},
		{"batch size", func(c *Config) { c.Consumers[0].BatchSize = 1000 }, "batch size"},
		{"processing not below ack wait", func(c *Config) { c.Consumers[0].ProcessingTimeout = 30 * time.Second }, "must be below ack wait"},
		{"dead-letter tries", func(c *Config) { c.Consumers[0].DeadLetterTries = 11 }, "dead-letter tries"},
		{"dead-letter not below ack wait", func(c *Config) { c.Consumers[0].DeadLetterTimeout = 30 * time.Second }, "dead-letter timeout"},
		{"nak backoff order", func(c *Config) { c.Consumers[0].InitialBackoff = time.Hour / 6 }, "initial backoff"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := validateConfig(cfg)

			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestNewConfig(t *testing.T) {
	v := viper.New()
	v.Set("dispatcher.publisher.max-attempts", 2)
	v.Set("dispatcher.consumers", []map[string]any{
		{"name": "catalog", "max-deliver": 5, "ack-wait": "1m"},
	})

	cfg, err := newConfig(v)

	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Publisher.MaxAttempts)
	catalog, err := cfg.Consumer("catalog")
	require.NoError(t, err)
	assert.Equal(t, 5, catalog.MaxDeliver)
	assert.Equal(t, time.Minute, catalog.AckWait)
	assert.Equal(t, 25*time.Second, catalog.ProcessingTimeout)

	_, err = cfg.Consumer("billing")
	assert.Error(t, err)
}

func TestNakDelay(t *testing.T) {
	h := newResultHandler(testConsumerConfig(), nil, NoopMetrics(), nil)

	assert.Equal(t, time.Second, h.nakDelay(1))
	assert.Equal(t, 2*time.Second, h.nakDelay(2))
	assert.Equal(t, 16*time.Second, h.nakDelay(5))
	assert.Equal(t, 30*time.Second, h.nakDelay(20))
}
