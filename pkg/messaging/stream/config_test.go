package stream

import (
	"strings"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	t.Run("defaults without config", func(t *testing.T) {
		cfg, err := newConfig(viper.New())

		require.NoError(t, err)
		assert.Equal(t, "EVENTS", cfg.Primary.Name)
		assert.Equal(t, []string{"evt.*"}, cfg.Primary.Subjects)
		assert.Equal(t, 24*time.Hour, cfg.Primary.MaxAge)
		assert.Equal(t, int64(1_000_000), cfg.Primary.MaxMessages)
		assert.Equal(t, "DLQ", cfg.DeadLetter.Name)
		assert.Equal(t, []string{"dlq.*"}, cfg.DeadLetter.Subjects)
		assert.Equal(t, 168*time.Hour, cfg.DeadLetter.MaxAge)
		assert.Equal(t, int64(100_000), cfg.DeadLetter.MaxMessages)
	})

	t.Run("yaml overrides", func(t *testing.T) {
		v := viper.New()
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(strings.NewReader(`
streams:
  primary:
    name: ORDERS
    subjects: ["evt.*"]
    max-age: 48h
    storage: memory
    replicas: 3
`)))

		cfg, err := newConfig(v)

		require.NoError(t, err)
		assert.Equal(t, "ORDERS", cfg.Primary.Name)
		assert.Equal(t, 48*time.Hour, cfg.Primary.MaxAge)
		assert.Equal(t, jetstream.MemoryStorage, cfg.Primary.jetStream().Storage)
		assert.Equal(t, 3, cfg.Primary.jetStream().Replicas)
	})

	t.Run("validation", func(t *testing.T) {
		tests := []struct {
			name   string
			mutate func(*Config)
		}{
			{"same names", func(c *Config) { c.DeadLetter.Name = c.Primary.Name }},
			{"short max-age", func(c *Config) { c.Primary.MaxAge = time.Second }},
			{"negative messages", func(c *Config) { c.Primary.MaxMessages = -1 }},
			{"bad storage", func(c *Config) { c.Primary.Storage = "tape" }},
			{"too many replicas", func(c *Config) { c.Primary.Replicas = 9 }},
			{"bad pattern", func(c *Config) { c.Primary.Subjects = []string{"evt..x"} }},
			{"wide duplicate window", func(c *Config) { c.Primary.DuplicateWindow = 48 * time.Hour }},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				cfg := DefaultConfig()
				tt.mutate(&cfg)
				assert.Error(t, validateConfig(cfg))
			})
		}
	})
}
