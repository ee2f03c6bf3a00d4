package webhook

import (
	"strings"
	"testing"
	"time"

	"github.com/Sokol111/ecommerce-eventbus/pkg/webhook/dedup"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := newConfig(viper.New())

		require.NoError(t, err)
		assert.Equal(t, StoreRedis, cfg.Dedup.Store)
		assert.Equal(t, 24*time.Hour, cfg.Dedup.TTL)
		assert.Equal(t, dedup.DefaultKeyPrefix, cfg.Dedup.KeyPrefix)
		assert.Equal(t, 5*time.Minute, cfg.SignatureTolerance)
	})

	t.Run("yaml with topic allow-lists alongside secrets", func(t *testing.T) {
		v := viper.New()
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(strings.NewReader(`
webhook:
  dedup:
    store: mongo
    ttl: 12h
    collection: hooks
  signature-tolerance: 2m
  sources:
    shopify:
      secret: abc
      topics:
        - {topic: carts/update, event: webhook.cart.updated}
`)))

		cfg, err := newConfig(v)

		require.NoError(t, err)
		assert.Equal(t, StoreMongo, cfg.Dedup.Store)
		assert.Equal(t, 12*time.Hour, cfg.Dedup.TTL)
		assert.Equal(t, "hooks", cfg.Dedup.Collection)
		assert.Equal(t, 2*time.Minute, cfg.SignatureTolerance)
		assert.Equal(t, "abc", cfg.Sources["shopify"].Secret)
	})

	t.Run("invalid", func(t *testing.T) {
		tests := []struct {
			name string
			cfg  Config
		}{
			{"unknown store", Config{Dedup: DedupConfig{Store: "etcd"}}},
			{"ttl too short", Config{Dedup: DedupConfig{TTL: time.Second}}},
			{"tolerance too long", Config{SignatureTolerance: 2 * time.Hour}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				cfg := tt.cfg
				applyDefaults(&cfg)
				assert.Error(t, validateConfig(cfg))
			})
		}
	})
}
