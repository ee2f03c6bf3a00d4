package broker

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := newConfig(viper.New())

		require.NoError(t, err)
		assert.Equal(t, defaultURL, cfg.URL)
		assert.Equal(t, defaultConnectTimeout, cfg.ConnectTimeout)
		assert.Equal(t, defaultMaxReconnects, cfg.MaxReconnects)
	})

	t.Run("from yaml", func(t *testing.T) {
		v := viper.New()
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(strings.NewReader(`
broker:
  url: nats://nats:4222
  name: catalog-service
  connect-timeout: 2s
  max-reconnects: -1
`)))

		cfg, err := newConfig(v)

		require.NoError(t, err)
		assert.Equal(t, "nats://nats:4222", cfg.URL)
		assert.Equal(t, "catalog-service", cfg.Name)
		assert.Equal(t, 2*time.Second, cfg.ConnectTimeout)
		assert.Equal(t, -1, cfg.MaxReconnects)
	})

	t.Run("invalid", func(t *testing.T) {
		tests := []struct {
			name string
			cfg  Config
		}{
			{"timeout too small", Config{ConnectTimeout: time.Millisecond}},
			{"reconnects below -1", Config{MaxReconnects: -5}},
			{"token and user", Config{Token: "t", User: "u"}},
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
