package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestProvideConfig(t *testing.T) {
	t.Run("missing key yields disabled defaults", func(t *testing.T) {
		cfg, err := provideConfig(&configOptions{}, viper.New(), zap.NewNop())

		require.NoError(t, err)
		assert.False(t, cfg.Tracing.Enabled)
		assert.False(t, cfg.Metrics.Enabled)
		assert.Equal(t, DefaultMetricsInterval, cfg.Metrics.Interval)
		assert.Equal(t, DefaultSampleRatio, cfg.Tracing.SampleRatio)
	})

	t.Run("yaml", func(t *testing.T) {
		v := viper.New()
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(strings.NewReader(`
observability:
  otel-collector-endpoint: collector:4317
  tracing: {enabled: true, sample-ratio: 0.25}
  metrics: {enabled: true, interval: 30s}
`)))

		cfg, err := provideConfig(&configOptions{}, v, zap.NewNop())

		require.NoError(t, err)
		assert.Equal(t, "collector:4317", cfg.OtelCollectorEndpoint)
		assert.Equal(t, 0.25, cfg.Tracing.SampleRatio)
		assert.Equal(t, 30*time.Second, cfg.Metrics.Interval)
	})

	t.Run("disable options win over config", func(t *testing.T) {
		opts := &configOptions{disableTracing: true, disableMetrics: true}
		WithConfig(Config{Tracing: TracingConfig{Enabled: true}, Metrics: MetricsConfig{Enabled: true}})(opts)

		cfg, err := provideConfig(opts, viper.New(), zap.NewNop())

		require.NoError(t, err)
		assert.False(t, cfg.Tracing.Enabled)
		assert.False(t, cfg.Metrics.Enabled)
	})

	t.Run("metrics need an endpoint", func(t *testing.T) {
		opts := &configOptions{}
		WithConfig(Config{Metrics: MetricsConfig{Enabled: true}})(opts)

		_, err := provideConfig(opts, viper.New(), zap.NewNop())

		assert.ErrorContains(t, err, "otel-collector-endpoint")
	})

	t.Run("sample ratio out of range", func(t *testing.T) {
		opts := &configOptions{}
		WithConfig(Config{Tracing: TracingConfig{SampleRatio: 1.5}})(opts)

		_, err := provideConfig(opts, viper.New(), zap.NewNop())

		assert.Error(t, err)
	})
}
