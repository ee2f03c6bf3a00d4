package config

import "time"

const (
	DefaultMetricsInterval      = 15 * time.Second
	DefaultSampleRatio          = 1.0
	DefaultShutdownTimeout      = 5 * time.Second
	DefaultRuntimeStatsInterval = time.Second

	// component names registered with health.ComponentManager
	TracingComponentName = "tracing"
	MetricsComponentName = "metrics"

	minMetricsInterval = time.Second
	maxMetricsInterval = 5 * time.Minute
)

// Config holds all observability configuration.
type Config struct {
	OtelCollectorEndpoint string        `mapstructure:"otel-collector-endpoint"`
	Tracing               TracingConfig `mapstructure:"tracing"`
	Metrics               MetricsConfig `mapstructure:"metrics"`
}

type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// SampleRatio applies to root spans; children follow their parent.
	SampleRatio float64 `mapstructure:"sample-ratio"`
}

type MetricsConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}
