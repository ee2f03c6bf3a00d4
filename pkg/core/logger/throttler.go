package logger

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const defaultThrottleInterval = 5 * time.Minute

// LogThrottler rate-limits repetitive log lines per key.
// The broker reader uses it so that a flapping connection does not flood the log.
type LogThrottler struct {
	log      *zap.Logger
	limiters sync.Map // map[string]*rate.Limiter
	interval time.Duration
}

// NewLogThrottler creates a throttler allowing one loud line per key per interval.
// A zero interval defaults to 5 minutes.
func NewLogThrottler(log *zap.Logger, interval time.Duration) *LogThrottler {
	if interval == 0 {
		interval = defaultThrottleInterval
	}
	return &LogThrottler{
		log:      log,
		interval: interval,
	}
}

// Warn logs at WARN once per interval per key and at DEBUG otherwise.
func (t *LogThrottler) Warn(key string, msg string, fields ...zap.Field) {
	if t.allow(key) {
		t.log.Warn(msg, fields...)
		return
	}
	t.log.Debug(msg, fields...)
}

// Error logs at ERROR once per interval per key and at DEBUG otherwise.
func (t *LogThrottler) Error(key string, msg string, fields ...zap.Field) {
	if t.allow(key) {
		t.log.Error(msg, fields...)
		return
	}
	t.log.Debug(msg, fields...)
}

func (t *LogThrottler) allow(key string) bool {
	if limiter, ok := t.limiters.Load(key); ok {
		return limiter.(*rate.Limiter).Allow()
	}

	limiter := rate.NewLimiter(rate.Every(t.interval), 1)
	actual, _ := t.limiters.LoadOrStore(key, limiter)
	return actual.(*rate.Limiter).Allow()
}
