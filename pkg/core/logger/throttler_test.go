package logger

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogThrottler(t *testing.T) {
	assert.Equal(t, defaultThrottleInterval, NewLogThrottler(zap.NewNop(), 0).interval)
	assert.Equal(t, 10*time.Second, NewLogThrottler(zap.NewNop(), 10*time.Second).interval)
}

func TestLogThrottler_Warn(t *testing.T) {
	t.Run("first call is loud, repeats are quiet", func(t *testing.T) {
		// Given
		core, logs := observer.New(zapcore.DebugLevel)
		throttler := NewLogThrottler(zap.New(core), time.Hour)

		// When
		throttler.Warn("fetch", "fetch failed")
		throttler.Warn("fetch", "fetch failed")

		// Then
		require.Equal(t, 2, logs.Len())
		assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
		assert.Equal(t, zapcore.DebugLevel, logs.All()[1].Level)
	})

	t.Run("keys are independent", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		throttler := NewLogThrottler(zap.New(core), time.Hour)

		throttler.Warn("a", "a failed")
		throttler.Warn("b", "b failed")

		require.Equal(t, 2, logs.Len())
		assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
		assert.Equal(t, zapcore.WarnLevel, logs.All()[1].Level)
	})

	t.Run("concurrent callers log loudly once", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		throttler := NewLogThrottler(zap.New(core), time.Hour)

		var wg sync.WaitGroup
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				throttler.Warn("shared", "broker unavailable")
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, logs.FilterLevelExact(zapcore.WarnLevel).Len())
		assert.Equal(t, 49, logs.FilterLevelExact(zapcore.DebugLevel).Len())
	})
}

func TestLogThrottler_Error(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	throttler := NewLogThrottler(zap.New(core), time.Hour)

	throttler.Error("dlq", "dead letter publish failed")
	throttler.Error("dlq", "dead letter publish failed")

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, zapcore.ErrorLevel, logs.All()[0].Level)
	assert.Equal(t, zapcore.DebugLevel, logs.All()[1].Level)
}
