package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestGet(t *testing.T) {
	original := defaultLogger
	defaultLogger = zap.NewNop()
	t.Cleanup(func() { defaultLogger = original })

	t.Run("nil context returns default", func(t *testing.T) {
		//nolint:staticcheck // nil context is part of the contract
		assert.Same(t, defaultLogger, Get(nil))
	})

	t.Run("empty context returns default", func(t *testing.T) {
		assert.Same(t, defaultLogger, Get(context.Background()))
	})

	t.Run("returns stored logger", func(t *testing.T) {
		core, _ := observer.New(zapcore.InfoLevel)
		custom := zap.New(core)

		ctx := With(context.Background(), custom)

		assert.Same(t, custom, Get(ctx))
	})
}

func TestWithFields(t *testing.T) {
	// Given: a context logger backed by an observer
	core, logs := observer.New(zapcore.InfoLevel)
	ctx := With(context.Background(), zap.New(core))

	// When: fields are attached and a line is logged
	ctx = WithFields(ctx, zap.String("event", "merchant.created"))
	Get(ctx).Info("handled")

	// Then: the line carries the field
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "merchant.created", logs.All()[0].ContextMap()["event"])
}
