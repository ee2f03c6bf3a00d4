package logger

import (
	"errors"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	original := defaultLogger
	originalGlobal := zap.L()
	t.Cleanup(func() {
		defaultLogger = original
		zap.ReplaceGlobals(originalGlobal)
	})

	t.Run("builds with atomic level", func(t *testing.T) {
		log, level, err := newLogger(Config{Level: zapcore.WarnLevel, OutputPaths: []string{"stdout"}})

		require.NoError(t, err)
		require.NotNil(t, log)
		assert.Equal(t, zapcore.WarnLevel, level.Level())
		assert.Same(t, log, defaultLogger)
	})

	t.Run("invalid config", func(t *testing.T) {
		_, _, err := newLogger(Config{OutputPaths: []string{""}})

		require.Error(t, err)
	})
}

func TestIgnoreSyncError(t *testing.T) {
	assert.NoError(t, ignoreSyncError(nil))
	assert.NoError(t, ignoreSyncError(&os.PathError{Op: "sync", Path: "/dev/stderr", Err: syscall.EINVAL}))
	assert.Error(t, ignoreSyncError(errors.New("disk full")))
}
