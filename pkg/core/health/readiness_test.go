package health

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestReadiness_AddComponent(t *testing.T) {
	t.Run("not ready until every component is marked", func(t *testing.T) {
		r := newReadiness(zap.NewNop(), true)

		markBroker := r.AddComponent("nats")
		markDedup := r.AddComponent("redis")

		markBroker()
		assert.False(t, r.IsReady())

		markDedup()
		assert.True(t, r.IsReady())
	})

	t.Run("marking twice is harmless", func(t *testing.T) {
		r := newReadiness(zap.NewNop(), true)
		mark := r.AddComponent("nats")

		mark()
		mark()

		assert.True(t, r.IsReady())
	})

	t.Run("re-adding keeps existing state", func(t *testing.T) {
		r := newReadiness(zap.NewNop(), true)
		r.AddComponent("nats")()

		r.AddComponent("nats")

		assert.True(t, r.IsReady())
		assert.Len(t, r.GetStatus().Components, 1)
	})
}

func TestReadiness_Traffic(t *testing.T) {
	t.Run("outside kubernetes traffic follows readiness", func(t *testing.T) {
		r := newReadiness(zap.NewNop(), false)
		r.AddComponent("nats")()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		require.NoError(t, r.WaitForTrafficReady(ctx))
	})

	t.Run("in kubernetes traffic needs explicit mark", func(t *testing.T) {
		r := newReadiness(zap.NewNop(), true)
		r.AddComponent("nats")()

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		require.ErrorIs(t, r.WaitForTrafficReady(ctx), context.DeadlineExceeded)

		r.MarkTrafficReady()
		assert.True(t, r.GetStatus().TrafficReady)
	})
}

func TestReadiness_WaitReady(t *testing.T) {
	t.Run("unblocks waiters", func(t *testing.T) {
		r := newReadiness(zap.NewNop(), true)
		mark := r.AddComponent("nats")

		var wg sync.WaitGroup
		errs := make([]error, 5)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = r.WaitReady(context.Background())
			}(i)
		}

		mark()
		wg.Wait()

		for _, err := range errs {
			assert.NoError(t, err)
		}
	})

	t.Run("honours cancellation", func(t *testing.T) {
		r := newReadiness(zap.NewNop(), true)
		r.AddComponent("nats")

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		assert.ErrorIs(t, r.WaitReady(ctx), context.Canceled)
	})
}

func TestReadiness_GetStatus(t *testing.T) {
	r := newReadiness(zap.NewNop(), true)
	r.AddComponent("redis")
	r.AddComponent("nats")()

	status := r.GetStatus()

	assert.False(t, status.Ready)
	require.Len(t, status.Components, 2)
	assert.Equal(t, "nats", status.Components[0].Name)
	assert.True(t, status.Components[0].Ready)
	assert.False(t, status.Components[1].Ready)
	assert.True(t, status.ReadyAt.IsZero())
}
