package dedup

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Sokol111/ecommerce-eventbus/pkg/testutil/container"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClaims runs the behaviour every Store must share.
func testClaims(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("first claim wins", func(t *testing.T) {
		s := newStore(t)
		key := Key{Source: "shopify", ExternalID: "evt-1"}

		fresh, err := s.Claim(ctx, key, "msg-a", time.Minute)
		require.NoError(t, err)
		assert.True(t, fresh)

		fresh, err = s.Claim(ctx, key, "msg-b", time.Minute)
		require.NoError(t, err)
		assert.False(t, fresh)
	})

	t.Run("same owner claims again", func(t *testing.T) {
		s := newStore(t)
		key := Key{Source: "shopify", ExternalID: "evt-2"}

		_, err := s.Claim(ctx, key, "msg-a", time.Minute)
		require.NoError(t, err)

		fresh, err := s.Claim(ctx, key, "msg-a", time.Minute)
		require.NoError(t, err)
		assert.True(t, fresh)
	})

	t.Run("sources do not collide", func(t *testing.T) {
		s := newStore(t)

		fresh, err := s.Claim(ctx, Key{Source: "shopify", ExternalID: "1"}, "msg-a", time.Minute)
		require.NoError(t, err)
		assert.True(t, fresh)

		fresh, err = s.Claim(ctx, Key{Source: "stripe", ExternalID: "1"}, "msg-b", time.Minute)
		require.NoError(t, err)
		assert.True(t, fresh)
	})

	t.Run("concurrent claims yield one winner", func(t *testing.T) {
		s := newStore(t)
		key := Key{Source: "stripe", ExternalID: "evt-race"}

		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				fresh, err := s.Claim(ctx, key, "msg-"+string(rune('a'+i)), time.Minute)
				assert.NoError(t, err)
				if fresh {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), wins.Load())
	})

	t.Run("empty key is rejected", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Claim(ctx, Key{Source: "shopify"}, "msg-a", time.Minute)
		assert.ErrorIs(t, err, ErrInvalidKey)
	})
}

func TestMemoryStore(t *testing.T) {
	testClaims(t, func(t *testing.T) Store { return NewMemoryStore() })
}

func TestMemoryStore_Expiry(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore().WithClock(func() time.Time { return now })
	key := Key{Source: "github", ExternalID: "d-1"}

	fresh, err := s.Claim(context.Background(), key, "msg-a", time.Hour)
	require.NoError(t, err)
	require.True(t, fresh)

	now = now.Add(59 * time.Minute)
	fresh, err = s.Claim(context.Background(), key, "msg-b", time.Hour)
	require.NoError(t, err)
	assert.False(t, fresh)

	now = now.Add(2 * time.Minute)
	fresh, err = s.Claim(context.Background(), key, "msg-b", time.Hour)
	require.NoError(t, err)
	assert.True(t, fresh)
}

func TestKey_String(t *testing.T) {
	assert.Equal(t, "shopify:123", Key{Source: "shopify", ExternalID: "123"}.String())
}

func TestRedisStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	rc, err := container.StartRedisContainer(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Terminate(context.Background()) })

	testClaims(t, func(t *testing.T) Store {
		require.NoError(t, rc.Client.FlushDB(ctx).Err())
		return NewRedisStore(rc.Client, "")
	})

	t.Run("record expires", func(t *testing.T) {
		s := NewRedisStore(rc.Client, "test:")
		key := Key{Source: "shopify", ExternalID: "ttl"}

		_, err := s.Claim(ctx, key, "msg-a", 50*time.Millisecond)
		require.NoError(t, err)

		assert.Eventually(t, func() bool {
			fresh, err := s.Claim(ctx, key, "msg-b", time.Minute)
			return err == nil && fresh
		}, 2*time.Second, 20*time.Millisecond)
	})
}

func TestMongoStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	mc, err := container.StartMongoDBContainer(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mc.Terminate(context.Background()) })

	n := 0
	testClaims(t, func(t *testing.T) Store {
		n++
		s := NewMongoStore(mc.Database("eventbus").Collection(DefaultCollection + "_" + string(rune('a'+n))))
		require.NoError(t, s.EnsureIndexes(ctx))
		return s
	})

	t.Run("expired record is reclaimed before the ttl sweep", func(t *testing.T) {
		now := time.Now()
		s := NewMongoStore(mc.Database("eventbus").Collection("dedup_expiry"))
		s.now = func() time.Time { return now }
		key := Key{Source: "stripe", ExternalID: "evt-old"}

		_, err := s.Claim(ctx, key, "msg-a", time.Minute)
		require.NoError(t, err)

		now = now.Add(2 * time.Minute)
		fresh, err := s.Claim(ctx, key, "msg-b", time.Minute)
		require.NoError(t, err)
		assert.True(t, fresh)
	})
}
