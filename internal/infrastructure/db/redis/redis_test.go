package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/straightdeal/marketplace-api/internal/core/domain"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

func TestSendThrottle_FixedWindow(t *testing.T) {
	mr, client := newTestClient(t)
	th := NewSendThrottle(client, 2, time.Hour)
	ctx := context.Background()

	require.NoError(t, th.Allow(ctx, "email:ada@example.com"))
	require.NoError(t, th.Allow(ctx, "email:ada@example.com"))
	assert.ErrorIs(t, th.Allow(ctx, "email:ada@example.com"), domain.ErrRateLimited)

	assert.NoError(t, th.Allow(ctx, "email:bob@example.com"), "budgets are per destination")
	assert.Equal(t, time.Hour, mr.TTL(throttlePrefix+"email:ada@example.com"))

	mr.FastForward(time.Hour + time.Second)
	assert.NoError(t, th.Allow(ctx, "email:ada@example.com"), "a new window starts after expiry")
}

func TestSendThrottle_RedisDown(t *testing.T) {
	mr, client := newTestClient(t)
	th := NewSendThrottle(client, 2, time.Hour)
	mr.Close()

	err := th.Allow(context.Background(), "phone:+14155550123")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrRateLimited)
}

func TestStateStore_ConsumeOnce(t *testing.T) {
	mr, client := newTestClient(t)
	store := NewStateStore(client)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "abc", "login", 10*time.Minute))
	assert.Equal(t, 10*time.Minute, mr.TTL(statePrefix+"abc"))

	intent, ok, err := store.Consume(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "login", intent)

	_, ok, err = store.Consume(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStateStore_Expires(t *testing.T) {
	mr, client := newTestClient(t)
	store := NewStateStore(client)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "abc", "login", time.Minute))
	mr.FastForward(2 * time.Minute)

	_, ok, err := store.Consume(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConnect(t *testing.T) {
	mr, _ := newTestClient(t)

	client, err := Connect(context.Background(), Config{Addr: mr.Addr()})
	require.NoError(t, err)
	assert.NoError(t, client.Close())

	_, err = Connect(context.Background(), Config{Addr: "127.0.0.1:1", Timeout: 200 * time.Millisecond})
	assert.Error(t, err)
}
