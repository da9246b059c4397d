package rate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimiterTest(t *testing.T, cfg Config) (*Limiter, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return New(rdb, cfg), mr
}

func TestLoginThrottle(t *testing.T) {
	ctx := context.Background()
	l, mr := newLimiterTest(t, Config{
		Prefix:                "gocrud",
		MaxLoginAttempts:      3,
		LoginCooldownDuration: time.Minute,
	})

	for i := 0; i < 2; i++ {
		require.NoError(t, l.CheckLogin(ctx, "a@x.io", ""))
		require.NoError(t, l.IncrementLogin(ctx, "a@x.io", ""))
	}
	require.NoError(t, l.CheckLogin(ctx, "a@x.io", ""))
	require.NoError(t, l.IncrementLogin(ctx, "a@x.io", ""))
	require.ErrorIs(t, l.CheckLogin(ctx, "a@x.io", ""), ErrRateLimited)

	attempts, err := l.GetLoginAttempts(ctx, "a@x.io")
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.True(t, mr.Exists("gocrud:throttle:login:a@x.io"))

	// Other identifiers are unaffected.
	require.NoError(t, l.CheckLogin(ctx, "b@x.io", ""))

	mr.FastForward(2 * time.Minute)
	require.NoError(t, l.CheckLogin(ctx, "a@x.io", ""))
}

func TestLoginThrottleReset(t *testing.T) {
	ctx := context.Background()
	l, _ := newLimiterTest(t, Config{
		EnableIPThrottle:      true,
		MaxLoginAttempts:      1,
		LoginCooldownDuration: time.Minute,
	})

	require.NoError(t, l.IncrementLogin(ctx, "a@x.io", "10.0.0.1"))
	require.ErrorIs(t, l.CheckLogin(ctx, "a@x.io", "10.0.0.1"), ErrRateLimited)
	require.ErrorIs(t, l.CheckLogin(ctx, "b@x.io", "10.0.0.1"), ErrRateLimited, "ip counter applies across identifiers")

	require.NoError(t, l.ResetLogin(ctx, "a@x.io", "10.0.0.1"))
	require.NoError(t, l.CheckLogin(ctx, "a@x.io", "10.0.0.1"))

	attempts, err := l.GetLoginAttempts(ctx, "a@x.io")
	require.NoError(t, err)
	assert.Zero(t, attempts)
}

func TestLoginThrottleRedisDown(t *testing.T) {
	ctx := context.Background()
	l, mr := newLimiterTest(t, Config{MaxLoginAttempts: 1, LoginCooldownDuration: time.Minute})
	mr.Close()

	require.ErrorIs(t, l.CheckLogin(ctx, "a@x.io", ""), ErrRedisUnavailable)
	require.ErrorIs(t, l.IncrementLogin(ctx, "a@x.io", ""), ErrRedisUnavailable)
}

func TestIncrementStartsWindowOnce(t *testing.T) {
	ctx := context.Background()
	l, mr := newLimiterTest(t, Config{
		Prefix:                "gocrud",
		EnableIPThrottle:      true,
		MaxLoginAttempts:      5,
		LoginCooldownDuration: time.Minute,
	})

	require.NoError(t, l.IncrementLogin(ctx, "a@x.io", "10.0.0.2"))
	mr.FastForward(40 * time.Second)
	require.NoError(t, l.IncrementLogin(ctx, "a@x.io", "10.0.0.2"))

	// The second hit must not extend the window.
	assert.Equal(t, 20*time.Second, mr.TTL("gocrud:throttle:login:a@x.io"))
	assert.Equal(t, 20*time.Second, mr.TTL("gocrud:throttle:ip:10.0.0.2"))

	mr.FastForward(21 * time.Second)
	attempts, err := l.GetLoginAttempts(ctx, "a@x.io")
	require.NoError(t, err)
	assert.Zero(t, attempts)
}

func TestIncrementReportsBudgetExceeded(t *testing.T) {
	ctx := context.Background()
	l, _ := newLimiterTest(t, Config{MaxLoginAttempts: 2, LoginCooldownDuration: time.Minute})

	require.NoError(t, l.IncrementLogin(ctx, "a@x.io", ""))
	require.NoError(t, l.IncrementLogin(ctx, "a@x.io", ""))
	require.ErrorIs(t, l.IncrementLogin(ctx, "a@x.io", ""), ErrRateLimited)
}
