package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds rate limiter tuning parameters.
type Config struct {
	Prefix                string
	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
}

// incrWindow bumps a counter and starts its window on the first hit. Running
// both steps in one script means a counter can never outlive its window.
var incrWindow = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// Limiter throttles failed logins per identifier and, optionally, per
// client IP using Redis counters.
type Limiter struct {
	rdb redis.UniversalClient
	cfg Config
}

// New creates a rate [Limiter] backed by the given Redis client.
func New(rdb redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{rdb: rdb, cfg: cfg}
}

// CheckLogin returns ErrRateLimited when the identifier or the client IP has
// used up its failed-login budget. Both counters are read in one round trip.
func (l *Limiter) CheckLogin(ctx context.Context, identifier, ip string) error {
	vals, err := l.rdb.MGet(ctx, l.keys(identifier, ip)...).Result()
	if err != nil {
		return unavailable(err)
	}
	for _, v := range vals {
		if count(v) >= int64(l.cfg.MaxLoginAttempts) {
			return ErrRateLimited
		}
	}
	return nil
}

// IncrementLogin records a failed login. It returns ErrRateLimited when this
// attempt pushed either counter past the budget.
func (l *Limiter) IncrementLogin(ctx context.Context, identifier, ip string) error {
	window := l.cfg.LoginCooldownDuration.Milliseconds()
	limited := false
	for _, key := range l.keys(identifier, ip) {
		n, err := incrWindow.Run(ctx, l.rdb, []string{key}, window).Int64()
		if err != nil {
			return unavailable(err)
		}
		if n > int64(l.cfg.MaxLoginAttempts) {
			limited = true
		}
	}
	if limited {
		return ErrRateLimited
	}
	return nil
}

// ResetLogin clears the counters after a successful login.
func (l *Limiter) ResetLogin(ctx context.Context, identifier, ip string) error {
	if err := l.rdb.Del(ctx, l.keys(identifier, ip)...).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// GetLoginAttempts returns the failed-login count for identifier. Unknown
// identifiers report zero.
func (l *Limiter) GetLoginAttempts(ctx context.Context, identifier string) (int, error) {
	v, err := l.rdb.Get(ctx, l.key("throttle:login:"+identifier)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, unavailable(err)
	}
	return int(count(v)), nil
}

// keys lists the counters an attempt is charged against.
func (l *Limiter) keys(identifier, ip string) []string {
	keys := []string{l.key("throttle:login:" + identifier)}
	if l.cfg.EnableIPThrottle && ip != "" {
		keys = append(keys, l.key("throttle:ip:"+ip))
	}
	return keys
}

func (l *Limiter) key(suffix string) string {
	if l.cfg.Prefix == "" {
		return suffix
	}
	return l.cfg.Prefix + ":" + suffix
}

// count reads an MGET/GET reply; missing or garbage values count as zero.
func count(v any) int64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	var n int64
	if _, err := fmt.Sscan(s, &n); err != nil || n < 0 {
		return 0
	}
	return n
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
}
