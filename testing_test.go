package goCrud

import (
	"bytes"
	"context"
	"testing"

	"github.com/MrEthical07/goCrud/session"
	"github.com/MrEthical07/goCrud/store"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// testConfig returns a valid configuration with cheap hashing parameters.
func testConfig() Config {
	cfg := defaultConfig()
	cfg.Session.SigningKey = bytes.Repeat([]byte("s"), 32)
	cfg.Session.CSRFKey = bytes.Repeat([]byte("c"), 32)
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Password.UpgradeOnLogin = false
	cfg.Metrics.Enabled = true
	return cfg
}

// newMemoryEngine builds an engine over a fresh MemoryKV.
func newMemoryEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()

	engine, err := New().WithConfig(cfg).WithStore(store.NewMemoryKV()).Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)
	return engine
}

// newRedisEngine builds an engine storing records and throttle counters in
// miniredis.
func newRedisEngine(t *testing.T, cfg Config) (*Engine, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	engine, err := New().WithConfig(cfg).WithRedis(rdb).Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)
	return engine, mr
}

// engines returns one engine per backend, sharing cfg.
func engines(t *testing.T, cfg Config) map[string]*Engine {
	t.Helper()

	redisEngine, _ := newRedisEngine(t, cfg)
	return map[string]*Engine{
		"memory": newMemoryEngine(t, cfg),
		"redis":  redisEngine,
	}
}

// withCSRF issues a CSRF token for sess and returns the session carrying the
// anonymous id the token is bound to.
func withCSRF(t *testing.T, e *Engine, sess session.Session) (session.Session, string) {
	t.Helper()

	grant, err := e.CSRFToken(context.Background(), sess)
	require.NoError(t, err)
	return grant.Session, grant.Token
}

func mustCreateUser(t *testing.T, e *Engine, nickname, email, pw string) *UserView {
	t.Helper()

	view, err := e.CreateUser(context.Background(), UserCreate{
		Nickname: nickname,
		Email:    email,
		Password: pw,
	})
	require.NoError(t, err)
	return view
}

// loginSession logs in and returns a session carrying the bound identity and
// a CSRF token for it.
func loginSession(t *testing.T, e *Engine, email, pw string) (session.Session, string) {
	t.Helper()

	res, err := e.Login(context.Background(), UserLogin{Email: email, Password: pw})
	require.NoError(t, err)
	require.Equal(t, session.MutationSet, res.Cookie.Kind)
	return withCSRF(t, e, session.Session{Identity: res.Cookie.Cookie.Value})
}

func ptr[T any](v T) *T { return &v }

func newTestKV() store.KV { return store.NewMemoryKV() }
