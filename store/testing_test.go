package store

import (
	"slices"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type note struct {
	ID   string   `json:"id"`
	Body string   `json:"body"`
	Tags []string `json:"tags,omitempty"`
}

func (n note) Clone() note {
	n.Tags = slices.Clone(n.Tags)
	return n
}

func newRedisKVTest(t *testing.T) (*RedisKV, *miniredis.Miniredis, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	return NewRedisKV(rdb, "gocrud"), mr, func() {
		_ = rdb.Close()
		mr.Close()
	}
}

// backends returns every KV implementation under test.
func backends(t *testing.T) map[string]KV {
	t.Helper()

	redisKV, _, done := newRedisKVTest(t)
	t.Cleanup(done)

	return map[string]KV{
		"memory": NewMemoryKV(),
		"redis":  redisKV,
	}
}
