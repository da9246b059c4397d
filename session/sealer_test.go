package session

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func newSealerTest(t *testing.T) *Sealer {
	t.Helper()
	s, err := NewSealer(SealerConfig{Key: bytes.Repeat([]byte("s"), 32), Issuer: "gocrud"})
	if err != nil {
		t.Fatalf("NewSealer: %v", err)
	}
	return s
}

func TestSealerRoundTrip(t *testing.T) {
	s := newSealerTest(t)

	raw, err := s.Seal("user", "nid-1", time.Hour)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if strings.Count(raw, ".") != 2 {
		t.Fatalf("expected compact JWT, got %q", raw)
	}

	v, err := s.Open("user", raw)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if v != "nid-1" {
		t.Fatalf("expected nid-1, got %q", v)
	}
}

func TestSealerRejects(t *testing.T) {
	s := newSealerTest(t)

	raw, err := s.Seal("user", "nid-1", 0)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	expired, err := s.Seal("user", "nid-1", -time.Minute)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	// A negative ttl is treated like zero: no expiry.
	if _, err := s.Open("user", expired); err != nil {
		t.Fatalf("Open: %v", err)
	}

	cases := map[string]struct {
		name string
		raw  string
	}{
		"empty":      {"user", ""},
		"wrong name": {"group", raw},
		"garbage":    {"user", "a.b.c"},
		"tampered":   {"user", raw[:strings.LastIndex(raw, ".")+1] + strings.Repeat("A", 43)},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := s.Open(tc.name, tc.raw); !errors.Is(err, ErrSealInvalid) {
				t.Fatalf("expected ErrSealInvalid, got %v", err)
			}
		})
	}
}

func TestSealerExpiry(t *testing.T) {
	s := newSealerTest(t)

	raw, err := s.Seal("user", "nid-1", time.Nanosecond)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	time.Sleep(1100 * time.Millisecond)

	if _, err := s.Open("user", raw); !errors.Is(err, ErrSealInvalid) {
		t.Fatalf("expected expired seal to be rejected, got %v", err)
	}
}

func TestNewSealerValidation(t *testing.T) {
	if _, err := NewSealer(SealerConfig{Key: []byte("short")}); err == nil {
		t.Fatal("expected short key to be rejected")
	}
	if _, err := NewSealer(SealerConfig{Key: bytes.Repeat([]byte("s"), 32), Leeway: time.Hour}); err == nil {
		t.Fatal("expected large leeway to be rejected")
	}
}
