package internal

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestSessionIDRoundTrip(t *testing.T) {
	sid, err := NewSessionID()
	if err != nil {
		t.Fatalf("NewSessionID: %v", err)
	}

	parsed, err := ParseSessionID(sid.String())
	if err != nil {
		t.Fatalf("ParseSessionID: %v", err)
	}
	if parsed != sid {
		t.Fatalf("expected %x, got %x", sid, parsed)
	}
}

func TestParseSessionIDRejectsWrongSize(t *testing.T) {
	for _, in := range []string{"", "abc", "!!!not-base64!!!", "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"} {
		if _, err := ParseSessionID(in); !errors.Is(err, ErrSessionIDSize) {
			t.Fatalf("expected ErrSessionIDSize for %q, got %v", in, err)
		}
	}
	if _, err := ParseSessionID(strings.Repeat("!", 22)); err == nil || errors.Is(err, ErrSessionIDSize) {
		t.Fatalf("expected a decode error, got %v", err)
	}
}

func TestSessionIDText(t *testing.T) {
	sid, err := NewSessionID()
	if err != nil {
		t.Fatalf("NewSessionID: %v", err)
	}
	text, err := sid.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}
	if len(text) != 22 || strings.ContainsAny(string(text), "+/=") {
		t.Fatalf("unexpected text form %q", text)
	}

	var back SessionID
	if err := back.UnmarshalText(text); err != nil || back != sid {
		t.Fatalf("UnmarshalText: %v (%x != %x)", err, back, sid)
	}
}

func TestNewNidIsCanonicalUUID(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 64; i++ {
		nid, err := NewNid()
		if err != nil {
			t.Fatalf("NewNid: %v", err)
		}
		id, err := uuid.Parse(nid)
		if err != nil {
			t.Fatalf("nid %q does not parse: %v", nid, err)
		}
		if id.Version() != 4 {
			t.Fatalf("expected v4 uuid, got v%d", id.Version())
		}
		if id.String() != nid {
			t.Fatalf("nid %q is not canonical", nid)
		}
		if _, dup := seen[nid]; dup {
			t.Fatalf("duplicate nid %q", nid)
		}
		seen[nid] = struct{}{}
	}
}

func TestRandomBytes(t *testing.T) {
	if _, err := RandomBytes(0); err == nil {
		t.Fatal("expected error for zero length")
	}
	b, err := RandomBytes(16)
	if err != nil {
		t.Fatalf("RandomBytes: %v", err)
	}
	if len(b) != 16 {
		t.Fatalf("expected 16 bytes, got %d", len(b))
	}
}
