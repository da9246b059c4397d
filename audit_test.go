package goCrud

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/goCrud/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuditEngine(t *testing.T, sink AuditSink) *Engine {
	t.Helper()

	cfg := testConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 64
	cfg.Audit.DropIfFull = false

	e, err := New().WithConfig(cfg).WithStore(newTestKV()).WithAuditSink(sink).Build()
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

// collect drains events until want of them arrived or the deadline passed.
func collect(sink *ChannelSink, want int) []AuditEvent {
	events := make([]AuditEvent, 0, want)
	timeout := time.After(2 * time.Second)
	for len(events) < want {
		select {
		case ev := <-sink.Events():
			events = append(events, ev)
		case <-timeout:
			return events
		}
	}
	return events
}

func TestAuditDisabledNoEvents(t *testing.T) {
	sink := NewChannelSink(8)
	cfg := testConfig()
	cfg.Audit.Enabled = false
	e, err := New().WithConfig(cfg).WithStore(newTestKV()).WithAuditSink(sink).Build()
	require.NoError(t, err)
	defer e.Close()

	mustCreateUser(t, e, "ann", "ann@x.com", "pw1")
	time.Sleep(30 * time.Millisecond)
	assert.Empty(t, sink.Events())
}

func TestAuditLoginEvents(t *testing.T) {
	sink := NewChannelSink(16)
	e := newAuditEngine(t, sink)

	ann := mustCreateUser(t, e, "ann", "ann@x.com", "super-secret-password")
	ctx := WithClientIP(context.Background(), "198.51.100.33")
	_, err := e.Login(ctx, UserLogin{Email: "ann@x.com", Password: "wrong-password"})
	require.ErrorIs(t, err, ErrForbidden)

	events := collect(sink, 2)
	require.Len(t, events, 2)

	assert.Equal(t, auditEventUserCreated, events[0].EventType)
	assert.True(t, events[0].Success)
	assert.Equal(t, ann.Nid, events[0].RecordID)
	assert.Equal(t, treeUser, events[0].Tree)

	failure := events[1]
	assert.Equal(t, auditEventLoginFailure, failure.EventType)
	assert.False(t, failure.Success)
	assert.Equal(t, "198.51.100.33", failure.IP)
	assert.Equal(t, string(auditErrForbidden), failure.Error)
	assert.Equal(t, "invalid_password", failure.Metadata["reason"])
}

func TestAuditNoSecretsInEvents(t *testing.T) {
	sink := NewChannelSink(32)
	e := newAuditEngine(t, sink)
	ctx := context.Background()

	const pw = "correct-password-123"
	mustCreateUser(t, e, "ann", "ann@x.com", pw)
	sess, token := loginSession(t, e, "ann@x.com", pw)
	_, _ = e.UpdateUser(ctx, sess, UserUpdate{CSRFToken: token, NewPassword: ptr("next-password-456"), Password: ptr(pw)})
	_, _ = e.Login(ctx, UserLogin{Email: "ann@x.com", Password: "guess"})
	_, _ = e.Logout(ctx, sess, token)

	stored, err := e.users.Get(ctx, treeUser, sess.Identity)
	require.NoError(t, err)
	needles := []string{pw, "next-password-456", "guess", token, stored.Password}

	events := collect(sink, 5)
	require.NotEmpty(t, events)
	for _, ev := range events {
		for _, needle := range needles {
			assert.False(t, strings.Contains(ev.Error, needle), "secret leaked in error of %s", ev.EventType)
			for k, v := range ev.Metadata {
				assert.False(t, strings.Contains(k+v, needle), "secret leaked in metadata of %s", ev.EventType)
			}
		}
	}
}

func TestAuditCSRFRejected(t *testing.T) {
	sink := NewChannelSink(8)
	e := newAuditEngine(t, sink)

	_, err := e.Logout(context.Background(), session.Session{ID: "x", Identity: "u"}, "forged")
	require.ErrorIs(t, err, ErrToken)

	events := collect(sink, 1)
	require.Len(t, events, 1)
	assert.Equal(t, auditEventCSRFRejected, events[0].EventType)
	assert.Equal(t, string(auditErrToken), events[0].Error)
	assert.EqualValues(t, 1, e.MetricsSnapshot().Counters[MetricCSRFRejected])
}

func TestAuditErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want AuditErrorCode
	}{
		{nil, ""},
		{ErrExists, auditErrExists},
		{ErrNotFound, auditErrNotFound},
		{ErrForbidden, auditErrForbidden},
		{ErrToken, auditErrToken},
		{ErrConflict, auditErrConflict},
		{ErrInvalidRequest, auditErrInvalidRequest},
		{ErrLoginRateLimited, auditErrRateLimited},
		{ErrUnavailable, auditErrUnavailable},
		{ErrCorrupt, auditErrCorrupt},
		{context.Canceled, auditErrInternal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, auditErrorCode(tt.err), "%v", tt.err)
	}
}
