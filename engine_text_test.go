package goCrud

import (
	"context"
	"testing"

	"github.com/MrEthical07/goCrud/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvalidUTF8Rejected(t *testing.T) {
	e := newMemoryEngine(t, testConfig())
	ctx := context.Background()

	_, err := e.CreateUser(ctx, UserCreate{Nickname: "bad\xffname", Email: "a@x.com", Password: "pw1"})
	require.ErrorIs(t, err, ErrInvalidRequest)
	_, err = e.CreateUser(ctx, UserCreate{Nickname: "a", Surname: ptr("s\xfe"), Email: "a@x.com", Password: "pw1"})
	require.ErrorIs(t, err, ErrInvalidRequest)
	_, err = e.GetUser(ctx, UserQuery{Email: "a@x.com"})
	require.ErrorIs(t, err, ErrNotFound, "a refused create must not reserve the email")

	mustCreateUser(t, e, "ann", "ann@x.com", "pw1")
	sess, token := loginSession(t, e, "ann@x.com", "pw1")
	_, err = e.UpdateUser(ctx, sess, UserUpdate{CSRFToken: token, Nickname: ptr("x\xff")})
	require.ErrorIs(t, err, ErrInvalidRequest)
	_, err = e.UpdateUser(ctx, sess, UserUpdate{CSRFToken: token, NewEmail: ptr("n\xff@x.com"), Password: ptr("pw1")})
	require.ErrorIs(t, err, ErrInvalidRequest)

	_, err = e.CreateGroup(ctx, sess, GroupCreate{Name: "g\xff"})
	require.ErrorIs(t, err, ErrInvalidRequest)
	_, err = e.CreateGroup(ctx, sess, GroupCreate{Name: "g", Description: ptr("\xc3")})
	require.ErrorIs(t, err, ErrInvalidRequest)

	_, err = e.CreateGrant(ctx, GrantInput{Kind: GrantType, Tree: "user\xff"})
	require.ErrorIs(t, err, ErrInvalidRequest)
	grant, err := e.CreateGrant(ctx, GrantInput{Kind: GrantType, Tree: "user"})
	require.NoError(t, err)
	next := grant.Clone()
	next.UserNids = []string{"u\xff"}
	_, err = e.UpdateGrant(ctx, grant.Nid, *grant, next)
	require.ErrorIs(t, err, ErrInvalidRequest)
}

// Records written before validation existed, or by another writer, may hold
// text the codec does not reproduce byte for byte. Updates and deletes must
// still match them.
func TestWritesMatchStoredEncoding(t *testing.T) {
	for _, codec := range []string{store.CodecJSON, store.CodecCBOR} {
		cfg := testConfig()
		cfg.Store.Codec = codec
		for name, e := range engines(t, cfg) {
			t.Run(codec+"/"+name, func(t *testing.T) {
				ctx := context.Background()

				ann := mustCreateUser(t, e, "ann", "ann@x.com", "pw1")
				bob := mustCreateUser(t, e, "bob", "bob@x.com", "pw2")
				taint := func(nid string) {
					u, err := e.users.Get(ctx, treeUser, nid)
					require.NoError(t, err)
					u.Nickname = "bad\xffname"
					_, err = e.users.Update(ctx, treeUser, nid, u)
					require.NoError(t, err)
				}
				taint(ann.Nid)
				taint(bob.Nid)

				users, err := e.ListUsers(ctx)
				require.NoError(t, err)
				assert.Len(t, users, 2)

				sess, token := loginSession(t, e, "ann@x.com", "pw1")
				updated, err := e.UpdateUser(ctx, sess, UserUpdate{CSRFToken: token, Nickname: ptr("ann")})
				require.NoError(t, err)
				assert.Equal(t, "ann", updated.Nickname)

				owner, _ := loginSession(t, e, "ann@x.com", "pw1")
				g, err := e.CreateGroup(ctx, owner, GroupCreate{Name: "g"})
				require.NoError(t, err)
				stored, err := e.groups.Get(ctx, treeGroup, g.Nid)
				require.NoError(t, err)
				stored.Name = "g\xff"
				_, err = e.groups.Update(ctx, treeGroup, g.Nid, stored)
				require.NoError(t, err)

				g, err = e.AddMember(ctx, GroupMember{GroupNid: g.Nid, UserNid: bob.Nid})
				require.NoError(t, err)
				assert.Equal(t, []string{ann.Nid, bob.Nid}, g.Members)

				bobSess, bobToken := loginSession(t, e, "bob@x.com", "pw2")
				_, err = e.DeleteUser(ctx, bobSess, UserDelete{CSRFToken: bobToken, Password: "pw2"})
				require.NoError(t, err)
				_, err = e.GetUser(ctx, UserQuery{Nid: bob.Nid})
				require.ErrorIs(t, err, ErrNotFound)
			})
		}
	}
}

func TestDeleteUserRefusedWhileOwningGroups(t *testing.T) {
	e := newMemoryEngine(t, testConfig())
	ctx := context.Background()
	ann := mustCreateUser(t, e, "ann", "ann@x.com", "pw1")
	sess, token := loginSession(t, e, "ann@x.com", "pw1")

	g, err := e.CreateGroup(ctx, sess, GroupCreate{Name: "g"})
	require.NoError(t, err)

	_, err = e.DeleteUser(ctx, sess, UserDelete{CSRFToken: token, Password: "pw1"})
	require.ErrorIs(t, err, ErrExists)
	_, err = e.GetUser(ctx, UserQuery{Nid: ann.Nid})
	require.NoError(t, err, "a refused delete must keep the user")

	require.NoError(t, e.DeleteGroup(ctx, sess, GroupDelete{CSRFToken: token, Nid: g.Nid}))
	_, err = e.DeleteUser(ctx, sess, UserDelete{CSRFToken: token, Password: "pw1"})
	require.NoError(t, err)
}

func TestLoginWrongPasswordMintsNothing(t *testing.T) {
	sink := NewChannelSink(8)
	e := newAuditEngine(t, sink)
	ctx := context.Background()
	mustCreateUser(t, e, "ann", "ann@x.com", "pw1")

	res, err := e.Login(ctx, UserLogin{Email: "ann@x.com", Password: "nope"})
	require.ErrorIs(t, err, ErrForbidden)
	assert.Nil(t, res)

	snap := e.MetricsSnapshot()
	assert.Zero(t, snap.Counters[MetricLoginSuccess])
	assert.EqualValues(t, 1, snap.Counters[MetricLoginFailure])

	events := collect(sink, 2)
	require.Len(t, events, 2)
	assert.Equal(t, auditEventLoginFailure, events[1].EventType)
	assert.Equal(t, "invalid_password", events[1].Metadata["reason"])
}
