package goCrud

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrantLifecycle(t *testing.T) {
	for name, e := range engines(t, testConfig()) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			g, err := e.CreateGrant(ctx, GrantInput{
				Kind:         GrantType,
				Tree:         treeGroup,
				UserNids:     []string{"u1"},
				GroupNids:    []string{"g1"},
				Capabilities: Capabilities{Read: true},
			})
			require.NoError(t, err)
			require.NotEmpty(t, g.Nid)

			got, err := e.GetGrant(ctx, g.Nid)
			require.NoError(t, err)
			assert.Equal(t, *g, *got)
			assert.True(t, got.Capabilities.Allows(OpRead))
			assert.False(t, got.Capabilities.Allows(OpDelete))

			next := got.Clone()
			next.Capabilities.Update = true
			next.UserNids = append(next.UserNids, "u2")
			updated, err := e.UpdateGrant(ctx, g.Nid, *got, next)
			require.NoError(t, err)
			assert.Equal(t, []string{"u1", "u2"}, updated.UserNids)

			// The stale copy no longer matches.
			_, err = e.UpdateGrant(ctx, g.Nid, *got, next)
			require.ErrorIs(t, err, ErrConflict)
			require.ErrorIs(t, e.DeleteGrant(ctx, g.Nid, *got), ErrConflict)

			grants, err := e.ListGrants(ctx)
			require.NoError(t, err)
			require.Len(t, grants, 1)
			assert.Equal(t, *updated, grants[0])

			require.NoError(t, e.DeleteGrant(ctx, g.Nid, *updated))
			_, err = e.GetGrant(ctx, g.Nid)
			require.ErrorIs(t, err, ErrNotFound)
			require.ErrorIs(t, e.DeleteGrant(ctx, g.Nid, *updated), ErrNotFound)
		})
	}
}

func TestCreateGrantValidation(t *testing.T) {
	e := newMemoryEngine(t, testConfig())
	ctx := context.Background()

	tests := []struct {
		name string
		in   GrantInput
		ok   bool
	}{
		{"type grant", GrantInput{Kind: GrantType, Tree: "user", UserNids: []string{"u"}}, true},
		{"asset grant", GrantInput{Kind: GrantAsset, Tree: "group", AssetNid: "g"}, true},
		{"missing tree", GrantInput{Kind: GrantType}, false},
		{"asset without nid", GrantInput{Kind: GrantAsset, Tree: "group"}, false},
		{"type with asset", GrantInput{Kind: GrantType, Tree: "group", AssetNid: "g"}, false},
		{"unknown kind", GrantInput{Kind: "role", Tree: "group"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.CreateGrant(ctx, tt.in)
			if tt.ok {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func TestUpdateGrantKeepsNid(t *testing.T) {
	e := newMemoryEngine(t, testConfig())
	ctx := context.Background()

	g, err := e.CreateGrant(ctx, GrantInput{Kind: GrantAsset, Tree: "user", AssetNid: "u1"})
	require.NoError(t, err)

	next := g.Clone()
	next.Nid = "other"
	next.Capabilities.Delete = true
	updated, err := e.UpdateGrant(ctx, g.Nid, *g, next)
	require.NoError(t, err)
	assert.Equal(t, g.Nid, updated.Nid)

	_, err = e.GetGrant(ctx, "other")
	require.ErrorIs(t, err, ErrNotFound)
}
