package goCrud

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/MrEthical07/goCrud/internal"
)

// CreateGrant stores a new grant under a fresh nid.
func (e *Engine) CreateGrant(ctx context.Context, in GrantInput) (*Grant, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	defer e.observe(time.Now())

	nid, err := internal.NewNid()
	if err != nil {
		return nil, err
	}
	grant := Grant{
		Nid:          nid,
		Kind:         in.Kind,
		Tree:         in.Tree,
		AssetNid:     in.AssetNid,
		UserNids:     slices.Clone(in.UserNids),
		GroupNids:    slices.Clone(in.GroupNids),
		Capabilities: in.Capabilities,
	}
	if err := validateGrant(grant); err != nil {
		return nil, err
	}

	created, err := e.grants.Create(ctx, treeAuth, grant.Nid, grant)
	if err != nil {
		return nil, e.storeErr(err)
	}

	e.metricInc(MetricGrantCreated)
	e.emitAudit(ctx, auditEventGrantCreated, true, "", treeAuth, grant.Nid, nil, func() map[string]string {
		return map[string]string{"kind": string(grant.Kind), "tree": grant.Tree}
	})
	return &created, nil
}

// GetGrant returns the grant stored under nid.
func (e *Engine) GetGrant(ctx context.Context, nid string) (*Grant, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if nid == "" {
		return nil, ErrInvalidRequest
	}

	grant, err := e.grants.Get(ctx, treeAuth, nid)
	if err != nil {
		return nil, e.storeErr(err)
	}
	return &grant, nil
}

// ListGrants returns every grant in store order.
func (e *Engine) ListGrants(ctx context.Context) ([]Grant, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	grants := []Grant{}
	for grant, err := range e.grants.All(ctx, treeAuth) {
		if err != nil {
			return nil, e.storeErr(err)
		}
		grants = append(grants, grant)
	}
	return grants, nil
}

// UpdateGrant replaces expected with next under nid. expected must be the
// grant as last read; a concurrent change yields ErrConflict. The nid of
// next is forced to nid.
func (e *Engine) UpdateGrant(ctx context.Context, nid string, expected, next Grant) (*Grant, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	defer e.observe(time.Now())

	if nid == "" {
		return nil, ErrInvalidRequest
	}
	next = next.Clone()
	next.Nid = nid
	if err := validateGrant(next); err != nil {
		return nil, err
	}

	updated, err := e.grants.Swap(ctx, treeAuth, nid, expected, next)
	if err != nil {
		return nil, e.storeErr(err)
	}

	e.metricInc(MetricGrantUpdated)
	e.emitAudit(ctx, auditEventGrantUpdated, true, "", treeAuth, nid, nil, nil)
	return &updated, nil
}

// DeleteGrant removes the grant under nid if it still equals expected. An
// absent key yields ErrNotFound and a changed one ErrConflict.
func (e *Engine) DeleteGrant(ctx context.Context, nid string, expected Grant) error {
	if err := e.ready(); err != nil {
		return err
	}
	defer e.observe(time.Now())

	if nid == "" {
		return ErrInvalidRequest
	}
	if _, err := e.grants.Delete(ctx, treeAuth, nid, expected); err != nil {
		return e.storeErr(err)
	}

	e.metricInc(MetricGrantDeleted)
	e.emitAudit(ctx, auditEventGrantDeleted, true, "", treeAuth, nid, nil, nil)
	return nil
}

func validateGrant(g Grant) error {
	if g.Tree == "" {
		return fmt.Errorf("%w: grant tree required", ErrInvalidRequest)
	}
	if !validText(string(g.Kind), g.Tree, g.AssetNid) || !validText(g.UserNids...) || !validText(g.GroupNids...) {
		return fmt.Errorf("%w: text must be valid UTF-8", ErrInvalidRequest)
	}
	switch g.Kind {
	case GrantType:
		if g.AssetNid != "" {
			return fmt.Errorf("%w: type grant must not name an asset", ErrInvalidRequest)
		}
	case GrantAsset:
		if g.AssetNid == "" {
			return fmt.Errorf("%w: asset grant requires an asset nid", ErrInvalidRequest)
		}
	default:
		return fmt.Errorf("%w: unknown grant kind %q", ErrInvalidRequest, g.Kind)
	}
	return nil
}
