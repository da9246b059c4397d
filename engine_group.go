package goCrud

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goCrud/internal"
	"github.com/MrEthical07/goCrud/session"
)

// CreateGroup creates a group owned by the user bound to sess. The owner is
// also the first member.
func (e *Engine) CreateGroup(ctx context.Context, sess session.Session, req GroupCreate) (*GroupView, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	defer e.observe(time.Now())

	if !sess.Authenticated() {
		return nil, ErrForbidden
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrInvalidRequest
	}
	if !validText(name, deref(req.Description)) {
		return nil, fmt.Errorf("%w: text must be valid UTF-8", ErrInvalidRequest)
	}

	ok, err := e.users.Exists(ctx, treeUser, sess.Identity)
	if err != nil {
		return nil, e.storeErr(err)
	}
	if !ok {
		return nil, ErrForbidden
	}

	nid, err := internal.NewNid()
	if err != nil {
		return nil, err
	}
	group := Group{
		Nid:         nid,
		UserNid:     sess.Identity,
		Members:     []string{sess.Identity},
		Name:        name,
		Description: cloneString(req.Description),
	}
	created, err := e.groups.Create(ctx, treeGroup, group.Nid, group)
	if err != nil {
		return nil, e.storeErr(err)
	}

	e.metricInc(MetricGroupCreated)
	e.emitAudit(ctx, auditEventGroupCreated, true, sess.Identity, treeGroup, group.Nid, nil, nil)

	view := created.View()
	return &view, nil
}

// AddMember appends a user to a group. Both must exist (ErrNotFound) and the
// user must not already be a member (ErrExists). The group is written back
// under its own nid with a compare-and-swap, so of two concurrent additions
// one fails with ErrConflict instead of being lost.
func (e *Engine) AddMember(ctx context.Context, req GroupMember) (*GroupView, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	defer e.observe(time.Now())

	if req.GroupNid == "" || req.UserNid == "" {
		return nil, ErrInvalidRequest
	}

	stored, err := e.groups.Load(ctx, treeGroup, req.GroupNid)
	if err != nil {
		return nil, e.memberFailed(ctx, req, e.storeErr(err), "group")
	}
	group := stored.Record
	ok, err := e.users.Exists(ctx, treeUser, req.UserNid)
	if err != nil {
		return nil, e.memberFailed(ctx, req, e.storeErr(err), "user")
	}
	if !ok {
		return nil, e.memberFailed(ctx, req, ErrNotFound, "user")
	}
	if group.HasMember(req.UserNid) {
		return nil, e.memberFailed(ctx, req, ErrExists, "already_member")
	}

	next := group.Clone()
	next.Members = append(next.Members, req.UserNid)
	updated, err := e.groups.SwapStored(ctx, treeGroup, group.Nid, stored, next)
	if err != nil {
		return nil, e.memberFailed(ctx, req, e.storeErr(err), "write")
	}

	e.metricInc(MetricGroupMemberAdded)
	e.emitAudit(ctx, auditEventGroupMemberAdded, true, req.UserNid, treeGroup, group.Nid, nil, nil)

	view := updated.View()
	return &view, nil
}

func (e *Engine) memberFailed(ctx context.Context, req GroupMember, err error, reason string) error {
	e.emitAudit(ctx, auditEventGroupMemberFailure, false, req.UserNid, treeGroup, req.GroupNid, err, func() map[string]string {
		return map[string]string{"reason": reason}
	})
	return err
}

// GetGroup returns the public view of one group.
func (e *Engine) GetGroup(ctx context.Context, nid string) (*GroupView, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if nid == "" {
		return nil, ErrInvalidRequest
	}

	group, err := e.groups.Get(ctx, treeGroup, nid)
	if err != nil {
		return nil, e.storeErr(err)
	}
	view := group.View()
	return &view, nil
}

// ListGroups returns the public view of every group in store order.
func (e *Engine) ListGroups(ctx context.Context) ([]GroupView, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	views := []GroupView{}
	for group, err := range e.groups.All(ctx, treeGroup) {
		if err != nil {
			return nil, e.storeErr(err)
		}
		views = append(views, group.View())
	}
	return views, nil
}

// DeleteGroup removes a group. Only its owner may delete it.
func (e *Engine) DeleteGroup(ctx context.Context, sess session.Session, req GroupDelete) error {
	if err := e.ready(); err != nil {
		return err
	}
	defer e.observe(time.Now())

	if err := e.requireCSRF(ctx, sess, req.CSRFToken); err != nil {
		return err
	}
	if !sess.Authenticated() {
		return ErrForbidden
	}
	if req.Nid == "" {
		return ErrInvalidRequest
	}

	stored, err := e.groups.Load(ctx, treeGroup, req.Nid)
	if err != nil {
		return e.storeErr(err)
	}
	group := stored.Record
	if group.UserNid != sess.Identity {
		return ErrForbidden
	}
	if _, err := e.groups.DeleteStored(ctx, treeGroup, group.Nid, stored); err != nil {
		return e.storeErr(err)
	}

	e.metricInc(MetricGroupDeleted)
	e.emitAudit(ctx, auditEventGroupDeleted, true, sess.Identity, treeGroup, group.Nid, nil, nil)
	return nil
}
