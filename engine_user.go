package goCrud

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goCrud/internal"
	"github.com/MrEthical07/goCrud/internal/rate"
	"github.com/MrEthical07/goCrud/password"
	"github.com/MrEthical07/goCrud/session"
	"github.com/MrEthical07/goCrud/store"
	"go.uber.org/zap"
)

// CreateUser registers a new user and returns its public view.
//
// The email is reserved with an insert-if-absent on the user_email tree
// before the user record is written, so two concurrent registrations of one
// address cannot both succeed; the loser gets ErrExists. If writing the user
// record fails the reservation is released.
func (e *Engine) CreateUser(ctx context.Context, req UserCreate) (*UserView, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	defer e.observe(time.Now())

	email := strings.TrimSpace(req.Email)
	key := normalizeEmail(email)
	if key == "" {
		e.emitAudit(ctx, auditEventUserCreateFailure, false, "", treeUser, "", ErrInvalidRequest, func() map[string]string {
			return map[string]string{"reason": "empty_email"}
		})
		return nil, ErrInvalidRequest
	}
	if req.Password == "" {
		e.emitAudit(ctx, auditEventUserCreateFailure, false, "", treeUser, "", ErrInvalidRequest, func() map[string]string {
			return map[string]string{"reason": "empty_password"}
		})
		return nil, ErrInvalidRequest
	}
	if !validText(req.Nickname, deref(req.Name), deref(req.Surname), email) {
		e.emitAudit(ctx, auditEventUserCreateFailure, false, "", treeUser, "", ErrInvalidRequest, func() map[string]string {
			return map[string]string{"reason": "invalid_utf8"}
		})
		return nil, fmt.Errorf("%w: text must be valid UTF-8", ErrInvalidRequest)
	}

	hash, err := e.auth.HashPassword(req.Password)
	if err != nil {
		if errors.Is(err, password.ErrPasswordLength) {
			e.emitAudit(ctx, auditEventUserCreateFailure, false, "", treeUser, "", ErrInvalidRequest, func() map[string]string {
				return map[string]string{"reason": "password_length"}
			})
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		return nil, err
	}

	nid, err := internal.NewNid()
	if err != nil {
		return nil, err
	}
	if _, err := e.emails.Create(ctx, treeUserEmail, key, emailClaim{Nid: nid}); err != nil {
		if errors.Is(err, ErrExists) {
			e.metricInc(MetricUserCreateDuplicate)
		}
		e.emitAudit(ctx, auditEventUserCreateFailure, false, "", treeUser, "", err, func() map[string]string {
			return map[string]string{"reason": "email_reservation"}
		})
		return nil, e.storeErr(err)
	}

	user := User{
		Nid:      nid,
		Nickname: req.Nickname,
		Name:     cloneString(req.Name),
		Surname:  cloneString(req.Surname),
		Email:    email,
		Password: hash,
	}
	created, err := e.users.Create(ctx, treeUser, nid, user)
	if err != nil {
		e.releaseEmail(ctx, key, nid)
		e.emitAudit(ctx, auditEventUserCreateFailure, false, "", treeUser, nid, err, nil)
		return nil, e.storeErr(err)
	}

	e.metricInc(MetricUserCreated)
	e.emitAudit(ctx, auditEventUserCreated, true, nid, treeUser, nid, nil, nil)

	view := created.View()
	return &view, nil
}

// Login verifies an email and password pair. On success the result carries
// the cookie mutation that binds the session identity to the user's nid. The
// password is checked before any cookie is minted.
//
// An unknown email yields ErrNotFound and a wrong password ErrForbidden;
// neither returns a cookie. With the login throttle enabled every failure
// counts against the email (and client IP, see [WithClientIP]) and a spent
// budget yields ErrLoginRateLimited.
func (e *Engine) Login(ctx context.Context, req UserLogin) (*LoginResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	defer e.observe(time.Now())

	key := normalizeEmail(req.Email)
	if key == "" || req.Password == "" {
		return nil, ErrInvalidRequest
	}
	ip := clientIPFromContext(ctx)

	if e.rateLimiter != nil {
		if err := e.rateLimiter.CheckLogin(ctx, key, ip); err != nil {
			return nil, e.loginThrottleErr(ctx, err)
		}
	}

	claim, err := e.emails.Get(ctx, treeUserEmail, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, e.loginFailed(ctx, key, ip, "", ErrNotFound, "unknown_email")
		}
		return nil, e.storeErr(err)
	}

	stored, err := e.users.Load(ctx, treeUser, claim.Nid)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, e.loginFailed(ctx, key, ip, claim.Nid, ErrNotFound, "dangling_email")
		}
		return nil, e.storeErr(err)
	}
	if !e.auth.VerifyPassword(req.Password, stored.Record.Password) {
		return nil, e.loginFailed(ctx, key, ip, claim.Nid, ErrForbidden, "invalid_password")
	}

	user, cookie, err := e.users.GetAndBind(ctx, treeUser, claim.Nid, e.auth, claim.Nid)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, e.loginFailed(ctx, key, ip, claim.Nid, ErrNotFound, "dangling_email")
		}
		return nil, e.storeErr(err)
	}

	if e.rateLimiter != nil {
		if err := e.rateLimiter.ResetLogin(ctx, key, ip); err != nil {
			e.logger.Warn("reset login throttle", zap.String("nid", user.Nid), zap.Error(err))
		}
	}

	if e.config.Password.UpgradeOnLogin {
		e.upgradePassword(ctx, stored, req.Password)
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.Nid, treeUser, user.Nid, nil, nil)

	return &LoginResult{User: user.View(), Cookie: cookie}, nil
}

func (e *Engine) loginFailed(ctx context.Context, key, ip, nid string, cause error, reason string) error {
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, nid, treeUser, nid, cause, func() map[string]string {
		return map[string]string{"reason": reason}
	})

	if e.rateLimiter != nil {
		if err := e.rateLimiter.IncrementLogin(ctx, key, ip); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				return e.loginThrottleErr(ctx, err)
			}
			e.logger.Warn("increment login throttle", zap.Error(err))
		}
	}
	return cause
}

func (e *Engine) loginThrottleErr(ctx context.Context, err error) error {
	if errors.Is(err, rate.ErrRateLimited) {
		e.metricInc(MetricLoginRateLimited)
		e.emitAudit(ctx, auditEventLoginRateLimited, false, "", treeUser, "", ErrLoginRateLimited, nil)
		return ErrLoginRateLimited
	}
	e.metricInc(MetricStoreUnavailable)
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// upgradePassword rehashes a password stored with weaker parameters. The
// swap is best effort; a concurrent update wins.
func (e *Engine) upgradePassword(ctx context.Context, stored store.Stored[User], plain string) {
	user := stored.Record
	needs, err := e.passwordHash.NeedsUpgrade(user.Password)
	if err != nil || !needs {
		return
	}
	hash, err := e.auth.HashPassword(plain)
	if err != nil {
		e.logger.Warn("rehash password", zap.String("nid", user.Nid), zap.Error(err))
		return
	}
	next := user.Clone()
	next.Password = hash
	if _, err := e.users.SwapStored(ctx, treeUser, user.Nid, stored, next); err != nil {
		e.logger.Info("password upgrade skipped", zap.String("nid", user.Nid), zap.Error(err))
	}
}

// Logout returns the mutation that removes the session identity cookie.
// The CSRF token is verified first; a request without a session identity
// yields ErrForbidden.
func (e *Engine) Logout(ctx context.Context, sess session.Session, csrfToken string) (session.Mutation, error) {
	if err := e.ready(); err != nil {
		return session.Mutation{}, err
	}
	if err := e.requireCSRF(ctx, sess, csrfToken); err != nil {
		return session.Mutation{}, err
	}

	m, err := e.auth.ClearSessionCookie(sess, SessionCookieName)
	if err != nil {
		return session.Mutation{}, err
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, sess.Identity, treeUser, sess.Identity, nil, nil)
	return m, nil
}

// UpdateUser applies req to the user bound to sess. Nil fields keep their
// stored value.
//
// Changing the email or the password requires req.Password to hold the
// current password; a new password equal to the current one yields
// ErrExists. The write is a compare-and-swap against the record read at the
// start of the call, so a concurrent update yields ErrConflict instead of
// being lost.
func (e *Engine) UpdateUser(ctx context.Context, sess session.Session, req UserUpdate) (*UserView, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	defer e.observe(time.Now())

	if err := e.requireCSRF(ctx, sess, req.CSRFToken); err != nil {
		return nil, err
	}
	if !sess.Authenticated() {
		return nil, e.updateFailed(ctx, "", ErrForbidden, "no_session")
	}
	if !validText(deref(req.Nickname), deref(req.Name), deref(req.Surname), deref(req.NewEmail)) {
		return nil, e.updateFailed(ctx, sess.Identity, fmt.Errorf("%w: text must be valid UTF-8", ErrInvalidRequest), "invalid_utf8")
	}

	stored, err := e.users.Load(ctx, treeUser, sess.Identity)
	if err != nil {
		return nil, e.updateFailed(ctx, sess.Identity, e.storeErr(err), "lookup")
	}
	current := stored.Record

	next := current.Clone()
	if req.Nickname != nil {
		next.Nickname = *req.Nickname
	}
	if req.Name != nil {
		next.Name = cloneString(req.Name)
	}
	if req.Surname != nil {
		next.Surname = cloneString(req.Surname)
	}

	if req.NewEmail != nil || req.NewPassword != nil {
		if req.Password == nil || !e.auth.VerifyPassword(*req.Password, current.Password) {
			return nil, e.updateFailed(ctx, current.Nid, ErrForbidden, "invalid_password")
		}
	}

	if req.NewPassword != nil {
		if e.auth.VerifyPassword(*req.NewPassword, current.Password) {
			return nil, e.updateFailed(ctx, current.Nid, ErrExists, "password_reused")
		}
		hash, err := e.auth.HashPassword(*req.NewPassword)
		if err != nil {
			if errors.Is(err, password.ErrPasswordLength) {
				return nil, e.updateFailed(ctx, current.Nid, fmt.Errorf("%w: %v", ErrInvalidRequest, err), "password_length")
			}
			return nil, err
		}
		next.Password = hash
	}

	oldKey := normalizeEmail(current.Email)
	newKey := oldKey
	if req.NewEmail != nil {
		email := strings.TrimSpace(*req.NewEmail)
		newKey = normalizeEmail(email)
		if newKey == "" {
			return nil, e.updateFailed(ctx, current.Nid, ErrInvalidRequest, "empty_email")
		}
		next.Email = email
	}

	emailMoved := newKey != oldKey
	if emailMoved {
		if _, err := e.emails.Create(ctx, treeUserEmail, newKey, emailClaim{Nid: current.Nid}); err != nil {
			return nil, e.updateFailed(ctx, current.Nid, e.storeErr(err), "email_reservation")
		}
	}

	updated, err := e.users.SwapStored(ctx, treeUser, current.Nid, stored, next)
	if err != nil {
		if emailMoved {
			e.releaseEmail(ctx, newKey, current.Nid)
		}
		return nil, e.updateFailed(ctx, current.Nid, e.storeErr(err), "write")
	}
	if emailMoved {
		e.releaseEmail(ctx, oldKey, current.Nid)
	}

	e.metricInc(MetricUserUpdated)
	e.emitAudit(ctx, auditEventUserUpdated, true, current.Nid, treeUser, current.Nid, nil, func() map[string]string {
		return map[string]string{
			"email_changed":    fmt.Sprint(emailMoved),
			"password_changed": fmt.Sprint(req.NewPassword != nil),
		}
	})

	view := updated.View()
	return &view, nil
}

func (e *Engine) updateFailed(ctx context.Context, nid string, err error, reason string) error {
	e.emitAudit(ctx, auditEventUserUpdateFailure, false, nid, treeUser, nid, err, func() map[string]string {
		return map[string]string{"reason": reason}
	})
	return err
}

// DeleteUser removes the user bound to sess after re-verifying its password,
// releases its email and returns the mutation that clears the session
// identity cookie.
//
// A user who still owns groups cannot be deleted (ErrExists); the groups
// must be deleted first. Membership and grant entries naming the user are
// left in place and simply stop resolving.
func (e *Engine) DeleteUser(ctx context.Context, sess session.Session, req UserDelete) (session.Mutation, error) {
	if err := e.ready(); err != nil {
		return session.Mutation{}, err
	}
	defer e.observe(time.Now())

	if err := e.requireCSRF(ctx, sess, req.CSRFToken); err != nil {
		return session.Mutation{}, err
	}
	if !sess.Authenticated() {
		return session.Mutation{}, e.deleteFailed(ctx, "", ErrForbidden, "no_session")
	}

	stored, err := e.users.Load(ctx, treeUser, sess.Identity)
	if err != nil {
		return session.Mutation{}, e.deleteFailed(ctx, sess.Identity, e.storeErr(err), "lookup")
	}
	current := stored.Record
	if !e.auth.VerifyPassword(req.Password, current.Password) {
		return session.Mutation{}, e.deleteFailed(ctx, current.Nid, ErrForbidden, "invalid_password")
	}

	owned, err := e.ownsGroup(ctx, current.Nid)
	if err != nil {
		return session.Mutation{}, e.deleteFailed(ctx, current.Nid, e.storeErr(err), "lookup")
	}
	if owned {
		return session.Mutation{}, e.deleteFailed(ctx, current.Nid, fmt.Errorf("%w: user still owns groups", ErrExists), "owns_groups")
	}

	if _, err := e.users.DeleteStored(ctx, treeUser, current.Nid, stored); err != nil {
		return session.Mutation{}, e.deleteFailed(ctx, current.Nid, e.storeErr(err), "write")
	}
	e.releaseEmail(ctx, normalizeEmail(current.Email), current.Nid)

	m, err := e.auth.ClearSessionCookie(sess, SessionCookieName)
	if err != nil {
		return session.Mutation{}, err
	}

	e.metricInc(MetricUserDeleted)
	e.emitAudit(ctx, auditEventUserDeleted, true, current.Nid, treeUser, current.Nid, nil, nil)
	return m, nil
}

func (e *Engine) deleteFailed(ctx context.Context, nid string, err error, reason string) error {
	e.emitAudit(ctx, auditEventUserDeleteFailure, false, nid, treeUser, nid, err, func() map[string]string {
		return map[string]string{"reason": reason}
	})
	return err
}

// ownsGroup reports whether any group is owned by nid. It scans the group
// tree; there is no owner index.
func (e *Engine) ownsGroup(ctx context.Context, nid string) (bool, error) {
	for group, err := range e.groups.All(ctx, treeGroup) {
		if err != nil {
			return false, err
		}
		if group.UserNid == nid {
			return true, nil
		}
	}
	return false, nil
}

// releaseEmail drops the reservation of key held by nid. Failures are
// logged; a stale reservation only blocks re-registration of the address.
func (e *Engine) releaseEmail(ctx context.Context, key, nid string) {
	_, err := e.emails.Delete(context.WithoutCancel(ctx), treeUserEmail, key, emailClaim{Nid: nid})
	if err != nil && !errors.Is(err, ErrNotFound) {
		e.logger.Warn("release email reservation", zap.String("nid", nid), zap.Error(err))
	}
}

// GetUser returns the public view of one user, selected by nid or, when the
// nid is empty, by email.
func (e *Engine) GetUser(ctx context.Context, q UserQuery) (*UserView, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	nid := q.Nid
	if nid == "" {
		key := normalizeEmail(q.Email)
		if key == "" {
			return nil, ErrInvalidRequest
		}
		claim, err := e.emails.Get(ctx, treeUserEmail, key)
		if err != nil {
			return nil, e.storeErr(err)
		}
		nid = claim.Nid
	}

	user, err := e.users.Get(ctx, treeUser, nid)
	if err != nil {
		return nil, e.storeErr(err)
	}
	view := user.View()
	return &view, nil
}

// ListUsers returns the public view of every user in store order.
func (e *Engine) ListUsers(ctx context.Context) ([]UserView, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	views := []UserView{}
	for user, err := range e.users.All(ctx, treeUser) {
		if err != nil {
			return nil, e.storeErr(err)
		}
		views = append(views, user.View())
	}
	return views, nil
}

// CSRFToken issues a CSRF token bound to sess. When the request carries no
// anonymous session id the grant holds a fresh one and the cookie mutation
// that persists it. An identity whose user no longer exists is dropped and
// its cookie cleared.
func (e *Engine) CSRFToken(ctx context.Context, sess session.Session) (session.CSRFGrant, error) {
	if err := e.ready(); err != nil {
		return session.CSRFGrant{}, err
	}

	var clear []session.Mutation
	if sess.Authenticated() {
		ok, err := e.users.Exists(ctx, treeUser, sess.Identity)
		if err != nil {
			return session.CSRFGrant{}, e.storeErr(err)
		}
		if !ok {
			m, err := e.auth.ClearSessionCookie(sess, SessionCookieName)
			if err != nil {
				return session.CSRFGrant{}, err
			}
			clear = append(clear, m)
			sess = sess.Anonymous()
		}
	}

	grant, err := e.auth.IssueCSRFToken(sess)
	if err != nil {
		return session.CSRFGrant{}, err
	}
	grant.Mutations = append(grant.Mutations, clear...)
	e.metricInc(MetricCSRFIssued)
	return grant, nil
}
