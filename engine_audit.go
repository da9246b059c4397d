package goCrud

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventUserCreated        = "user_created"
	auditEventUserCreateFailure  = "user_create_failure"
	auditEventLoginSuccess       = "login_success"
	auditEventLoginFailure       = "login_failure"
	auditEventLoginRateLimited   = "login_rate_limited"
	auditEventLogout             = "logout"
	auditEventUserUpdated        = "user_updated"
	auditEventUserUpdateFailure  = "user_update_failure"
	auditEventUserDeleted        = "user_deleted"
	auditEventUserDeleteFailure  = "user_delete_failure"
	auditEventCSRFRejected       = "csrf_rejected"
	auditEventGroupCreated       = "group_created"
	auditEventGroupMemberAdded   = "group_member_added"
	auditEventGroupMemberFailure = "group_member_failure"
	auditEventGroupDeleted       = "group_deleted"
	auditEventGrantCreated       = "grant_created"
	auditEventGrantUpdated       = "grant_updated"
	auditEventGrantDeleted       = "grant_deleted"
)

// AuditErrorCode is the stable, non-sensitive error label attached to
// failed audit events.
type AuditErrorCode string

const (
	auditErrExists         AuditErrorCode = "exists"
	auditErrNotFound       AuditErrorCode = "not_found"
	auditErrForbidden      AuditErrorCode = "forbidden"
	auditErrToken          AuditErrorCode = "invalid_token"
	auditErrConflict       AuditErrorCode = "conflict"
	auditErrInvalidRequest AuditErrorCode = "invalid_request"
	auditErrRateLimited    AuditErrorCode = "rate_limited"
	auditErrUnavailable    AuditErrorCode = "backend_unavailable"
	auditErrCorrupt        AuditErrorCode = "corrupt_record"
	auditErrInternal       AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	tree string,
	recordID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		Tree:      tree,
		RecordID:  recordID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrExists):
		return auditErrExists
	case errors.Is(err, ErrNotFound):
		return auditErrNotFound
	case errors.Is(err, ErrForbidden):
		return auditErrForbidden
	case errors.Is(err, ErrToken):
		return auditErrToken
	case errors.Is(err, ErrConflict):
		return auditErrConflict
	case errors.Is(err, ErrInvalidRequest):
		return auditErrInvalidRequest
	case errors.Is(err, ErrLoginRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrUnavailable):
		return auditErrUnavailable
	case errors.Is(err, ErrCorrupt):
		return auditErrCorrupt
	default:
		return auditErrInternal
	}
}
