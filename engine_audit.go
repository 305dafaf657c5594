package goQuiz

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventRegisterSuccess          = "register_success"
	auditEventRegisterFailure          = "register_failure"
	auditEventRegisterDuplicate        = "register_duplicate"
	auditEventLoginSuccess             = "login_success"
	auditEventLoginFailure             = "login_failure"
	auditEventLoginRateLimited         = "login_rate_limited"
	auditEventRefreshSuccess           = "refresh_success"
	auditEventRefreshInvalid           = "refresh_invalid"
	auditEventRefreshReuseDetected     = "refresh_reuse_detected"
	auditEventLogout                   = "logout"
	auditEventProfileUpdated           = "profile_updated"
	auditEventPasswordChangeSuccess    = "password_change_success"
	auditEventPasswordChangeInvalidOld = "password_change_invalid_old"
	auditEventPasswordChangeFailure    = "password_change_failure"
	auditEventCategoryCreated          = "category_created"
	auditEventQuizCreated              = "quiz_created"
	auditEventQuizSessionStarted       = "quiz_session_started"
	auditEventQuizSessionFinished      = "quiz_session_finished"
	auditEventQuizSubmitRejected       = "quiz_submit_rejected"
)

// AuditErrorCode is the stable, low-cardinality error label attached to
// failed audit events.
type AuditErrorCode string

const (
	auditErrUnauthorized       AuditErrorCode = "unauthorized"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrRefreshReuse       AuditErrorCode = "refresh_reuse"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrMissingToken       AuditErrorCode = "missing_token"
	auditErrPermissionDenied   AuditErrorCode = "permission_denied"
	auditErrValidation         AuditErrorCode = "validation"
	auditErrNotFound           AuditErrorCode = "not_found"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrSessionConflict    AuditErrorCode = "session_conflict"
	auditErrEmptyCategory      AuditErrorCode = "empty_category"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	sessionID string,
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
		SessionID: sessionID,
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
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
	case errors.Is(err, ErrUnauthorized):
		return auditErrUnauthorized
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrLoginRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrRefreshRevoked):
		return auditErrRefreshReuse
	case errors.Is(err, ErrRefreshInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrRefreshMissing):
		return auditErrMissingToken
	case errors.Is(err, ErrPermissionDenied):
		return auditErrPermissionDenied
	case errors.Is(err, ErrValidation):
		return auditErrValidation
	case errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrCategoryNotFound),
		errors.Is(err, ErrQuizNotFound),
		errors.Is(err, ErrSessionNotFound):
		return auditErrNotFound
	case errors.Is(err, ErrEmailTaken),
		errors.Is(err, ErrCategoryExists):
		return auditErrDuplicate
	case errors.Is(err, ErrInvalidSession):
		return auditErrSessionConflict
	case errors.Is(err, ErrEmptyCategory):
		return auditErrEmptyCategory
	default:
		return auditErrInternal
	}
}
