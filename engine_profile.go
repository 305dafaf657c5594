package goQuiz

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/MrEthical07/goQuiz/password"
)

const (
	maxNameRunes = 50
	maxBioRunes  = 1000
)

func validateName(name string) error {
	n := utf8.RuneCountInString(name)
	if n == 0 {
		return invalid("name", "required")
	}
	if n > maxNameRunes {
		return invalid("name", "at most 50 characters")
	}
	return nil
}

func validateAvatarURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return invalid("avatarUrl", "must be an http or https URL")
	}
	return nil
}

// Me returns the caller's profile.
func (e *Engine) Me(ctx context.Context, userID string) (*SafeUser, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}
	u, err := e.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	safe := u.Safe()
	return &safe, nil
}

// UpdateProfile applies the non-nil fields of p. Name is trimmed and must
// stay non-empty.
func (e *Engine) UpdateProfile(ctx context.Context, userID string, p ProfileUpdate) (*SafeUser, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}

	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if err := validateName(name); err != nil {
			return nil, err
		}
		p.Name = &name
	}
	if p.Bio != nil {
		bio := strings.TrimSpace(*p.Bio)
		if utf8.RuneCountInString(bio) > maxBioRunes {
			return nil, invalid("bio", "at most 1000 characters")
		}
		p.Bio = &bio
	}
	if p.AvatarURL != nil {
		avatar := strings.TrimSpace(*p.AvatarURL)
		if err := validateAvatarURL(avatar); err != nil {
			return nil, err
		}
		p.AvatarURL = &avatar
	}

	u, err := e.users.UpdateProfile(ctx, userID, p, e.now().UTC())
	if err != nil {
		return nil, err
	}

	e.emitAudit(ctx, auditEventProfileUpdated, true, userID, "", nil, nil)
	safe := u.Safe()
	return &safe, nil
}

// ChangePassword replaces the caller's password after verifying the current
// one, then revokes every refresh token of the user. Access tokens already
// issued stay valid until they expire.
func (e *Engine) ChangePassword(ctx context.Context, userID, current, next string) error {
	if e == nil || e.users == nil || e.passwordHash == nil {
		return ErrEngineNotReady
	}

	if err := e.validatePassword("newPassword", next); err != nil {
		return err
	}

	u, err := e.users.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	ok, err := e.passwordHash.Verify(current, u.PasswordHash)
	if err != nil && !errors.Is(err, password.ErrTooLong) {
		e.logger.WarnContext(ctx, "change password: verify failed", "user_id", userID, "error", err)
	}
	if !ok {
		e.metricInc(MetricPasswordChangeInvalidOld)
		e.emitAudit(ctx, auditEventPasswordChangeInvalidOld, false, userID, "", ErrInvalidCredentials, nil)
		return ErrInvalidCredentials
	}

	hash, err := e.passwordHash.Hash(next)
	if err != nil {
		return err
	}
	if err := e.users.UpdatePasswordHash(ctx, userID, hash, e.now().UTC()); err != nil {
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, userID, "", err, nil)
		return err
	}

	revoked, err := e.ledger.RevokeAllForUser(ctx, userID)
	if err != nil {
		e.logger.ErrorContext(ctx, "change password: revoke refresh tokens failed", "user_id", userID, "error", err)
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, userID, "", err, nil)
		return err
	}
	if e.rateLimiter != nil {
		if err := e.rateLimiter.ResetLogin(ctx, u.Email, clientIPFromContext(ctx)); err != nil {
			e.logger.WarnContext(ctx, "change password: throttle reset failed", "user_id", userID, "error", err)
		}
	}

	e.metricInc(MetricPasswordChangeSuccess)
	e.emitAudit(ctx, auditEventPasswordChangeSuccess, true, userID, "", nil, func() map[string]string {
		return map[string]string{"revoked_tokens": strconv.Itoa(revoked)}
	})
	return nil
}
