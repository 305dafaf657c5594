package goQuiz

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/MrEthical07/goQuiz/internal/audit"
	"github.com/MrEthical07/goQuiz/internal/flows"
	"github.com/MrEthical07/goQuiz/internal/rate"
	"github.com/MrEthical07/goQuiz/jwt"
	"github.com/MrEthical07/goQuiz/ledger"
	"github.com/MrEthical07/goQuiz/password"
)

// Engine implements the auth session protocol and the quiz session engine.
// It is safe for concurrent use once built.
type Engine struct {
	config       Config
	ledger       *ledger.Store
	rateLimiter  *rate.Limiter
	audit        *audit.Dispatcher
	metrics      *Metrics
	passwordHash *password.Argon2
	jwtManager   *jwt.Manager
	dummyHash    string
	users        UserStore
	quizzes      QuizStore
	logger       *slog.Logger

	now     func() time.Time
	intn    func(int) int
	newID   func() string
	newULID func() string
}

// Close flushes the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns how many audit events were dropped before reaching
// the sink.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// AuditDroppedByType breaks AuditDropped down by event type, for example
// how many quiz_session_finished events were lost.
func (e *Engine) AuditDroppedByType() map[string]uint64 {
	if e == nil {
		return map[string]uint64{}
	}
	return e.audit.DroppedByType()
}

// AuditSinkPanics returns how many audit deliveries panicked in the sink.
func (e *Engine) AuditSinkPanics() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.SinkPanics()
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Ping checks the Redis backend used by the ledger.
func (e *Engine) Ping(ctx context.Context) error {
	if e == nil || e.ledger == nil {
		return ErrEngineNotReady
	}
	_, err := e.ledger.Ping(ctx)
	return err
}

// RefreshTTL is the lifetime of issued refresh tokens. The HTTP layer uses
// it for the cookie Max-Age.
func (e *Engine) RefreshTTL() time.Duration {
	return e.config.JWT.RefreshTTL
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) observe(id MetricID, start time.Time) {
	if e == nil || !e.metrics.LatencyEnabled() {
		return
	}
	e.metrics.Observe(id, time.Since(start))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return invalid("email", "required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return invalid("email", "must be a valid address")
	}
	return nil
}

func (e *Engine) validatePassword(field, pw string) error {
	switch err := e.passwordHash.CheckLength(pw); {
	case errors.Is(err, password.ErrTooShort):
		return invalid(field, "too short")
	case errors.Is(err, password.ErrTooLong):
		return invalid(field, "too long")
	}
	return nil
}

func identityOf(u *User) jwt.Identity {
	return jwt.Identity{Subject: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}

/*
====================================
REGISTER / LOGIN
====================================
*/

// Register creates an account and returns its public projection. It does
// not log the user in.
func (e *Engine) Register(ctx context.Context, email, pw, name string) (*SafeUser, error) {
	if e == nil || e.passwordHash == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}

	email = normalizeEmail(email)
	name = strings.TrimSpace(name)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := e.validatePassword("password", pw); err != nil {
		return nil, err
	}

	hash, err := e.passwordHash.Hash(pw)
	if err != nil {
		return nil, err
	}

	now := e.now().UTC()
	u := &User{
		ID:           e.newID(),
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Role:         RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := e.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			e.metricInc(MetricRegisterDuplicate)
			e.emitAudit(ctx, auditEventRegisterDuplicate, false, "", "", ErrEmailTaken, nil)
			return nil, ErrEmailTaken
		}
		e.logger.ErrorContext(ctx, "register: create user failed", "error", err)
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", "", err, nil)
		return nil, err
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegisterSuccess, true, u.ID, "", nil, nil)

	safe := u.Safe()
	return &safe, nil
}

// Login verifies credentials and issues an access token plus a refresh
// token recorded in the ledger. Unknown emails and wrong passwords both
// return ErrInvalidCredentials.
func (e *Engine) Login(ctx context.Context, email, pw string) (*LoginResult, error) {
	if e == nil || e.passwordHash == nil || e.users == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}

	email = normalizeEmail(email)
	ip := clientIPFromContext(ctx)

	if e.rateLimiter != nil {
		if err := e.rateLimiter.CheckLogin(ctx, email, ip); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				e.metricInc(MetricLoginRateLimited)
				e.emitAudit(ctx, auditEventLoginRateLimited, false, "", "", ErrLoginRateLimited, nil)
				return nil, ErrLoginRateLimited
			}
			return nil, err
		}
	}

	u, err := e.users.GetUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		e.logger.ErrorContext(ctx, "login: user lookup failed", "error", err)
		return nil, err
	}

	var ok bool
	switch {
	case u != nil && pw != "":
		ok, err = e.passwordHash.Verify(pw, u.PasswordHash)
		if err != nil && !errors.Is(err, password.ErrTooLong) {
			e.logger.WarnContext(ctx, "login: stored hash rejected", "user_id", u.ID, "error", err)
		}
	case u == nil:
		// Unknown emails pay for one argon2 verify like known ones.
		_, _ = e.passwordHash.Verify(pw, e.dummyHash)
	}
	if !ok {
		return nil, e.loginFailed(ctx, email, ip, u)
	}

	if e.rateLimiter != nil {
		if err := e.rateLimiter.ResetLogin(ctx, email, ip); err != nil {
			e.logger.WarnContext(ctx, "login: throttle reset failed", "error", err)
		}
	}

	if e.config.Password.UpgradeOnLogin {
		e.upgradeHash(ctx, u, pw)
	}

	result, err := e.issueSession(ctx, u)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, u.ID, "", nil, nil)
	return result, nil
}

func (e *Engine) loginFailed(ctx context.Context, email, ip string, u *User) error {
	var userID string
	if u != nil {
		userID = u.ID
	}

	if e.rateLimiter != nil {
		if err := e.rateLimiter.IncrementLogin(ctx, email, ip); err != nil && !errors.Is(err, rate.ErrRateLimited) {
			e.logger.WarnContext(ctx, "login: throttle increment failed", "error", err)
		}
	}

	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, userID, "", ErrInvalidCredentials, nil)
	return ErrInvalidCredentials
}

func (e *Engine) upgradeHash(ctx context.Context, u *User, pw string) {
	needs, err := e.passwordHash.NeedsUpgrade(u.PasswordHash)
	if err != nil || !needs {
		return
	}
	hash, err := e.passwordHash.Hash(pw)
	if err != nil {
		return
	}
	if err := e.users.UpdatePasswordHash(ctx, u.ID, hash, e.now().UTC()); err != nil {
		e.logger.WarnContext(ctx, "login: hash upgrade failed", "user_id", u.ID, "error", err)
		return
	}
	u.PasswordHash = hash
}

// issueSession mints a token pair and records the refresh token.
func (e *Engine) issueSession(ctx context.Context, u *User) (*LoginResult, error) {
	id := identityOf(u)

	access, err := e.jwtManager.CreateAccess(id)
	if err != nil {
		return nil, err
	}

	tokenID := e.newID()
	refresh, exp, err := e.jwtManager.CreateRefresh(id, tokenID)
	if err != nil {
		return nil, err
	}

	if err := e.ledger.Issue(ctx, ledger.Record{
		UserID:    u.ID,
		TokenID:   tokenID,
		ExpiresAt: exp,
		UserAgent: userAgentFromContext(ctx),
		IP:        clientIPFromContext(ctx),
	}); err != nil {
		e.logger.ErrorContext(ctx, "refresh token issue failed", "user_id", u.ID, "error", err)
		return nil, err
	}

	return &LoginResult{
		AccessToken:      access,
		RefreshToken:     refresh,
		RefreshExpiresAt: exp,
		User:             u.Safe(),
	}, nil
}

/*
====================================
REFRESH / LOGOUT
====================================
*/

// Refresh rotates refreshToken and returns a new token pair. Presenting a
// token that was already rotated or logged out fails with
// ErrRefreshRevoked, and with Refresh.RevokeAllOnReuse also revokes every
// live refresh token of its owner.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	if e == nil || e.jwtManager == nil || e.ledger == nil {
		return nil, ErrEngineNotReady
	}

	var user *User
	res := flows.RunRefresh(ctx, refreshToken, flows.RefreshDeps{
		ParseRefresh:  e.jwtManager.ParseRefresh,
		CreateAccess:  e.jwtManager.CreateAccess,
		CreateRefresh: e.jwtManager.CreateRefresh,
		NewTokenID:    e.newID,
		LoadIdentity: func(ctx context.Context, userID string) (jwt.Identity, error) {
			u, err := e.users.GetUserByID(ctx, userID)
			if err != nil {
				return jwt.Identity{}, err
			}
			user = u
			return identityOf(u), nil
		},
		Ledger:           e.ledger,
		RevokeAllOnReuse: e.config.Refresh.RevokeAllOnReuse,
		ClientIP:         clientIPFromContext(ctx),
		UserAgent:        userAgentFromContext(ctx),
		Warn: func(msg string, args ...any) {
			e.logger.WarnContext(ctx, msg, args...)
		},
		Errors: flows.RefreshErrors{UserNotFound: ErrUserNotFound},
	})

	switch res.Failure {
	case flows.RefreshFailureNone:
	case flows.RefreshFailureMissing:
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", "", ErrRefreshMissing, nil)
		return nil, ErrRefreshMissing
	case flows.RefreshFailureDecode, flows.RefreshFailureUser, flows.RefreshFailureOwner:
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, res.UserID, res.PresentedID, ErrRefreshInvalid, func() map[string]string {
			return map[string]string{"reason": refreshFailureReason(res.Failure)}
		})
		return nil, ErrRefreshInvalid
	case flows.RefreshFailureReuse, flows.RefreshFailureNotFound:
		e.metricInc(MetricRefreshReuseDetected)
		e.emitAudit(ctx, auditEventRefreshReuseDetected, false, res.UserID, res.PresentedID, ErrRefreshRevoked, func() map[string]string {
			if res.Failure == flows.RefreshFailureNotFound {
				return map[string]string{"reason": "not_found"}
			}
			return nil
		})
		return nil, ErrRefreshRevoked
	default:
		e.metricInc(MetricRefreshFailure)
		e.logger.ErrorContext(ctx, "refresh failed", "user_id", res.UserID, "error", res.Err)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, res.UserID, res.PresentedID, res.Err, nil)
		return nil, res.Err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, res.UserID, res.NextID, nil, nil)

	return &LoginResult{
		AccessToken:      res.AccessToken,
		RefreshToken:     res.RefreshToken,
		RefreshExpiresAt: res.RefreshExpiresAt,
		User:             user.Safe(),
	}, nil
}

func refreshFailureReason(kind flows.RefreshFailureKind) string {
	switch kind {
	case flows.RefreshFailureDecode:
		return "decode_failed"
	case flows.RefreshFailureUser:
		return "user_not_found"
	case flows.RefreshFailureOwner:
		return "owner_mismatch"
	default:
		return "unknown"
	}
}

// Logout revokes refreshToken. It is best effort and always returns nil:
// missing, malformed and already revoked tokens are ignored.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if e == nil || e.jwtManager == nil || e.ledger == nil || refreshToken == "" {
		return nil
	}

	claims, err := e.jwtManager.ParseRefresh(refreshToken)
	if err != nil {
		return nil
	}

	if err := e.ledger.Revoke(ctx, claims.TokenID(), ""); err != nil && !errors.Is(err, ledger.ErrNotFound) {
		e.logger.WarnContext(ctx, "logout: revoke failed", "user_id", claims.Subject, "error", err)
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, claims.Subject, claims.TokenID(), nil, nil)
	return nil
}

/*
====================================
VALIDATE
====================================
*/

// Validate verifies a bearer access token. It never touches storage.
func (e *Engine) Validate(ctx context.Context, accessToken string) (*AuthResult, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}
	start := time.Now()
	defer e.observe(MetricValidateLatency, start)

	if accessToken == "" {
		return nil, ErrUnauthorized
	}
	claims, err := e.jwtManager.ParseAccess(accessToken)
	if err != nil {
		return nil, ErrUnauthorized
	}

	return &AuthResult{
		UserID: claims.Subject,
		Email:  claims.Email,
		Name:   claims.Name,
		Role:   claims.Role,
	}, nil
}
