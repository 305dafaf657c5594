package goQuiz

import (
	"context"
	"time"

	"github.com/MrEthical07/goQuiz/ledger"
)

// SessionInfo is the safe view of one live refresh session. It never
// carries token material.
type SessionInfo struct {
	SessionID string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	UserAgent string    `json:"userAgent,omitempty"`
	IP        string    `json:"ip,omitempty"`
}

// HealthStatus is an on-demand backend health result.
type HealthStatus struct {
	RedisAvailable bool
	RedisLatency   time.Duration
}

// ListActiveSessions returns the live refresh sessions of userID, newest
// first.
func (e *Engine) ListActiveSessions(ctx context.Context, userID string) ([]SessionInfo, error) {
	if e == nil || e.ledger == nil {
		return nil, ErrEngineNotReady
	}
	if userID == "" {
		return nil, ErrUserNotFound
	}

	recs, err := e.ledger.ListLive(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]SessionInfo, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toSessionInfo(rec))
	}
	return out, nil
}

// GetActiveSessionCount reports how many live refresh sessions userID has.
func (e *Engine) GetActiveSessionCount(ctx context.Context, userID string) (int, error) {
	sessions, err := e.ListActiveSessions(ctx, userID)
	if err != nil {
		return 0, err
	}
	return len(sessions), nil
}

// Health pings Redis and reports the round trip.
func (e *Engine) Health(ctx context.Context) HealthStatus {
	if e == nil || e.ledger == nil {
		return HealthStatus{}
	}

	latency, err := e.ledger.Ping(ctx)
	return HealthStatus{
		RedisAvailable: err == nil,
		RedisLatency:   latency,
	}
}

// GetLoginAttempts returns the failed login count recorded for email in the
// current throttle window. It is zero when the throttle is disabled.
func (e *Engine) GetLoginAttempts(ctx context.Context, email string) (int, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}
	if e.rateLimiter == nil || email == "" {
		return 0, nil
	}

	return e.rateLimiter.GetLoginAttempts(ctx, normalizeEmail(email))
}

func toSessionInfo(rec ledger.Record) SessionInfo {
	return SessionInfo{
		SessionID: rec.TokenID,
		CreatedAt: rec.CreatedAt.UTC(),
		ExpiresAt: rec.ExpiresAt.UTC(),
		UserAgent: rec.UserAgent,
		IP:        rec.IP,
	}
}
