package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goQuiz/jwt"
	"github.com/MrEthical07/goQuiz/ledger"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureMissing
	RefreshFailureDecode
	RefreshFailureUser
	RefreshFailureIssue
	RefreshFailureReuse
	RefreshFailureNotFound
	RefreshFailureOwner
	RefreshFailureRotate
	RefreshFailureUserLookup
)

// RefreshResult carries either the rotated token pair or failure metadata.
type RefreshResult struct {
	Failure          RefreshFailureKind
	Err              error
	UserID           string
	PresentedID      string
	NextID           string
	Identity         jwt.Identity
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
	RevokedAll       int
}

// RefreshLedger is the subset of *ledger.Store used by rotation.
type RefreshLedger interface {
	Rotate(ctx context.Context, presentedID string, next ledger.Record) error
	RevokeAllForUser(ctx context.Context, userID string) (int, error)
}

// RefreshErrors carries host-level sentinels the user store returns.
type RefreshErrors struct {
	UserNotFound error
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	ParseRefresh  func(string) (*jwt.RefreshClaims, error)
	CreateAccess  func(jwt.Identity) (string, error)
	CreateRefresh func(jwt.Identity, string) (string, time.Time, error)
	NewTokenID    func() string

	// LoadIdentity refreshes the claims from the user store. When nil the
	// identity carried by the presented token is reused.
	LoadIdentity func(context.Context, string) (jwt.Identity, error)

	Ledger           RefreshLedger
	RevokeAllOnReuse bool
	ClientIP         string
	UserAgent        string
	Warn             func(string, ...any)
	Errors           RefreshErrors
}

// RunRefresh verifies the presented refresh token, rotates it in the ledger
// and issues a fresh pair. A token that was already rotated or revoked is
// reported as RefreshFailureReuse and, when configured, revokes every live
// token of its owner.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	if refreshToken == "" {
		return RefreshResult{Failure: RefreshFailureMissing}
	}

	claims, err := deps.ParseRefresh(refreshToken)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureDecode, Err: err}
	}

	res := RefreshResult{
		UserID:      claims.Subject,
		PresentedID: claims.TokenID(),
		Identity:    claims.Identity(),
	}

	if deps.LoadIdentity != nil {
		id, err := deps.LoadIdentity(ctx, claims.Subject)
		if err != nil {
			res.Err = err
			if deps.Errors.UserNotFound != nil && errors.Is(err, deps.Errors.UserNotFound) {
				res.Failure = RefreshFailureUser
			} else {
				res.Failure = RefreshFailureUserLookup
			}
			return res
		}
		res.Identity = id
	}

	// Sign before rotating so a signing error never burns the presented token.
	access, err := deps.CreateAccess(res.Identity)
	if err != nil {
		res.Failure = RefreshFailureIssue
		res.Err = err
		return res
	}

	res.NextID = deps.NewTokenID()
	refresh, exp, err := deps.CreateRefresh(res.Identity, res.NextID)
	if err != nil {
		res.Failure = RefreshFailureIssue
		res.Err = err
		return res
	}

	err = deps.Ledger.Rotate(ctx, res.PresentedID, ledger.Record{
		UserID:    res.UserID,
		TokenID:   res.NextID,
		ExpiresAt: exp,
		UserAgent: deps.UserAgent,
		IP:        deps.ClientIP,
	})
	if err != nil {
		res.Err = err
		switch {
		case errors.Is(err, ledger.ErrRevoked):
			res.Failure = RefreshFailureReuse
			if deps.RevokeAllOnReuse {
				n, revokeErr := deps.Ledger.RevokeAllForUser(ctx, res.UserID)
				if revokeErr != nil && deps.Warn != nil {
					deps.Warn("refresh reuse: revoke all failed", "user_id", res.UserID, "error", revokeErr)
				}
				res.RevokedAll = n
			}
		case errors.Is(err, ledger.ErrNotFound):
			res.Failure = RefreshFailureNotFound
		case errors.Is(err, ledger.ErrOwnerMismatch):
			res.Failure = RefreshFailureOwner
		default:
			res.Failure = RefreshFailureRotate
		}
		return res
	}

	res.AccessToken = access
	res.RefreshToken = refresh
	res.RefreshExpiresAt = exp
	return res
}
