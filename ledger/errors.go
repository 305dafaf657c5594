package ledger

import "errors"

var (
	// ErrNotFound is returned when no record exists for a token id.
	ErrNotFound = errors.New("refresh token record not found")
	// ErrDuplicateTokenID is returned when issuing or rotating onto an id that already exists.
	ErrDuplicateTokenID = errors.New("duplicate refresh token id")
	// ErrRevoked is returned by Rotate when the presented record was already revoked.
	ErrRevoked = errors.New("refresh token revoked")
	// ErrOwnerMismatch is returned by Rotate when the successor belongs to another user.
	ErrOwnerMismatch = errors.New("refresh token owner mismatch")
	// ErrExpired is returned when a record would be written with a past expiry.
	ErrExpired = errors.New("refresh token expiry in the past")
	// ErrCorrupt is returned when a stored record cannot be decoded.
	ErrCorrupt = errors.New("refresh token record corrupt")
	// ErrRedisUnavailable wraps transport failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
