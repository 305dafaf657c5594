// Package ledger is the Redis-backed refresh token ledger.
//
// Each refresh token id (jti) maps to a hash holding its owner, revocation
// flag, successor id, expiry and client metadata. A per-user set indexes the
// ids so all of a user's tokens can be revoked at once.
//
// Issue, Revoke and Rotate are single Lua scripts. Rotate is the
// compare-and-swap at the heart of refresh: it revokes the presented record
// only if it is still live and creates the successor in the same step, so of
// two concurrent rotations of one token exactly one succeeds and the other
// observes ErrRevoked.
//
// Records expire from Redis at their token expiry.
package ledger
