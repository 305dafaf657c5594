package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	statusMissing   int64 = 0
	statusOK        int64 = 1
	statusRevoked   int64 = 2
	statusDuplicate int64 = 3
	statusMismatch  int64 = 4
)

// KEYS: token key, user index key
// ARGV: jti, uid, exp, created, ua, ip, ttl_ms
const issueScript = `
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 3
end
redis.call("HSET", KEYS[1],
  "uid", ARGV[2], "revoked", "0", "replaced_by", "",
  "exp", ARGV[3], "created", ARGV[4], "ua", ARGV[5], "ip", ARGV[6])
redis.call("PEXPIRE", KEYS[1], ARGV[7])
redis.call("SADD", KEYS[2], ARGV[1])
redis.call("PEXPIRE", KEYS[2], ARGV[7])
return 1
`

// KEYS: token key
// ARGV: successor id ("" for terminal revocation)
const revokeScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
if redis.call("HGET", KEYS[1], "revoked") == "1" then
  return 2
end
redis.call("HSET", KEYS[1], "revoked", "1", "replaced_by", ARGV[1])
return 1
`

// KEYS: presented token key, successor token key, user index key
// ARGV: successor jti, uid, exp, created, ua, ip, ttl_ms
const rotateScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
if redis.call("HGET", KEYS[1], "revoked") == "1" then
  return 2
end
if redis.call("EXISTS", KEYS[2]) == 1 then
  return 3
end
if redis.call("HGET", KEYS[1], "uid") ~= ARGV[2] then
  return 4
end
redis.call("HSET", KEYS[1], "revoked", "1", "replaced_by", ARGV[1])
redis.call("HSET", KEYS[2],
  "uid", ARGV[2], "revoked", "0", "replaced_by", "",
  "exp", ARGV[3], "created", ARGV[4], "ua", ARGV[5], "ip", ARGV[6])
redis.call("PEXPIRE", KEYS[2], ARGV[7])
redis.call("SADD", KEYS[3], ARGV[1])
redis.call("PEXPIRE", KEYS[3], ARGV[7])
return 1
`

// KEYS: user index key
// ARGV: token key prefix
const revokeAllScript = `
local ids = redis.call("SMEMBERS", KEYS[1])
local revoked = 0
for _, id in ipairs(ids) do
  local key = ARGV[1] .. id
  if redis.call("EXISTS", key) == 0 then
    redis.call("SREM", KEYS[1], id)
  elseif redis.call("HGET", key, "revoked") ~= "1" then
    redis.call("HSET", key, "revoked", "1", "replaced_by", "")
    revoked = revoked + 1
  end
end
return revoked
`

var (
	issueLua     = redis.NewScript(issueScript)
	revokeLua    = redis.NewScript(revokeScript)
	rotateLua    = redis.NewScript(rotateScript)
	revokeAllLua = redis.NewScript(revokeAllScript)
)

// Store persists refresh token records in Redis.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewStore returns a ledger rooted at prefix (for example "gq").
func NewStore(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "gq"
	}
	return &Store{redis: client, prefix: prefix, now: time.Now}
}

func (s *Store) tokenPrefix() string { return s.prefix + ":rt:" }

func (s *Store) key(tokenID string) string { return s.tokenPrefix() + tokenID }

func (s *Store) userKey(userID string) string { return s.prefix + ":rtu:" + userID }

// Issue creates a live record. It fails with ErrDuplicateTokenID when the
// id is already present.
func (s *Store) Issue(ctx context.Context, rec Record) error {
	if rec.TokenID == "" || rec.UserID == "" {
		return errors.New("ledger: record requires token id and user id")
	}
	ttl, err := s.ttl(&rec)
	if err != nil {
		return err
	}

	args := append([]interface{}{rec.TokenID}, rec.fields()...)
	args = append(args, ttl)
	code, err := issueLua.Run(ctx, s.redis, []string{s.key(rec.TokenID), s.userKey(rec.UserID)}, args...).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	switch code {
	case statusOK:
		return nil
	case statusDuplicate:
		return ErrDuplicateTokenID
	default:
		return fmt.Errorf("%w: unknown issue script status %d", ErrRedisUnavailable, code)
	}
}

// Lookup returns the record for tokenID or ErrNotFound.
func (s *Store) Lookup(ctx context.Context, tokenID string) (*Record, error) {
	h, err := s.redis.HGetAll(ctx, s.key(tokenID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(h) == 0 {
		return nil, ErrNotFound
	}
	return decodeRecord(tokenID, h)
}

// Revoke marks tokenID revoked and records successorID, which may be empty.
// Revoking an already revoked record is a no-op that leaves its successor
// untouched.
func (s *Store) Revoke(ctx context.Context, tokenID, successorID string) error {
	code, err := revokeLua.Run(ctx, s.redis, []string{s.key(tokenID)}, successorID).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	switch code {
	case statusOK, statusRevoked:
		return nil
	case statusMissing:
		return ErrNotFound
	default:
		return fmt.Errorf("%w: unknown revoke script status %d", ErrRedisUnavailable, code)
	}
}

// Rotate atomically revokes presentedID and issues next as its successor.
// The presented record must exist, be live, and belong to next.UserID.
func (s *Store) Rotate(ctx context.Context, presentedID string, next Record) error {
	if presentedID == "" || next.TokenID == "" || next.UserID == "" {
		return errors.New("ledger: rotate requires presented id and a complete successor")
	}
	if presentedID == next.TokenID {
		return ErrDuplicateTokenID
	}
	ttl, err := s.ttl(&next)
	if err != nil {
		return err
	}

	args := append([]interface{}{next.TokenID}, next.fields()...)
	args = append(args, ttl)
	keys := []string{s.key(presentedID), s.key(next.TokenID), s.userKey(next.UserID)}

	code, err := rotateLua.Run(ctx, s.redis, keys, args...).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	switch code {
	case statusOK:
		return nil
	case statusMissing:
		return ErrNotFound
	case statusRevoked:
		return ErrRevoked
	case statusDuplicate:
		return ErrDuplicateTokenID
	case statusMismatch:
		return ErrOwnerMismatch
	default:
		return fmt.Errorf("%w: unknown rotate script status %d", ErrRedisUnavailable, code)
	}
}

// RevokeAllForUser terminally revokes every live record of userID and
// returns how many were revoked.
func (s *Store) RevokeAllForUser(ctx context.Context, userID string) (int, error) {
	n, err := revokeAllLua.Run(ctx, s.redis, []string{s.userKey(userID)}, s.tokenPrefix()).Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return int(n), nil
}

// ListLive returns the unrevoked, unexpired records of userID ordered by
// creation time, newest first.
func (s *Store) ListLive(ctx context.Context, userID string) ([]Record, error) {
	ids, err := s.redis.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(ids) == 0 {
		return []Record{}, nil
	}

	pipe := s.redis.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, s.key(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	now := s.now()
	out := make([]Record, 0, len(ids))
	for i, cmd := range cmds {
		h := cmd.Val()
		if len(h) == 0 {
			continue
		}
		rec, err := decodeRecord(ids[i], h)
		if err != nil {
			return nil, err
		}
		if rec.Revoked || !rec.ExpiresAt.After(now) {
			continue
		}
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Ping measures a Redis round trip.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}

func (s *Store) ttl(rec *Record) (string, error) {
	now := s.now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	ttl := rec.ExpiresAt.Sub(now)
	if ttl <= 0 {
		return "", ErrExpired
	}
	return strconv.FormatInt(ttl.Milliseconds()+1, 10), nil
}
