package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, cfg Config) (*Limiter, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return New(rdb, cfg), mr
}

func TestLoginBudgetExhausts(t *testing.T) {
	l, _ := newTestLimiter(t, Config{MaxLoginAttempts: 3, LoginCooldownDuration: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := l.CheckLogin(ctx, "a@b.io", ""); err != nil {
			t.Fatalf("attempt %d unexpectedly limited: %v", i, err)
		}
		if err := l.IncrementLogin(ctx, "a@b.io", ""); err != nil {
			t.Fatalf("increment %d: %v", i, err)
		}
	}

	if err := l.CheckLogin(ctx, "a@b.io", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if err := l.CheckLogin(ctx, "other@b.io", ""); err != nil {
		t.Fatalf("other email must not be limited: %v", err)
	}
}

func TestLoginEmailKeyIsCaseInsensitive(t *testing.T) {
	l, _ := newTestLimiter(t, Config{MaxLoginAttempts: 1, LoginCooldownDuration: time.Minute})
	ctx := context.Background()

	_ = l.IncrementLogin(ctx, "User@Example.com", "")
	n, err := l.GetLoginAttempts(ctx, "user@example.com ")
	if err != nil {
		t.Fatalf("GetLoginAttempts: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 attempt, got %d", n)
	}
}

func TestLoginWindowExpires(t *testing.T) {
	l, mr := newTestLimiter(t, Config{MaxLoginAttempts: 1, LoginCooldownDuration: time.Minute})
	ctx := context.Background()

	_ = l.IncrementLogin(ctx, "a@b.io", "")
	if err := l.CheckLogin(ctx, "a@b.io", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected limited, got %v", err)
	}

	mr.FastForward(2 * time.Minute)
	if err := l.CheckLogin(ctx, "a@b.io", ""); err != nil {
		t.Fatalf("window should have expired: %v", err)
	}
}

func TestIPThrottleAndReset(t *testing.T) {
	l, _ := newTestLimiter(t, Config{EnableIPThrottle: true, MaxLoginAttempts: 2, LoginCooldownDuration: time.Minute})
	ctx := context.Background()

	_ = l.IncrementLogin(ctx, "a@b.io", "10.0.0.1")
	_ = l.IncrementLogin(ctx, "c@d.io", "10.0.0.1")

	if err := l.CheckLogin(ctx, "fresh@b.io", "10.0.0.1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected IP limit, got %v", err)
	}

	if err := l.ResetLogin(ctx, "fresh@b.io", "10.0.0.1"); err != nil {
		t.Fatalf("ResetLogin: %v", err)
	}
	if err := l.CheckLogin(ctx, "fresh@b.io", "10.0.0.1"); err != nil {
		t.Fatalf("expected reset to clear IP counter: %v", err)
	}
}

func TestRedisDownSurfacesUnavailable(t *testing.T) {
	l, mr := newTestLimiter(t, Config{MaxLoginAttempts: 1, LoginCooldownDuration: time.Minute})
	mr.Close()

	if err := l.CheckLogin(context.Background(), "a@b.io", ""); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}
