package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisLocker(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client, "test:"), mr
}

func TestRedisLockIsExclusive(t *testing.T) {
	locker, _ := newRedisLocker(t)
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "payee-1", time.Minute)
	if err != nil {
		t.Fatalf("expected first acquire to succeed, got %v", err)
	}
	if _, err := locker.Acquire(ctx, "payee-1", time.Minute); !errors.Is(err, ErrHeld) {
		t.Fatalf("expected ErrHeld, got %v", err)
	}
	if _, err := locker.Acquire(ctx, "payee-2", time.Minute); err != nil {
		t.Fatalf("expected other key to be free, got %v", err)
	}

	release()
	release()
	if _, err := locker.Acquire(ctx, "payee-1", time.Minute); err != nil {
		t.Fatalf("expected acquire after release, got %v", err)
	}
}

func TestRedisLockExpires(t *testing.T) {
	locker, mr := newRedisLocker(t)
	ctx := context.Background()

	stale, err := locker.Acquire(ctx, "payee-1", time.Second)
	if err != nil {
		t.Fatalf("expected acquire, got %v", err)
	}
	mr.FastForward(2 * time.Second)

	if _, err := locker.Acquire(ctx, "payee-1", time.Minute); err != nil {
		t.Fatalf("expected expired lock to be free, got %v", err)
	}
	// The stale holder must not remove the new holder's lock.
	stale()
	if !mr.Exists("test:payee-1") {
		t.Fatalf("expected new holder's key to survive a stale release")
	}
}

func TestLocalLock(t *testing.T) {
	locker := NewLocal()
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	locker.now = func() time.Time { return now }
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "k", time.Minute)
	if err != nil {
		t.Fatalf("expected acquire, got %v", err)
	}
	if _, err := locker.Acquire(ctx, "k", time.Minute); !errors.Is(err, ErrHeld) {
		t.Fatalf("expected ErrHeld, got %v", err)
	}
	release()
	if _, err := locker.Acquire(ctx, "k", time.Minute); err != nil {
		t.Fatalf("expected acquire after release, got %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := locker.Acquire(ctx, "k", time.Minute); err != nil {
		t.Fatalf("expected expired local lock to be free, got %v", err)
	}
}
