package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/kursadbilgin/index-notifier/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

func TestRunLockAcquireAndRelease(t *testing.T) {
	t.Parallel()

	mr, rdb := newTestRedisClient(t)

	lock, err := NewRunLock(rdb, "test:lock", time.Minute)
	if err != nil {
		t.Fatalf("NewRunLock() error = %v", err)
	}

	release, err := lock.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if !mr.Exists("test:lock") {
		t.Fatal("lock key should exist while held")
	}

	if _, err := lock.Acquire(context.Background()); !errors.Is(err, domain.ErrRunInProgress) {
		t.Fatalf("second Acquire() error = %v, want ErrRunInProgress", err)
	}

	release()
	if mr.Exists("test:lock") {
		t.Fatal("lock key should be removed after release")
	}

	release, err = lock.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() after release error = %v", err)
	}
	release()
}

func TestRunLockExpires(t *testing.T) {
	t.Parallel()

	mr, rdb := newTestRedisClient(t)

	lock, err := NewRunLock(rdb, "test:lock", time.Minute)
	if err != nil {
		t.Fatalf("NewRunLock() error = %v", err)
	}

	if _, err := lock.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	mr.FastForward(2 * time.Minute)

	release, err := lock.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() after ttl error = %v", err)
	}
	release()
}

func TestRunLockReleaseKeepsForeignLock(t *testing.T) {
	t.Parallel()

	mr, rdb := newTestRedisClient(t)

	lock, err := NewRunLock(rdb, "test:lock", time.Minute)
	if err != nil {
		t.Fatalf("NewRunLock() error = %v", err)
	}

	staleRelease, err := lock.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	mr.FastForward(2 * time.Minute)
	if _, err := lock.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() by second run error = %v", err)
	}

	staleRelease()
	if !mr.Exists("test:lock") {
		t.Fatal("stale release must not delete a lock owned by another run")
	}
}

func TestNewRunLockDefaults(t *testing.T) {
	t.Parallel()

	_, rdb := newTestRedisClient(t)

	lock, err := NewRunLock(rdb, " ", 0)
	if err != nil {
		t.Fatalf("NewRunLock() error = %v", err)
	}
	if lock.key != defaultLockKey {
		t.Fatalf("key = %q, want %q", lock.key, defaultLockKey)
	}
	if lock.ttl != defaultLockTTL {
		t.Fatalf("ttl = %s, want %s", lock.ttl, defaultLockTTL)
	}

	if _, err := NewRunLock(nil, "", 0); err == nil {
		t.Fatal("expected error for nil client")
	}
}

func newTestRedisClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run() error = %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := goredis.NewClient(&goredis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() {
		_ = rdb.Close()
	})

	return mr, rdb
}

func TestNewRedis(t *testing.T) {
	t.Parallel()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run() error = %v", err)
	}
	t.Cleanup(mr.Close)

	client, err := NewRedis(context.Background(), "redis://"+mr.Addr()+"/0")
	if err != nil {
		t.Fatalf("NewRedis() error = %v", err)
	}
	_ = client.Close()

	if _, err := NewRedis(context.Background(), "not a url"); err == nil {
		t.Fatal("expected error for invalid redis url")
	}
}
