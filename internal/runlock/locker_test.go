package runlock

import (
	"context"
	"errors"
	"testing"

	"github.com/kursadbilgin/index-notifier/internal/domain"
)

func TestLocalAcquireExclusive(t *testing.T) {
	t.Parallel()

	locker := NewLocal()

	release, err := locker.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	if _, err := locker.Acquire(context.Background()); !errors.Is(err, domain.ErrRunInProgress) {
		t.Fatalf("second Acquire() error = %v, want ErrRunInProgress", err)
	}

	release()
	release()

	release, err = locker.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() after release error = %v", err)
	}
	release()
}

func TestLocalAcquireCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewLocal().Acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Acquire() error = %v, want context.Canceled", err)
	}
}

func TestNoopAcquire(t *testing.T) {
	t.Parallel()

	var locker Locker = Noop{}
	for i := 0; i < 2; i++ {
		release, err := locker.Acquire(context.Background())
		if err != nil {
			t.Fatalf("Acquire() error = %v", err)
		}
		release()
	}
}
