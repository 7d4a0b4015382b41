package runlock

import (
	"context"
	"sync"

	"github.com/kursadbilgin/index-notifier/internal/domain"
)

// Locker guards a batch run against a concurrent execution.
// Acquire returns domain.ErrRunInProgress when another run holds the lock.
type Locker interface {
	Acquire(ctx context.Context) (release func(), err error)
}

// Local is an in-process Locker. It only protects runs inside one process.
type Local struct {
	mu sync.Mutex
}

var _ Locker = (*Local)(nil)

func NewLocal() *Local {
	return &Local{}
}

func (l *Local) Acquire(ctx context.Context) (func(), error) {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	if !l.mu.TryLock() {
		return nil, domain.ErrRunInProgress
	}

	var once sync.Once
	return func() { once.Do(l.mu.Unlock) }, nil
}

// Noop never blocks. service.NewRunService falls back to it when no locker is given.
type Noop struct{}

func (Noop) Acquire(context.Context) (func(), error) {
	return func() {}, nil
}
