package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/index-notifier/internal/domain"
	"github.com/kursadbilgin/index-notifier/internal/runlock"
	goredis "github.com/redis/go-redis/v9"
)

const (
	defaultLockKey = "index-notifier:run-lock"
	defaultLockTTL = time.Hour
	releaseTimeout = 5 * time.Second
)

// releaseScript deletes the lock only if it is still owned by the caller's token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

var _ runlock.Locker = (*RunLock)(nil)

// RunLock is a single-holder lock shared by every process pointed at the same Redis.
type RunLock struct {
	client   *goredis.Client
	key      string
	ttl      time.Duration
	newToken func() string
	script   *goredis.Script
}

func NewRunLock(client *goredis.Client, key string, ttl time.Duration) (*RunLock, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = defaultLockKey
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}

	return &RunLock{
		client:   client,
		key:      key,
		ttl:      ttl,
		newToken: uuid.NewString,
		script:   releaseScript,
	}, nil
}

func (l *RunLock) Acquire(ctx context.Context) (func(), error) {
	if l == nil || l.client == nil {
		return nil, fmt.Errorf("run lock is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	token := l.newToken()
	acquired, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !acquired {
		return nil, domain.ErrRunInProgress
	}

	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()
		// An expired lock may already belong to another run; the script leaves it alone.
		_ = l.script.Run(releaseCtx, l.client, []string{l.key}, token).Err()
	}

	return release, nil
}
