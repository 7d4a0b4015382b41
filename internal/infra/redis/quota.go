package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/index-notifier/internal/ratelimit"
	goredis "github.com/redis/go-redis/v9"
)

const (
	defaultQuotaPrefix = "index-notifier:quota"
	quotaWindow        = time.Minute
)

var quotaScript = goredis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[2])
end
if current > tonumber(ARGV[1]) then
  return 0
end
return 1
`)

var _ ratelimit.Pacer = (*QuotaPacer)(nil)

// QuotaPacer enforces a per-minute notification quota shared by every process using the same
// Redis, as a fixed window counter.
type QuotaPacer struct {
	client    *goredis.Client
	prefix    string
	perMinute int64
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error
	script    *goredis.Script
}

func NewQuotaPacer(client *goredis.Client, prefix string, perMinute int) (*QuotaPacer, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if perMinute <= 0 {
		return nil, fmt.Errorf("per-minute quota must be positive, got %d", perMinute)
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultQuotaPrefix
	}

	return &QuotaPacer{
		client:    client,
		prefix:    prefix,
		perMinute: int64(perMinute),
		now:       time.Now,
		sleep:     sleepWithContext,
		script:    quotaScript,
	}, nil
}

// Allow consumes one slot of the current window if any is left.
func (p *QuotaPacer) Allow(ctx context.Context) (bool, error) {
	window := p.now().UTC().Truncate(quotaWindow)
	key := fmt.Sprintf("%s:%d", p.prefix, window.Unix())

	ttlSeconds := int64(2 * quotaWindow / time.Second)
	result, err := p.script.Run(ctx, p.client, []string{key}, p.perMinute, ttlSeconds).Int()
	if err != nil {
		return false, fmt.Errorf("failed to evaluate notification quota: %w", err)
	}
	return result == 1, nil
}

// Wait blocks until a slot is available, sleeping to the next window when the current one is spent.
func (p *QuotaPacer) Wait(ctx context.Context) error {
	for {
		allowed, err := p.Allow(ctx)
		if err != nil {
			return err
		}
		if allowed {
			return nil
		}

		now := p.now().UTC()
		untilNext := now.Truncate(quotaWindow).Add(quotaWindow).Sub(now)
		if err := p.sleep(ctx, untilNext); err != nil {
			return err
		}
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
