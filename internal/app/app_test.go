package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/kursadbilgin/index-notifier/internal/config"
	"github.com/kursadbilgin/index-notifier/internal/domain"
	infraredis "github.com/kursadbilgin/index-notifier/internal/infra/redis"
	"github.com/kursadbilgin/index-notifier/internal/provider"
	"github.com/kursadbilgin/index-notifier/internal/ratelimit"
	"go.uber.org/zap"
)

func TestNewPacer(t *testing.T) {
	t.Parallel()

	delay := (&App{Config: &config.Config{SleepSeconds: 10}}).newPacer()
	if delay.Interval() != 10*time.Second {
		t.Fatalf("Interval() = %v, want 10s", delay.Interval())
	}
}

func TestNewLimiter(t *testing.T) {
	t.Parallel()

	none, err := (&App{Config: &config.Config{}}).newLimiter()
	if err != nil {
		t.Fatalf("newLimiter() error = %v", err)
	}
	if none != nil {
		t.Fatalf("limiter = %T, want nil without a rate", none)
	}

	limiter, err := (&App{Config: &config.Config{NotifyRatePerMinute: 120}}).newLimiter()
	if err != nil {
		t.Fatalf("newLimiter() error = %v", err)
	}
	if _, ok := limiter.(*ratelimit.TokenBucket); !ok {
		t.Fatalf("limiter = %T, want *ratelimit.TokenBucket", limiter)
	}
}

func TestNewLimiterUsesRedisQuota(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	a := &App{Config: &config.Config{RedisURL: "redis://" + mr.Addr(), NotifyRatePerMinute: 30}}
	t.Cleanup(func() { _ = a.Close() })

	if _, err := a.newLocker(context.Background()); err != nil {
		t.Fatalf("newLocker() error = %v", err)
	}
	limiter, err := a.newLimiter()
	if err != nil {
		t.Fatalf("newLimiter() error = %v", err)
	}
	if _, ok := limiter.(*infraredis.QuotaPacer); !ok {
		t.Fatalf("limiter = %T, want *redis.QuotaPacer", limiter)
	}

	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
}

func TestOpenLedgerSQLite(t *testing.T) {
	t.Parallel()

	a := &App{
		Config: &config.Config{
			LedgerBackend:    config.LedgerBackendSQLite,
			DatabaseDSN:      filepath.Join(t.TempDir(), "ledger.db"),
			LedgerCollection: "blog_urls",
		},
		Logger: zap.NewNop(),
	}
	t.Cleanup(func() { _ = a.Close() })

	ledger, err := a.openLedger(context.Background())
	if err != nil {
		t.Fatalf("openLedger() error = %v", err)
	}

	ts := time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC)
	if err := ledger.Create(context.Background(), "https://blog.example.com/a", ts); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	records, err := ledger.GetAll(context.Background())
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if _, ok := records[domain.EncodeKey("https://blog.example.com/a")]; !ok {
		t.Fatalf("records = %v, want the created url", records)
	}

	if len(a.Checks) != 1 || a.Checks[0].Name != config.LedgerBackendSQLite {
		t.Fatalf("checks = %+v, want sqlite readiness check", a.Checks)
	}
	if err := a.Checks[0].Check(context.Background()); err != nil {
		t.Fatalf("readiness check error = %v", err)
	}
}

func TestNewLockerUsesRedisWhenConfigured(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	a := &App{Config: &config.Config{RedisURL: "redis://" + mr.Addr(), RunLockTTLSeconds: 60}}
	t.Cleanup(func() { _ = a.Close() })

	locker, err := a.newLocker(context.Background())
	if err != nil {
		t.Fatalf("newLocker() error = %v", err)
	}

	release, err := locker.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if !mr.Exists(runLockKey) {
		t.Fatal("lock key should exist in redis")
	}
	if _, err := locker.Acquire(context.Background()); !errors.Is(err, domain.ErrRunInProgress) {
		t.Fatalf("second Acquire() error = %v, want ErrRunInProgress", err)
	}
	release()
	if mr.Exists(runLockKey) {
		t.Fatal("lock key should be released")
	}
}

type stubNotifier struct{}

func (stubNotifier) Notify(ctx context.Context, url string) (*provider.NotifyResponse, error) {
	return &provider.NotifyResponse{StatusCode: 200}, nil
}

type stubSource struct{ urls []string }

func (s stubSource) FetchAll(ctx context.Context) ([]string, error) { return s.urls, nil }

type stubMailer struct{ sent int }

func (m *stubMailer) SendReport(ctx context.Context, report domain.RunReport) error {
	m.sent++
	return nil
}

func TestRunServiceWiringEndToEnd(t *testing.T) {
	t.Parallel()

	a := &App{
		Config: &config.Config{
			LedgerBackend:    config.LedgerBackendSQLite,
			DatabaseDSN:      filepath.Join(t.TempDir(), "ledger.db"),
			LedgerCollection: "url_notifications",
		},
	}
	t.Cleanup(func() { _ = a.Close() })

	ledger, err := a.openLedger(context.Background())
	if err != nil {
		t.Fatalf("openLedger() error = %v", err)
	}

	mailer := &stubMailer{}
	runner, err := newRunService(
		ledger,
		stubSource{urls: []string{"https://blog.example.com/a", "https://blog.example.com/b", "https://blog.example.com/c"}},
		stubNotifier{},
		ratelimit.NewFixedDelay(0),
		nil,
		mailer,
		nil,
		2,
		nil,
		zap.NewNop(),
	)
	if err != nil {
		t.Fatalf("newRunService() error = %v", err)
	}

	result, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Report.SuccessCount != 2 || len(result.Reconcile.Created) != 3 {
		t.Fatalf("result = %+v", result)
	}
	if mailer.sent != 1 {
		t.Fatalf("mails sent = %d, want 1", mailer.sent)
	}

	records, err := ledger.GetAll(context.Background())
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records = %d, want 3", len(records))
	}
}
