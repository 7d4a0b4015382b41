package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/kursadbilgin/index-notifier/internal/config"
	"github.com/kursadbilgin/index-notifier/internal/handler"
	"github.com/kursadbilgin/index-notifier/internal/infra/database"
	"github.com/kursadbilgin/index-notifier/internal/infra/database/migrations"
	"github.com/kursadbilgin/index-notifier/internal/infra/firestore"
	infraredis "github.com/kursadbilgin/index-notifier/internal/infra/redis"
	"github.com/kursadbilgin/index-notifier/internal/mail"
	"github.com/kursadbilgin/index-notifier/internal/observability"
	"github.com/kursadbilgin/index-notifier/internal/provider"
	"github.com/kursadbilgin/index-notifier/internal/ratelimit"
	"github.com/kursadbilgin/index-notifier/internal/repository"
	"github.com/kursadbilgin/index-notifier/internal/runlock"
	"github.com/kursadbilgin/index-notifier/internal/service"
	"github.com/kursadbilgin/index-notifier/internal/source"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	runLockKey  = "index-notifier:run-lock"
	quotaPrefix = "index-notifier:quota"
)

// App holds the collaborators of one process.
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *observability.Metrics
	Runner  *service.RunService
	// Checks feed /readyz.
	Checks []handler.ReadinessCheck

	rdb     *goredis.Client
	closers []func() error
}

// New builds every collaborator from cfg. Close must be called on the result even when the run fails.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NewMetrics(),
	}

	ledger, err := a.openLedger(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	locker, err := a.newLocker(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	urlSource, err := newSource(cfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	notifier, err := newNotifier(ctx, cfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	limiter, err := a.newLimiter()
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	mailer, err := newMailer(cfg, logger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	runner, err := newRunService(ledger, urlSource, notifier, a.newPacer(), limiter, mailer, locker, cfg.BatchSize, a.Metrics, logger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Runner = runner

	return a, nil
}

// Close releases database, Firestore and Redis connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) openLedger(ctx context.Context) (repository.LedgerRepository, error) {
	cfg := a.Config

	switch cfg.LedgerBackend {
	case config.LedgerBackendFirestore:
		client, err := firestore.NewClient(ctx, cfg.FirestoreProjectID)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		repo, err := firestore.NewLedgerRepo(client, cfg.LedgerCollection)
		if err != nil {
			return nil, err
		}
		return repo, nil

	case config.LedgerBackendPostgres, config.LedgerBackendSQLite:
		db, err := openSQL(cfg)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
		}
		a.closers = append(a.closers, sqlDB.Close)

		if err := migrations.Migrate(db, cfg.LedgerCollection); err != nil {
			return nil, fmt.Errorf("ledger migrations failed: %w", err)
		}

		repo := repository.NewGormLedgerRepoWithTable(db, cfg.LedgerCollection)
		a.Checks = append(a.Checks, handler.ReadinessCheck{Name: cfg.LedgerBackend, Check: repo.Ping})
		return repo, nil

	default:
		return nil, fmt.Errorf("unsupported ledger backend %q", cfg.LedgerBackend)
	}
}

func openSQL(cfg *config.Config) (*gorm.DB, error) {
	if cfg.LedgerBackend == config.LedgerBackendSQLite {
		return database.NewSQLite(cfg.DatabaseDSN)
	}
	return database.NewPostgres(cfg.DatabaseDSN)
}

func (a *App) newLocker(ctx context.Context) (runlock.Locker, error) {
	if a.Config.RedisURL == "" {
		return runlock.NewLocal(), nil
	}

	rdb, err := infraredis.NewRedis(ctx, a.Config.RedisURL)
	if err != nil {
		return nil, err
	}
	a.rdb = rdb
	a.closers = append(a.closers, rdb.Close)
	a.Checks = append(a.Checks, handler.ReadinessCheck{
		Name:  "redis",
		Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	})

	return infraredis.NewRunLock(rdb, runLockKey, a.Config.RunLockTTL())
}

func newSource(cfg *config.Config) (source.URLSource, error) {
	return source.NewBloggerSource(cfg.SourceEndpoint, cfg.SourceID, cfg.APIKey, cfg.HTTPTimeout())
}

func newNotifier(ctx context.Context, cfg *config.Config) (provider.Notifier, error) {
	httpClient, err := provider.NewGoogleHTTPClient(ctx)
	if err != nil {
		return nil, err
	}
	httpClient.Timeout = cfg.HTTPTimeout()
	return provider.NewIndexingProvider(cfg.IndexingEndpoint, httpClient)
}

func (a *App) newPacer() *ratelimit.FixedDelay {
	return ratelimit.NewFixedDelay(a.Config.SleepInterval())
}

// newLimiter returns the NOTIFY_RATE_PER_MINUTE quota: shared through Redis when configured,
// in-process otherwise. It returns nil when no rate is set.
func (a *App) newLimiter() (ratelimit.Pacer, error) {
	cfg := a.Config
	if cfg.NotifyRatePerMinute <= 0 {
		return nil, nil
	}

	if a.rdb != nil {
		quota, err := infraredis.NewQuotaPacer(a.rdb, quotaPrefix, cfg.NotifyRatePerMinute)
		if err != nil {
			return nil, err
		}
		return quota, nil
	}

	bucket, err := ratelimit.NewTokenBucket(cfg.NotifyRatePerMinute)
	if err != nil {
		return nil, err
	}
	return bucket, nil
}

func newMailer(cfg *config.Config, logger *zap.Logger) (*mail.Mailer, error) {
	composer, err := mail.NewComposer(cfg.MailFrom, cfg.MailRecipients())
	if err != nil {
		return nil, err
	}
	sender, err := mail.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.MailFrom, cfg.MailPassword)
	if err != nil {
		return nil, err
	}
	return mail.NewMailer(composer, sender, logger)
}

func newRunService(
	ledger repository.LedgerRepository,
	urlSource source.URLSource,
	notifier provider.Notifier,
	pacer ratelimit.Pacer,
	limiter ratelimit.Pacer,
	mailer service.ReportSender,
	locker runlock.Locker,
	batchSize int,
	metrics *observability.Metrics,
	logger *zap.Logger,
) (*service.RunService, error) {
	reconciler, err := service.NewReconciler(ledger, metrics, logger)
	if err != nil {
		return nil, err
	}
	selector, err := service.NewBatchSelector(ledger, batchSize, logger)
	if err != nil {
		return nil, err
	}
	driver, err := service.NewNotificationDriver(notifier, ledger, pacer, limiter, metrics, logger)
	if err != nil {
		return nil, err
	}
	return service.NewRunService(urlSource, reconciler, selector, driver, mailer, locker, metrics, logger)
}
