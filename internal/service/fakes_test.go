package service

import (
	"context"
	"sync"
	"time"

	"github.com/kursadbilgin/index-notifier/internal/domain"
	"github.com/kursadbilgin/index-notifier/internal/provider"
)

// memoryLedger is a map-backed ledger; the xxxFn hooks override individual calls.
type memoryLedger struct {
	mu      sync.Mutex
	records map[string]domain.URLRecord

	getAllFn          func(ctx context.Context) (map[string]domain.URLRecord, error)
	createFn          func(ctx context.Context, url string, ts time.Time) error
	updateTimestampFn func(ctx context.Context, url string, ts time.Time) error

	creates []string
	updates []string
}

func newMemoryLedger(records ...domain.URLRecord) *memoryLedger {
	l := &memoryLedger{records: make(map[string]domain.URLRecord, len(records))}
	for _, r := range records {
		if r.Key == "" {
			r.Key = domain.EncodeKey(r.URL)
		}
		l.records[r.Key] = r
	}
	return l
}

func (l *memoryLedger) GetAll(ctx context.Context) (map[string]domain.URLRecord, error) {
	if l.getAllFn != nil {
		return l.getAllFn(ctx)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string]domain.URLRecord, len(l.records))
	for k, v := range l.records {
		out[k] = v
	}
	return out, nil
}

func (l *memoryLedger) Create(ctx context.Context, url string, ts time.Time) error {
	if l.createFn != nil {
		if err := l.createFn(ctx, url, ts); err != nil {
			return err
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	key := domain.EncodeKey(url)
	if _, ok := l.records[key]; ok {
		return domain.ErrAlreadyExists
	}
	l.records[key] = domain.NewURLRecord(url, ts)
	l.creates = append(l.creates, url)
	return nil
}

func (l *memoryLedger) UpdateTimestamp(ctx context.Context, url string, ts time.Time) error {
	if l.updateTimestampFn != nil {
		if err := l.updateTimestampFn(ctx, url, ts); err != nil {
			return err
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	key := domain.EncodeKey(url)
	record, ok := l.records[key]
	if !ok {
		return domain.ErrNotFound
	}
	record.LastNotifiedAt = ts
	l.records[key] = record
	l.updates = append(l.updates, url)
	return nil
}

func (l *memoryLedger) record(url string) (domain.URLRecord, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.records[domain.EncodeKey(url)]
	return r, ok
}

type fakeSource struct {
	fetchAllFn func(ctx context.Context) ([]string, error)
}

func (f *fakeSource) FetchAll(ctx context.Context) ([]string, error) {
	if f.fetchAllFn != nil {
		return f.fetchAllFn(ctx)
	}
	return nil, nil
}

type fakeNotifier struct {
	notifyFn func(ctx context.Context, url string) (*provider.NotifyResponse, error)
	calls    []string
}

func (f *fakeNotifier) Notify(ctx context.Context, url string) (*provider.NotifyResponse, error) {
	f.calls = append(f.calls, url)
	if f.notifyFn != nil {
		return f.notifyFn(ctx, url)
	}
	return &provider.NotifyResponse{StatusCode: 200}, nil
}

type fakePacer struct {
	waitFn func(ctx context.Context) error
	waits  int
}

func (f *fakePacer) Wait(ctx context.Context) error {
	f.waits++
	if f.waitFn != nil {
		return f.waitFn(ctx)
	}
	return nil
}

type fakeReportSender struct {
	sendReportFn func(ctx context.Context, report domain.RunReport) error
	sent         []domain.RunReport
}

func (f *fakeReportSender) SendReport(ctx context.Context, report domain.RunReport) error {
	f.sent = append(f.sent, report)
	if f.sendReportFn != nil {
		return f.sendReportFn(ctx, report)
	}
	return nil
}

type fakeLocker struct {
	acquireFn func(ctx context.Context) (func(), error)
	released  int
}

func (f *fakeLocker) Acquire(ctx context.Context) (func(), error) {
	if f.acquireFn != nil {
		return f.acquireFn(ctx)
	}
	return func() { f.released++ }, nil
}

// clock returns successive instants one second apart starting at base.
func clock(base time.Time) func() time.Time {
	var mu sync.Mutex
	current := base
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := current
		current = current.Add(time.Second)
		return now
	}
}
