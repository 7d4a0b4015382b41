package observability

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_LevelMapping(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		level string
		want  zapcore.Level
	}{
		{name: "debug", level: "debug", want: zapcore.DebugLevel},
		{name: "info", level: "info", want: zapcore.InfoLevel},
		{name: "empty defaults to info", level: "", want: zapcore.InfoLevel},
		{name: "warning alias", level: " WARNING ", want: zapcore.WarnLevel},
		{name: "error", level: "error", want: zapcore.ErrorLevel},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			logger, err := NewLogger(tc.level, "notifier")
			if err != nil {
				t.Fatalf("NewLogger() error = %v", err)
			}

			if !logger.Core().Enabled(tc.want) {
				t.Fatalf("level %s should be enabled", tc.want)
			}
			if tc.want > zapcore.DebugLevel && logger.Core().Enabled(tc.want-1) {
				t.Fatalf("level %s should be disabled", tc.want-1)
			}
		})
	}
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	t.Parallel()

	logger, err := NewLogger("not-a-level", "api")
	if err == nil {
		t.Fatal("expected error for invalid level")
	}
	if logger != nil {
		t.Fatal("expected nil logger for invalid level")
	}
}

func TestRunIDFromContext(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		ctx    context.Context
		wantID string
		wantOK bool
	}{
		{name: "background with id", ctx: WithRunID(context.Background(), "run-123"), wantID: "run-123", wantOK: true},
		{name: "todo context with id", ctx: WithRunID(context.TODO(), "run-456"), wantID: "run-456", wantOK: true},
		{name: "empty id", ctx: WithRunID(context.Background(), ""), wantOK: false},
		{name: "missing", ctx: context.Background(), wantOK: false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, ok := RunIDFromContext(tc.ctx)
			if ok != tc.wantOK || got != tc.wantID {
				t.Fatalf("RunIDFromContext() = (%q, %v), want (%q, %v)", got, ok, tc.wantID, tc.wantOK)
			}
		})
	}
}

func TestWithContextLogger(t *testing.T) {
	t.Parallel()

	core, recorded := observer.New(zapcore.InfoLevel)
	baseLogger := zap.New(core)

	WithContextLogger(baseLogger, WithRunID(context.Background(), "run-789")).Info("tagged")
	WithContextLogger(baseLogger, context.Background()).Info("untagged")

	entries := recorded.All()
	if len(entries) != 2 {
		t.Fatalf("entries=%d, want=2", len(entries))
	}
	if got := entries[0].ContextMap()["runId"]; got != "run-789" {
		t.Fatalf("runId=%v, want=%q", got, "run-789")
	}
	if _, ok := entries[1].ContextMap()["runId"]; ok {
		t.Fatal("expected runId field to be absent")
	}
}

func TestWithContextLogger_NilLogger(t *testing.T) {
	t.Parallel()

	logger := WithContextLogger(nil, WithRunID(context.Background(), "run-1"))
	if logger == nil {
		t.Fatal("expected a no-op logger")
	}
	logger.Info("dropped")
}
