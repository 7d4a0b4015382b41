package firestore

import (
	"testing"
	"time"

	"github.com/kursadbilgin/index-notifier/internal/domain"
)

func TestRecordFromDocument(t *testing.T) {
	t.Parallel()

	url := "https://example.com/a"
	key := domain.EncodeKey(url)
	current := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	legacy := time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC)

	testCases := []struct {
		name    string
		key     string
		doc     ledgerDocument
		wantURL string
		wantTS  time.Time
	}{
		{
			name:    "current field",
			key:     key,
			doc:     ledgerDocument{URL: url, LastNotifiedAt: current, LastSent: legacy},
			wantURL: url,
			wantTS:  current,
		},
		{
			name:    "legacy last_sent field",
			key:     key,
			doc:     ledgerDocument{URL: url, LastSent: legacy},
			wantURL: url,
			wantTS:  legacy,
		},
		{
			name:    "url recovered from key",
			key:     key,
			doc:     ledgerDocument{LastNotifiedAt: current},
			wantURL: url,
			wantTS:  current,
		},
		{
			name:    "undecodable key leaves url empty",
			key:     "not base64!",
			doc:     ledgerDocument{},
			wantURL: "",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := recordFromDocument(tc.key, tc.doc)
			if got.Key != tc.key {
				t.Fatalf("Key = %q, want %q", got.Key, tc.key)
			}
			if got.URL != tc.wantURL {
				t.Fatalf("URL = %q, want %q", got.URL, tc.wantURL)
			}
			if !got.LastNotifiedAt.Equal(tc.wantTS) {
				t.Fatalf("LastNotifiedAt = %v, want %v", got.LastNotifiedAt, tc.wantTS)
			}
		})
	}
}

func TestNewLedgerRepoValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewLedgerRepo(nil, ""); err == nil {
		t.Fatal("expected error for nil client")
	}
}
