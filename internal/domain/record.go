package domain

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// URLRecord is the ledger entry tracking when a URL was last pushed to the indexing service.
type URLRecord struct {
	Key            string
	URL            string
	LastNotifiedAt time.Time
}

// EncodeKey maps a URL to its storage key using URL-safe base64 with padding.
func EncodeKey(url string) string {
	return base64.URLEncoding.EncodeToString([]byte(url))
}

// DecodeKey reverses EncodeKey.
func DecodeKey(key string) (string, error) {
	raw, err := base64.URLEncoding.DecodeString(strings.TrimSpace(key))
	if err != nil {
		return "", fmt.Errorf("%w: invalid record key %q: %v", ErrValidation, key, err)
	}
	return string(raw), nil
}

// NewURLRecord builds a record for url stamped at ts.
func NewURLRecord(url string, ts time.Time) URLRecord {
	return URLRecord{
		Key:            EncodeKey(url),
		URL:            url,
		LastNotifiedAt: ts,
	}
}
