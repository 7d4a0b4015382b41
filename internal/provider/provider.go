package provider

import "context"

// Notifier is the outbound "URL updated" port of the indexing service.
type Notifier interface {
	Notify(ctx context.Context, url string) (*NotifyResponse, error)
}

// NotifyResponse stores indexing API call metadata for the run report.
type NotifyResponse struct {
	StatusCode int
	Body       string
	NotifyTime string
}
