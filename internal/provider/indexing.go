package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	defaultIndexingTimeout = 30 * time.Second
	notificationTypeUpdate = "URL_UPDATED"
	maxErrorBodyLength     = 2000
)

type publishRequest struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

type publishResponse struct {
	URLNotificationMetadata *struct {
		URL          string `json:"url"`
		LatestUpdate *struct {
			URL        string `json:"url"`
			Type       string `json:"type"`
			NotifyTime string `json:"notifyTime"`
		} `json:"latestUpdate"`
	} `json:"urlNotificationMetadata"`
}

// IndexingProvider publishes URL_UPDATED notifications to the Indexing API.
type IndexingProvider struct {
	client   *resty.Client
	endpoint string
}

var _ Notifier = (*IndexingProvider)(nil)

// NewIndexingProvider builds a provider on top of httpClient, which carries the
// credentials (see NewGoogleHTTPClient) and the request timeout. A nil httpClient sends
// unauthenticated requests.
func NewIndexingProvider(endpoint string, httpClient *http.Client) (*IndexingProvider, error) {
	var client *resty.Client
	if httpClient != nil {
		client = resty.NewWithClient(httpClient)
	} else {
		client = resty.New()
	}
	client.SetRetryCount(0)

	return NewIndexingProviderWithClient(endpoint, client)
}

func NewIndexingProviderWithClient(endpoint string, client *resty.Client) (*IndexingProvider, error) {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		return nil, fmt.Errorf("indexing endpoint is required")
	}
	if err := validateEndpoint(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid indexing endpoint: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultIndexingTimeout)
	}
	client.SetRetryCount(0)

	return &IndexingProvider{
		client:   client,
		endpoint: trimmedEndpoint,
	}, nil
}

// Notify sends exactly one URL_UPDATED call; it never retries.
func (p *IndexingProvider) Notify(ctx context.Context, target string) (*NotifyResponse, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("provider is not initialized")
	}
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, &ProviderError{Kind: FailureInvalid, Message: "url is required"}
	}

	response, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(publishRequest{URL: target, Type: notificationTypeUpdate}).
		Post(p.endpoint)
	if err != nil {
		return nil, &ProviderError{
			Kind:    FailureTransport,
			Message: "provider request failed",
			Cause:   err,
		}
	}
	if response == nil {
		return nil, &ProviderError{
			Kind:    FailureTransport,
			Message: "provider returned empty response",
		}
	}

	statusCode := response.StatusCode()
	responseBody := strings.TrimSpace(response.String())

	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		return nil, &ProviderError{
			Kind:       FailureAPI,
			StatusCode: statusCode,
			Message:    providerErrorMessage(statusCode, responseBody),
		}
	}

	var parsed publishResponse
	if err := json.Unmarshal([]byte(responseBody), &parsed); err != nil {
		return nil, &ProviderError{
			Kind:       FailureInvalid,
			StatusCode: statusCode,
			Message:    "provider returned malformed response",
			Cause:      err,
		}
	}

	notifyTime := ""
	if meta := parsed.URLNotificationMetadata; meta != nil && meta.LatestUpdate != nil {
		notifyTime = meta.LatestUpdate.NotifyTime
	}

	return &NotifyResponse{
		StatusCode: statusCode,
		Body:       responseBody,
		NotifyTime: notifyTime,
	}, nil
}

func providerErrorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("provider returned status %d", statusCode)
	if body == "" {
		return base
	}
	if len(body) > maxErrorBodyLength {
		body = body[:maxErrorBodyLength] + "..."
	}
	return fmt.Sprintf("%s: %s", base, body)
}

// validateEndpoint accepts absolute http(s) URLs with a host.
func validateEndpoint(raw string) error {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}
