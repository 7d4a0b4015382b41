package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	defaultBloggerTimeout = 30 * time.Second
	bloggerPageSize       = "500"
	maxBloggerPages       = 1000
)

type bloggerPostsResponse struct {
	Items []struct {
		URL string `json:"url"`
	} `json:"items"`
	NextPageToken string `json:"nextPageToken"`
}

type bloggerErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// BloggerSource lists live post URLs of one blog through the Blogger v3 API.
type BloggerSource struct {
	client   *resty.Client
	endpoint string
	blogID   string
	apiKey   string
}

var _ URLSource = (*BloggerSource)(nil)

// NewBloggerSource uses a fresh client with the given request timeout; a non-positive
// timeout falls back to 30s.
func NewBloggerSource(endpoint, blogID, apiKey string, timeout time.Duration) (*BloggerSource, error) {
	if timeout <= 0 {
		timeout = defaultBloggerTimeout
	}
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetRetryCount(0)

	return NewBloggerSourceWithClient(endpoint, blogID, apiKey, client)
}

func NewBloggerSourceWithClient(endpoint, blogID, apiKey string, client *resty.Client) (*BloggerSource, error) {
	trimmedEndpoint := strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if trimmedEndpoint == "" {
		return nil, fmt.Errorf("blogger endpoint is required")
	}
	if err := validateEndpoint(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid blogger endpoint: %w", err)
	}
	if strings.TrimSpace(blogID) == "" {
		return nil, fmt.Errorf("blog id is required")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultBloggerTimeout)
	}
	client.SetRetryCount(0)

	return &BloggerSource{
		client:   client,
		endpoint: trimmedEndpoint,
		blogID:   strings.TrimSpace(blogID),
		apiKey:   strings.TrimSpace(apiKey),
	}, nil
}

// FetchAll follows pagination to the end and returns URLs in API order without duplicates.
// Any page failure aborts the whole listing.
func (s *BloggerSource) FetchAll(ctx context.Context) ([]string, error) {
	if s == nil || s.client == nil {
		return nil, fmt.Errorf("source is not initialized")
	}

	postsURL := fmt.Sprintf("%s/blogs/%s/posts", s.endpoint, url.PathEscape(s.blogID))
	seenTokens := make(map[string]struct{})
	seenURLs := make(map[string]struct{})
	urls := make([]string, 0, 64)
	pageToken := ""

	for page := 0; ; page++ {
		if page >= maxBloggerPages {
			return nil, fmt.Errorf("blogger listing exceeded %d pages", maxBloggerPages)
		}

		resp, err := s.fetchPage(ctx, postsURL, pageToken)
		if err != nil {
			return nil, err
		}

		for _, item := range resp.Items {
			u := strings.TrimSpace(item.URL)
			if u == "" {
				continue
			}
			if _, dup := seenURLs[u]; dup {
				continue
			}
			seenURLs[u] = struct{}{}
			urls = append(urls, u)
		}

		pageToken = strings.TrimSpace(resp.NextPageToken)
		if pageToken == "" {
			return urls, nil
		}
		if _, repeated := seenTokens[pageToken]; repeated {
			return nil, fmt.Errorf("blogger listing returned repeated page token %q", pageToken)
		}
		seenTokens[pageToken] = struct{}{}
	}
}

func (s *BloggerSource) fetchPage(ctx context.Context, postsURL, pageToken string) (*bloggerPostsResponse, error) {
	var result bloggerPostsResponse
	var apiErr bloggerErrorResponse

	req := s.client.R().
		SetContext(ctx).
		SetQueryParam("key", s.apiKey).
		SetQueryParam("fetchBodies", "false").
		SetQueryParam("maxResults", bloggerPageSize).
		SetQueryParam("fields", "items(url),nextPageToken").
		SetResult(&result).
		SetError(&apiErr)
	if pageToken != "" {
		req.SetQueryParam("pageToken", pageToken)
	}

	response, err := req.Get(postsURL)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("blogger request aborted: %w", err)
		}
		return nil, fmt.Errorf("blogger request failed: %w", err)
	}

	statusCode := response.StatusCode()
	if statusCode != http.StatusOK {
		message := strings.TrimSpace(apiErr.Error.Message)
		if message == "" {
			message = strings.TrimSpace(response.String())
		}
		return nil, fmt.Errorf("blogger returned status %d: %s", statusCode, message)
	}

	return &result, nil
}

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
