package provider

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2/google"
)

// IndexingScope is the OAuth scope required by the Indexing API.
const IndexingScope = "https://www.googleapis.com/auth/indexing"

// NewGoogleHTTPClient returns an http.Client authorized with Application Default Credentials.
func NewGoogleHTTPClient(ctx context.Context, scopes ...string) (*http.Client, error) {
	if len(scopes) == 0 {
		scopes = []string{IndexingScope}
	}
	client, err := google.DefaultClient(ctx, scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve google default credentials: %w", err)
	}
	return client, nil
}
