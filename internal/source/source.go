package source

import "context"

// URLSource enumerates every currently published article URL.
type URLSource interface {
	FetchAll(ctx context.Context) ([]string, error)
}
