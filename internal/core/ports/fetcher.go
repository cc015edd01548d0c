package ports

import (
	"context"
	"io"
)

// Fetcher retrieves artifacts by URL.
//
//go:generate go run go.uber.org/mock/mockgen -source=fetcher.go -destination=mocks/mock_fetcher.go -package=mocks
type Fetcher interface {
	// Fetch streams the artifact at rawURL into dst and returns the number of
	// bytes written. Failures are *domain.FetchError. Fetch never retries.
	Fetch(ctx context.Context, rawURL string, dst io.Writer) (int64, error)
}
