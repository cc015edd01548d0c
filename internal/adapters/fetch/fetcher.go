// Package fetch implements the Fetcher port for http, https and file urls.
package fetch

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"go.trai.ch/keg/internal/build"
	"go.trai.ch/keg/internal/core/domain"
	"go.trai.ch/zerr"
)

// Fetcher implements ports.Fetcher.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
}

// NewFetcher creates a Fetcher. Deadlines come from the caller's context.
func NewFetcher() *Fetcher {
	return newFetcherWithClient(&http.Client{})
}

// newFetcherWithClient creates a Fetcher with a custom http client (used for testing).
func newFetcherWithClient(client *http.Client) *Fetcher {
	return &Fetcher{
		httpClient: client,
		userAgent:  "keg/" + build.Version,
	}
}

// Fetch streams the artifact at rawURL into dst and returns the number of
// bytes written. Failures are *domain.FetchError. Nothing is retried.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, dst io.Writer) (int64, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0, &domain.FetchError{URL: rawURL, Err: err}
	}

	switch u.Scheme {
	case "http", "https":
		return f.fetchHTTP(ctx, u, dst)
	case "file":
		return fetchFile(ctx, u, dst)
	default:
		return 0, &domain.FetchError{
			URL: rawURL,
			Err: zerr.With(zerr.Wrap(domain.ErrUnsupportedScheme, "cannot fetch"), "scheme", u.Scheme),
		}
	}
}

func (f *Fetcher) fetchHTTP(ctx context.Context, u *url.URL, dst io.Writer) (int64, error) {
	rawURL := u.String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return 0, &domain.FetchError{URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return 0, &domain.FetchError{URL: rawURL, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return 0, &domain.FetchError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	n, err := io.Copy(dst, resp.Body)
	if err != nil {
		return n, &domain.FetchError{URL: rawURL, Err: err}
	}
	return n, nil
}

func fetchFile(ctx context.Context, u *url.URL, dst io.Writer) (int64, error) {
	path := u.Path
	if u.Opaque != "" {
		path = u.Opaque
	}
	path = filepath.FromSlash(path)

	// #nosec G304 -- file urls point at local artifacts by definition
	src, err := os.Open(path)
	if err != nil {
		return 0, &domain.FetchError{URL: u.String(), Err: err}
	}
	defer func() {
		_ = src.Close()
	}()

	n, err := io.Copy(dst, &contextReader{ctx: ctx, r: src})
	if err != nil {
		return n, &domain.FetchError{URL: u.String(), Err: err}
	}
	return n, nil
}

// contextReader stops a copy once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
