package fetch

import "net/http"

// NewFetcherWithClient exports newFetcherWithClient for testing purposes.
func NewFetcherWithClient(client *http.Client) *Fetcher {
	return newFetcherWithClient(client)
}
