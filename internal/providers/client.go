// Package providers contains the typed clients for each external data
// vendor and the fallback-chain acquisition layer that orchestrates them.
// Core code above this package never sees a vendor's JSON shape.
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultHTTPTimeout = 10 * time.Second

// httpClient is shared by all provider clients.
type httpClient struct {
	client  *http.Client
	headers map[string]string
}

func newHTTPClient(headers map[string]string) *httpClient {
	return &httpClient{
		client:  &http.Client{Timeout: defaultHTTPTimeout},
		headers: headers,
	}
}

// getJSON fetches a URL and decodes the JSON body into out. Any non-2xx
// status, transport error, or malformed payload comes back wrapped in
// ErrProviderUnavailable so the chain can advance.
func (h *httpClient) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: building request: %v", ErrProviderUnavailable, err)
	}
	for k, v := range h.headers {
		req.Header.Set(k, v)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", ErrProviderUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d: %s", ErrProviderUnavailable, resp.StatusCode, truncate(body, 200))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: malformed payload: %v", ErrProviderUnavailable, err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
