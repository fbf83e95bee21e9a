package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/justapithecus/dredge/iox"
	"github.com/justapithecus/dredge/types"
)

// DefaultFetchTimeout bounds one detail request so a hung origin costs a
// worker slot for at most this long.
const DefaultFetchTimeout = 30 * time.Second

// maxDetailBody caps the detail response size read into memory.
const maxDetailBody = 8 << 20

// HTTPFetcherConfig configures the credentialed HTTP fetcher.
type HTTPFetcherConfig struct {
	// Headers are sent on every request (session cookie, user agent).
	Headers map[string]string
	// Timeout is the per-request timeout (default DefaultFetchTimeout).
	Timeout time.Duration
	// ProxyURL optionally routes requests through a single proxy.
	ProxyURL string
	// Allowlist gates fetch targets. Nil allows everything.
	Allowlist *Allowlist
}

// HTTPFetcher is the production Fetcher: one credentialed session against
// one catalog. Non-2xx responses are returned as results, not errors, so
// the caller owns the classification.
type HTTPFetcher struct {
	config HTTPFetcherConfig
	client *http.Client
}

// NewHTTPFetcher creates a fetcher from the given config.
func NewHTTPFetcher(cfg HTTPFetcherConfig) (*HTTPFetcher, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultFetchTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.ProxyURL != "" {
		proxyURL, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("fetcher: invalid proxy URL: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return &HTTPFetcher{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout, Transport: transport},
	}, nil
}

// Fetch performs one credentialed GET of the item detail page.
// Transport-level failures return a *FetchError with class network.
func (f *HTTPFetcher) Fetch(ctx context.Context, itemURL string) (*FetchResult, error) {
	if f.config.Allowlist != nil {
		if err := f.config.Allowlist.Check(itemURL); err != nil {
			return nil, &FetchError{Class: types.FailureNetwork, Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, itemURL, nil)
	if err != nil {
		return nil, &FetchError{Class: types.FailureNetwork, Err: fmt.Errorf("create request: %w", err)}
	}
	for k, v := range f.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{Class: types.FailureNetwork, Err: err}
	}
	defer iox.DiscardClose(resp.Body)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDetailBody))
	if err != nil {
		return nil, &FetchError{Class: types.FailureNetwork, Err: fmt.Errorf("read body: %w", err)}
	}

	return &FetchResult{StatusCode: resp.StatusCode, Body: body}, nil
}

// Close releases idle connections.
func (f *HTTPFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}

// Verify HTTPFetcher implements the fetcher interface.
var _ Fetcher = (*HTTPFetcher)(nil)
