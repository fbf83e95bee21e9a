package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/justapithecus/dredge/iox"
)

// HTTPDownloader fetches preview resources to local files. Writes go to a
// temp file renamed into place so a failed download leaves no partial file.
type HTTPDownloader struct {
	client    *http.Client
	headers   map[string]string
	allowlist *Allowlist
}

// NewHTTPDownloader creates a downloader sharing the fetch session headers.
func NewHTTPDownloader(headers map[string]string, timeout time.Duration, allowlist *Allowlist) *HTTPDownloader {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &HTTPDownloader{
		client:    &http.Client{Timeout: timeout},
		headers:   headers,
		allowlist: allowlist,
	}
}

// Download implements Downloader.
func (d *HTTPDownloader) Download(ctx context.Context, resourceURL, destPath string) error {
	if d.allowlist != nil {
		if err := d.allowlist.Check(resourceURL); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resourceURL, nil)
	if err != nil {
		return fmt.Errorf("download: create request: %w", err)
	}
	for k, v := range d.headers {
		req.Header.Set(k, v)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer iox.DiscardClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("download: unexpected status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("download: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".preview-*")
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		iox.DiscardClose(tmp)
		_ = os.Remove(tmpName)
		return fmt.Errorf("download: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("download: close: %w", err)
	}

	return os.Rename(tmpName, destPath)
}

// Verify HTTPDownloader implements the downloader interface.
var _ Downloader = (*HTTPDownloader)(nil)
