// Package catalog defines the engine's view of the catalog being crawled:
// the rendered-view extractor, the credentialed detail fetcher, the detail
// parser, and the optional preview downloader. The engine consumes only
// these interfaces; the HTTP and goquery implementations here make the
// binary usable against a real catalog, and the scripted stubs drive the
// engine tests.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/justapithecus/dredge/types"
)

// View is the engine's handle on the scrollable/paginated catalog view.
// Implementations advance an infinite-scroll or paged listing and report
// its measurable growth so discovery can infer exhaustion.
type View interface {
	// Extract returns the partial items currently visible. Must be safe
	// to call when nothing new has loaded (returns an empty slice).
	Extract(ctx context.Context) ([]types.PartialItem, error)

	// Advance scrolls or pages the view forward and waits for it to
	// settle (network/render jitter absorbed by the implementation).
	Advance(ctx context.Context) error

	// Extent returns the current total item count and scrollable extent
	// of the view. Discovery treats an unchanged extent plus zero new
	// items as one idle round.
	Extent(ctx context.Context) (itemCount int, scrollExtent int64, err error)
}

// FetchResult is the raw outcome of a detail fetch.
type FetchResult struct {
	StatusCode int
	Body       []byte
}

// Fetcher performs a credentialed network fetch of one item's detail page.
type Fetcher interface {
	Fetch(ctx context.Context, itemURL string) (*FetchResult, error)
}

// Parser extracts the remaining item fields from raw detail content, or
// returns ErrAuthExpired when the body is a login/sign-in page.
type Parser interface {
	Parse(body []byte) (types.ParsedFields, error)
}

// Downloader fetches a preview resource to a destination path. Failure of
// this side effect never affects item state.
type Downloader interface {
	Download(ctx context.Context, resourceURL, destPath string) error
}

// ErrAuthExpired signals that the catalog session is no longer
// authenticated. Terminal for the current run, not for the item.
var ErrAuthExpired = errors.New("catalog: authentication expired")

// FetchError is a classified detail fetch/parse failure.
type FetchError struct {
	Class      types.FailureClass
	StatusCode int // 0 when no response was received
	Err        error
}

// Error implements error.
func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (status %d): %v", e.Class, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Class, e.Err)
}

// Unwrap returns the underlying cause.
func (e *FetchError) Unwrap() error { return e.Err }

// Classify maps an error from the fetch/parse path to its failure class.
func Classify(err error) types.FailureClass {
	if errors.Is(err, ErrAuthExpired) {
		return types.FailureAuthExpired
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Class
	}
	return types.FailureNetwork
}
