package catalog

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/justapithecus/dredge/types"
)

// PagedView drives a server-paginated catalog listing through a Fetcher.
// Each Advance loads the next page and folds its items into the visible
// set, so Extract reports the cumulative view the way an infinite-scroll
// listing would. A page past the end yields no new items and no extent
// growth, which is exactly what discovery counts as an idle round.
type PagedView struct {
	fetcher   Fetcher
	listURL   string
	pageParam string

	page    int
	fetched int64
	items   []types.PartialItem
	seen    map[types.ItemID]struct{}
}

// NewPagedView creates a view paging the listing at listURL.
func NewPagedView(fetcher Fetcher, listURL string) *PagedView {
	return &PagedView{
		fetcher:   fetcher,
		listURL:   listURL,
		pageParam: "page",
		seen:      make(map[types.ItemID]struct{}),
	}
}

// Extract implements View. The first call loads page one.
func (v *PagedView) Extract(ctx context.Context) ([]types.PartialItem, error) {
	if v.page == 0 {
		if err := v.loadPage(ctx, 1); err != nil {
			return nil, err
		}
		v.page = 1
	}
	out := make([]types.PartialItem, len(v.items))
	copy(out, v.items)
	return out, nil
}

// Advance implements View by loading the next page.
func (v *PagedView) Advance(ctx context.Context) error {
	next := v.page + 1
	if v.page == 0 {
		next = 1
	}
	if err := v.loadPage(ctx, next); err != nil {
		return err
	}
	v.page = next
	return nil
}

// Extent implements View. The scrollable extent is the total bytes of
// listing markup fetched so far; it stops growing once the server runs
// out of pages.
func (v *PagedView) Extent(_ context.Context) (int, int64, error) {
	return len(v.items), v.fetched, nil
}

func (v *PagedView) loadPage(ctx context.Context, page int) error {
	res, err := v.fetcher.Fetch(ctx, v.pageURL(page))
	if err != nil {
		return fmt.Errorf("view: fetch page %d: %w", page, err)
	}
	// Non-2xx past the last page is the server saying "no more"; the
	// view simply stops growing.
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil
	}
	v.fetched += int64(len(res.Body))

	partials, err := ExtractItems(res.Body, v.listURL)
	if err != nil {
		return fmt.Errorf("view: page %d: %w", page, err)
	}
	for _, p := range partials {
		if _, ok := v.seen[p.ID]; ok {
			continue
		}
		v.seen[p.ID] = struct{}{}
		v.items = append(v.items, p)
	}
	return nil
}

func (v *PagedView) pageURL(page int) string {
	if page <= 1 {
		return v.listURL
	}
	sep := "?"
	if strings.Contains(v.listURL, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s%s=%d", v.listURL, sep, v.pageParam, page)
}

var _ View = (*PagedView)(nil)

// FileView is a View over a saved catalog page dump. The view never
// grows, so a discovery loop over it terminates after the idle
// threshold; the scan command uses it for a single extraction pass.
type FileView struct {
	items []types.PartialItem
	size  int64
}

// NewFileView parses the page file at path, resolving relative
// references against baseURL.
func NewFileView(path, baseURL string) (*FileView, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("view: read page file: %w", err)
	}
	items, err := ExtractItems(data, baseURL)
	if err != nil {
		return nil, fmt.Errorf("view: %s: %w", path, err)
	}
	return &FileView{items: items, size: int64(len(data))}, nil
}

// Extract implements View.
func (v *FileView) Extract(_ context.Context) ([]types.PartialItem, error) {
	out := make([]types.PartialItem, len(v.items))
	copy(out, v.items)
	return out, nil
}

// Advance implements View as a no-op; a saved page cannot load more.
func (v *FileView) Advance(_ context.Context) error { return nil }

// Extent implements View.
func (v *FileView) Extent(_ context.Context) (int, int64, error) {
	return len(v.items), v.size, nil
}

var _ View = (*FileView)(nil)
