package catalog

import (
	"context"
	"sync"

	"github.com/justapithecus/dredge/types"
)

// ScriptedRound is one discovery round of a ScriptedView.
type ScriptedRound struct {
	Items        []types.PartialItem
	ItemCount    int
	ScrollExtent int64
}

// ScriptedView is a View that replays a fixed sequence of rounds. Rounds
// past the end of the script repeat the final round, modeling a catalog
// that has stopped growing. Used by engine tests and the scan command's
// dry-run mode.
type ScriptedView struct {
	mu     sync.Mutex
	rounds []ScriptedRound
	pos    int
}

// NewScriptedView creates a view replaying the given rounds.
func NewScriptedView(rounds ...ScriptedRound) *ScriptedView {
	return &ScriptedView{rounds: rounds}
}

func (v *ScriptedView) current() ScriptedRound {
	if len(v.rounds) == 0 {
		return ScriptedRound{}
	}
	i := v.pos
	if i >= len(v.rounds) {
		i = len(v.rounds) - 1
	}
	return v.rounds[i]
}

// Extract implements View.
func (v *ScriptedView) Extract(ctx context.Context) ([]types.PartialItem, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]types.PartialItem(nil), v.current().Items...), nil
}

// Advance implements View.
func (v *ScriptedView) Advance(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.pos < len(v.rounds) {
		v.pos++
	}
	return nil
}

// Extent implements View.
func (v *ScriptedView) Extent(ctx context.Context) (int, int64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	r := v.current()
	return r.ItemCount, r.ScrollExtent, nil
}

// Verify ScriptedView implements the view interface.
var _ View = (*ScriptedView)(nil)

// StubFetcher returns scripted responses per item URL. Unknown URLs
// return a 404 result.
type StubFetcher struct {
	mu        sync.Mutex
	Responses map[string]*FetchResult
	Errors    map[string]error
	Calls     []string
}

// NewStubFetcher creates an empty stub fetcher.
func NewStubFetcher() *StubFetcher {
	return &StubFetcher{
		Responses: make(map[string]*FetchResult),
		Errors:    make(map[string]error),
	}
}

// Fetch implements Fetcher.
func (f *StubFetcher) Fetch(ctx context.Context, itemURL string) (*FetchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, itemURL)
	if err, ok := f.Errors[itemURL]; ok {
		return nil, err
	}
	if res, ok := f.Responses[itemURL]; ok {
		return res, nil
	}
	return &FetchResult{StatusCode: 404}, nil
}

// Verify StubFetcher implements the fetcher interface.
var _ Fetcher = (*StubFetcher)(nil)

// StubParser maps body content to parsed fields or errors.
type StubParser struct {
	// Fields returned for any body not in Errors.
	Fields types.ParsedFields
	// Errors keyed by exact body content.
	Errors map[string]error
}

// NewStubParser creates a parser returning the given fields.
func NewStubParser(fields types.ParsedFields) *StubParser {
	return &StubParser{Fields: fields, Errors: make(map[string]error)}
}

// Parse implements Parser.
func (p *StubParser) Parse(body []byte) (types.ParsedFields, error) {
	if err, ok := p.Errors[string(body)]; ok {
		return types.ParsedFields{}, err
	}
	return p.Fields, nil
}

// Verify StubParser implements the parser interface.
var _ Parser = (*StubParser)(nil)

// StubDownloader records download requests without performing I/O.
type StubDownloader struct {
	mu    sync.Mutex
	Calls []string
	Err   error
}

// Download implements Downloader.
func (d *StubDownloader) Download(ctx context.Context, resourceURL, destPath string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Calls = append(d.Calls, resourceURL)
	return d.Err
}

// Verify StubDownloader implements the downloader interface.
var _ Downloader = (*StubDownloader)(nil)
