package engine

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/justapithecus/dredge/catalog"
	"github.com/justapithecus/dredge/log"
	"github.com/justapithecus/dredge/state"
	"github.com/justapithecus/dredge/types"
)

func testLogger() *log.Logger {
	return log.NewLogger("test-run", testSource()).WithOutput(io.Discard)
}

func testSource() types.SourceContext {
	return types.SourceContext{Type: "space", ID: "42", URL: "https://dam.example.com/spaces/42"}
}

func partial(id string) types.PartialItem {
	return types.PartialItem{ID: types.ItemID(id), ItemURL: "https://dam.example.com/item/" + id}
}

func fastDiscovery(threshold int) DiscoveryConfig {
	return DiscoveryConfig{IdleThreshold: threshold, SettleDelay: time.Millisecond}
}

func fastWorkers(n int) WorkerConfig {
	return WorkerConfig{
		Workers:        n,
		Pause:          time.Millisecond,
		FailureBackoff: time.Millisecond,
		IdleWait:       time.Millisecond,
	}
}

func TestDiscoveryIdleRoundTermination(t *testing.T) {
	// Three observed rounds: {a,b}, {a,b,c}, {a,b,c}. With threshold 2
	// the loop declares exhaustion after the second non-growth cycle.
	view := catalog.NewScriptedView(
		catalog.ScriptedRound{Items: []types.PartialItem{partial("a"), partial("b")}, ItemCount: 2, ScrollExtent: 200},
		catalog.ScriptedRound{Items: []types.PartialItem{partial("a"), partial("b"), partial("c")}, ItemCount: 3, ScrollExtent: 300},
		catalog.ScriptedRound{Items: []types.PartialItem{partial("a"), partial("b"), partial("c")}, ItemCount: 3, ScrollExtent: 300},
	)
	st := state.NewRunState(testSource())

	loop := NewDiscoveryLoop(st, view, fastDiscovery(2), testLogger(), nil)
	if err := loop.Run(t.Context()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if !st.DiscoveredComplete() {
		t.Error("discoveredComplete should be true after sustained non-growth")
	}
	status := st.StatusSnapshot()
	if status.Discovered != 3 {
		t.Errorf("discovered = %d, want 3", status.Discovered)
	}
	for _, id := range []types.ItemID{"a", "b", "c"} {
		found := false
		st.Do(func(l *state.Ledger, q *state.Queue) { found = l.Get(id) != nil })
		if !found {
			t.Errorf("item %s missing from ledger", id)
		}
	}
}

func TestDiscoveryStopsWithoutCompleteOnCancel(t *testing.T) {
	view := catalog.NewScriptedView(
		catalog.ScriptedRound{Items: []types.PartialItem{partial("a")}, ItemCount: 1, ScrollExtent: 100},
	)
	st := state.NewRunState(testSource())

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	loop := NewDiscoveryLoop(st, view, fastDiscovery(100), testLogger(), nil)
	if err := loop.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if st.DiscoveredComplete() {
		t.Error("cancellation must not set discoveredComplete")
	}
}

func TestDiscoveryStopsWithoutCompleteOnAuthExpiry(t *testing.T) {
	view := catalog.NewScriptedView(
		catalog.ScriptedRound{Items: []types.PartialItem{partial("a")}, ItemCount: 1, ScrollExtent: 100},
	)
	st := state.NewRunState(testSource())
	st.ObserveVisible([]types.PartialItem{partial("a")}, time.Now())
	st.HaltAuthExpired("a")

	loop := NewDiscoveryLoop(st, view, fastDiscovery(100), testLogger(), nil)
	if err := loop.Run(t.Context()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if st.DiscoveredComplete() {
		t.Error("auth expiry must not set discoveredComplete")
	}
}

func TestWorkerPoolDrainsQueue(t *testing.T) {
	st := state.NewRunState(testSource())
	st.ObserveVisible([]types.PartialItem{partial("1"), partial("2"), partial("3")}, time.Now())
	st.SetDiscoveredComplete(true)

	fetcher := catalog.NewStubFetcher()
	for _, id := range []string{"1", "2", "3"} {
		fetcher.Responses["https://dam.example.com/item/"+id] = &catalog.FetchResult{StatusCode: 200, Body: []byte("detail")}
	}
	status := "Active"
	parser := catalog.NewStubParser(types.ParsedFields{Status: &status})

	pool := NewWorkerPool(st, fetcher, parser, nil, fastWorkers(3), testLogger(), nil)
	pool.Run(t.Context())

	snap := st.StatusSnapshot()
	if snap.Done != 3 || snap.Pending != 0 || snap.InProgress != 0 {
		t.Errorf("status = %+v, want all 3 done", snap)
	}
	st.Do(func(l *state.Ledger, q *state.Queue) {
		it := l.Get("1")
		if !it.DetailFetched || it.Status == nil || *it.Status != "Active" {
			t.Errorf("item 1 = %+v, want fetched with status", it)
		}
	})
}

func TestWorkerPoolAuthExpiryHaltsRun(t *testing.T) {
	// pending=[x,y]; x succeeds, y trips the auth signal. The run halts
	// with y requeued at the front for the next session.
	st := state.NewRunState(testSource())
	st.ObserveVisible([]types.PartialItem{partial("x"), partial("y")}, time.Now())

	fetcher := catalog.NewStubFetcher()
	fetcher.Responses["https://dam.example.com/item/x"] = &catalog.FetchResult{StatusCode: 200, Body: []byte("detail")}
	fetcher.Errors["https://dam.example.com/item/y"] = catalog.ErrAuthExpired
	status := "Active"
	parser := catalog.NewStubParser(types.ParsedFields{Status: &status})

	pool := NewWorkerPool(st, fetcher, parser, nil, fastWorkers(1), testLogger(), nil)
	pool.Run(t.Context())

	if !st.AuthExpired() {
		t.Fatal("authExpired should be set")
	}
	st.Do(func(l *state.Ledger, q *state.Queue) {
		pending := q.Pending()
		if len(pending) != 1 || pending[0] != "y" {
			t.Errorf("pending = %v, want [y]", pending)
		}
		done := q.Done()
		if len(done) != 1 || done[0] != "x" {
			t.Errorf("done = %v, want [x]", done)
		}
	})
}

func TestWorkerPoolOrdinaryFailureContinues(t *testing.T) {
	st := state.NewRunState(testSource())
	st.ObserveVisible([]types.PartialItem{partial("1"), partial("2")}, time.Now())
	st.SetDiscoveredComplete(true)

	fetcher := catalog.NewStubFetcher()
	fetcher.Responses["https://dam.example.com/item/1"] = &catalog.FetchResult{StatusCode: 404}
	fetcher.Responses["https://dam.example.com/item/2"] = &catalog.FetchResult{StatusCode: 200, Body: []byte("detail")}
	status := "Active"
	parser := catalog.NewStubParser(types.ParsedFields{Status: &status})

	pool := NewWorkerPool(st, fetcher, parser, nil, fastWorkers(1), testLogger(), nil)
	pool.Run(t.Context())

	snap := st.StatusSnapshot()
	if snap.Errored != 1 || snap.Done != 1 {
		t.Errorf("status = %+v, want 1 errored + 1 done", snap)
	}
	st.Do(func(l *state.Ledger, q *state.Queue) {
		it := l.Get("1")
		if it.DetailFetched {
			t.Error("failed item must not be marked fetched")
		}
		if it.DetailError == nil {
			t.Error("failed item should carry a detail error")
		}
		if it.DetailFetchStatus == nil || *it.DetailFetchStatus != 404 {
			t.Errorf("detailFetchStatus = %v, want 404", it.DetailFetchStatus)
		}
	})
}

func TestWorkerPoolDownloadsPreviews(t *testing.T) {
	st := state.NewRunState(testSource())
	preview := "https://cdn.example.com/previews/1.jpg"
	p := partial("1")
	p.PreviewURL = &preview
	st.ObserveVisible([]types.PartialItem{p}, time.Now())
	st.SetDiscoveredComplete(true)

	fetcher := catalog.NewStubFetcher()
	fetcher.Responses["https://dam.example.com/item/1"] = &catalog.FetchResult{StatusCode: 200, Body: []byte("detail")}
	status := "Active"
	parser := catalog.NewStubParser(types.ParsedFields{Status: &status})
	downloader := &catalog.StubDownloader{}

	cfg := fastWorkers(1)
	cfg.DownloadPreviews = true
	cfg.PreviewDir = t.TempDir()
	pool := NewWorkerPool(st, fetcher, parser, downloader, cfg, testLogger(), nil)
	pool.Run(t.Context())

	if len(downloader.Calls) != 1 || downloader.Calls[0] != preview {
		t.Errorf("download calls = %v", downloader.Calls)
	}
	st.Do(func(l *state.Ledger, q *state.Queue) {
		if !l.Get("1").DownloadedPreview {
			t.Error("downloadedPreview should be set")
		}
	})
}

func TestScanVisibleOneShot(t *testing.T) {
	view := catalog.NewScriptedView(
		catalog.ScriptedRound{Items: []types.PartialItem{partial("a"), partial("b")}, ItemCount: 2, ScrollExtent: 200},
	)
	st := state.NewRunState(testSource())

	added, err := ScanVisible(t.Context(), st, view)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if added != 2 {
		t.Errorf("added = %d, want 2", added)
	}
	if st.DiscoveredComplete() {
		t.Error("one-shot scan must not mark discovery complete")
	}
}
