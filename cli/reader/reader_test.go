package reader

import (
	"errors"
	"testing"
	"time"

	"github.com/justapithecus/dredge/checkpoint"
	"github.com/justapithecus/dredge/state"
	"github.com/justapithecus/dredge/types"
)

func seedCheckpoint(t *testing.T, store checkpoint.Store) {
	t.Helper()
	st := state.NewRunState(types.SourceContext{Type: "spaces", ID: "42"})
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	st.ObserveVisible([]types.PartialItem{
		{ID: "1", ItemURL: "https://dam.example.com/item/1"},
		{ID: "2", ItemURL: "https://dam.example.com/item/2"},
		{ID: "3", ItemURL: "https://dam.example.com/item/3"},
	}, now)
	st.Do(func(l *state.Ledger, q *state.Queue) {
		l.RecordDetail("1", types.ParsedFields{}, 200)
		q.Complete("1")
	})
	st.SetPhase(types.PhaseRunning)

	if err := checkpoint.Save(t.Context(), store, "run-001", st, now); err != nil {
		t.Fatalf("save: %v", err)
	}
}

func TestStatus(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	seedCheckpoint(t, store)

	r := NewReader(store)
	status, err := r.Status(t.Context())
	if err != nil {
		t.Fatalf("status: %v", err)
	}

	if status.RunID != "run-001" {
		t.Errorf("runID = %q", status.RunID)
	}
	if status.Discovered != 3 || status.Pending != 2 || status.Done != 1 || status.Errored != 0 {
		t.Errorf("counts = %d/%d/%d/%d, want 3/2/1/0",
			status.Discovered, status.Pending, status.Done, status.Errored)
	}
	if status.Source.Type != "spaces" || status.Source.ID != "42" {
		t.Errorf("source = %+v", status.Source)
	}
	if status.Phase != types.PhaseRunning || !status.Running {
		t.Errorf("phase = %q running = %v, want a running status", status.Phase, status.Running)
	}
}

func TestSummarizeLifecycleFlags(t *testing.T) {
	cases := []struct {
		name        string
		phase       types.RunPhase
		errored     []types.ItemID
		wantRunning bool
		wantSuccess bool
		wantErrors  bool
	}{
		{"starting", types.PhaseStarting, nil, true, false, false},
		{"running", types.PhaseRunning, nil, true, false, false},
		{"paused", types.PhasePaused, nil, false, false, false},
		{"completed clean", types.PhaseCompleted, nil, false, true, false},
		{"completed with errors", types.PhaseCompleted, []types.ItemID{"9"}, false, false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := &checkpoint.Document{
				RunID: "run-001",
				State: state.Export{Phase: tc.phase, Errored: tc.errored},
			}
			status := Summarize(doc)
			if status.Running != tc.wantRunning {
				t.Errorf("running = %v, want %v", status.Running, tc.wantRunning)
			}
			if status.CompletedSuccessfully != tc.wantSuccess {
				t.Errorf("completedSuccessfully = %v, want %v", status.CompletedSuccessfully, tc.wantSuccess)
			}
			if status.CompletedWithErrors != tc.wantErrors {
				t.Errorf("completedWithErrors = %v, want %v", status.CompletedWithErrors, tc.wantErrors)
			}
		})
	}
}

func TestStatus_NoCheckpoint(t *testing.T) {
	r := NewReader(checkpoint.NewMemoryStore())

	_, err := r.Status(t.Context())
	if !errors.Is(err, checkpoint.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestProgress(t *testing.T) {
	cases := []struct {
		name   string
		status RunStatus
		want   float64
	}{
		{"empty", RunStatus{}, 0},
		{"half", RunStatus{Discovered: 10, Done: 4, Errored: 1}, 50},
		{"complete", RunStatus{Discovered: 3, Done: 3}, 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.status.Progress(); got != tc.want {
				t.Errorf("progress = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestAge(t *testing.T) {
	saved := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	status := &RunStatus{SavedAt: saved}
	if got := status.Age(saved.Add(90 * time.Second)); got != 90*time.Second {
		t.Errorf("age = %v", got)
	}
}
