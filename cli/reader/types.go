package reader

import (
	"time"

	"github.com/justapithecus/dredge/state"
	"github.com/justapithecus/dredge/types"
)

// RunStatus is the read-side summary of the most recent checkpoint.
// It is what `dredge status` renders; no engine state is touched.
type RunStatus struct {
	RunID   string    `json:"runId"`
	SavedAt time.Time `json:"savedAt"`

	Source types.SourceContext `json:"source"`
	Phase  types.RunPhase      `json:"phase"`

	Discovered int `json:"discovered"`
	Pending    int `json:"pending"`
	Done       int `json:"done"`
	Errored    int `json:"errored"`

	// Lifecycle flags derived from the checkpointed phase.
	Running               bool `json:"running"`
	CompletedSuccessfully bool `json:"completedSuccessfully"`
	CompletedWithErrors   bool `json:"completedWithErrors"`

	DiscoveredComplete bool `json:"discoveredComplete"`
	AuthExpired        bool `json:"authExpired"`

	Counters state.Counters `json:"counters"`
}

// Progress returns the detail completion ratio in percent. Zero
// discovered items reads as 0, not a division error.
func (s *RunStatus) Progress() float64 {
	if s.Discovered == 0 {
		return 0
	}
	return float64(s.Done+s.Errored) / float64(s.Discovered) * 100
}

// Age returns how long ago the checkpoint was saved.
func (s *RunStatus) Age(now time.Time) time.Duration {
	return now.Sub(s.SavedAt)
}
