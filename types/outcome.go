package types

// RunPhase is the controller lifecycle phase persisted with each checkpoint.
type RunPhase string

const (
	// PhaseIdle means no run has been started for this context.
	PhaseIdle RunPhase = "idle"
	// PhaseStarting means state is being loaded/migrated before the loops launch.
	PhaseStarting RunPhase = "starting"
	// PhaseRunning means discovery and the worker pool are active.
	PhaseRunning RunPhase = "running"
	// PhasePaused means the operator stopped the run cooperatively.
	PhasePaused RunPhase = "paused"
	// PhaseCompleted means both loops exited on their own.
	PhaseCompleted RunPhase = "completed"
)

// OutcomeStatus classifies how a crawl run ended.
type OutcomeStatus string

const (
	// OutcomeCompleted indicates discovery exhausted the catalog and the
	// queue drained with an empty errored set.
	OutcomeCompleted OutcomeStatus = "completed"
	// OutcomeCompletedWithErrors indicates natural completion with a
	// non-empty errored set. Recoverable via recheck.
	OutcomeCompletedWithErrors OutcomeStatus = "completed_with_errors"
	// OutcomePaused indicates a cooperative operator stop.
	OutcomePaused OutcomeStatus = "paused"
	// OutcomeDiscoveryFailed indicates the discovery loop errored out
	// before exhausting the catalog. Progress up to the failure is
	// checkpointed; starting again retries from there.
	OutcomeDiscoveryFailed OutcomeStatus = "discovery_failed"
	// OutcomeAuthExpired indicates the run halted on an
	// authentication-expired signal.
	OutcomeAuthExpired OutcomeStatus = "auth_expired"
)

// RunOutcome is the final outcome reported by the controller.
type RunOutcome struct {
	Status  OutcomeStatus
	Message string
}

// FailureClass classifies a detail fetch/parse failure.
type FailureClass string

const (
	// FailureAuthExpired halts the whole run; the triggering item is
	// requeued at the front of pending for the next run.
	FailureAuthExpired FailureClass = "auth_expired"
	// FailureNetwork is a transport-level error. Local to the item.
	FailureNetwork FailureClass = "network"
	// FailureHTTPStatus is a non-2xx response. Local to the item.
	FailureHTTPStatus FailureClass = "http_status"
	// FailureParse means the detail body could not be interpreted.
	FailureParse FailureClass = "parse"
)

// Terminal reports whether the class halts the run rather than the item.
func (f FailureClass) Terminal() bool {
	return f == FailureAuthExpired
}
