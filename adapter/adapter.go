// Package adapter defines the completion-notification boundary.
//
// Adapters publish crawl completion events to downstream systems. The
// controller owns adapter lifecycle; users provide configuration only.
package adapter

import "context"

// CrawlCompletedEvent is the payload published when a crawl run ends.
type CrawlCompletedEvent struct {
	EventType     string `json:"event_type"` // always "crawl_completed"
	RunID         string `json:"run_id"`
	SourceType    string `json:"source_type"`
	SourceID      string `json:"source_id"`
	Outcome       string `json:"outcome"` // completed, completed_with_errors, paused, auth_expired, discovery_failed
	Discovered    int    `json:"discovered"`
	DetailFetched int64  `json:"detail_fetched"`
	DetailErrors  int64  `json:"detail_errors"`
	Pending       int    `json:"pending"`
	Timestamp     string `json:"timestamp"` // ISO 8601
	DurationMs    int64  `json:"duration_ms"`
}

// Adapter publishes crawl completion events to a downstream system.
// Implementations must be safe for single-use per run.
type Adapter interface {
	// Publish sends a crawl completion event to the downstream system.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *CrawlCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}
