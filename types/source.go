package types

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SourceKey identifies a catalog context as "sourceType:sourceId".
type SourceKey string

// SourceContext identifies the catalog view items are discovered from.
type SourceContext struct {
	Type string `msgpack:"source_type" json:"sourceType"`
	ID   string `msgpack:"source_id" json:"sourceId"`
	URL  string `msgpack:"url,omitempty" json:"url,omitempty"`
}

// Key derives the canonical source key.
func (s SourceContext) Key() SourceKey {
	return SourceKey(s.Type + ":" + s.ID)
}

// Validate checks the context carries both halves of its identity.
func (s SourceContext) Validate() error {
	if s.Type == "" {
		return errors.New("source context: source_type must be non-empty")
	}
	if s.ID == "" {
		return errors.New("source context: source_id must be non-empty")
	}
	return nil
}

// ParseSourceKey splits a "sourceType:sourceId" key back into a context.
func ParseSourceKey(key SourceKey) (SourceContext, error) {
	parts := strings.SplitN(string(key), ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return SourceContext{}, fmt.Errorf("invalid source key %q", key)
	}
	return SourceContext{Type: parts[0], ID: parts[1]}, nil
}

// KnownSource is the per-context entry of the known-sources map.
type KnownSource struct {
	Type        string    `msgpack:"source_type" json:"sourceType"`
	ID          string    `msgpack:"source_id" json:"sourceId"`
	URL         string    `msgpack:"url,omitempty" json:"url,omitempty"`
	FirstSeenAt time.Time `msgpack:"first_seen_at" json:"firstSeenAt"`
	LastSeenAt  time.Time `msgpack:"last_seen_at" json:"lastSeenAt"`
}
