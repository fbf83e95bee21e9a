// Package types defines core domain types for the dredge crawl engine.
//
//nolint:revive // types is a common Go package naming convention
package types

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ItemID is the stable identifier of a catalog item, derived from its
// canonical URL. Unique across the ledger.
type ItemID string

// Item is the unit of record. Identity (ID, ItemURL) is immutable once
// first observed; content fields are enriched fill-if-absent; the
// provenance fields update on every re-observation.
type Item struct {
	ID      ItemID `msgpack:"item_id" json:"itemId"`
	ItemURL string `msgpack:"item_url" json:"itemUrl"`

	// Content fields. Pointer fields are absent when nil.
	FileName         *string `msgpack:"file_name,omitempty" json:"fileName,omitempty"`
	PreviewURL       *string `msgpack:"preview_url,omitempty" json:"previewUrl,omitempty"`
	ContentTypeLabel *string `msgpack:"content_type_label,omitempty" json:"contentTypeLabel,omitempty"`
	FileType         *string `msgpack:"file_type,omitempty" json:"fileType,omitempty"`
	Status           *string `msgpack:"status,omitempty" json:"status,omitempty"`
	ExpirationDate   *string `msgpack:"expiration_date,omitempty" json:"expirationDate,omitempty"`
	UsageRights      *string `msgpack:"usage_rights,omitempty" json:"usageRights,omitempty"`
	PublicURL        *string `msgpack:"public_url,omitempty" json:"publicUrl,omitempty"`
	FileSize         *string `msgpack:"file_size,omitempty" json:"fileSize,omitempty"`

	// Detail-fetch bookkeeping.
	DetailFetched     bool    `msgpack:"detail_fetched" json:"detailFetched"`
	DetailFetchStatus *int    `msgpack:"detail_fetch_status,omitempty" json:"detailFetchStatus,omitempty"`
	DetailError       *string `msgpack:"detail_error,omitempty" json:"detailError,omitempty"`
	DownloadedPreview bool    `msgpack:"downloaded_preview" json:"downloadedPreview"`

	// Provenance / dedupe bookkeeping.
	SourceKeys        []SourceKey `msgpack:"source_keys" json:"sourceKeys"`
	SeenInCount       int         `msgpack:"seen_in_count" json:"seenInCount"`
	FirstSeenAt       time.Time   `msgpack:"first_seen_at" json:"firstSeenAt"`
	LastSeenAt        time.Time   `msgpack:"last_seen_at" json:"lastSeenAt"`
	LastSeenSourceKey SourceKey   `msgpack:"last_seen_source_key" json:"lastSeenSourceKey"`
}

// HasSource reports whether key is already recorded in SourceKeys.
func (it *Item) HasSource(key SourceKey) bool {
	for _, k := range it.SourceKeys {
		if k == key {
			return true
		}
	}
	return false
}

// AddSource unions key into SourceKeys and recomputes SeenInCount.
func (it *Item) AddSource(key SourceKey) {
	if !it.HasSource(key) {
		it.SourceKeys = append(it.SourceKeys, key)
	}
	it.SeenInCount = len(it.SourceKeys)
}

// Clone returns a deep copy of the item. Used for non-mutating snapshots.
func (it *Item) Clone() *Item {
	cp := *it
	cp.SourceKeys = append([]SourceKey(nil), it.SourceKeys...)
	cp.FileName = cloneStr(it.FileName)
	cp.PreviewURL = cloneStr(it.PreviewURL)
	cp.ContentTypeLabel = cloneStr(it.ContentTypeLabel)
	cp.FileType = cloneStr(it.FileType)
	cp.Status = cloneStr(it.Status)
	cp.ExpirationDate = cloneStr(it.ExpirationDate)
	cp.UsageRights = cloneStr(it.UsageRights)
	cp.PublicURL = cloneStr(it.PublicURL)
	cp.FileSize = cloneStr(it.FileSize)
	cp.DetailError = cloneStr(it.DetailError)
	if it.DetailFetchStatus != nil {
		v := *it.DetailFetchStatus
		cp.DetailFetchStatus = &v
	}
	return &cp
}

func cloneStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// PartialItem is what the item extractor yields from a rendered view.
// ID and ItemURL are required; everything else is optional enrichment.
type PartialItem struct {
	ID               ItemID
	ItemURL          string
	FileName         *string
	PreviewURL       *string
	ContentTypeLabel *string
	FileType         *string
}

// Validate checks that the partial carries a usable identity.
func (p *PartialItem) Validate() error {
	if p.ID == "" {
		return errors.New("partial item: item_id must be non-empty")
	}
	if p.ItemURL == "" {
		return fmt.Errorf("partial item %s: item_url must be non-empty", p.ID)
	}
	return nil
}

// ParsedFields is what the detail parser extracts from a detail page body.
// Pointer fields are absent when nil and merge fill-if-absent.
type ParsedFields struct {
	FileName       *string
	Status         *string
	ExpirationDate *string
	UsageRights    *string
	PublicURL      *string
	FileSize       *string
	PreviewURL     *string
}

// itemIDPatterns match the numeric asset identifier embedded in canonical
// catalog/CDN URL paths.
var itemIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/dam/(\d+)/`),
	regexp.MustCompile(`/item/(\d+)`),
	regexp.MustCompile(`/items/(\d+)`),
	regexp.MustCompile(`/asset/(\d+)`),
}

// ItemIDFromURL extracts the item identifier from a canonical item URL.
// Returns empty string when no recognized pattern matches.
func ItemIDFromURL(rawURL string) ItemID {
	if rawURL == "" {
		return ""
	}
	for _, pat := range itemIDPatterns {
		if m := pat.FindStringSubmatch(rawURL); m != nil {
			return ItemID(m[1])
		}
	}
	return ""
}

// NormalizeURL lowercases the scheme/host portion of a URL and strips a
// trailing slash, so the same item URL observed with cosmetic differences
// maps to the same ledger entry.
func NormalizeURL(rawURL string) string {
	s := strings.TrimSpace(rawURL)
	s = strings.TrimSuffix(s, "/")
	if i := strings.Index(s, "://"); i > 0 {
		head := strings.ToLower(s[:i+3])
		rest := s[i+3:]
		if j := strings.IndexByte(rest, '/'); j >= 0 {
			rest = strings.ToLower(rest[:j]) + rest[j:]
		} else {
			rest = strings.ToLower(rest)
		}
		return head + rest
	}
	return s
}
