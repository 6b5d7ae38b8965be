// Package track provides the Track domain entity.
package track

import (
	"fmt"
	"time"
)

// WatchURLTemplate is the fixed template the playable URL is derived from.
// The URL is never persisted; it is always recomputed from the identifier.
const WatchURLTemplate = "https://www.youtube.com/watch?v=%s"

// Identifier length sanity bounds. Identifiers outside this range are
// discarded wherever tracks are admitted.
const (
	MinIDLen = 5
	MaxIDLen = 20
)

// Track represents a playable track. Immutable once constructed.
type Track struct {
	ID       string        // video identifier
	Title    string        // display title
	URL      string        // playable URL, derived from ID
	Duration time.Duration // 0 = unknown
}

// New constructs a Track with its playable URL derived from the identifier.
func New(title, id string) Track {
	return Track{
		ID:    id,
		Title: title,
		URL:   WatchURL(id),
	}
}

// WatchURL derives the playable URL for an identifier.
func WatchURL(id string) string {
	return fmt.Sprintf(WatchURLTemplate, id)
}

// ValidID reports whether the identifier length is within the sane range.
func ValidID(id string) bool {
	return len(id) >= MinIDLen && len(id) <= MaxIDLen
}
