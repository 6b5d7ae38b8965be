package filter

import "github.com/tunebeats/tunebeats/internal/domain/track"

// DuplicateTrackFilter rejects tracks whose identifier is already present
// in an existing list, making additions idempotent under retry.
type DuplicateTrackFilter struct {
	existing map[string]struct{}
}

// NewDuplicateTrackFilter creates a filter over the given identifiers.
func NewDuplicateTrackFilter(ids []string) *DuplicateTrackFilter {
	existing := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		existing[id] = struct{}{}
	}
	return &DuplicateTrackFilter{existing: existing}
}

// Name returns the filter name.
func (f *DuplicateTrackFilter) Name() string {
	return "duplicate_track"
}

// Check performs the admission check.
func (f *DuplicateTrackFilter) Check(t track.Track) Result {
	if _, ok := f.existing[t.ID]; ok {
		return Reject(CodeDuplicateTrack)
	}
	return Accept()
}
