package filter

import "github.com/tunebeats/tunebeats/internal/domain/track"

// IdentifierFilter rejects tracks whose identifier is missing or outside
// the sane length range.
type IdentifierFilter struct{}

// Name returns the filter name.
func (f *IdentifierFilter) Name() string {
	return "identifier"
}

// Check performs the admission check.
func (f *IdentifierFilter) Check(t track.Track) Result {
	if !track.ValidID(t.ID) {
		return Reject(CodeInvalidIdentifier)
	}
	return Accept()
}
