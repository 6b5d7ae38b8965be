// Package filter provides admission checks for tracks entering a list.
package filter

import "github.com/tunebeats/tunebeats/internal/domain/track"

// Rejection codes. Callers map these to specific user-facing messages.
const (
	CodeInvalidIdentifier = "invalid_identifier"
	CodeDuplicateTrack    = "duplicate_track"
)

// Result represents the result of a filter check.
type Result struct {
	Accepted bool
	Code     string // set when rejected
}

// Accept returns an accepted result.
func Accept() Result {
	return Result{Accepted: true}
}

// Reject returns a rejected result with the given code.
func Reject(code string) Result {
	return Result{Accepted: false, Code: code}
}

// Filter is the interface for track admission checks.
type Filter interface {
	// Name returns the filter name.
	Name() string
	// Check performs the admission check.
	Check(t track.Track) Result
}

// Chain executes filters in sequence, stopping at the first rejection.
type Chain struct {
	filters []Filter
}

// NewChain creates a chain over the given filters.
func NewChain(filters ...Filter) *Chain {
	return &Chain{filters: filters}
}

// Add appends a filter to the chain.
func (c *Chain) Add(f Filter) {
	c.filters = append(c.filters, f)
}

// Execute runs all filters in sequence and returns the first rejection.
func (c *Chain) Execute(t track.Track) Result {
	for _, f := range c.filters {
		if result := f.Check(t); !result.Accepted {
			return result
		}
	}
	return Accept()
}
