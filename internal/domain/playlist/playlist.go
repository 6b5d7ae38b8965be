// Package playlist provides the Playlist domain entity.
package playlist

import (
	"strings"

	"github.com/google/uuid"

	"github.com/tunebeats/tunebeats/internal/domain/track"
)

// Extension is appended to every storage key.
const Extension = ".json"

// Playlist represents a named, ordered collection of tracks backed by a
// single file. Track order is significant and preserved across save/load.
type Playlist struct {
	ID       uuid.UUID     // process-lifetime identity
	Name     string        // display name, unique case-insensitively
	Filename string        // storage key under the playlists directory
	Tracks   []track.Track // ordered; stays empty until loaded
	Loaded   bool          // whether Tracks reflects the backing file
}

// New constructs a Playlist with a fresh identity.
func New(name, filename string) *Playlist {
	return &Playlist{
		ID:       uuid.New(),
		Name:     name,
		Filename: filename,
	}
}

// StorageKey derives a filesystem-safe filename from a display name:
// lowercased, spaces become underscores, everything outside [a-z0-9_-] is
// dropped, and the playlist extension is appended. Collision handling is the
// store's responsibility.
func StorageKey(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}
	return b.String() + Extension
}

// ContainsID reports whether a track with the given identifier is present.
func (p *Playlist) ContainsID(id string) bool {
	for _, t := range p.Tracks {
		if t.ID == id {
			return true
		}
	}
	return false
}

// TrackIDs returns all track identifiers in playlist order.
func (p *Playlist) TrackIDs() []string {
	ids := make([]string, len(p.Tracks))
	for i, t := range p.Tracks {
		ids[i] = t.ID
	}
	return ids
}

// TrackAt returns the track at index i.
func (p *Playlist) TrackAt(i int) (track.Track, bool) {
	if i < 0 || i >= len(p.Tracks) {
		return track.Track{}, false
	}
	return p.Tracks[i], true
}

// RemoveAt removes the track at index i, shifting the remainder down.
func (p *Playlist) RemoveAt(i int) bool {
	if i < 0 || i >= len(p.Tracks) {
		return false
	}
	p.Tracks = append(p.Tracks[:i], p.Tracks[i+1:]...)
	return true
}

// Len returns the number of loaded tracks.
func (p *Playlist) Len() int {
	return len(p.Tracks)
}
