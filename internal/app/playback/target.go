package playback

import "github.com/google/uuid"

// Origin identifies which track list the current target points into.
type Origin int

const (
	OriginSearch   Origin = iota // Current search results
	OriginPlaylist               // A stored playlist
)

// String returns the string representation of the origin.
func (o Origin) String() string {
	switch o {
	case OriginSearch:
		return "search"
	case OriginPlaylist:
		return "playlist"
	default:
		return "unknown"
	}
}

// Target is a position in a track list. The track itself is not held;
// it is resolved through the list on every use so removals and reloads
// cannot leave a stale copy playing the wrong song.
type Target struct {
	Origin     Origin
	PlaylistID uuid.UUID // set when Origin is OriginPlaylist
	Index      int
}

// SearchTarget returns a target for position index in the search results.
func SearchTarget(index int) Target {
	return Target{Origin: OriginSearch, Index: index}
}

// PlaylistTarget returns a target for position index in a stored playlist.
func PlaylistTarget(id uuid.UUID, index int) Target {
	return Target{Origin: OriginPlaylist, PlaylistID: id, Index: index}
}
