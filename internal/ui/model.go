package ui

// ViewMode identifies which screen is showing.
type ViewMode int

const (
	ViewSearch ViewMode = iota
	ViewPlaylists
	ViewPlaylistTracks
	ViewAddToPlaylist
	ViewHelp
)

// Title returns the screen heading for the view.
func (v ViewMode) Title() string {
	switch v {
	case ViewSearch:
		return "Search"
	case ViewPlaylists:
		return "Playlists"
	case ViewPlaylistTracks:
		return "Playlist"
	case ViewAddToPlaylist:
		return "Add to playlist"
	case ViewHelp:
		return "Help"
	default:
		return ""
	}
}

// Model is everything a single frame needs. The session manager builds
// one per tick; the renderer draws it without holding any state of its
// own beyond scroll position.
type Model struct {
	View    ViewMode
	Heading string // extra context after the view title, e.g. a playlist name
	Items   []string
	Cursor  int

	NowPlaying string // empty when idle
	Paused     bool
	Status     string
	KeyHints   string
}
