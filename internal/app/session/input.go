package session

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/tunebeats/tunebeats/internal/app/playback"
	"github.com/tunebeats/tunebeats/internal/store"
	"github.com/tunebeats/tunebeats/internal/ui"
)

const pageStep = 10

func (m *Manager) handleKey(ctx context.Context, key ui.Key) {
	if m.view == ui.ViewHelp {
		m.view = m.prevView
		return
	}

	if m.handleNavigation(key) {
		return
	}

	switch {
	case key.Is('q'):
		m.running = false
	case key.Is(' '):
		m.togglePause()
	case key.Is('x'):
		m.stopPlayback()
	case key.Is('n'):
		m.advance(ctx, playback.Forward)
	case key.Is('p'):
		m.advance(ctx, playback.Backward)
	case key.Is('h') || key.Is('?'):
		m.switchView(ui.ViewHelp)
	case key.Kind == ui.KeyEscape:
		m.goBack()
	default:
		m.handleViewKey(ctx, key)
	}
}

// handleNavigation moves the cursor. Returns true when the key was a
// movement key.
func (m *Manager) handleNavigation(key ui.Key) bool {
	total := m.itemCount()
	c := m.cursor[m.view]

	switch {
	case key.Kind == ui.KeyUp || key.Is('k'):
		c--
	case key.Kind == ui.KeyDown || key.Is('j'):
		c++
	case key.Kind == ui.KeyPageUp:
		c -= pageStep
	case key.Kind == ui.KeyPageDown:
		c += pageStep
	case key.Kind == ui.KeyHome || key.Is('g'):
		c = 0
	case key.Kind == ui.KeyEnd || key.Is('G'):
		c = total - 1
	default:
		return false
	}

	if c > total-1 {
		c = total - 1
	}
	if c < 0 {
		c = 0
	}
	m.cursor[m.view] = c
	return true
}

func (m *Manager) handleViewKey(ctx context.Context, key ui.Key) {
	switch m.view {
	case ui.ViewSearch:
		switch {
		case key.Is('/') || key.Is('s'):
			m.doSearch(ctx)
		case key.Kind == ui.KeyEnter:
			m.playSelected(ctx)
		case key.Is('a'):
			m.beginAdd()
		case key.Is('f'):
			m.switchView(ui.ViewPlaylists)
		}
	case ui.ViewPlaylists:
		switch {
		case key.Kind == ui.KeyEnter:
			m.openSelectedPlaylist()
		case key.Is('c'):
			m.createPlaylist()
		case key.Is('d'):
			m.deleteSelectedPlaylist()
		}
	case ui.ViewPlaylistTracks:
		switch {
		case key.Kind == ui.KeyEnter:
			m.playSelected(ctx)
		case key.Is('d'):
			m.removeSelectedTrack()
		}
	case ui.ViewAddToPlaylist:
		switch {
		case key.Kind == ui.KeyEnter:
			m.confirmAdd(-1)
		case key.Is('c'):
			m.createAndAdd()
		}
	}
}

func (m *Manager) itemCount() int {
	switch m.view {
	case ui.ViewSearch:
		return len(m.results)
	case ui.ViewPlaylists, ui.ViewAddToPlaylist:
		return m.store.Len()
	case ui.ViewPlaylistTracks:
		tracks, err := m.store.Tracks(m.openPlaylist)
		if err != nil {
			return 0
		}
		return len(tracks)
	case ui.ViewHelp:
		return len(helpLines())
	default:
		return 0
	}
}

func (m *Manager) goBack() {
	switch m.view {
	case ui.ViewPlaylistTracks:
		m.switchView(ui.ViewPlaylists)
	case ui.ViewPlaylists:
		m.switchView(ui.ViewSearch)
	case ui.ViewAddToPlaylist:
		m.pendingAdd = nil
		m.switchView(ui.ViewSearch)
	}
}

func (m *Manager) doSearch(ctx context.Context) {
	query, ok := m.term.Prompt("Search: ")
	query = strings.TrimSpace(query)
	if !ok || query == "" {
		return
	}

	// The new results replace the list the current track was chosen
	// from, so playback from the old results stops.
	if tgt := m.machine.Target(); tgt != nil && tgt.Origin == playback.OriginSearch {
		_ = m.machine.Stop()
	}

	m.status = "Searching..."
	m.renderer.Render(m.buildModel())

	results, err := m.searcher.Search(ctx, query)
	if err != nil {
		zlog.Error().Err(err).Str("query", query).Msg("search failed")
		m.status = "Search failed: " + err.Error()
		return
	}

	m.results = results
	m.query = query
	m.machine.InvalidateSearch()
	m.cursor[ui.ViewSearch] = 0
	if len(results) == 0 {
		m.status = "No results"
	} else {
		m.status = ""
	}
}

func (m *Manager) playSelected(ctx context.Context) {
	var tgt playback.Target
	switch m.view {
	case ui.ViewSearch:
		if len(m.results) == 0 {
			return
		}
		tgt = playback.SearchTarget(m.cursor[m.view])
	case ui.ViewPlaylistTracks:
		if m.itemCount() == 0 {
			return
		}
		tgt = playback.PlaylistTarget(m.openPlaylist, m.cursor[m.view])
	default:
		return
	}

	t, err := m.machine.Play(ctx, tgt)
	if err != nil {
		zlog.Error().Err(err).Msg("play failed")
		m.status = "Playback error: " + err.Error()
		return
	}
	m.status = "Playing: " + t.Title
}

func (m *Manager) togglePause() {
	err := m.machine.TogglePause()
	switch {
	case errors.Is(err, playback.ErrNoTarget):
		m.status = "Nothing playing"
	case err != nil:
		m.status = "Playback error: " + err.Error()
	case m.machine.Paused():
		m.status = "Paused"
	default:
		m.status = "Resumed"
	}
}

func (m *Manager) stopPlayback() {
	err := m.machine.Stop()
	switch {
	case errors.Is(err, playback.ErrNoTarget):
		m.status = "Nothing playing"
	case err != nil:
		m.status = "Playback error: " + err.Error()
	default:
		m.status = "Stopped"
	}
}

func (m *Manager) advance(ctx context.Context, dir playback.Direction) {
	t, err := m.machine.Advance(ctx, dir)
	switch {
	case errors.Is(err, playback.ErrNoTarget):
		m.status = "Nothing playing"
	case errors.Is(err, playback.ErrGone):
		if dir == playback.Forward {
			m.status = "End of list"
		} else {
			m.status = "Start of list"
		}
	case err != nil:
		m.status = "Playback error: " + err.Error()
	default:
		m.status = "Playing: " + t.Title
	}
}

func (m *Manager) openSelectedPlaylist() {
	playlists := m.store.Playlists()
	c := m.cursor[m.view]
	if c >= len(playlists) {
		return
	}
	m.openPlaylist = playlists[c].ID
	m.cursor[ui.ViewPlaylistTracks] = 0
	m.switchView(ui.ViewPlaylistTracks)
}

func (m *Manager) createPlaylist() {
	name, ok := m.term.Prompt("New playlist name: ")
	if !ok {
		return
	}
	if _, err := m.create(name); err != nil {
		return
	}
	m.status = "Created " + strings.TrimSpace(name)
}

func (m *Manager) create(name string) (uuid.UUID, error) {
	p, err := m.store.Create(name)
	switch {
	case errors.Is(err, store.ErrEmptyName):
		m.status = "Playlist name cannot be empty"
	case errors.Is(err, store.ErrDuplicateName):
		m.status = "A playlist with that name already exists"
	case errors.Is(err, store.ErrLimitReached):
		m.status = "Playlist limit reached"
	case err != nil:
		zlog.Error().Err(err).Msg("create playlist failed")
		m.status = "Could not create playlist: " + err.Error()
	}
	if err != nil {
		return uuid.Nil, err
	}
	return p.ID, nil
}

func (m *Manager) deleteSelectedPlaylist() {
	playlists := m.store.Playlists()
	c := m.cursor[m.view]
	if c >= len(playlists) {
		return
	}
	p := playlists[c]

	if !m.term.Confirm("Delete playlist \"" + p.Name + "\"?") {
		return
	}

	// Anything playing out of this playlist stops with it.
	if tgt := m.machine.Target(); tgt != nil && tgt.Origin == playback.OriginPlaylist && tgt.PlaylistID == p.ID {
		_ = m.machine.Stop()
	}

	m.store.Delete(p.ID)
	m.machine.InvalidatePlaylist(p.ID)
	m.status = "Deleted " + p.Name
}

func (m *Manager) removeSelectedTrack() {
	tracks, err := m.store.Tracks(m.openPlaylist)
	if err != nil || len(tracks) == 0 {
		return
	}
	c := m.cursor[m.view]
	if c >= len(tracks) {
		return
	}

	if !m.term.Confirm("Remove \"" + tracks[c].Title + "\"?") {
		return
	}

	if tgt := m.machine.Target(); tgt != nil && tgt.Origin == playback.OriginPlaylist &&
		tgt.PlaylistID == m.openPlaylist && tgt.Index == c {
		_ = m.machine.Stop()
	}

	if err := m.store.RemoveTrack(m.openPlaylist, c); err != nil {
		m.status = "Could not remove track: " + err.Error()
		return
	}
	m.machine.OnTrackRemoved(m.openPlaylist, c)
	m.status = "Removed " + tracks[c].Title
}

func (m *Manager) beginAdd() {
	if len(m.results) == 0 {
		return
	}
	t := m.results[m.cursor[m.view]]
	m.pendingAdd = &t
	m.cursor[ui.ViewAddToPlaylist] = 0
	m.switchView(ui.ViewAddToPlaylist)
	if m.store.Len() == 0 {
		m.status = "No playlists yet, press c to create one"
	}
}

// confirmAdd adds the pending track to the playlist at the cursor, or
// to the given playlist when idx is not negative.
func (m *Manager) confirmAdd(idx int) {
	if m.pendingAdd == nil {
		return
	}
	playlists := m.store.Playlists()
	if idx < 0 {
		idx = m.cursor[m.view]
	}
	if idx >= len(playlists) {
		return
	}
	p := playlists[idx]

	err := m.store.AddTrack(p.ID, *m.pendingAdd)
	switch {
	case errors.Is(err, store.ErrDuplicateTrack):
		m.status = "Already in " + p.Name
	case errors.Is(err, store.ErrPlaylistFull):
		m.status = p.Name + " is full"
	case err != nil:
		zlog.Error().Err(err).Msg("add track failed")
		m.status = "Could not add track: " + err.Error()
	default:
		m.status = "Added to " + p.Name
	}

	m.pendingAdd = nil
	m.switchView(ui.ViewSearch)
}

// createAndAdd creates a playlist from the add screen and puts the
// pending track straight into it.
func (m *Manager) createAndAdd() {
	name, ok := m.term.Prompt("New playlist name: ")
	if !ok {
		return
	}
	id, err := m.create(name)
	if err != nil {
		return
	}

	playlists := m.store.Playlists()
	for i, p := range playlists {
		if p.ID == id {
			m.confirmAdd(i)
			return
		}
	}
}
