// Package session runs the interactive session: one event loop that
// owns the screen, the playback machine, and the playlist store.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/tunebeats/tunebeats/internal/app/playback"
	"github.com/tunebeats/tunebeats/internal/domain/track"
	"github.com/tunebeats/tunebeats/internal/store"
	"github.com/tunebeats/tunebeats/internal/ui"
)

// Player is the playback engine as the session sees it.
type Player interface {
	playback.Player
	Connected() bool
	PollTrackEnded() bool
	Drain()
	Quit()
}

// Searcher finds tracks for a query.
type Searcher interface {
	Search(ctx context.Context, query string) ([]track.Track, error)
}

// Terminal supplies key input and modal text entry.
type Terminal interface {
	Keys() <-chan ui.Key
	Prompt(label string) (string, bool)
	Confirm(question string) bool
}

// Renderer draws frames.
type Renderer interface {
	Render(ui.Model)
}

// Config holds session manager configuration.
type Config struct {
	Tick        time.Duration
	GracePeriod time.Duration
}

// Manager is the event loop. Everything it owns is touched only from
// Run's goroutine.
type Manager struct {
	store    *store.Store
	player   Player
	machine  *playback.Machine
	searcher Searcher
	term     Terminal
	renderer Renderer
	tick     time.Duration

	// Current search results; replaced wholesale by each search.
	results []track.Track
	query   string

	view         ui.ViewMode
	prevView     ui.ViewMode
	cursor       map[ui.ViewMode]int
	openPlaylist uuid.UUID // playlist whose tracks are on screen
	pendingAdd   *track.Track

	status  string
	running bool
}

// NewManager wires the session together. The playback machine resolves
// its targets through the manager itself.
func NewManager(st *store.Store, player Player, searcher Searcher, term Terminal, renderer Renderer, cfg Config) *Manager {
	m := &Manager{
		store:    st,
		player:   player,
		searcher: searcher,
		term:     term,
		renderer: renderer,
		tick:     cfg.Tick,
		view:     ui.ViewSearch,
		cursor:   map[ui.ViewMode]int{},
	}
	m.machine = playback.NewMachine(player, m, playback.Config{GracePeriod: cfg.GracePeriod})
	return m
}

// SearchResults implements playback.Sources.
func (m *Manager) SearchResults() []track.Track {
	return m.results
}

// PlaylistTracks implements playback.Sources.
func (m *Manager) PlaylistTracks(id uuid.UUID) ([]track.Track, error) {
	return m.store.Tracks(id)
}

// Run drives the loop until quit is requested, input ends, or the
// context is cancelled.
func (m *Manager) Run(ctx context.Context) error {
	m.running = true
	m.status = "Press / to search, h for help"

	for m.running {
		// Completion is checked once per tick, before any key is
		// dispatched, so held-down keys cannot starve auto-advance.
		m.checkCompletion(ctx)
		m.renderer.Render(m.buildModel())

		select {
		case <-ctx.Done():
			m.running = false
		case key, ok := <-m.term.Keys():
			if !ok {
				m.running = false
				break
			}
			m.handleKey(ctx, key)
		case <-time.After(m.tick):
		}
	}

	m.player.Quit()
	return nil
}

// checkCompletion polls the player for a finished track and advances.
// During the grace window events are leftovers of the previous track
// and are discarded.
func (m *Manager) checkCompletion(ctx context.Context) {
	if m.machine.Target() == nil || !m.player.Connected() {
		return
	}
	if m.machine.InGrace() {
		m.player.Drain()
		return
	}
	if !m.player.PollTrackEnded() {
		return
	}

	t, advanced, err := m.machine.OnTrackEnded(ctx)
	switch {
	case err != nil:
		zlog.Error().Err(err).Msg("auto-advance failed")
		m.status = "Playback error: " + err.Error()
	case advanced:
		m.status = "Auto-playing: " + t.Title
	default:
		m.status = "Playback finished"
	}
}

func (m *Manager) buildModel() ui.Model {
	model := ui.Model{
		View:     m.view,
		Cursor:   m.cursor[m.view],
		Status:   m.status,
		KeyHints: keyHints(m.view),
	}

	if t, ok := m.machine.Current(); ok {
		model.NowPlaying = t.Title
		model.Paused = m.machine.Paused()
	}

	switch m.view {
	case ui.ViewSearch:
		if m.query != "" {
			model.Heading = m.query
		}
		for i, t := range m.results {
			model.Items = append(model.Items, fmt.Sprintf("%2d. %s", i+1, t.Title))
		}
	case ui.ViewPlaylists, ui.ViewAddToPlaylist:
		for _, p := range m.store.Playlists() {
			model.Items = append(model.Items, p.Name)
		}
		if m.view == ui.ViewAddToPlaylist && m.pendingAdd != nil {
			model.Heading = m.pendingAdd.Title
		}
	case ui.ViewPlaylistTracks:
		if p, ok := m.store.Get(m.openPlaylist); ok {
			model.Heading = p.Name
		}
		tracks, err := m.store.Tracks(m.openPlaylist)
		if err == nil {
			for i, t := range tracks {
				model.Items = append(model.Items, fmt.Sprintf("%2d. %s", i+1, t.Title))
			}
		}
	case ui.ViewHelp:
		model.Items = helpLines()
	}

	m.clampCursor(len(model.Items))
	model.Cursor = m.cursor[m.view]

	return model
}

func (m *Manager) clampCursor(total int) {
	c := m.cursor[m.view]
	if c >= total {
		c = total - 1
	}
	if c < 0 {
		c = 0
	}
	m.cursor[m.view] = c
}

func (m *Manager) switchView(v ui.ViewMode) {
	if v == m.view {
		return
	}
	m.prevView = m.view
	m.view = v
}

func keyHints(v ui.ViewMode) string {
	switch v {
	case ui.ViewSearch:
		return "/ search  enter play  a add  f playlists  space pause  n/p next/prev  x stop  h help  q quit"
	case ui.ViewPlaylists:
		return "enter open  c create  d delete  esc back  h help  q quit"
	case ui.ViewPlaylistTracks:
		return "enter play  d remove  esc back  h help  q quit"
	case ui.ViewAddToPlaylist:
		return "enter add here  c create  esc cancel"
	case ui.ViewHelp:
		return "any key to return"
	default:
		return ""
	}
}

func helpLines() []string {
	return []string{
		"/ or s     search for tracks",
		"enter      play the selected track",
		"space      pause / resume",
		"n / p      next / previous track in the current list",
		"x          stop playback",
		"a          add the selected result to a playlist",
		"f          show playlists",
		"c          create a playlist",
		"d          delete playlist / remove track",
		"j/k, arrows, pgup/pgdn, g/G   move around",
		"esc        go back",
		"q          quit",
	}
}
