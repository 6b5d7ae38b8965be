package playback

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/tunebeats/tunebeats/internal/domain/track"
)

// Errors
var (
	ErrNoTarget = errors.New("no track selected")
	ErrGone     = errors.New("target track no longer exists")
)

// Player is the playback engine the machine drives.
type Player interface {
	EnsureStarted(ctx context.Context) error
	Load(url string) error
	TogglePause() error
	Stop() error
}

// Sources resolves targets to track lists.
type Sources interface {
	SearchResults() []track.Track
	PlaylistTracks(id uuid.UUID) ([]track.Track, error)
}

// Direction selects a neighbor of the current target.
type Direction int

const (
	Forward Direction = iota
	Backward
)

func (d Direction) step() int {
	if d == Backward {
		return -1
	}
	return 1
}

// Config holds machine configuration.
type Config struct {
	// GracePeriod is how long after a track starts that completion
	// events are treated as leftovers of the previous track.
	GracePeriod time.Duration
}

// Machine is the playback state machine. It is owned by the event loop
// goroutine and is not safe for concurrent use.
type Machine struct {
	player  Player
	sources Sources
	config  Config

	state     State
	target    *Target
	startedAt time.Time

	now func() time.Time
}

// NewMachine creates a playback machine driving player, resolving
// targets through sources.
func NewMachine(player Player, sources Sources, config Config) *Machine {
	return &Machine{
		player:  player,
		sources: sources,
		config:  config,
		state:   StateIdle,
		now:     time.Now,
	}
}

// State returns the current playback state.
func (m *Machine) State() State {
	return m.state
}

// Target returns the current target, or nil when idle.
func (m *Machine) Target() *Target {
	return m.target
}

// Paused reports whether playback is paused.
func (m *Machine) Paused() bool {
	return m.state == StatePaused
}

// InGrace reports whether the current track started within the grace
// window, during which completion events belong to the previous track.
func (m *Machine) InGrace() bool {
	if m.target == nil {
		return false
	}
	return m.now().Sub(m.startedAt) < m.config.GracePeriod
}

// Current resolves the current target to its track.
func (m *Machine) Current() (track.Track, bool) {
	if m.target == nil {
		return track.Track{}, false
	}
	t, err := m.resolve(*m.target)
	if err != nil {
		return track.Track{}, false
	}
	return t, true
}

// Play starts playback of the given target, replacing whatever was
// playing before.
func (m *Machine) Play(ctx context.Context, tgt Target) (track.Track, error) {
	t, err := m.resolve(tgt)
	if err != nil {
		return track.Track{}, err
	}

	if err := m.player.EnsureStarted(ctx); err != nil {
		return track.Track{}, errors.Wrap(err, "failed to start player")
	}
	if err := m.player.Load(t.URL); err != nil {
		return track.Track{}, errors.Wrap(err, "failed to load track")
	}

	m.target = &tgt
	m.state = StatePlaying
	m.startedAt = m.now()

	zlog.Info().Str("origin", tgt.Origin.String()).Int("index", tgt.Index).Str("title", t.Title).Msg("playing")
	return t, nil
}

// TogglePause flips between playing and paused.
func (m *Machine) TogglePause() error {
	if m.target == nil {
		return ErrNoTarget
	}
	if err := m.player.TogglePause(); err != nil {
		return err
	}
	if m.state == StatePaused {
		m.state = StatePlaying
	} else {
		m.state = StatePaused
	}
	return nil
}

// Stop halts playback and clears the target. The target is cleared even
// when the player command fails: a player that cannot be reached is not
// playing anything this machine should keep pointing at.
func (m *Machine) Stop() error {
	if m.target == nil {
		return ErrNoTarget
	}
	err := m.player.Stop()
	m.clear()
	return err
}

// Advance plays the neighboring track in the current target's list.
// At either end of the list it does nothing and keeps the current
// track playing.
func (m *Machine) Advance(ctx context.Context, dir Direction) (track.Track, error) {
	if m.target == nil {
		return track.Track{}, ErrNoTarget
	}

	next := *m.target
	next.Index += dir.step()
	t, err := m.resolve(next)
	if err != nil {
		if errors.Is(err, ErrGone) {
			// At the boundary. Current track keeps playing.
			return track.Track{}, ErrGone
		}
		return track.Track{}, err
	}

	if err := m.player.Load(t.URL); err != nil {
		return track.Track{}, errors.Wrap(err, "failed to load track")
	}

	m.target = &next
	m.state = StatePlaying
	m.startedAt = m.now()
	return t, nil
}

// OnTrackEnded handles a completion event from the player: the next
// track in the list starts, or playback goes idle at the end of the
// list. The returned track is valid only when advanced is true.
func (m *Machine) OnTrackEnded(ctx context.Context) (track.Track, bool, error) {
	if m.target == nil {
		return track.Track{}, false, nil
	}

	next := *m.target
	next.Index++
	t, err := m.resolve(next)
	if err != nil {
		// End of the list, or the list went away. Either way
		// playback is over.
		m.clear()
		return track.Track{}, false, nil
	}

	if err := m.player.Load(t.URL); err != nil {
		m.clear()
		return track.Track{}, false, errors.Wrap(err, "failed to load track")
	}

	m.target = &next
	m.state = StatePlaying
	m.startedAt = m.now()

	zlog.Info().Int("index", next.Index).Str("title", t.Title).Msg("auto-advanced")
	return t, true, nil
}

// InvalidatePlaylist clears the target if it points into the given
// playlist. Used when the playlist is deleted.
func (m *Machine) InvalidatePlaylist(id uuid.UUID) {
	if m.target == nil || m.target.Origin != OriginPlaylist {
		return
	}
	if m.target.PlaylistID == id {
		m.clear()
	}
}

// InvalidateSearch clears the target if it points into the search
// results. Used when a new search replaces them.
func (m *Machine) InvalidateSearch() {
	if m.target != nil && m.target.Origin == OriginSearch {
		m.clear()
	}
}

// OnTrackRemoved re-points the target after a track is removed from a
// playlist so the position keeps naming the same song. Removing the
// playing track itself clears the target; playback of the loaded media
// is the caller's concern.
func (m *Machine) OnTrackRemoved(id uuid.UUID, index int) {
	if m.target == nil || m.target.Origin != OriginPlaylist || m.target.PlaylistID != id {
		return
	}
	switch {
	case index < m.target.Index:
		m.target.Index--
	case index == m.target.Index:
		m.clear()
	}
}

func (m *Machine) clear() {
	m.target = nil
	m.state = StateIdle
	m.startedAt = time.Time{}
}

// resolve maps a target to its track, or ErrGone when the position no
// longer exists.
func (m *Machine) resolve(tgt Target) (track.Track, error) {
	var list []track.Track
	switch tgt.Origin {
	case OriginSearch:
		list = m.sources.SearchResults()
	case OriginPlaylist:
		tracks, err := m.sources.PlaylistTracks(tgt.PlaylistID)
		if err != nil {
			return track.Track{}, errors.Wrap(ErrGone, err.Error())
		}
		list = tracks
	}

	if tgt.Index < 0 || tgt.Index >= len(list) {
		return track.Track{}, ErrGone
	}
	return list[tgt.Index], nil
}
