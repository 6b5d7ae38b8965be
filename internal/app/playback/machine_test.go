package playback

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunebeats/tunebeats/internal/domain/track"
)

type fakePlayer struct {
	loaded  []string
	toggles int
	stops   int
	loadErr error
	stopErr error
}

func (f *fakePlayer) EnsureStarted(ctx context.Context) error { return nil }

func (f *fakePlayer) Load(url string) error {
	if f.loadErr != nil {
		return f.loadErr
	}
	f.loaded = append(f.loaded, url)
	return nil
}

func (f *fakePlayer) TogglePause() error { f.toggles++; return nil }
func (f *fakePlayer) Stop() error        { f.stops++; return f.stopErr }

type fakeSources struct {
	search    []track.Track
	playlists map[uuid.UUID][]track.Track
}

func (f *fakeSources) SearchResults() []track.Track { return f.search }

func (f *fakeSources) PlaylistTracks(id uuid.UUID) ([]track.Track, error) {
	tracks, ok := f.playlists[id]
	if !ok {
		return nil, errors.New("playlist not found")
	}
	return tracks, nil
}

func makeTracks(ids ...string) []track.Track {
	tracks := make([]track.Track, 0, len(ids))
	for _, id := range ids {
		tracks = append(tracks, track.New("Track "+id, id))
	}
	return tracks
}

func newTestMachine(search []track.Track) (*Machine, *fakePlayer, *fakeSources) {
	player := &fakePlayer{}
	sources := &fakeSources{
		search:    search,
		playlists: map[uuid.UUID][]track.Track{},
	}
	m := NewMachine(player, sources, Config{GracePeriod: 3 * time.Second})
	return m, player, sources
}

func TestPlay(t *testing.T) {
	m, player, _ := newTestMachine(makeTracks("aaaaa11111", "bbbbb22222"))

	tr, err := m.Play(context.Background(), SearchTarget(1))
	require.NoError(t, err)

	assert.Equal(t, "bbbbb22222", tr.ID)
	assert.Equal(t, []string{tr.URL}, player.loaded)
	assert.Equal(t, StatePlaying, m.State())
	require.NotNil(t, m.Target())
	assert.Equal(t, 1, m.Target().Index)
}

func TestPlay_TargetOutOfRange(t *testing.T) {
	m, player, _ := newTestMachine(makeTracks("aaaaa11111"))

	_, err := m.Play(context.Background(), SearchTarget(5))
	assert.ErrorIs(t, err, ErrGone)
	assert.Empty(t, player.loaded)
	assert.Equal(t, StateIdle, m.State())
}

func TestPlay_ReplacesCurrentTrack(t *testing.T) {
	m, player, _ := newTestMachine(makeTracks("aaaaa11111", "bbbbb22222"))

	_, err := m.Play(context.Background(), SearchTarget(0))
	require.NoError(t, err)
	_, err = m.Play(context.Background(), SearchTarget(1))
	require.NoError(t, err)

	assert.Len(t, player.loaded, 2)
	assert.Equal(t, 1, m.Target().Index)
}

func TestTogglePause(t *testing.T) {
	m, player, _ := newTestMachine(makeTracks("aaaaa11111"))

	assert.ErrorIs(t, m.TogglePause(), ErrNoTarget)

	_, err := m.Play(context.Background(), SearchTarget(0))
	require.NoError(t, err)

	require.NoError(t, m.TogglePause())
	assert.Equal(t, StatePaused, m.State())
	assert.True(t, m.Paused())

	require.NoError(t, m.TogglePause())
	assert.Equal(t, StatePlaying, m.State())
	assert.Equal(t, 2, player.toggles)
}

func TestStop(t *testing.T) {
	m, player, _ := newTestMachine(makeTracks("aaaaa11111"))

	assert.ErrorIs(t, m.Stop(), ErrNoTarget)

	_, err := m.Play(context.Background(), SearchTarget(0))
	require.NoError(t, err)

	require.NoError(t, m.Stop())
	assert.Equal(t, StateIdle, m.State())
	assert.Nil(t, m.Target())
	assert.Equal(t, 1, player.stops)
}

func TestStop_ClearsTargetWhenPlayerFails(t *testing.T) {
	m, player, _ := newTestMachine(makeTracks("aaaaa11111"))
	player.stopErr = errors.New("socket gone")

	_, err := m.Play(context.Background(), SearchTarget(0))
	require.NoError(t, err)

	err = m.Stop()
	assert.ErrorContains(t, err, "socket gone")
	assert.Equal(t, StateIdle, m.State())
	assert.Nil(t, m.Target())
}

func TestAdvance(t *testing.T) {
	m, player, _ := newTestMachine(makeTracks("aaaaa11111", "bbbbb22222", "ccccc33333"))

	_, err := m.Play(context.Background(), SearchTarget(1))
	require.NoError(t, err)

	tr, err := m.Advance(context.Background(), Forward)
	require.NoError(t, err)
	assert.Equal(t, "ccccc33333", tr.ID)
	assert.Equal(t, 2, m.Target().Index)

	tr, err = m.Advance(context.Background(), Backward)
	require.NoError(t, err)
	assert.Equal(t, "bbbbb22222", tr.ID)
	assert.Equal(t, 1, m.Target().Index)

	assert.Len(t, player.loaded, 3)
}

func TestAdvance_BoundaryIsNoOp(t *testing.T) {
	m, player, _ := newTestMachine(makeTracks("aaaaa11111", "bbbbb22222"))

	_, err := m.Play(context.Background(), SearchTarget(0))
	require.NoError(t, err)
	loads := len(player.loaded)

	_, err = m.Advance(context.Background(), Backward)
	assert.ErrorIs(t, err, ErrGone)

	// Still on the same track, still playing.
	assert.Equal(t, 0, m.Target().Index)
	assert.Equal(t, StatePlaying, m.State())
	assert.Len(t, player.loaded, loads)

	_, err = m.Play(context.Background(), SearchTarget(1))
	require.NoError(t, err)

	_, err = m.Advance(context.Background(), Forward)
	assert.ErrorIs(t, err, ErrGone)
	assert.Equal(t, 1, m.Target().Index)
}

func TestAdvance_NoTarget(t *testing.T) {
	m, _, _ := newTestMachine(makeTracks("aaaaa11111"))

	_, err := m.Advance(context.Background(), Forward)
	assert.ErrorIs(t, err, ErrNoTarget)
}

func TestOnTrackEnded_AdvancesToNext(t *testing.T) {
	m, _, _ := newTestMachine(makeTracks("aaaaa11111", "bbbbb22222"))

	_, err := m.Play(context.Background(), SearchTarget(0))
	require.NoError(t, err)

	tr, advanced, err := m.OnTrackEnded(context.Background())
	require.NoError(t, err)
	assert.True(t, advanced)
	assert.Equal(t, "bbbbb22222", tr.ID)
	assert.Equal(t, 1, m.Target().Index)
	assert.Equal(t, StatePlaying, m.State())
}

func TestOnTrackEnded_LastTrackGoesIdle(t *testing.T) {
	m, _, _ := newTestMachine(makeTracks("aaaaa11111"))

	_, err := m.Play(context.Background(), SearchTarget(0))
	require.NoError(t, err)

	_, advanced, err := m.OnTrackEnded(context.Background())
	require.NoError(t, err)
	assert.False(t, advanced)
	assert.Equal(t, StateIdle, m.State())
	assert.Nil(t, m.Target())
}

func TestOnTrackEnded_Idle(t *testing.T) {
	m, _, _ := newTestMachine(makeTracks("aaaaa11111"))

	_, advanced, err := m.OnTrackEnded(context.Background())
	require.NoError(t, err)
	assert.False(t, advanced)
}

func TestInGrace(t *testing.T) {
	m, _, _ := newTestMachine(makeTracks("aaaaa11111"))

	base := time.Now()
	m.now = func() time.Time { return base }

	assert.False(t, m.InGrace())

	_, err := m.Play(context.Background(), SearchTarget(0))
	require.NoError(t, err)

	assert.True(t, m.InGrace())

	m.now = func() time.Time { return base.Add(2 * time.Second) }
	assert.True(t, m.InGrace())

	m.now = func() time.Time { return base.Add(3 * time.Second) }
	assert.False(t, m.InGrace())
}

func TestPlaylistTarget(t *testing.T) {
	m, player, sources := newTestMachine(nil)
	id := uuid.New()
	sources.playlists[id] = makeTracks("aaaaa11111", "bbbbb22222")

	tr, err := m.Play(context.Background(), PlaylistTarget(id, 0))
	require.NoError(t, err)
	assert.Equal(t, "aaaaa11111", tr.ID)

	tr, advanced, err := m.OnTrackEnded(context.Background())
	require.NoError(t, err)
	assert.True(t, advanced)
	assert.Equal(t, "bbbbb22222", tr.ID)
	assert.Len(t, player.loaded, 2)
}

func TestInvalidatePlaylist(t *testing.T) {
	m, _, sources := newTestMachine(makeTracks("aaaaa11111"))
	id := uuid.New()
	sources.playlists[id] = makeTracks("bbbbb22222")

	_, err := m.Play(context.Background(), PlaylistTarget(id, 0))
	require.NoError(t, err)

	m.InvalidatePlaylist(uuid.New())
	assert.NotNil(t, m.Target())

	m.InvalidatePlaylist(id)
	assert.Nil(t, m.Target())
	assert.Equal(t, StateIdle, m.State())

	// A search target is untouched by playlist invalidation.
	_, err = m.Play(context.Background(), SearchTarget(0))
	require.NoError(t, err)
	m.InvalidatePlaylist(id)
	assert.NotNil(t, m.Target())
}

func TestInvalidateSearch(t *testing.T) {
	m, _, _ := newTestMachine(makeTracks("aaaaa11111"))

	_, err := m.Play(context.Background(), SearchTarget(0))
	require.NoError(t, err)

	m.InvalidateSearch()
	assert.Nil(t, m.Target())
	assert.Equal(t, StateIdle, m.State())
}

func TestOnTrackRemoved(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name      string
		target    Target
		removed   int
		wantIdle  bool
		wantIndex int
	}{
		{
			name:      "removal before target shifts it down",
			target:    PlaylistTarget(id, 2),
			removed:   0,
			wantIndex: 1,
		},
		{
			name:     "removing the playing track clears the target",
			target:   PlaylistTarget(id, 1),
			removed:  1,
			wantIdle: true,
		},
		{
			name:      "removal after target leaves it alone",
			target:    PlaylistTarget(id, 1),
			removed:   2,
			wantIndex: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _, sources := newTestMachine(nil)
			sources.playlists[id] = makeTracks("aaaaa11111", "bbbbb22222", "ccccc33333")

			_, err := m.Play(context.Background(), tt.target)
			require.NoError(t, err)

			m.OnTrackRemoved(id, tt.removed)
			if tt.wantIdle {
				assert.Nil(t, m.Target())
				assert.Equal(t, StateIdle, m.State())
			} else {
				require.NotNil(t, m.Target())
				assert.Equal(t, tt.wantIndex, m.Target().Index)
			}
		})
	}
}

func TestOnTrackRemoved_OtherPlaylist(t *testing.T) {
	id := uuid.New()
	m, _, sources := newTestMachine(nil)
	sources.playlists[id] = makeTracks("aaaaa11111", "bbbbb22222")

	_, err := m.Play(context.Background(), PlaylistTarget(id, 1))
	require.NoError(t, err)

	m.OnTrackRemoved(uuid.New(), 0)
	assert.Equal(t, 1, m.Target().Index)
}
