package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunebeats/tunebeats/internal/domain/track"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestOpen_CreatesEmptyIndex(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	require.NoError(t, err)
	assert.Zero(t, s.Len())

	data, err := os.ReadFile(filepath.Join(dir, "playlists.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"playlists":[]}`, string(data))
}

func TestCreate_DerivesStorageKey(t *testing.T) {
	s := openTestStore(t)

	p, err := s.Create("Road Trip")
	require.NoError(t, err)
	assert.Equal(t, "road_trip.json", p.Filename)

	entries := s.Playlists()
	require.Len(t, entries, 1)
	assert.Equal(t, "Road Trip", entries[0].Name)
}

func TestCreate_DuplicateNameIsCaseInsensitive(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Create("Chill")
	require.NoError(t, err)

	_, err = s.Create("chill")
	assert.ErrorIs(t, err, ErrDuplicateName)
	assert.Equal(t, 1, s.Len(), "index must be unchanged after rejection")
}

func TestCreate_FilenameCollisionGetsNumericPrefix(t *testing.T) {
	s := openTestStore(t)

	// Distinct names that sanitize to the same storage key.
	a, err := s.Create("mix!")
	require.NoError(t, err)
	b, err := s.Create("mix?")
	require.NoError(t, err)
	c, err := s.Create("mix#")
	require.NoError(t, err)

	assert.Equal(t, "mix.json", a.Filename)
	assert.Equal(t, "1_mix.json", b.Filename)
	assert.Equal(t, "2_mix.json", c.Filename)
}

func TestCreate_EmptyNameRejected(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Create("   ")
	assert.ErrorIs(t, err, ErrEmptyName)
}

func TestAddTrack_PersistsWithoutURLField(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	p, err := s.Create("Road Trip")
	require.NoError(t, err)

	err = s.AddTrack(p.ID, track.New("Song A", "abc12345"))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "playlists", "road_trip.json"))
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	songs := doc["songs"].([]any)
	require.Len(t, songs, 1)
	rec := songs[0].(map[string]any)
	assert.Equal(t, "Song A", rec["title"])
	assert.Equal(t, "abc12345", rec["video_id"])
	assert.NotContains(t, rec, "url")
	assert.NotContains(t, string(data), "youtube.com")
}

func TestAddTrack_DuplicateIdentifierIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	p, err := s.Create("Chill")
	require.NoError(t, err)

	require.NoError(t, s.AddTrack(p.ID, track.New("Song A", "abc12345")))
	err = s.AddTrack(p.ID, track.New("Song A again", "abc12345"))
	assert.ErrorIs(t, err, ErrDuplicateTrack)

	tracks, err := s.Tracks(p.ID)
	require.NoError(t, err)
	assert.Len(t, tracks, 1)
}

func TestAddTrack_InvalidIdentifierRejected(t *testing.T) {
	s := openTestStore(t)
	p, err := s.Create("Chill")
	require.NoError(t, err)

	err = s.AddTrack(p.ID, track.New("Bad", "x"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicateTrack)
}

func TestRoundTrip_PreservesOrderAndIdentity(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	p, err := s.Create("Road Trip")
	require.NoError(t, err)
	want := []track.Track{
		track.New("Song A", "aaaaa111"),
		track.New("Song B", "bbbbb222"),
		track.New("Song C", "ccccc333"),
	}
	for _, trk := range want {
		require.NoError(t, s.AddTrack(p.ID, trk))
	}

	// Reopen from disk and lazily load.
	s2, err := Open(dir)
	require.NoError(t, err)
	require.Equal(t, 1, s2.Len())
	reopened := s2.Playlists()[0]
	assert.False(t, reopened.Loaded)

	tracks, err := s2.Tracks(reopened.ID)
	require.NoError(t, err)
	require.Len(t, tracks, len(want))
	for i, trk := range tracks {
		assert.Equal(t, want[i].Title, trk.Title)
		assert.Equal(t, want[i].ID, trk.ID)
		assert.Equal(t, track.WatchURL(want[i].ID), trk.URL, "URL must be re-derived on load")
	}
}

func TestRemoveTrack_ShiftsIndicesDown(t *testing.T) {
	s := openTestStore(t)
	p, err := s.Create("Chill")
	require.NoError(t, err)
	require.NoError(t, s.AddTrack(p.ID, track.New("One", "id-one11")))
	require.NoError(t, s.AddTrack(p.ID, track.New("Two", "id-two22")))
	require.NoError(t, s.AddTrack(p.ID, track.New("Three", "id-three")))

	require.NoError(t, s.RemoveTrack(p.ID, 1))

	tracks, err := s.Tracks(p.ID)
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	assert.Equal(t, "id-one11", tracks[0].ID)
	assert.Equal(t, "id-three", tracks[1].ID)

	assert.ErrorIs(t, s.RemoveTrack(p.ID, 5), ErrInvalidIndex)
}

func TestDelete_RemovesFileAndCompactsIndex(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	_, err = s.Create("First")
	require.NoError(t, err)
	b, err := s.Create("Second")
	require.NoError(t, err)
	_, err = s.Create("Third")
	require.NoError(t, err)

	assert.True(t, s.Delete(b.ID))

	names := make([]string, 0, 2)
	for _, p := range s.Playlists() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"First", "Third"}, names)

	_, statErr := os.Stat(filepath.Join(dir, "playlists", b.Filename))
	assert.True(t, os.IsNotExist(statErr))

	// Index rewrite on disk reflects the compaction.
	data, err := os.ReadFile(filepath.Join(dir, "playlists.json"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "Second")
}

func TestDelete_MissingFileIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	p, err := s.Create("Ghost")
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(dir, "playlists", p.Filename)))

	assert.True(t, s.Delete(p.ID))
	assert.Zero(t, s.Len())
}

func TestLoadIndex_ToleratesMissingAndMalformed(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "playlists.json"), []byte("{truncated"), 0o644))

	s, err = Open(dir)
	require.NoError(t, err)
	assert.Zero(t, s.Len())

	// Entries missing a field are skipped.
	doc := `{"playlists":[{"name":"ok","filename":"ok.json"},{"name":"","filename":"x.json"},{"name":"nofile","filename":""}]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "playlists.json"), []byte(doc), 0o644))

	s, err = Open(dir)
	require.NoError(t, err)
	require.Equal(t, 1, s.Len())
	assert.Equal(t, "ok", s.Playlists()[0].Name)
}

func TestLoadTracks_SkipsRecordsWithoutIdentifier(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	p, err := s.Create("Mixed")
	require.NoError(t, err)

	doc := `{"name":"Mixed","songs":[` +
		`{"title":"Good","video_id":"abc12345"},` +
		`{"title":"No ID","video_id":""},` +
		`{"title":"Missing"},` +
		`{"title":"Also Good","video_id":"def67890"}]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "playlists", p.Filename), []byte(doc), 0o644))

	require.NoError(t, s.LoadTracks(p.ID))
	tracks, err := s.Tracks(p.ID)
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	assert.Equal(t, "abc12345", tracks[0].ID)
	assert.Equal(t, "def67890", tracks[1].ID)
}

func TestLoadTracks_CapsAtMaxTracks(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	p, err := s.Create("Huge")
	require.NoError(t, err)

	var b strings.Builder
	b.WriteString(`{"name":"Huge","songs":[`)
	for i := 0; i < MaxTracks+10; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(`{"title":"t","video_id":"id` + strings.Repeat("0", 5) + strconv.Itoa(i) + `"}`)
	}
	b.WriteString(`]}`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "playlists", p.Filename), []byte(b.String()), 0o644))

	require.NoError(t, s.LoadTracks(p.ID))
	tracks, err := s.Tracks(p.ID)
	require.NoError(t, err)
	assert.Len(t, tracks, MaxTracks)
}

func TestTracks_LazyLoadsOnce(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	p, err := s.Create("Lazy")
	require.NoError(t, err)
	require.NoError(t, s.AddTrack(p.ID, track.New("Song", "abc12345")))

	s2, err := Open(dir)
	require.NoError(t, err)
	reopened := s2.Playlists()[0]

	tracks, err := s2.Tracks(reopened.ID)
	require.NoError(t, err)
	assert.Len(t, tracks, 1)
	assert.True(t, reopened.Loaded)
}
