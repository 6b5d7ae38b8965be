// Package store provides durable storage for playlists and the playlist
// index under a data directory.
package store

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/tunebeats/tunebeats/internal/app/filter"
	"github.com/tunebeats/tunebeats/internal/domain/playlist"
	"github.com/tunebeats/tunebeats/internal/domain/track"
)

// Limits bound how much persisted data is admitted into memory.
const (
	MaxPlaylists = 50
	MaxTracks    = 500
)

const (
	playlistsDirName = "playlists"
	indexFileName    = "playlists.json"
)

// Errors
var (
	ErrDuplicateName  = errors.New("playlist name already exists")
	ErrDuplicateTrack = errors.New("track already in playlist")
	ErrNotFound       = errors.New("playlist not found")
	ErrInvalidIndex   = errors.New("track index out of range")
	ErrEmptyName      = errors.New("playlist name is empty")
	ErrLimitReached   = errors.New("playlist limit reached")
	ErrPlaylistFull   = errors.New("playlist is full")
)

// Store owns the playlist index and the per-playlist files. It assumes
// exclusive ownership of its directory: single writer, whole-file overwrite
// on every mutation. In-memory mutation and its save attempt form one step;
// when a write fails the operation reports failure even though memory may
// already reflect the change.
type Store struct {
	dir          string
	playlistsDir string
	indexPath    string

	playlists []*playlist.Playlist // index order
	byID      map[uuid.UUID]*playlist.Playlist
}

// Open prepares the data directory, creates an empty index if none exists,
// and loads the playlist index.
func Open(dir string) (*Store, error) {
	s := &Store{
		dir:          dir,
		playlistsDir: filepath.Join(dir, playlistsDirName),
		indexPath:    filepath.Join(dir, indexFileName),
		byID:         make(map[uuid.UUID]*playlist.Playlist),
	}

	if err := os.MkdirAll(s.playlistsDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create playlists directory")
	}
	if _, err := os.Stat(s.indexPath); errors.Is(err, os.ErrNotExist) {
		if err := s.saveIndex(); err != nil {
			return nil, err
		}
	}

	s.loadIndex()
	return s, nil
}

// Dir returns the data directory the store was opened on.
func (s *Store) Dir() string {
	return s.dir
}

// Playlists returns the playlists in index order.
func (s *Store) Playlists() []*playlist.Playlist {
	out := make([]*playlist.Playlist, len(s.playlists))
	copy(out, s.playlists)
	return out
}

// Get returns the playlist with the given identity.
func (s *Store) Get(id uuid.UUID) (*playlist.Playlist, bool) {
	p, ok := s.byID[id]
	return p, ok
}

// Len returns the number of registered playlists.
func (s *Store) Len() int {
	return len(s.playlists)
}

// Create registers a new empty playlist and persists both the updated index
// and the playlist file. Name comparison is case-insensitive. The call is
// atomic from the caller's point of view: on any write failure the playlist
// is unregistered again.
func (s *Store) Create(name string) (*playlist.Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	if len(s.playlists) >= MaxPlaylists {
		return nil, ErrLimitReached
	}
	for _, p := range s.playlists {
		if strings.EqualFold(p.Name, name) {
			return nil, ErrDuplicateName
		}
	}

	base := playlist.StorageKey(name)
	filename := base
	for n := 1; s.filenameTaken(filename); n++ {
		filename = strconv.Itoa(n) + "_" + base
	}

	p := playlist.New(name, filename)
	p.Loaded = true
	s.playlists = append(s.playlists, p)
	s.byID[p.ID] = p

	if err := s.saveIndex(); err != nil {
		s.unregister(p.ID)
		return nil, err
	}
	if err := s.savePlaylist(p); err != nil {
		s.unregister(p.ID)
		if ierr := s.saveIndex(); ierr != nil {
			zlog.Error().Err(ierr).Msg("store: failed to rewrite index after create rollback")
		}
		return nil, err
	}

	zlog.Info().Str("name", name).Str("filename", filename).Msg("store: playlist created")
	return p, nil
}

// Delete removes the playlist's backing file (a missing file is not an
// error), unregisters it preserving the order of the rest, and rewrites the
// index. Callers must invalidate any playback target pointing at it.
func (s *Store) Delete(id uuid.UUID) bool {
	p, ok := s.byID[id]
	if !ok {
		return false
	}

	if err := os.Remove(filepath.Join(s.playlistsDir, p.Filename)); err != nil && !errors.Is(err, os.ErrNotExist) {
		zlog.Warn().Err(err).Str("filename", p.Filename).Msg("store: failed to remove playlist file")
	}

	s.unregister(id)

	if err := s.saveIndex(); err != nil {
		zlog.Error().Err(err).Msg("store: failed to rewrite index after delete")
		return false
	}
	return true
}

// Tracks returns the playlist's tracks, loading them from the backing file
// on first access.
func (s *Store) Tracks(id uuid.UUID) ([]track.Track, error) {
	p, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !p.Loaded {
		if err := s.LoadTracks(id); err != nil {
			return nil, err
		}
	}
	return p.Tracks, nil
}

// LoadTracks replaces the playlist's in-memory track list by re-reading its
// file. Missing or malformed files yield an empty list; records without a
// non-empty identifier are skipped. At most MaxTracks records are admitted.
func (s *Store) LoadTracks(id uuid.UUID) error {
	p, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}

	p.Tracks = nil
	p.Loaded = true

	data, err := os.ReadFile(filepath.Join(s.playlistsDir, p.Filename))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			zlog.Warn().Err(err).Str("filename", p.Filename).Msg("store: failed to read playlist file")
		}
		return nil
	}

	doc, err := decodePlaylist(data)
	if err != nil {
		zlog.Warn().Err(err).Str("filename", p.Filename).Msg("store: skipping malformed playlist file")
		return nil
	}

	for _, rec := range doc.Songs {
		if rec.VideoID == "" {
			continue
		}
		p.Tracks = append(p.Tracks, track.New(rec.Title, rec.VideoID))
		if len(p.Tracks) >= MaxTracks {
			break
		}
	}
	return nil
}

// AddTrack appends a track to the playlist and persists the whole file.
// Duplicate identifiers are rejected with ErrDuplicateTrack so retries are
// idempotent; invalid identifiers are rejected outright.
func (s *Store) AddTrack(id uuid.UUID, t track.Track) error {
	p, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	if _, err := s.Tracks(id); err != nil {
		return err
	}
	if p.Len() >= MaxTracks {
		return ErrPlaylistFull
	}

	admit := filter.NewChain(
		&filter.IdentifierFilter{},
		filter.NewDuplicateTrackFilter(p.TrackIDs()),
	)
	if result := admit.Execute(t); !result.Accepted {
		if result.Code == filter.CodeDuplicateTrack {
			return ErrDuplicateTrack
		}
		return errors.Newf("track rejected: %s", result.Code)
	}

	added := track.New(t.Title, t.ID)
	added.Duration = t.Duration
	p.Tracks = append(p.Tracks, added)

	return s.savePlaylist(p)
}

// RemoveTrack removes the track at the given index, compacts the list, and
// persists the whole file.
func (s *Store) RemoveTrack(id uuid.UUID, index int) error {
	p, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	if !p.RemoveAt(index) {
		return ErrInvalidIndex
	}
	return s.savePlaylist(p)
}

func (s *Store) filenameTaken(filename string) bool {
	for _, p := range s.playlists {
		if p.Filename == filename {
			return true
		}
	}
	return false
}

func (s *Store) unregister(id uuid.UUID) {
	delete(s.byID, id)
	for i, p := range s.playlists {
		if p.ID == id {
			s.playlists = append(s.playlists[:i], s.playlists[i+1:]...)
			return
		}
	}
}

// loadIndex reads the index file, tolerating a missing or malformed file.
// Entries without both a name and a filename are skipped; at most
// MaxPlaylists entries are admitted.
func (s *Store) loadIndex() {
	s.playlists = nil
	s.byID = make(map[uuid.UUID]*playlist.Playlist)

	data, err := os.ReadFile(s.indexPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			zlog.Warn().Err(err).Msg("store: failed to read playlist index")
		}
		return
	}

	doc, err := decodeIndex(data)
	if err != nil {
		zlog.Warn().Err(err).Msg("store: skipping malformed playlist index")
		return
	}

	for _, entry := range doc.Playlists {
		if entry.Name == "" || entry.Filename == "" {
			continue
		}
		p := playlist.New(entry.Name, entry.Filename)
		s.playlists = append(s.playlists, p)
		s.byID[p.ID] = p
		if len(s.playlists) >= MaxPlaylists {
			break
		}
	}
}

func (s *Store) saveIndex() error {
	doc := indexDocument{Playlists: make([]indexEntry, 0, len(s.playlists))}
	for _, p := range s.playlists {
		doc.Playlists = append(doc.Playlists, indexEntry{Name: p.Name, Filename: p.Filename})
	}

	data, err := encodeDocument(doc)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.indexPath, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write playlist index")
	}
	return nil
}

func (s *Store) savePlaylist(p *playlist.Playlist) error {
	doc := playlistDocument{Name: p.Name, Songs: make([]songRecord, 0, p.Len())}
	for _, t := range p.Tracks {
		doc.Songs = append(doc.Songs, songRecord{Title: t.Title, VideoID: t.ID})
	}

	data, err := encodeDocument(doc)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(s.playlistsDir, p.Filename), data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write playlist file %s", p.Filename)
	}
	return nil
}
