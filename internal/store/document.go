package store

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// On-disk document schemas. Both documents are whole-file JSON; every
// mutation rewrites the complete file. The playable URL is never persisted,
// it is derived from the identifier on load.

// indexDocument is the playlist index: the single source of truth for which
// playlists exist and in what order.
type indexDocument struct {
	Playlists []indexEntry `json:"playlists"`
}

type indexEntry struct {
	Name     string `json:"name"`
	Filename string `json:"filename"`
}

// playlistDocument is one playlist's backing file.
type playlistDocument struct {
	Name  string       `json:"name"`
	Songs []songRecord `json:"songs"`
}

type songRecord struct {
	Title   string `json:"title"`
	VideoID string `json:"video_id"`
}

func encodeDocument(doc any) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode document")
	}
	return append(data, '\n'), nil
}

func decodeIndex(data []byte) (indexDocument, error) {
	var doc indexDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return indexDocument{}, errors.Wrap(err, "failed to decode playlist index")
	}
	return doc, nil
}

func decodePlaylist(data []byte) (playlistDocument, error) {
	var doc playlistDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return playlistDocument{}, errors.Wrap(err, "failed to decode playlist file")
	}
	return doc, nil
}
