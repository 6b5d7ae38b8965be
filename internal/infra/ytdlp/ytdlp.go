// Package ytdlp searches for tracks through the yt-dlp command line tool.
package ytdlp

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/tunebeats/tunebeats/internal/app/filter"
	"github.com/tunebeats/tunebeats/internal/domain/track"
)

// fieldSeparator splits the title from the identifier in yt-dlp's
// per-entry output. Three characters keep it out of ordinary titles.
const fieldSeparator = "|||"

// Client runs yt-dlp searches as one-shot subprocesses.
type Client struct {
	binary     string
	maxResults int
}

func NewClient(binary string, maxResults int) *Client {
	return &Client{
		binary:     binary,
		maxResults: maxResults,
	}
}

// Search queries for up to maxResults tracks matching query. Metadata
// comes from the flat playlist listing, so no media is downloaded.
func (c *Client) Search(ctx context.Context, query string) ([]track.Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("empty search query")
	}

	cmd := exec.CommandContext(ctx, c.binary,
		"--flat-playlist",
		"--print", "%(title)s"+fieldSeparator+"%(id)s",
		fmt.Sprintf("ytsearch%d:%s", c.maxResults, query),
	)

	out, err := cmd.Output()
	if err != nil {
		if len(out) == 0 {
			return nil, errors.Wrapf(err, "search failed: %s", c.binary)
		}
		// A partial listing is still usable; some entries may have
		// failed to resolve while the rest printed fine.
		zlog.Warn().Err(err).Str("query", query).Msg("search exited with error, using partial output")
	}

	results := c.parseResults(string(out))
	zlog.Debug().Str("query", query).Int("results", len(results)).Msg("search completed")

	return results, nil
}

func (c *Client) parseResults(out string) []track.Track {
	chain := filter.NewChain(&filter.IdentifierFilter{})

	results := make([]track.Track, 0, c.maxResults)
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "ERROR") || strings.HasPrefix(line, "WARNING") {
			continue
		}

		title, id, found := strings.Cut(line, fieldSeparator)
		if !found {
			continue
		}
		id = strings.TrimSpace(id)
		if res := chain.Execute(track.Track{ID: id}); !res.Accepted {
			continue
		}

		title = strings.TrimSpace(title)
		if title == "" {
			title = "(untitled)"
		}

		results = append(results, track.New(title, id))
		if len(results) >= c.maxResults {
			break
		}
	}

	return results
}
