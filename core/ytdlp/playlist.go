package ytdlp

import (
	"context"
	"fmt"
	"strings"

	"github.com/zorins376-hub/music-bot/model"

	"github.com/goccy/go-json"
)

// playlistMaxDuration drops compilations and mixes from chart playlists.
const playlistMaxDuration = 480

var titleSeparators = []string{" — ", " – ", " - "}

// Playlist reads a video playlist as an ordered list of chart entries.
type Playlist struct {
	url string
	run runner
}

func NewPlaylist(opts Options, url string) *Playlist {
	return &Playlist{url: url, run: execRunner{cookiesFile: opts.CookiesFile}}
}

func (p *Playlist) Fetch(ctx context.Context) ([]model.ChartEntry, error) {
	out, err := p.run.Search(ctx, p.url)
	if err != nil {
		return nil, err
	}
	var pl flatPlaylist
	if err := json.Unmarshal(out, &pl); err != nil {
		return nil, fmt.Errorf("failed to parse playlist %s: %w", p.url, err)
	}

	entries := make([]model.ChartEntry, 0, len(pl.Entries))
	for _, e := range pl.Entries {
		if e == nil || strings.TrimSpace(e.Title) == "" || e.Duration > playlistMaxDuration {
			continue
		}
		entries = append(entries, splitTitle(e))
	}
	return entries, nil
}

// splitTitle reads "Artist - Title" video titles. Other titles are credited
// to the uploader.
func splitTitle(e *flatEntry) model.ChartEntry {
	for _, sep := range titleSeparators {
		if artist, title, ok := strings.Cut(e.Title, sep); ok {
			return model.ChartEntry{Artist: strings.TrimSpace(artist), Title: strings.TrimSpace(title)}
		}
	}
	return model.ChartEntry{Artist: firstNonEmpty(e.Uploader, e.Channel), Title: strings.TrimSpace(e.Title)}
}
