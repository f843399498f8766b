package ytdlp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zorins376-hub/music-bot/model"

	"github.com/goccy/go-json"
)

const videoWatchURL = "https://www.youtube.com/watch?v="

// Provider searches and fetches through yt-dlp. One instance serves one
// platform: the video platform or the audio-social one.
type Provider struct {
	source model.Source
	prefix string // yt-dlp search prefix
	idTag  string // external id prefix
	run    runner
}

// Options are shared by both platforms.
type Options struct {
	CookiesFile string
}

// NewVideo returns the video platform provider.
func NewVideo(opts Options) *Provider {
	return &Provider{
		source: model.SourceVideo,
		prefix: "ytsearch",
		idTag:  "yt_",
		run:    execRunner{cookiesFile: opts.CookiesFile},
	}
}

// NewAudioSocial returns the audio-social platform provider.
func NewAudioSocial() *Provider {
	return &Provider{
		source: model.SourceAudioSocial,
		prefix: "scsearch",
		idTag:  "sc_",
		run:    execRunner{},
	}
}

func (p *Provider) Source() model.Source {
	return p.source
}

func (p *Provider) Search(ctx context.Context, query string, limit int) ([]model.Candidate, error) {
	query = strings.TrimSpace(query)
	if query == "" || limit <= 0 {
		return nil, nil
	}
	out, err := p.run.Search(ctx, fmt.Sprintf("%s%d:%s", p.prefix, limit, query))
	if err != nil {
		return nil, err
	}
	return p.parse(out, limit)
}

type flatEntry struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Uploader   string  `json:"uploader"`
	Channel    string  `json:"channel"`
	Artist     string  `json:"artist"`
	Duration   float64 `json:"duration"`
	URL        string  `json:"url"`
	WebpageURL string  `json:"webpage_url"`
}

type flatPlaylist struct {
	Entries []*flatEntry `json:"entries"`
}

func (p *Provider) parse(data []byte, limit int) ([]model.Candidate, error) {
	var pl flatPlaylist
	if err := json.Unmarshal(data, &pl); err != nil {
		return nil, fmt.Errorf("failed to parse yt-dlp output: %w", err)
	}
	out := make([]model.Candidate, 0, len(pl.Entries))
	for _, e := range pl.Entries {
		if len(out) >= limit {
			break
		}
		if e == nil || e.ID == "" || strings.TrimSpace(e.Title) == "" {
			continue
		}
		c, ok := p.candidate(e)
		if ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (p *Provider) candidate(e *flatEntry) (model.Candidate, bool) {
	secs := int(e.Duration)
	c := model.Candidate{
		ExternalID:        p.idTag + e.ID,
		Title:             e.Title,
		Artist:            firstNonEmpty(e.Artist, e.Uploader, e.Channel, "Unknown"),
		DurationSeconds:   secs,
		DurationFormatted: model.FormatDuration(secs),
		Source:            p.source,
	}
	switch p.source {
	case model.SourceVideo:
		c.Locator = model.VideoRef{VideoID: e.ID}
	default:
		page := firstNonEmpty(e.WebpageURL, e.URL)
		if page == "" {
			return model.Candidate{}, false
		}
		c.Locator = model.AudioSocialRef{URL: page}
	}
	return c, true
}

// Fetch downloads the candidate as dir/<external id>.mp3.
func (p *Provider) Fetch(ctx context.Context, c model.Candidate, bitrate int, dir string) (string, error) {
	var url string
	switch ref := c.Locator.(type) {
	case model.VideoRef:
		url = videoWatchURL + ref.VideoID
	case model.AudioSocialRef:
		url = ref.URL
	default:
		return "", fmt.Errorf("yt-dlp cannot fetch locator %T", c.Locator)
	}

	base := sanitize(c.ExternalID)
	if err := p.run.Download(ctx, url, bitrate, filepath.Join(dir, base+".%(ext)s")); err != nil {
		return "", err
	}
	path := filepath.Join(dir, base+".mp3")
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("mp3 not found after download of %s: %w", c.ExternalID, err)
	}
	return path, nil
}

func sanitize(id string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '%':
			return '_'
		}
		return r
	}, id)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
