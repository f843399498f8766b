package model

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// Source tags which stage of the search cascade produced a candidate.
type Source string

const (
	SourceLocal       Source = "local"
	SourcePaid        Source = "paid"
	SourceVideo       Source = "video"
	SourceAudioSocial Source = "audio_social"
	SourceSocial      Source = "social"
)

// SourceChannel marks tracks imported from a house channel. It is a Track.Source
// value only; candidates built from such tracks carry SourceLocal.
const SourceChannel = "channel"

// Locator tells the delivery pipeline how a candidate is fetched.
// The set of implementations is closed.
type Locator interface {
	Kind() string
	locator()
}

// LocalRef is a track that can only be delivered by its stored file handle.
type LocalRef struct{}

// CatalogRef is a track in the paid catalog.
type CatalogRef struct {
	TrackID int64
}

// VideoRef is a video on the video platform.
type VideoRef struct {
	VideoID string
}

// AudioSocialRef is a track page on the audio-social platform.
type AudioSocialRef struct {
	URL string
}

// DirectURLRef is an already-resolved mp3 URL. Its content is fixed.
type DirectURLRef struct {
	URL string
}

func (LocalRef) Kind() string       { return "local" }
func (CatalogRef) Kind() string     { return "catalog" }
func (VideoRef) Kind() string       { return "video" }
func (AudioSocialRef) Kind() string { return "audio_social" }
func (DirectURLRef) Kind() string   { return "direct" }

func (LocalRef) locator()       {}
func (CatalogRef) locator()     {}
func (VideoRef) locator()       {}
func (AudioSocialRef) locator() {}
func (DirectURLRef) locator()   {}

// Candidate is a search result that has not been delivered yet.
type Candidate struct {
	ExternalID        string
	Title             string
	Artist            string
	DurationSeconds   int
	DurationFormatted string
	Source            Source
	DeliveryHandle    string
	ReleaseYear       int
	Locator           Locator
}

// Playable reports whether the duration is positive and within maxDuration.
func (c Candidate) Playable(maxDuration int) bool {
	return c.DurationSeconds > 0 && c.DurationSeconds <= maxDuration
}

// Label is the "Artist - Title" line shown to users.
func (c Candidate) Label() string {
	if c.Artist == "" {
		return c.Title
	}
	return c.Artist + " - " + c.Title
}

type candidateWire struct {
	ExternalID  string `json:"id"`
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	Duration    int    `json:"duration"`
	DurationFmt string `json:"duration_fmt"`
	Source      Source `json:"source"`
	FileID      string `json:"file_id,omitempty"`
	Year        int    `json:"year,omitempty"`
	Kind        string `json:"kind"`
	CatalogID   int64  `json:"catalog_id,omitempty"`
	VideoID     string `json:"video_id,omitempty"`
	URL         string `json:"url,omitempty"`
}

func (c Candidate) MarshalJSON() ([]byte, error) {
	w := candidateWire{
		ExternalID:  c.ExternalID,
		Title:       c.Title,
		Artist:      c.Artist,
		Duration:    c.DurationSeconds,
		DurationFmt: c.DurationFormatted,
		Source:      c.Source,
		FileID:      c.DeliveryHandle,
		Year:        c.ReleaseYear,
	}
	switch ref := c.Locator.(type) {
	case nil, LocalRef:
		w.Kind = LocalRef{}.Kind()
	case CatalogRef:
		w.Kind, w.CatalogID = ref.Kind(), ref.TrackID
	case VideoRef:
		w.Kind, w.VideoID = ref.Kind(), ref.VideoID
	case AudioSocialRef:
		w.Kind, w.URL = ref.Kind(), ref.URL
	case DirectURLRef:
		w.Kind, w.URL = ref.Kind(), ref.URL
	default:
		return nil, fmt.Errorf("unknown locator %T", ref)
	}
	return json.Marshal(w)
}

func (c *Candidate) UnmarshalJSON(data []byte) error {
	var w candidateWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*c = Candidate{
		ExternalID:        w.ExternalID,
		Title:             w.Title,
		Artist:            w.Artist,
		DurationSeconds:   w.Duration,
		DurationFormatted: w.DurationFmt,
		Source:            w.Source,
		DeliveryHandle:    w.FileID,
		ReleaseYear:       w.Year,
	}
	switch w.Kind {
	case "local":
		c.Locator = LocalRef{}
	case "catalog":
		c.Locator = CatalogRef{TrackID: w.CatalogID}
	case "video":
		c.Locator = VideoRef{VideoID: w.VideoID}
	case "audio_social":
		c.Locator = AudioSocialRef{URL: w.URL}
	case "direct":
		c.Locator = DirectURLRef{URL: w.URL}
	default:
		return fmt.Errorf("unknown locator kind %q", w.Kind)
	}
	return nil
}

// FormatDuration renders seconds as m:ss, or h:mm:ss from one hour up.
func FormatDuration(seconds int) string {
	if seconds <= 0 {
		return "0:00"
	}
	h, m, s := seconds/3600, (seconds%3600)/60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// NormalizeQuery lowercases and trims a free-text query.
func NormalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}
