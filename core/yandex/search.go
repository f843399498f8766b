package yandex

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/zorins376-hub/music-bot/model"
)

// flexID accepts ids encoded either as numbers or as strings.
type flexID int64

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	// ugc tracks use ids like "123:456"
	if i := bytes.IndexByte(b, ':'); i >= 0 {
		b = b[:i]
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("bad id %q: %w", b, err)
	}
	*f = flexID(n)
	return nil
}

type apiTrack struct {
	ID         flexID `json:"id"`
	Title      string `json:"title"`
	DurationMs int    `json:"durationMs"`
	Available  *bool  `json:"available"`
	Artists    []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Albums []struct {
		Year int `json:"year"`
	} `json:"albums"`
}

type searchResponse struct {
	Result struct {
		Tracks struct {
			Results []apiTrack `json:"results"`
		} `json:"tracks"`
	} `json:"result"`
}

// SearchTracks queries the catalog and converts hits to candidates.
func (c *Client) SearchTracks(ctx context.Context, query string, limit int) ([]model.Candidate, error) {
	params := url.Values{}
	params.Set("text", query)
	params.Set("type", "track")
	params.Set("page", "0")
	params.Set("nocorrect", "false")
	endpoint := fmt.Sprintf("%s/search?%s", c.baseURL, params.Encode())

	var resp searchResponse
	err := c.authorized(ctx, func(header http.Header) error {
		return c.http.GetJSON(ctx, endpoint, header, &resp)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search catalog: %w", err)
	}

	out := make([]model.Candidate, 0, limit)
	for _, t := range resp.Result.Tracks.Results {
		if len(out) >= limit {
			break
		}
		if t.ID == 0 || (t.Available != nil && !*t.Available) {
			continue
		}
		out = append(out, t.candidate())
	}
	return out, nil
}

func (t apiTrack) candidate() model.Candidate {
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}
	year := 0
	if len(t.Albums) > 0 {
		year = t.Albums[0].Year
	}
	secs := t.DurationMs / 1000
	return model.Candidate{
		ExternalID:        fmt.Sprintf("ym_%d", t.ID),
		Title:             t.Title,
		Artist:            strings.Join(names, ", "),
		DurationSeconds:   secs,
		DurationFormatted: model.FormatDuration(secs),
		Source:            model.SourcePaid,
		ReleaseYear:       year,
		Locator:           model.CatalogRef{TrackID: int64(t.ID)},
	}
}
