package yandex

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/zorins376-hub/music-bot/model"
)

const (
	chartMaxEntries  = 50
	chartMaxDuration = 480 // seconds; longer items are mixes
)

type chartResponse struct {
	Result struct {
		Chart struct {
			Tracks []struct {
				Track *apiTrack `json:"track"`
			} `json:"tracks"`
		} `json:"chart"`
	} `json:"result"`
}

// Chart returns the official chart with the given id, for example "russia".
// The endpoint is public, so it works with an empty token pool as well.
func (c *Client) Chart(ctx context.Context, id string) ([]model.ChartEntry, error) {
	endpoint := fmt.Sprintf("%s/landing3/chart/%s", c.baseURL, url.PathEscape(id))

	var resp chartResponse
	fetch := func(header http.Header) error {
		return c.http.GetJSON(ctx, endpoint, header, &resp)
	}
	var err error
	if c.tokens.Len() == 0 {
		err = fetch(http.Header{})
	} else {
		err = c.authorized(ctx, fetch)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load chart %s: %w", id, err)
	}

	out := make([]model.ChartEntry, 0, chartMaxEntries)
	for _, item := range resp.Result.Chart.Tracks {
		if len(out) >= chartMaxEntries {
			break
		}
		t := item.Track
		if t == nil || t.Title == "" || t.DurationMs > chartMaxDuration*1000 {
			continue
		}
		artist := "Unknown"
		if len(t.Artists) > 0 {
			artist = t.Artists[0].Name
		}
		out = append(out, model.ChartEntry{Artist: artist, Title: t.Title})
	}
	return out, nil
}
