package charts

import (
	"context"
	"fmt"
	"net/http"

	"github.com/zorins376-hub/music-bot/core/httpclient"
	"github.com/zorins376-hub/music-bot/model"
)

const (
	appleBaseURL    = "https://rss.applemarketingtools.com"
	appleMaxEntries = 50
)

// Apple reads the most-played songs feed of one storefront ("us", "ru", ...).
type Apple struct {
	http       *httpclient.Client
	baseURL    string
	storefront string
}

func NewApple(client *httpclient.Client, storefront string) *Apple {
	return &Apple{http: client, baseURL: appleBaseURL, storefront: storefront}
}

// SetBaseURL points the fetcher at another feed host.
func (a *Apple) SetBaseURL(url string) {
	a.baseURL = url
}

type appleFeed struct {
	Feed struct {
		Results []struct {
			ArtistName string `json:"artistName"`
			Name       string `json:"name"`
		} `json:"results"`
	} `json:"feed"`
}

func (a *Apple) Fetch(ctx context.Context) ([]model.ChartEntry, error) {
	endpoint := fmt.Sprintf("%s/api/v2/%s/music/most-played/100/songs.json", a.baseURL, a.storefront)
	header := http.Header{}
	header.Set("Accept", "application/json")

	var feed appleFeed
	if err := a.http.GetJSON(ctx, endpoint, header, &feed); err != nil {
		return nil, fmt.Errorf("failed to load %s most-played feed: %w", a.storefront, err)
	}

	out := make([]model.ChartEntry, 0, appleMaxEntries)
	for _, r := range feed.Feed.Results {
		if len(out) >= appleMaxEntries {
			break
		}
		out = append(out, model.ChartEntry{Artist: orUnknown(r.ArtistName), Title: orUnknown(r.Name)})
	}
	return out, nil
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
