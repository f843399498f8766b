package yandex

import (
	"context"
	"errors"
	"fmt"

	"github.com/zorins376-hub/music-bot/core/provider"
	"github.com/zorins376-hub/music-bot/model"
)

// Provider exposes the catalog as the paid stage of the cascade.
type Provider struct {
	client *Client
}

func NewProvider(client *Client) *Provider {
	return &Provider{client: client}
}

func (p *Provider) Source() model.Source {
	return model.SourcePaid
}

// Search returns nothing, without an error, when no token is configured.
func (p *Provider) Search(ctx context.Context, query string, limit int) ([]model.Candidate, error) {
	results, err := p.client.SearchTracks(ctx, query, limit)
	if errors.Is(err, provider.ErrNotConfigured) && p.client.tokens.Len() == 0 {
		return nil, nil
	}
	return results, err
}

func (p *Provider) Fetch(ctx context.Context, c model.Candidate, bitrate int, dir string) (string, error) {
	ref, ok := c.Locator.(model.CatalogRef)
	if !ok {
		return "", fmt.Errorf("catalog fetch needs a catalog locator, got %T", c.Locator)
	}
	return p.client.DownloadTrack(ctx, ref.TrackID, bitrate, dir)
}
