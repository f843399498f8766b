package vk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/zorins376-hub/music-bot/core/httpclient"
	"github.com/zorins376-hub/music-bot/logger"
	"github.com/zorins376-hub/music-bot/model"
)

const (
	defaultBaseURL = "https://api.vk.com/method"
	apiVersion     = "5.131"
	userAgent      = "VKAndroidApp/7.48-16291 (Android 11; SDK 30; x86_64; unknown Android SDK built for x86_64; ru; 1080x1920)"
	maxCount       = 100
)

// Provider is the social-platform fallback stage.
type Provider struct {
	baseURL     string
	token       string
	maxDuration int
	api         *httpclient.Client
	files       *httpclient.Client
}

func NewProvider(token string, maxDuration int) *Provider {
	return &Provider{
		baseURL:     defaultBaseURL,
		token:       token,
		maxDuration: maxDuration,
		api:         httpclient.New(httpclient.Options{Timeout: 15 * time.Second, RPS: 3, UserAgent: userAgent}),
		files:       httpclient.New(httpclient.Options{Timeout: 90 * time.Second, RPS: 10, Burst: 5, UserAgent: userAgent}),
	}
}

// SetBaseURL points the provider at another API host.
func (p *Provider) SetBaseURL(u string) {
	p.baseURL = u
}

func (p *Provider) Source() model.Source {
	return model.SourceSocial
}

type audioItem struct {
	ID       int64  `json:"id"`
	OwnerID  int64  `json:"owner_id"`
	Artist   string `json:"artist"`
	Title    string `json:"title"`
	Duration int    `json:"duration"`
	URL      string `json:"url"`
}

type searchResponse struct {
	Response struct {
		Items []audioItem `json:"items"`
	} `json:"response"`
	Error *struct {
		Code int    `json:"error_code"`
		Msg  string `json:"error_msg"`
	} `json:"error"`
}

// Search returns nothing, without an error, when no token is configured.
func (p *Provider) Search(ctx context.Context, query string, limit int) ([]model.Candidate, error) {
	if p.token == "" || limit <= 0 {
		return nil, nil
	}
	count := limit + 10
	if count > maxCount {
		count = maxCount
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("count", strconv.Itoa(count))
	params.Set("access_token", p.token)
	params.Set("v", apiVersion)

	var resp searchResponse
	if err := p.api.GetJSON(ctx, p.baseURL+"/audio.search?"+params.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to search audio: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("audio.search error %d: %s", resp.Error.Code, resp.Error.Msg)
	}

	out := make([]model.Candidate, 0, limit)
	for _, it := range resp.Response.Items {
		artist, title := strings.TrimSpace(it.Artist), strings.TrimSpace(it.Title)
		if it.URL == "" || artist == "" || title == "" {
			continue
		}
		if it.Duration <= 0 || (p.maxDuration > 0 && it.Duration > p.maxDuration) {
			continue
		}
		out = append(out, model.Candidate{
			ExternalID:        fmt.Sprintf("vk_%d_%d", it.OwnerID, it.ID),
			Title:             title,
			Artist:            artist,
			DurationSeconds:   it.Duration,
			DurationFormatted: model.FormatDuration(it.Duration),
			Source:            model.SourceSocial,
			Locator:           model.DirectURLRef{URL: it.URL},
		})
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Fetch downloads the direct mp3. The bitrate is fixed by the platform.
func (p *Provider) Fetch(ctx context.Context, c model.Candidate, bitrate int, dir string) (string, error) {
	ref, ok := c.Locator.(model.DirectURLRef)
	if !ok {
		return "", fmt.Errorf("social fetch needs a direct url, got %T", c.Locator)
	}
	dst := filepath.Join(dir, c.ExternalID+".mp3")
	n, err := p.files.Download(ctx, ref.URL, dst, http.Header{"User-Agent": []string{userAgent}})
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", c.ExternalID, err)
	}
	logger.Debug("[VK] downloaded", logger.String("id", c.ExternalID), logger.Int64("bytes", n))
	return dst, nil
}
