package yandex

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/zorins376-hub/music-bot/core/httpclient"
	"github.com/zorins376-hub/music-bot/core/provider"
)

const defaultBaseURL = "https://api.music.yandex.net"

// Client talks to the catalog API using tokens from a TokenPool.
type Client struct {
	baseURL    string
	fileScheme string
	http       *httpclient.Client
	tokens     *TokenPool
}

func NewClient(tokens *TokenPool) *Client {
	return &Client{
		baseURL:    defaultBaseURL,
		fileScheme: "https",
		http:       httpclient.New(httpclient.Options{Timeout: 20 * time.Second, RPS: 5, Burst: 2}),
		tokens:     tokens,
	}
}

// SetBaseURL points the client at another API host.
func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

// SetTimeout sets the per-request timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.http.SetTimeout(timeout)
}

// authorized runs fn with each usable token until one is not refused.
func (c *Client) authorized(ctx context.Context, fn func(header http.Header) error) error {
	attempts := c.tokens.Len()
	if attempts == 0 {
		return provider.ErrNotConfigured
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		token, ok := c.tokens.Next()
		if !ok {
			break
		}
		header := http.Header{}
		header.Set("Authorization", "OAuth "+token)
		err := fn(header)
		var se *httpclient.StatusError
		if errors.As(err, &se) && (se.Code == http.StatusUnauthorized || se.Code == http.StatusForbidden) {
			c.tokens.Disable(token)
			lastErr = err
			continue
		}
		return err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("all tokens disabled: %w", provider.ErrNotConfigured)
	}
	return lastErr
}
