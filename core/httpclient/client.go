package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"
)

const (
	defaultRetryCount = 3
	defaultRetryBase  = 500 * time.Millisecond
)

// Client wraps an http.Client with a request-rate limiter and retries on
// 429/503 and transport errors.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
	retries    int
}

// Options configures a Client. Zero values pick defaults.
type Options struct {
	Timeout   time.Duration
	RPS       float64
	Burst     int
	UserAgent string
	Retries   int
}

func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.RPS <= 0 {
		opts.RPS = 5
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if opts.Retries <= 0 {
		opts.Retries = defaultRetryCount
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     30 * time.Second,
				TLSHandshakeTimeout: 5 * time.Second,
			},
		},
		limiter:   rate.NewLimiter(rate.Limit(opts.RPS), opts.Burst),
		userAgent: opts.UserAgent,
		retries:   opts.Retries,
	}
}

// SetTimeout changes the per-request timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.httpClient.Timeout = timeout
}

// Do sends a body-less request, waiting for the limiter before every attempt.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	var lastErr error
	for attempt := 0; attempt < c.retries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		r := req.Clone(ctx)
		if c.userAgent != "" && r.Header.Get("User-Agent") == "" {
			r.Header.Set("User-Agent", c.userAgent)
		}

		resp, err := c.httpClient.Do(r)
		wait := time.Duration(attempt+1) * defaultRetryBase
		switch {
		case err != nil:
			lastErr = err
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable:
			if ra := parseRetryAfter(resp); ra > wait {
				wait = ra
			}
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("rate limited (status %d)", resp.StatusCode)
		default:
			return resp, nil
		}

		if attempt == c.retries-1 {
			break
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, lastErr
}

// GetJSON issues a GET and decodes a 200 response into dst.
func (c *Client) GetJSON(ctx context.Context, url string, header http.Header, dst interface{}) error {
	body, err := c.get(ctx, url, header)
	if err != nil {
		return err
	}
	defer body.Close()
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		return fmt.Errorf("failed to decode %s: %w", url, err)
	}
	return nil
}

// GetBytes issues a GET and returns the body of a 200 response.
func (c *Client) GetBytes(ctx context.Context, url string, header http.Header) ([]byte, error) {
	body, err := c.get(ctx, url, header)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return io.ReadAll(body)
}

// Download streams url into the file dst and returns the number of bytes written.
func (c *Client) Download(ctx context.Context, url, dst string, header http.Header) (int64, error) {
	body, err := c.get(ctx, url, header)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	out, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", dst, err)
	}
	n, err := io.Copy(out, body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return n, nil
}

func (c *Client) get(ctx context.Context, url string, header http.Header) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		_ = resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode, Body: string(snippet)}
	}
	return resp.Body, nil
}

// StatusError is returned for non-200 responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

func parseRetryAfter(resp *http.Response) time.Duration {
	ra := resp.Header.Get("Retry-After")
	if ra == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(ra); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(ra); err == nil {
		return time.Until(t)
	}
	return 0
}
