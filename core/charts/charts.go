package charts

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode"

	"github.com/zorins376-hub/music-bot/core/worker"
	"github.com/zorins376-hub/music-bot/logger"
	"github.com/zorins376-hub/music-bot/metrics"
	"github.com/zorins376-hub/music-bot/model"

	"golang.org/x/sync/singleflight"
)

var (
	ErrUnknownChart = errors.New("unknown chart")
	ErrUnavailable  = errors.New("chart unavailable")
)

// Fetcher loads one chart from an upstream, best position first.
type Fetcher interface {
	Fetch(ctx context.Context) ([]model.ChartEntry, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context) ([]model.ChartEntry, error)

func (f FetcherFunc) Fetch(ctx context.Context) ([]model.ChartEntry, error) {
	return f(ctx)
}

// Chain tries its fetchers in order and returns the first non-empty chart.
type Chain []Fetcher

func (c Chain) Fetch(ctx context.Context) ([]model.ChartEntry, error) {
	var lastErr error
	for i, f := range c {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entries, err := f.Fetch(ctx)
		if err != nil {
			logger.Warn("[Charts] upstream failed", logger.Int("fallback", i), logger.ErrorField(err))
			lastErr = err
			continue
		}
		if len(entries) > 0 {
			return entries, nil
		}
	}
	return nil, lastErr
}

// Cyrillic keeps entries whose artist or title has a Cyrillic letter.
func Cyrillic(f Fetcher) Fetcher {
	return FetcherFunc(func(ctx context.Context) ([]model.ChartEntry, error) {
		entries, err := f.Fetch(ctx)
		if err != nil {
			return nil, err
		}
		out := entries[:0:0]
		for _, e := range entries {
			if hasCyrillic(e.Artist) || hasCyrillic(e.Title) {
				out = append(out, e)
			}
		}
		return out, nil
	})
}

// Limit cuts the chart of f to n entries.
func Limit(f Fetcher, n int) Fetcher {
	return FetcherFunc(func(ctx context.Context) ([]model.ChartEntry, error) {
		entries, err := f.Fetch(ctx)
		if len(entries) > n {
			entries = entries[:n]
		}
		return entries, err
	})
}

func hasCyrillic(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Cyrillic, r) {
			return true
		}
	}
	return false
}

// Chart is a chart offered to users.
type Chart struct {
	Key     string
	Label   string
	Fetcher Fetcher
}

// Store keeps fetched charts.
type Store interface {
	Replace(ctx context.Context, chart string, entries []model.ChartEntry) error
	Range(ctx context.Context, chart string, start, stop int64) ([]model.ChartEntry, error)
	Entry(ctx context.Context, chart string, index int64) (model.ChartEntry, bool, error)
	Len(ctx context.Context, chart string) (int64, error)
}

// Page is one screen of a chart.
type Page struct {
	Chart   Chart
	Number  int // 0-based
	Pages   int
	Offset  int // chart position of Entries[0], 0-based
	Entries []model.ChartEntry
}

// Options tune a Service.
type Options struct {
	PerPage      int
	FetchTimeout time.Duration
}

// Service serves chart pages from the store and refreshes expired charts on
// the background pool. Concurrent refreshes of one chart share a fetch.
type Service struct {
	charts []Chart
	store  Store
	pool   *worker.Pool
	opts   Options
	group  singleflight.Group
}

func NewService(store Store, pool *worker.Pool, opts Options, charts ...Chart) *Service {
	if opts.PerPage <= 0 {
		opts.PerPage = 5
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = time.Minute
	}
	return &Service{charts: charts, store: store, pool: pool, opts: opts}
}

// Charts returns the offered charts in menu order.
func (s *Service) Charts() []Chart {
	return s.charts
}

func (s *Service) Lookup(key string) (Chart, bool) {
	for _, c := range s.charts {
		if c.Key == key {
			return c, true
		}
	}
	return Chart{}, false
}

// Page returns page n of a chart, fetching the chart when none is stored.
// n is clamped to the existing pages.
func (s *Service) Page(ctx context.Context, key string, n int) (Page, error) {
	chart, ok := s.Lookup(key)
	if !ok {
		return Page{}, ErrUnknownChart
	}
	total, err := s.store.Len(ctx, key)
	if err != nil {
		return Page{}, fmt.Errorf("failed to read chart %s: %w", key, err)
	}
	if total == 0 {
		if total, err = s.refresh(ctx, chart); err != nil {
			return Page{}, err
		}
	}

	per := s.opts.PerPage
	pages := (int(total) + per - 1) / per
	n = max(0, min(n, pages-1))
	offset := n * per
	entries, err := s.store.Range(ctx, key, int64(offset), int64(offset+per-1))
	if err != nil {
		return Page{}, fmt.Errorf("failed to read chart %s: %w", key, err)
	}
	return Page{Chart: chart, Number: n, Pages: pages, Offset: offset, Entries: entries}, nil
}

// Entry returns a stored chart position. ok is false once the chart expired.
func (s *Service) Entry(ctx context.Context, key string, index int) (model.ChartEntry, bool, error) {
	if _, known := s.Lookup(key); !known {
		return model.ChartEntry{}, false, ErrUnknownChart
	}
	return s.store.Entry(ctx, key, int64(index))
}

// refresh fetches and stores a chart. It returns the stored length.
func (s *Service) refresh(ctx context.Context, chart Chart) (int64, error) {
	v, err, _ := s.group.Do(chart.Key, func() (interface{}, error) {
		var entries []model.ChartEntry
		err := s.pool.Do(ctx, func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, s.opts.FetchTimeout)
			defer cancel()
			var err error
			entries, err = chart.Fetcher.Fetch(ctx)
			return err
		})
		if err != nil {
			metrics.ChartRefreshesTotal.WithLabelValues(chart.Key, "error").Inc()
			logger.Warn("[Charts] chart fetch failed", logger.String("chart", chart.Key), logger.ErrorField(err))
			return int64(0), ErrUnavailable
		}
		if len(entries) == 0 {
			metrics.ChartRefreshesTotal.WithLabelValues(chart.Key, "empty").Inc()
			return int64(0), ErrUnavailable
		}
		if err := s.store.Replace(ctx, chart.Key, entries); err != nil {
			return int64(0), fmt.Errorf("failed to store chart %s: %w", chart.Key, err)
		}
		metrics.ChartRefreshesTotal.WithLabelValues(chart.Key, "ok").Inc()
		logger.Info("[Charts] chart refreshed", logger.String("chart", chart.Key), logger.Int("entries", len(entries)))
		return int64(len(entries)), nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}
