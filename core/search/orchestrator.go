package search

import (
	"context"
	"fmt"
	"time"

	"github.com/zorins376-hub/music-bot/core/provider"
	"github.com/zorins376-hub/music-bot/logger"
	"github.com/zorins376-hub/music-bot/metrics"
	"github.com/zorins376-hub/music-bot/model"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// QueryCache memoizes stage results per (provider, query).
type QueryCache interface {
	Get(ctx context.Context, provider model.Source, query string) ([]model.Candidate, bool, error)
	Set(ctx context.Context, provider model.Source, query string, results []model.Candidate) error
}

// Stage is one step of the cascade. Cached stages go through the query cache.
type Stage struct {
	Searcher provider.Searcher
	Cached   bool
}

// Options tune the orchestrator.
type Options struct {
	MaxDuration int           // seconds; longer or non-positive candidates are dropped
	Timeout     time.Duration // per provider call
	// FetchLimit is how many candidates every provider is asked for. Results
	// are cut to the caller's limit afterwards, so a cached list is never
	// shorter than any limit up to FetchLimit.
	FetchLimit int
}

// Orchestrator runs the stages in order and stops at the first stage that
// yields a playable candidate. Stages never run in parallel.
type Orchestrator struct {
	stages []Stage
	cache  QueryCache
	opts   Options
	tracer trace.Tracer
}

func NewOrchestrator(cache QueryCache, opts Options, stages ...Stage) *Orchestrator {
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	return &Orchestrator{
		stages: stages,
		cache:  cache,
		opts:   opts,
		tracer: otel.Tracer("music-bot/search"),
	}
}

// Search never fails; it returns nil when every stage came back empty.
func (o *Orchestrator) Search(ctx context.Context, query string, maxResults int) []model.Candidate {
	if maxResults <= 0 || model.NormalizeQuery(query) == "" {
		return nil
	}

	ctx, span := o.tracer.Start(ctx, "search.cascade", trace.WithAttributes(attribute.Int("max_results", maxResults)))
	defer span.End()

	for _, stage := range o.stages {
		if ctx.Err() != nil {
			break
		}
		results := o.runStage(ctx, stage, query, maxResults)
		if len(results) > 0 {
			src := stage.Searcher.Source()
			span.SetAttributes(attribute.String("source", string(src)), attribute.Int("results", len(results)))
			metrics.SearchesTotal.WithLabelValues(string(src)).Inc()
			return results
		}
	}

	metrics.SearchesTotal.WithLabelValues("none").Inc()
	return nil
}

func (o *Orchestrator) runStage(ctx context.Context, stage Stage, query string, limit int) []model.Candidate {
	src := stage.Searcher.Source()
	useCache := stage.Cached && o.cache != nil

	if useCache {
		cached, ok, err := o.cache.Get(ctx, src, query)
		switch {
		case err != nil:
			logger.Warn("[Search] query cache read failed", logger.String("provider", string(src)), logger.ErrorField(err))
		case ok:
			metrics.QueryCacheHitsTotal.Inc()
			return truncate(cached, limit)
		default:
			metrics.QueryCacheMissesTotal.Inc()
		}
	}

	fetch := limit
	if o.opts.FetchLimit > fetch {
		fetch = o.opts.FetchLimit
	}
	results, err := o.call(ctx, stage.Searcher, query, fetch)
	if err != nil {
		logger.Warn("[Search] provider failed",
			logger.String("provider", string(src)),
			logger.String("query", query),
			logger.ErrorField(err))
		return nil
	}

	if useCache {
		if err := o.cache.Set(ctx, src, query, results); err != nil {
			logger.Warn("[Search] query cache write failed", logger.String("provider", string(src)), logger.ErrorField(err))
		}
	}
	return truncate(results, limit)
}

type callResult struct {
	results []model.Candidate
	err     error
}

// call runs one provider search under the stage timeout. A provider that
// ignores its context is abandoned when the timeout fires.
func (o *Orchestrator) call(ctx context.Context, s provider.Searcher, query string, limit int) ([]model.Candidate, error) {
	src := string(s.Source())
	ctx, span := o.tracer.Start(ctx, "search.provider", trace.WithAttributes(attribute.String("provider", src)))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, o.opts.Timeout)
	defer cancel()

	start := time.Now()
	done := make(chan callResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- callResult{err: fmt.Errorf("provider %s panicked: %v", src, r)}
			}
		}()
		res, err := s.Search(ctx, query, limit)
		done <- callResult{results: res, err: err}
	}()

	var res callResult
	select {
	case res = <-done:
	case <-ctx.Done():
		res = callResult{err: fmt.Errorf("provider %s: %w", src, ctx.Err())}
	}
	metrics.ProviderRequestDuration.WithLabelValues(src).Observe(time.Since(start).Seconds())

	if res.err != nil {
		span.RecordError(res.err)
		metrics.ProviderRequestsTotal.WithLabelValues(src, "error").Inc()
		return nil, res.err
	}

	playable := o.filter(res.results)
	status := "ok"
	if len(playable) == 0 {
		status = "empty"
	}
	metrics.ProviderRequestsTotal.WithLabelValues(src, status).Inc()
	return playable, nil
}

// filter drops candidates with a non-positive or over-limit duration.
func (o *Orchestrator) filter(in []model.Candidate) []model.Candidate {
	out := make([]model.Candidate, 0, len(in))
	for _, c := range in {
		if !c.Playable(o.opts.MaxDuration) {
			continue
		}
		if c.DurationFormatted == "" {
			c.DurationFormatted = model.FormatDuration(c.DurationSeconds)
		}
		out = append(out, c)
	}
	return out
}

func truncate(in []model.Candidate, limit int) []model.Candidate {
	if len(in) > limit {
		return in[:limit]
	}
	return in
}
