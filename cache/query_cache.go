package cache

import (
	"context"
	"time"

	"github.com/zorins376-hub/music-bot/model"

	"github.com/redis/go-redis/v9"
)

// QueryCache memoizes provider search results per (provider, query).
// Empty result lists are stored too, so a query that found nothing is not
// repeated against the provider until the entry expires.
type QueryCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewQueryCache(client redis.UniversalClient, ttl time.Duration) *QueryCache {
	return &QueryCache{client: client, ttl: ttl}
}

// Get returns the cached results. ok is true for a hit, including a cached empty list.
func (c *QueryCache) Get(ctx context.Context, provider model.Source, query string) ([]model.Candidate, bool, error) {
	var results []model.Candidate
	ok, err := getJSON(ctx, c.client, QueryKey(provider, query), &results)
	if err != nil || !ok {
		return nil, false, err
	}
	if results == nil {
		results = []model.Candidate{}
	}
	return results, true, nil
}

func (c *QueryCache) Set(ctx context.Context, provider model.Source, query string, results []model.Candidate) error {
	if results == nil {
		results = []model.Candidate{}
	}
	return setJSON(ctx, c.client, QueryKey(provider, query), results, c.ttl)
}
