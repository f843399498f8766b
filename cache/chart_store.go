package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/zorins376-hub/music-bot/model"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// ChartStore keeps fetched charts as lists so that a page or a single entry
// can be read without decoding the whole chart.
type ChartStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewChartStore(client redis.UniversalClient, ttl time.Duration) *ChartStore {
	return &ChartStore{client: client, ttl: ttl}
}

// Replace swaps the stored chart for entries in one transaction.
func (s *ChartStore) Replace(ctx context.Context, chart string, entries []model.ChartEntry) error {
	if s.client == nil {
		return errNoClient
	}
	values := make([]interface{}, 0, len(entries))
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to encode chart entry: %w", err)
		}
		values = append(values, data)
	}

	key := fmt.Sprintf(chartKey, chart)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(values) > 0 {
			pipe.RPush(ctx, key, values...)
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	return err
}

// Range returns entries start..stop inclusive, as LRANGE does.
func (s *ChartStore) Range(ctx context.Context, chart string, start, stop int64) ([]model.ChartEntry, error) {
	if s.client == nil {
		return nil, errNoClient
	}
	raw, err := s.client.LRange(ctx, fmt.Sprintf(chartKey, chart), start, stop).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]model.ChartEntry, 0, len(raw))
	for _, item := range raw {
		var e model.ChartEntry
		if err := json.Unmarshal([]byte(item), &e); err == nil {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// Entry returns the entry at index, or found=false when the chart expired or
// the index is out of range.
func (s *ChartStore) Entry(ctx context.Context, chart string, index int64) (model.ChartEntry, bool, error) {
	if s.client == nil {
		return model.ChartEntry{}, false, errNoClient
	}
	if index < 0 {
		return model.ChartEntry{}, false, nil
	}
	var e model.ChartEntry
	ok, err := getJSONFrom(s.client.LIndex(ctx, fmt.Sprintf(chartKey, chart), index), &e)
	return e, ok, err
}

func (s *ChartStore) Len(ctx context.Context, chart string) (int64, error) {
	if s.client == nil {
		return 0, errNoClient
	}
	return s.client.LLen(ctx, fmt.Sprintf(chartKey, chart)).Result()
}
