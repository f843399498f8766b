package cache

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// RadioEntry is one track queued for a channel's radio.
type RadioEntry struct {
	TrackID  int64  `json:"track_id"`
	FileID   string `json:"file_id"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Duration int    `json:"duration"`
	Channel  string `json:"channel"`
}

// RadioQueue is the per-channel list of tracks fed to the radio.
type RadioQueue struct {
	client redis.UniversalClient
}

func NewRadioQueue(client redis.UniversalClient) *RadioQueue {
	return &RadioQueue{client: client}
}

func (q *RadioQueue) Push(ctx context.Context, label string, entry RadioEntry) error {
	if q.client == nil {
		return errNoClient
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode radio entry: %w", err)
	}
	return q.client.RPush(ctx, fmt.Sprintf(radioQueueKey, label), data).Err()
}

// Range returns entries start..stop inclusive, as LRANGE does.
// Entries that fail to decode are skipped.
func (q *RadioQueue) Range(ctx context.Context, label string, start, stop int64) ([]RadioEntry, error) {
	if q.client == nil {
		return nil, errNoClient
	}
	raw, err := q.client.LRange(ctx, fmt.Sprintf(radioQueueKey, label), start, stop).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]RadioEntry, 0, len(raw))
	for _, item := range raw {
		var e RadioEntry
		if err := json.Unmarshal([]byte(item), &e); err == nil {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func (q *RadioQueue) Len(ctx context.Context, label string) (int64, error) {
	if q.client == nil {
		return 0, errNoClient
	}
	return q.client.LLen(ctx, fmt.Sprintf(radioQueueKey, label)).Result()
}
