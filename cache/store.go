package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

var errNoClient = errors.New("Redis client not initialized")

// getJSON loads key into dst. A missing key reports found=false with a nil error.
func getJSON(ctx context.Context, client redis.UniversalClient, key string, dst interface{}) (bool, error) {
	if client == nil {
		return false, errNoClient
	}
	return getJSONFrom(client.Get(ctx, key), dst)
}

// getJSONFrom decodes the reply of a string command such as GET or LINDEX.
func getJSONFrom(cmd *redis.StringCmd, dst interface{}) (bool, error) {
	data, err := cmd.Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("failed to decode %v: %w", cmd.Args(), err)
	}
	return true, nil
}

func setJSON(ctx context.Context, client redis.UniversalClient, key string, v interface{}, ttl time.Duration) error {
	if client == nil {
		return errNoClient
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return client.Set(ctx, key, data, ttl).Err()
}

// getString returns the value of key, or found=false if it does not exist.
func getString(ctx context.Context, client redis.UniversalClient, key string) (string, bool, error) {
	if client == nil {
		return "", false, errNoClient
	}
	val, err := client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return val, true, nil
}
