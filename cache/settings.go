package cache

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Runtime settings admins can change without a restart.
const (
	SettingMaxResults     = "max_results"
	SettingDefaultBitrate = "default_bitrate"
)

// Settings stores integer bot settings under bot:setting:<key>.
type Settings struct {
	client   redis.UniversalClient
	defaults map[string]int
}

func NewSettings(client redis.UniversalClient, defaults map[string]int) *Settings {
	return &Settings{client: client, defaults: defaults}
}

// Int returns the stored value, falling back to the default when the key is
// missing, malformed or the store is unreachable.
func (s *Settings) Int(ctx context.Context, key string) int {
	def := s.defaults[key]
	val, ok, err := getString(ctx, s.client, fmt.Sprintf(settingKey, key))
	if err != nil || !ok {
		return def
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return n
}

// Set stores value for a known key.
func (s *Settings) Set(ctx context.Context, key string, value int) error {
	if _, known := s.defaults[key]; !known {
		return fmt.Errorf("unknown setting %q", key)
	}
	if s.client == nil {
		return errNoClient
	}
	return s.client.Set(ctx, fmt.Sprintf(settingKey, key), value, 0).Err()
}
