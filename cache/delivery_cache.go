package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// DeliveryCache maps (external id, bitrate) to the platform file handle
// produced by an earlier upload. A handle is only ever returned for the
// bitrate it was stored under.
type DeliveryCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewDeliveryCache(client redis.UniversalClient, ttl time.Duration) *DeliveryCache {
	return &DeliveryCache{client: client, ttl: ttl}
}

func (c *DeliveryCache) Get(ctx context.Context, externalID string, bitrate int) (string, bool, error) {
	return getString(ctx, c.client, DeliveryKey(externalID, bitrate))
}

func (c *DeliveryCache) Set(ctx context.Context, externalID string, bitrate int, handle string) error {
	if c.client == nil {
		return errNoClient
	}
	return c.client.Set(ctx, DeliveryKey(externalID, bitrate), handle, c.ttl).Err()
}
