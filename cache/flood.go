package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// FloodGuard drops bursts of updates from the same user.
type FloodGuard struct {
	client redis.UniversalClient
	window time.Duration
}

func NewFloodGuard(client redis.UniversalClient, window time.Duration) *FloodGuard {
	return &FloodGuard{client: client, window: window}
}

// Allow reports whether this is the first update of the user inside the window.
func (g *FloodGuard) Allow(ctx context.Context, userID int64) (bool, error) {
	if g.client == nil {
		return false, errNoClient
	}
	return g.client.SetNX(ctx, fmt.Sprintf(floodKey, userID), 1, g.window).Result()
}
