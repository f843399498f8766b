package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const forwardModeTTL = 24 * time.Hour

// AdminState keeps per-admin interaction state in Redis so it survives restarts
// and is shared by every bot instance.
type AdminState struct {
	client redis.UniversalClient
}

func NewAdminState(client redis.UniversalClient) *AdminState {
	return &AdminState{client: client}
}

// SetForwardMode makes audio forwarded by the admin land in the channel label.
func (s *AdminState) SetForwardMode(ctx context.Context, adminID int64, label string) error {
	if s.client == nil {
		return errNoClient
	}
	return s.client.Set(ctx, fmt.Sprintf(forwardModeKey, adminID), label, forwardModeTTL).Err()
}

// ForwardMode returns the active label, if any.
func (s *AdminState) ForwardMode(ctx context.Context, adminID int64) (string, bool, error) {
	return getString(ctx, s.client, fmt.Sprintf(forwardModeKey, adminID))
}

func (s *AdminState) ClearForwardMode(ctx context.Context, adminID int64) error {
	if s.client == nil {
		return errNoClient
	}
	return s.client.Del(ctx, fmt.Sprintf(forwardModeKey, adminID)).Err()
}
