package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Tier is the admission policy for one class of users.
type Tier struct {
	HourlyLimit int
	Cooldown    time.Duration
}

// Admission is the outcome of a rate-limit check.
// RetryAfter is the remaining cooldown in seconds, or 0 when the hourly cap is exhausted.
type Admission struct {
	Allowed    bool
	RetryAfter int
}

// KEYS[1] cooldown marker, KEYS[2] hourly counter.
// ARGV[1] hourly limit, ARGV[2] cooldown seconds, ARGV[3] window seconds.
var admitScript = redis.NewScript(`
local ttl = redis.call('TTL', KEYS[1])
if ttl > 0 then
  return {0, ttl}
end
if ttl == -1 then
  return {0, 1}
end
local n = redis.call('INCR', KEYS[2])
if n == 1 or redis.call('TTL', KEYS[2]) == -1 then
  redis.call('EXPIRE', KEYS[2], ARGV[3])
end
if n > tonumber(ARGV[1]) then
  return {0, 0}
end
redis.call('SET', KEYS[1], '1', 'EX', ARGV[2])
return {1, 0}
`)

const rateWindow = time.Hour

// RateLimiter admits user requests with a per-user cooldown and an hourly cap.
// The whole check runs as one Lua script, so concurrent requests of the same
// user cannot both take the same cooldown slot. Administrators are not
// checked here; callers skip Admit for them.
type RateLimiter struct {
	client   redis.UniversalClient
	regular  Tier
	elevated Tier
}

func NewRateLimiter(client redis.UniversalClient, regular, elevated Tier) *RateLimiter {
	return &RateLimiter{client: client, regular: regular, elevated: elevated}
}

func (l *RateLimiter) Admit(ctx context.Context, userID int64, elevated bool) (Admission, error) {
	if l.client == nil {
		return Admission{}, errNoClient
	}
	tier := l.regular
	if elevated {
		tier = l.elevated
	}
	cooldown := int(tier.Cooldown / time.Second)
	if cooldown < 1 {
		cooldown = 1
	}

	keys := []string{fmt.Sprintf(cooldownKey, userID), fmt.Sprintf(hourlyLimitKey, userID)}
	res, err := admitScript.Run(ctx, l.client, keys, tier.HourlyLimit, cooldown, int(rateWindow/time.Second)).Int64Slice()
	if err != nil {
		return Admission{}, fmt.Errorf("failed to run admission script: %w", err)
	}
	if len(res) != 2 {
		return Admission{}, fmt.Errorf("unexpected admission reply %v", res)
	}
	return Admission{Allowed: res[0] == 1, RetryAfter: int(res[1])}, nil
}
