package cache

import (
	"fmt"

	"github.com/zorins376-hub/music-bot/model"
)

// Every namespace has its own prefix, so a key built in one can never be read by another.
const (
	queryCacheKey    = "qcache:%s:%s"       // String: JSON []Candidate per (provider, normalized query)
	deliveryCacheKey = "fid:%s:%d"          // String: platform file handle per (external id, bitrate)
	sessionKey       = "search:%s"          // String: JSON []Candidate shown to one user
	cooldownKey      = "cd:%d"              // String: cooldown marker
	hourlyLimitKey   = "limit:%d"           // String: hourly request counter
	floodKey         = "flood:%d"           // String: anti-flood marker
	settingKey       = "bot:setting:%s"     // String: runtime bot setting
	forwardModeKey   = "admin:forward:%d"   // String: channel label an admin is importing into
	radioQueueKey    = "radio:queue:%s"     // List: JSON RadioEntry
	chartKey         = "chart:%s"           // List: JSON ChartEntry per chart source
)

// QueryKey returns the query-cache key for a provider and a raw query.
func QueryKey(provider model.Source, query string) string {
	return fmt.Sprintf(queryCacheKey, provider, model.NormalizeQuery(query))
}

// DeliveryKey returns the delivery-cache key for a track at a bitrate.
func DeliveryKey(externalID string, bitrate int) string {
	return fmt.Sprintf(deliveryCacheKey, externalID, bitrate)
}

// SessionKey returns the key of a search session.
func SessionKey(sid string) string {
	return fmt.Sprintf(sessionKey, sid)
}
