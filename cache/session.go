package cache

import (
	"context"
	"strings"
	"time"

	"github.com/zorins376-hub/music-bot/logger"
	"github.com/zorins376-hub/music-bot/model"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionStore keeps the result list shown to a user so that a later
// "pick #n" callback can be resolved without searching again.
type SessionStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewSessionStore(client redis.UniversalClient, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

// NewSessionID returns a UUIDv4 (122 random bits) rendered as 32 hex characters.
func NewSessionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Store saves results and returns the session id.
func (s *SessionStore) Store(ctx context.Context, results []model.Candidate) (string, error) {
	sid := NewSessionID()
	if err := setJSON(ctx, s.client, SessionKey(sid), results, s.ttl); err != nil {
		return "", err
	}
	return sid, nil
}

// Resolve returns the candidate at index. It returns false when the session is
// gone, the index is out of range, or the store cannot be read.
func (s *SessionStore) Resolve(ctx context.Context, sid string, index int) (model.Candidate, bool) {
	results, ok := s.Results(ctx, sid)
	if !ok || index < 0 || index >= len(results) {
		return model.Candidate{}, false
	}
	return results[index], true
}

// Results returns the whole list of a live session.
func (s *SessionStore) Results(ctx context.Context, sid string) ([]model.Candidate, bool) {
	if sid == "" {
		return nil, false
	}
	var results []model.Candidate
	ok, err := getJSON(ctx, s.client, SessionKey(sid), &results)
	if err != nil {
		logger.Warn("[SessionStore] read failed", logger.String("sid", sid), logger.ErrorField(err))
		return nil, false
	}
	return results, ok
}
