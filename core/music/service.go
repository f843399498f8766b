package music

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/zorins376-hub/music-bot/cache"
	"github.com/zorins376-hub/music-bot/config"
	"github.com/zorins376-hub/music-bot/core/delivery"
	"github.com/zorins376-hub/music-bot/logger"
	"github.com/zorins376-hub/music-bot/metrics"
	"github.com/zorins376-hub/music-bot/model"
)

// Status is the user-facing outcome of a request.
type Status string

const (
	StatusOK             Status = "ok"
	StatusNoResults      Status = "no_results"
	StatusRateLimited    Status = "rate_limited"
	StatusHourlyCap      Status = "hourly_cap"
	StatusSessionExpired Status = "session_expired"
	StatusTooLarge       Status = "too_large"
	StatusAgeRestricted  Status = "age_restricted"
	StatusFailed         Status = "failed"
)

// Searcher runs the search cascade.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) []model.Candidate
}

// Admitter is the per-user request limiter.
type Admitter interface {
	Admit(ctx context.Context, userID int64, elevated bool) (cache.Admission, error)
}

// Sessions stores result lists behind unguessable ids.
type Sessions interface {
	Store(ctx context.Context, results []model.Candidate) (string, error)
	Resolve(ctx context.Context, sid string, index int) (model.Candidate, bool)
}

// Deliverer sends a picked candidate.
type Deliverer interface {
	Deliver(ctx context.Context, req delivery.Request) (delivery.Result, error)
}

// LinkResolver turns a shared link into a text query.
type LinkResolver interface {
	Resolve(ctx context.Context, text string) (string, bool, error)
}

// SettingsReader reads runtime-tunable integers.
type SettingsReader interface {
	Int(ctx context.Context, key string) int
}

// HandleCache looks up file handles of delivered tracks per bitrate.
type HandleCache interface {
	Get(ctx context.Context, externalID string, bitrate int) (string, bool, error)
}

// TrackFinder reads the track index. A missing track is (nil, nil).
type TrackFinder interface {
	GetByExternalID(ctx context.Context, externalID string) (*model.Track, error)
}

// Caller is who is asking.
type Caller struct {
	ID      int64
	Admin   bool
	Premium bool
	// Quality is the preferred bitrate; 0 means the bot default.
	Quality int
	Joined  time.Time
}

// SearchOutcome is the answer to a text query.
type SearchOutcome struct {
	Status     Status
	Query      string
	SessionID  string
	Results    []model.Candidate
	RetryAfter int
}

// DeliveryOutcome is the answer to a pick.
type DeliveryOutcome struct {
	Status    Status
	Candidate model.Candidate
	Result    delivery.Result
}

// InlineItem is one answer to an inline query. Handle is empty when the track
// was never delivered.
type InlineItem struct {
	Candidate model.Candidate
	Handle    string
}

// Deps are the collaborators of a Service. Links, Handles and Tracks may be nil.
type Deps struct {
	Admitter  Admitter
	Searcher  Searcher
	Sessions  Sessions
	Deliverer Deliverer
	History   delivery.HistoryRecorder
	Settings  SettingsReader
	Links     LinkResolver
	Handles   HandleCache
	Tracks    TrackFinder
}

const (
	// MaxQueryRunes caps free text before it reaches any provider.
	MaxQueryRunes = 500
	inlineResults = 5
)

// Service composes admission, search, history, sessions and delivery into the
// two operations the chat layer needs.
type Service struct {
	deps Deps
}

func NewService(deps Deps) *Service {
	return &Service{deps: deps}
}

// Search admits the caller, runs the cascade and stores the results in a new
// session. Rate limiting and empty results are statuses, not errors.
func (s *Service) Search(ctx context.Context, caller Caller, text string) (SearchOutcome, error) {
	query := cleanQuery(text)
	if query == "" {
		return SearchOutcome{Status: StatusNoResults}, nil
	}

	if !caller.Admin {
		adm, err := s.deps.Admitter.Admit(ctx, caller.ID, caller.Premium)
		if err != nil {
			// fail open
			logger.Warn("[Music] rate limiter unavailable", logger.Int64("user_id", caller.ID), logger.ErrorField(err))
		} else if !adm.Allowed {
			metrics.RateLimitedTotal.Inc()
			if adm.RetryAfter > 0 {
				return SearchOutcome{Status: StatusRateLimited, Query: query, RetryAfter: adm.RetryAfter}, nil
			}
			return SearchOutcome{Status: StatusHourlyCap, Query: query}, nil
		}
	}

	if s.deps.Links != nil {
		resolved, ok, err := s.deps.Links.Resolve(ctx, query)
		if err != nil {
			logger.Warn("[Music] link resolution failed", logger.String("query", query), logger.ErrorField(err))
		} else if ok {
			query = resolved
		}
	}

	results := s.deps.Searcher.Search(ctx, query, s.deps.Settings.Int(ctx, cache.SettingMaxResults))
	if len(results) == 0 {
		return SearchOutcome{Status: StatusNoResults, Query: query}, nil
	}

	err := s.deps.History.RecordEvent(ctx, model.ListeningHistory{
		UserID: caller.ID,
		Query:  query,
		Action: model.ActionSearch,
		Source: string(results[0].Source),
	})
	if err != nil {
		logger.Warn("[Music] history write failed", logger.Int64("user_id", caller.ID), logger.ErrorField(err))
	}

	sid, err := s.deps.Sessions.Store(ctx, results)
	if err != nil {
		return SearchOutcome{}, err
	}
	return SearchOutcome{Status: StatusOK, Query: query, SessionID: sid, Results: results}, nil
}

// Select delivers result index of session sid to chatID. An expired session
// and an out-of-range index give the same status.
func (s *Service) Select(ctx context.Context, caller Caller, chatID int64, sid string, index int) (DeliveryOutcome, error) {
	c, ok := s.deps.Sessions.Resolve(ctx, sid, index)
	if !ok {
		return DeliveryOutcome{Status: StatusSessionExpired}, nil
	}

	res, err := s.deps.Deliverer.Deliver(ctx, delivery.Request{
		Destination: chatID,
		UserID:      caller.ID,
		Candidate:   c,
		Bitrate:     s.Bitrate(ctx, caller),
	})
	if err == nil {
		return DeliveryOutcome{Status: StatusOK, Candidate: c, Result: res}, nil
	}

	de := delivery.Classify(err)
	logger.Warn("[Music] delivery failed",
		logger.String("external_id", c.ExternalID),
		logger.String("kind", string(de.Kind)),
		logger.ErrorField(de.Err))
	return DeliveryOutcome{Status: statusFor(de.Kind), Candidate: c}, nil
}

// Inline answers an inline query with up to five candidates. It skips
// admission and sessions; each item carries a stored handle when one exists at
// the caller's bitrate or in the track index.
func (s *Service) Inline(ctx context.Context, caller Caller, text string) []InlineItem {
	query := cleanQuery(text)
	if query == "" {
		return nil
	}

	results := s.deps.Searcher.Search(ctx, query, inlineResults)
	if len(results) > inlineResults {
		results = results[:inlineResults]
	}
	bitrate := s.Bitrate(ctx, caller)
	items := make([]InlineItem, 0, len(results))
	for _, c := range results {
		items = append(items, InlineItem{Candidate: c, Handle: s.storedHandle(ctx, c, bitrate)})
	}
	return items
}

func (s *Service) storedHandle(ctx context.Context, c model.Candidate, bitrate int) string {
	if c.DeliveryHandle != "" {
		return c.DeliveryHandle
	}
	if s.deps.Handles != nil {
		h, ok, err := s.deps.Handles.Get(ctx, c.ExternalID, bitrate)
		if err != nil {
			logger.Warn("[Music] delivery cache read failed", logger.String("external_id", c.ExternalID), logger.ErrorField(err))
		} else if ok {
			return h
		}
	}
	if s.deps.Tracks != nil {
		t, err := s.deps.Tracks.GetByExternalID(ctx, c.ExternalID)
		if err != nil {
			logger.Warn("[Music] track lookup failed", logger.String("external_id", c.ExternalID), logger.ErrorField(err))
		} else if t != nil {
			return t.FileID
		}
	}
	return ""
}

// Bitrate is the bitrate a caller gets: the preferred one when valid, capped
// at 192 without premium.
func (s *Service) Bitrate(ctx context.Context, caller Caller) int {
	b := caller.Quality
	if !config.ValidBitrate(b) {
		b = s.deps.Settings.Int(ctx, cache.SettingDefaultBitrate)
	}
	if !config.ValidBitrate(b) {
		b = 192
	}
	if b > 192 && !caller.Premium && !caller.Admin {
		b = 192
	}
	return b
}

func statusFor(k delivery.Kind) Status {
	switch k {
	case delivery.KindTooLarge:
		return StatusTooLarge
	case delivery.KindAgeRestricted:
		return StatusAgeRestricted
	default:
		return StatusFailed
	}
}

func cleanQuery(text string) string {
	q := strings.TrimSpace(text)
	if utf8.RuneCountInString(q) <= MaxQueryRunes {
		return q
	}
	return strings.TrimSpace(string([]rune(q)[:MaxQueryRunes]))
}
