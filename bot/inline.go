package bot

import (
	"context"
	"strconv"

	"github.com/zorins376-hub/music-bot/core/music"
	"github.com/zorins376-hub/music-bot/logger"
	"github.com/zorins376-hub/music-bot/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	inlineCacheTime      = 60
	inlineEmptyCacheTime = 1
	maxInlineResultID    = 64
)

// handleInline answers an inline query with stored audio where a handle is
// known, and with an article pointing to the bot otherwise.
func (b *Bot) handleInline(ctx context.Context, q *tgbotapi.InlineQuery) {
	caller, ok := b.caller(ctx, q.From, false)
	if !ok {
		return
	}
	metrics.InlineQueriesTotal.Inc()

	items := b.Music.Inline(ctx, caller, q.Query)
	results := make([]interface{}, 0, len(items))
	for i, it := range items {
		results = append(results, inlineResult(i, it))
	}
	cacheTime := inlineCacheTime
	if len(results) == 0 {
		cacheTime = inlineEmptyCacheTime
	}

	// handles depend on the caller's bitrate
	answer := tgbotapi.InlineConfig{
		InlineQueryID: q.ID,
		Results:       results,
		CacheTime:     cacheTime,
		IsPersonal:    true,
	}
	if _, err := b.API.Request(answer); err != nil {
		logger.Warn("[Bot] inline answer failed", logger.Int64("user_id", caller.ID), logger.ErrorField(err))
	}
}

func inlineResult(i int, it music.InlineItem) interface{} {
	id := it.Candidate.ExternalID
	if id == "" || len(id) > maxInlineResultID {
		id = strconv.Itoa(i)
	}
	if it.Handle != "" {
		return tgbotapi.NewInlineQueryResultCachedAudio(id, it.Handle)
	}
	c := it.Candidate
	a := tgbotapi.NewInlineQueryResultArticle(id, "♪ "+c.Label(), textInlineArticle(c))
	a.Description = textInlineDescription(c)
	return a
}
