package bot

import (
	"context"
	"time"

	"github.com/zorins376-hub/music-bot/core/music"
	"github.com/zorins376-hub/music-bot/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	historyLimit = 10
	topLimit     = 10
)

func (b *Bot) cmdHistory(ctx context.Context, caller music.Caller, chatID int64) {
	plays, err := b.History.RecentPlays(ctx, caller.ID, historyLimit)
	if err != nil {
		logger.Error("[Bot] history lookup failed", logger.Int64("user_id", caller.ID), logger.ErrorField(err))
		b.reply(chatID, textFailed)
		return
	}
	b.reply(chatID, textHistory(plays))
}

func (b *Bot) cmdStats(ctx context.Context, caller music.Caller, chatID int64) {
	st, err := b.History.UserStats(ctx, caller.ID, b.now().UTC().Add(-7*24*time.Hour))
	if err != nil {
		logger.Error("[Bot] stats lookup failed", logger.Int64("user_id", caller.ID), logger.ErrorField(err))
		b.reply(chatID, textFailed)
		return
	}
	b.reply(chatID, textStats(st, caller.Joined))
}

// topSince maps a period name to the start of its window. Unknown names are
// not ok; "all" is the zero time.
func topSince(now time.Time, period string) (time.Time, bool) {
	switch period {
	case "today":
		return now.Add(-24 * time.Hour), true
	case "week":
		return now.Add(-7 * 24 * time.Hour), true
	case "all":
		return time.Time{}, true
	}
	return time.Time{}, false
}

// showTop sends the top for period, or edits message editID when it is set.
func (b *Bot) showTop(ctx context.Context, chatID int64, editID int, period string) {
	since, ok := topSince(b.now().UTC(), period)
	if !ok {
		return
	}
	top, err := b.History.TopTracks(ctx, since, topLimit)
	if err != nil {
		logger.Error("[Bot] top lookup failed", logger.String("period", period), logger.ErrorField(err))
		b.reply(chatID, textFailed)
		return
	}

	text, kb := textTop(period, top), topKeyboard(period)
	if editID != 0 {
		b.edit(chatID, editID, text, kb)
		return
	}
	m := tgbotapi.NewMessage(chatID, text)
	m.ReplyMarkup = kb
	if _, err := b.API.Send(m); err != nil {
		logger.Warn("[Bot] failed to send top", logger.Int64("chat_id", chatID), logger.ErrorField(err))
	}
}
