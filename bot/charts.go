package bot

import (
	"context"
	"errors"

	"github.com/zorins376-hub/music-bot/core/charts"
	"github.com/zorins376-hub/music-bot/core/music"
	"github.com/zorins376-hub/music-bot/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) cmdCharts(chatID int64) {
	m := tgbotapi.NewMessage(chatID, textChartsMenu)
	m.ReplyMarkup = chartsMenu(b.Charts.Charts())
	if _, err := b.API.Send(m); err != nil {
		logger.Warn("[Bot] failed to send charts menu", logger.Int64("chat_id", chatID), logger.ErrorField(err))
	}
}

// showChart edits msg into the charts menu or into a chart page.
func (b *Bot) showChart(ctx context.Context, msg *tgbotapi.Message, data string) {
	chatID := msg.Chat.ID
	if data == chartMenuData {
		b.edit(chatID, msg.MessageID, textChartsMenu, chartsMenu(b.Charts.Charts()))
		return
	}
	key, n, ok := parseIndexed(data, chartCallbackPrefix)
	if !ok {
		return
	}

	page, err := b.Charts.Page(ctx, key, n)
	switch {
	case errors.Is(err, charts.ErrUnknownChart):
		return
	case errors.Is(err, charts.ErrUnavailable):
		b.edit(chatID, msg.MessageID, textChartUnavailable, tgbotapi.NewInlineKeyboardMarkup(backToChartsRow()))
		return
	case err != nil:
		logger.Error("[Bot] chart page failed", logger.String("chart", key), logger.ErrorField(err))
		b.reply(chatID, textFailed)
		return
	}
	b.edit(chatID, msg.MessageID, textChartPage(page), chartKeyboard(page))
}

// pickChartEntry searches for a chart position the way a typed query would.
func (b *Bot) pickChartEntry(ctx context.Context, caller music.Caller, chatID int64, data string) {
	key, index, ok := parseIndexed(data, chartPickPrefix)
	if !ok {
		return
	}
	entry, ok, err := b.Charts.Entry(ctx, key, index)
	if err != nil {
		if !errors.Is(err, charts.ErrUnknownChart) {
			logger.Error("[Bot] chart entry lookup failed", logger.String("chart", key), logger.ErrorField(err))
			b.reply(chatID, textFailed)
		}
		return
	}
	if !ok {
		b.reply(chatID, textChartExpired)
		return
	}
	b.search(ctx, caller, chatID, 0, entry.Query())
}

func (b *Bot) edit(chatID int64, messageID int, text string, markup tgbotapi.InlineKeyboardMarkup) {
	if _, err := b.API.Send(tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, markup)); err != nil {
		logger.Debug("[Bot] message edit failed", logger.Int64("chat_id", chatID), logger.ErrorField(err))
	}
}
