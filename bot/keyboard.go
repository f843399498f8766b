package bot

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/zorins376-hub/music-bot/core/charts"
	"github.com/zorins376-hub/music-bot/model"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	trackCallbackPrefix = "t"
	chartCallbackPrefix = "ch"
	chartPickPrefix     = "cd"
	topCallbackPrefix   = "top"
	chartMenuData       = "ch:menu"
	noopCallback        = "noop"
	maxButtonLabel      = 48
	maxChartLabel       = 55
)

// trackCallbackData encodes a pick as "t:<session id>:<index>".
func trackCallbackData(sid string, index int) string {
	return fmt.Sprintf("%s:%s:%d", trackCallbackPrefix, sid, index)
}

// parseTrackCallback is the inverse of trackCallbackData.
func parseTrackCallback(data string) (sid string, index int, ok bool) {
	return parseIndexed(data, trackCallbackPrefix)
}

// parseIndexed splits "<prefix>:<key>:<non-negative int>".
func parseIndexed(data, prefix string) (key string, index int, ok bool) {
	parts := strings.Split(data, ":")
	if len(parts) != 3 || parts[0] != prefix || parts[1] == "" {
		return "", 0, false
	}
	index, err := strconv.Atoi(parts[2])
	if err != nil || index < 0 {
		return "", 0, false
	}
	return parts[1], index, true
}

func chartPageData(key string, page int) string {
	return fmt.Sprintf("%s:%s:%d", chartCallbackPrefix, key, page)
}

func chartPickData(key string, index int) string {
	return fmt.Sprintf("%s:%s:%d", chartPickPrefix, key, index)
}

func buttonLabel(i int, c model.Candidate) string {
	return fmt.Sprintf("%d. %s (%s)", i+1, clip(c.Label(), maxButtonLabel), c.DurationFormatted)
}

func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}

func resultsKeyboard(sid string, results []model.Candidate) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(results))
	for i, c := range results {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(buttonLabel(i, c), trackCallbackData(sid, i)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func chartsMenu(list []charts.Chart) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(list))
	for _, c := range list {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("◈ "+c.Label, chartPageData(c.Key, 0)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// chartKeyboard lists the entries of a page, then the page navigation and a
// way back to the menu.
func chartKeyboard(p charts.Page) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(p.Entries)+2)
	for i, e := range p.Entries {
		pos := p.Offset + i
		label := fmt.Sprintf("%d. %s", pos+1, e.Query())
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(clip(label, maxChartLabel), chartPickData(p.Chart.Key, pos)),
		))
	}

	prev, next := noopCallback, noopCallback
	if p.Number > 0 {
		prev = chartPageData(p.Chart.Key, p.Number-1)
	}
	if p.Number < p.Pages-1 {
		next = chartPageData(p.Chart.Key, p.Number+1)
	}
	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("◁", prev),
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%d/%d", p.Number+1, p.Pages), noopCallback),
			tgbotapi.NewInlineKeyboardButtonData("▷", next),
		),
		backToChartsRow(),
	)
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func backToChartsRow() []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("◁ Charts", chartMenuData))
}

var topPeriods = []struct{ key, label string }{
	{"today", "Today"},
	{"week", "Week"},
	{"all", "All time"},
}

// topKeyboard marks the shown period.
func topKeyboard(current string) tgbotapi.InlineKeyboardMarkup {
	row := make([]tgbotapi.InlineKeyboardButton, 0, len(topPeriods))
	for _, p := range topPeriods {
		label := "▫ " + p.label
		if p.key == current {
			label = "▪ " + p.label
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, topCallbackPrefix+":"+p.key))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}
