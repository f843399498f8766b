package bot

import (
	"context"
	"testing"

	"github.com/zorins376-hub/music-bot/model"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func TestInlineQuery(t *testing.T) {
	ctx := context.Background()
	tb := newTestBot(t)
	if _, err := tb.tracks.Upsert(ctx, "yt_a", model.TrackMeta{Title: "Bones", Artist: "Imagine Dragons", Source: "video", FileID: "AUD1"}); err != nil {
		t.Fatal(err)
	}

	tb.HandleUpdate(ctx, inlineUpdate(5, "imagine dragons"))
	// inline queries are not flood limited
	tb.HandleUpdate(ctx, inlineUpdate(5, "imagine dragons"))

	var answers []tgbotapi.InlineConfig
	tb.api.mu.Lock()
	for _, r := range tb.api.requests {
		if a, ok := r.(tgbotapi.InlineConfig); ok {
			answers = append(answers, a)
		}
	}
	tb.api.mu.Unlock()
	if len(answers) != 2 {
		t.Fatalf("answers = %d, want 2", len(answers))
	}

	a := answers[0]
	if a.InlineQueryID != "iq1" || !a.IsPersonal || a.CacheTime != inlineCacheTime || len(a.Results) != 2 {
		t.Fatalf("answer = %+v", a)
	}
	audio, ok := a.Results[0].(tgbotapi.InlineQueryResultCachedAudio)
	if !ok || audio.ID != "yt_a" || audio.AudioID != "AUD1" {
		t.Errorf("first result = %#v", a.Results[0])
	}
	article, ok := a.Results[1].(tgbotapi.InlineQueryResultArticle)
	if !ok || article.ID != "yt_b" || article.Title != "♪ Imagine Dragons - Believer" || article.Description == "" {
		t.Errorf("second result = %#v", a.Results[1])
	}
}

func TestInlineBlankQuery(t *testing.T) {
	tb := newTestBot(t)
	tb.HandleUpdate(context.Background(), inlineUpdate(5, "  "))

	tb.api.mu.Lock()
	defer tb.api.mu.Unlock()
	a, ok := tb.api.requests[len(tb.api.requests)-1].(tgbotapi.InlineConfig)
	if !ok || len(a.Results) != 0 || a.CacheTime != inlineEmptyCacheTime {
		t.Errorf("answer = %#v", tb.api.requests[len(tb.api.requests)-1])
	}
}
