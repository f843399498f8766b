package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/zorins376-hub/music-bot/cache"
	"github.com/zorins376-hub/music-bot/core/channel"
	"github.com/zorins376-hub/music-bot/core/charts"
	"github.com/zorins376-hub/music-bot/model"
	"github.com/zorins376-hub/music-bot/repository"
)

// User-facing texts. Keep them stable: users learn them and tests match them.
const (
	textHelp = "◈ BLACK ROOM\n\n" +
		"Send an artist or a track name and pick a result.\n" +
		"A Spotify track link works too.\n\n" +
		"/charts browses the charts.\n" +
		"/history, /top and /stats show what is played.\n" +
		"/quality 128|192|320 sets the bitrate (320 is premium).\n\n" +
		"Type the bot's name in any chat to search inline."
	textNoResults      = "✖ Nothing found. Try another query."
	textHourlyCap      = "✖ Hourly limit reached. Try again later."
	textSessionExpired = "✖ These results have expired. Search again."
	textTooLarge       = "✖ The file is too large even at the lowest bitrate."
	textAgeRestricted  = "✖ The source marks this track as age-restricted. Pick another result."
	textFailed         = "✖ Download failed. Pick another result."
	textDownloading    = "◈ Downloading..."
	textNotAllowed     = "✖ Command not available."
	textPremiumOnly    = "✖ 320 kbps is available with premium."
	textQualityUsage   = "Usage: /quality 128|192|320"
	textSetUsage       = "Usage: /set max_results|default_bitrate <value>"
	textForwardUsage   = "Usage: /forward <label>|off"
	textLoadUsage      = "Usage: /load <@channel> <label>"
	textQueueUsage     = "Usage: /queue <label>"
	textPremiumUsage   = "Usage: /premium <user id> <days>"
	textBanUsage       = "Usage: /ban <user id> or /unban <user id>"
	textTopUsage       = "Usage: /top today|week|all"
	textLoaderBusy     = "✖ A channel load is already running."
	textForwardOff     = "◈ Forward mode off."
	textUnknownLabel   = "✖ Unknown label. Known: %s"

	textChartsMenu       = "◈ Charts"
	textChartUnavailable = "✖ This chart is unavailable right now. Try later."
	textChartExpired     = "✖ The chart was refreshed. Open it again."
	textHistoryEmpty     = "◈ Nothing played yet."
	textTopEmpty         = "◈ Nothing played in this period."
)

func textRateLimited(seconds int) string {
	return fmt.Sprintf("✖ Too fast. Try again in %d s.", seconds)
}

func textQualitySet(bitrate int) string {
	return fmt.Sprintf("◈ Quality set to %d kbps.", bitrate)
}

func textResultsHeader(query string, n int) string {
	return fmt.Sprintf("◈ %s: %d found", query, n)
}

func textForwardOn(label string) string {
	return fmt.Sprintf("◈ Forward mode on. Audio you forward goes to %s.", strings.ToUpper(label))
}

func textImported(c channel.Audio, label string) string {
	return fmt.Sprintf("✓ %s → %s", model.Candidate{Title: c.Title, Artist: c.Artist}.Label(), strings.ToUpper(label))
}

func textLoadStarted(ref, label string) string {
	return fmt.Sprintf("◈ Loading audio from %s → %s...", ref, strings.ToUpper(label))
}

func textLoadProgress(p channel.Progress) string {
	return fmt.Sprintf("◈ Message #%d\n♪ Audio: %d · Skipped: %d · Errors: %d", p.LastMessageID, p.Saved, p.Skipped, p.Errors)
}

func textLoadDone(label string, p channel.Progress) string {
	return fmt.Sprintf("✓ %s loaded\n♪ Audio: %d · Skipped: %d · Errors: %d", strings.ToUpper(label), p.Saved, p.Skipped, p.Errors)
}

func textLoadFailed(err error) string {
	return fmt.Sprintf("✖ Load failed: %v", err)
}

func textSettingSaved(key string, value int) string {
	return fmt.Sprintf("◈ %s = %d", key, value)
}

func textQueue(label string, total int64, head []cache.RadioEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "◈ %s queue: %d tracks\n", strings.ToUpper(label), total)
	for i, e := range head {
		fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, model.Candidate{Title: e.Title, Artist: e.Artist}.Label(), model.FormatDuration(e.Duration))
	}
	return strings.TrimRight(b.String(), "\n")
}

func textPremiumGranted(userID int64, days int) string {
	return fmt.Sprintf("◈ Premium for %d granted for %d days.", userID, days)
}

func textBanned(userID int64, banned bool) string {
	if banned {
		return fmt.Sprintf("◈ %d banned.", userID)
	}
	return fmt.Sprintf("◈ %d unbanned.", userID)
}

func textChartPage(p charts.Page) string {
	return fmt.Sprintf("◈ %s\nPick a track.", p.Chart.Label)
}

func textHistory(plays []repository.PlayedTrack) string {
	if len(plays) == 0 {
		return textHistoryEmpty
	}
	var b strings.Builder
	b.WriteString("◈ Recently played\n")
	for i, p := range plays {
		label := model.Candidate{Title: p.Title, Artist: p.Artist}.Label()
		switch {
		case p.Title != "":
		case p.Query != "":
			label = p.Query
		case p.TrackID != nil:
			label = fmt.Sprintf("Track #%d", *p.TrackID)
		default:
			label = "Unknown"
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, label)
	}
	return strings.TrimRight(b.String(), "\n")
}

func textTop(period string, top []repository.TopTrack) string {
	if len(top) == 0 {
		return textTopEmpty
	}
	var b strings.Builder
	fmt.Fprintf(&b, "◈ Top (%s)\n", periodLabel(period))
	for i, t := range top {
		fmt.Fprintf(&b, "%d. %s (%d plays)\n", i+1, model.Candidate{Title: t.Title, Artist: t.Artist}.Label(), t.Plays)
	}
	return strings.TrimRight(b.String(), "\n")
}

func periodLabel(period string) string {
	for _, p := range topPeriods {
		if p.key == period {
			return strings.ToLower(p.label)
		}
	}
	return period
}

func textStats(st repository.UserStats, joined time.Time) string {
	var b strings.Builder
	b.WriteString("◈ Your stats\n")
	fmt.Fprintf(&b, "Plays: %d\n", st.Total)
	fmt.Fprintf(&b, "This week: %d\n", st.Week)
	if st.TopArtist != "" {
		fmt.Fprintf(&b, "Top artist: %s\n", st.TopArtist)
	}
	if !joined.IsZero() {
		fmt.Fprintf(&b, "With us since %s", joined.Format("02.01.2006"))
	}
	return strings.TrimRight(b.String(), "\n")
}

func textInlineArticle(c model.Candidate) string {
	return fmt.Sprintf("♪ %s (%s)\n\nOpen the bot in private and send:\n%s", c.Label(), c.DurationFormatted, strings.TrimSpace(c.Artist+" "+c.Title))
}

func textInlineDescription(c model.Candidate) string {
	return fmt.Sprintf("%s · tap to get it from the bot", c.DurationFormatted)
}
