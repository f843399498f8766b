package bot

import (
	"context"
	"strings"
	"time"

	"github.com/zorins376-hub/music-bot/cache"
	"github.com/zorins376-hub/music-bot/config"
	"github.com/zorins376-hub/music-bot/core/channel"
	"github.com/zorins376-hub/music-bot/core/charts"
	"github.com/zorins376-hub/music-bot/core/music"
	"github.com/zorins376-hub/music-bot/core/worker"
	"github.com/zorins376-hub/music-bot/logger"
	"github.com/zorins376-hub/music-bot/model"
	"github.com/zorins376-hub/music-bot/repository"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// updateConcurrency bounds how many updates are handled at once.
const updateConcurrency = 32

// Deps are the collaborators of a Bot.
type Deps struct {
	Config     *config.Config
	API        API
	Music      *music.Service
	Users      repository.UserRepository
	History    repository.HistoryRepository
	Flood      *cache.FloodGuard
	Settings   *cache.Settings
	Admin      *cache.AdminState
	Radio      *cache.RadioQueue
	Loader     *channel.Loader
	Charts     *charts.Service
	Background *worker.Pool
}

// Bot routes Telegram updates to the music service and the admin tools.
type Bot struct {
	Deps
	updates *worker.Pool
	now     func() time.Time
}

func New(deps Deps) *Bot {
	return &Bot{
		Deps:    deps,
		updates: worker.NewPool("updates", updateConcurrency),
		now:     time.Now,
	}
}

// Poll long-polls the Bot API until ctx is done.
func (b *Bot) Poll(ctx context.Context, api *tgbotapi.BotAPI) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := api.GetUpdatesChan(u)
	logger.Info("[Bot] polling for updates", logger.String("account", api.Self.UserName))

	for {
		select {
		case <-ctx.Done():
			api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.Dispatch(ctx, update)
		}
	}
}

// Dispatch handles update in the background, at most updateConcurrency at a
// time. It blocks while all slots are busy.
func (b *Bot) Dispatch(ctx context.Context, update tgbotapi.Update) {
	err := b.updates.Go(ctx, func(ctx context.Context) {
		b.HandleUpdate(ctx, update)
	})
	if err != nil {
		logger.Warn("[Bot] update dropped", logger.Int("update_id", update.UpdateID), logger.ErrorField(err))
	}
}

// HandleUpdate processes one update. It never panics.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("[Bot] update handler panicked", logger.Int("update_id", update.UpdateID), logger.Any("panic", r))
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.InlineQuery != nil:
		b.handleInline(ctx, update.InlineQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

// caller loads the sender and applies the ban check, and the flood check when
// flood is set. ok is false when the update must be dropped.
func (b *Bot) caller(ctx context.Context, from *tgbotapi.User, flood bool) (music.Caller, bool) {
	if from == nil || from.IsBot {
		return music.Caller{}, false
	}
	admin := b.Config.IsAdmin(from.ID)

	user, err := b.Users.GetOrCreate(ctx, model.User{
		ID:        from.ID,
		Username:  from.UserName,
		FirstName: from.FirstName,
		IsPremium: admin,
	})
	if err != nil {
		logger.Error("[Bot] failed to load user", logger.Int64("user_id", from.ID), logger.ErrorField(err))
		return music.Caller{}, false
	}
	if user.IsBanned && !admin {
		return music.Caller{}, false
	}

	if flood && !admin {
		allowed, err := b.Flood.Allow(ctx, from.ID)
		if err != nil {
			logger.Warn("[Bot] flood guard unavailable", logger.ErrorField(err))
		} else if !allowed {
			return music.Caller{}, false
		}
	}

	return music.Caller{
		ID:      from.ID,
		Admin:   admin,
		Premium: user.PremiumActive(b.now()),
		Quality: user.Quality,
		Joined:  user.CreatedAt,
	}, true
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	caller, ok := b.caller(ctx, msg.From, true)
	if !ok {
		return
	}

	if msg.Audio != nil {
		if caller.Admin && msg.Chat.IsPrivate() {
			b.importForwardedAudio(ctx, caller, msg)
		}
		return
	}

	if msg.IsCommand() {
		b.handleCommand(ctx, caller, msg)
		return
	}
	if msg.Text != "" {
		b.search(ctx, caller, msg.Chat.ID, msg.MessageID, msg.Text)
	}
}

// search answers text with a results keyboard, replying to message replyTo
// when it is set.
func (b *Bot) search(ctx context.Context, caller music.Caller, chatID int64, replyTo int, text string) {
	out, err := b.Music.Search(ctx, caller, text)
	if err != nil {
		logger.Error("[Bot] search failed", logger.Int64("user_id", caller.ID), logger.ErrorField(err))
		b.reply(chatID, textFailed)
		return
	}

	switch out.Status {
	case music.StatusOK:
		m := tgbotapi.NewMessage(chatID, textResultsHeader(out.Query, len(out.Results)))
		m.ReplyToMessageID = replyTo
		m.ReplyMarkup = resultsKeyboard(out.SessionID, out.Results)
		if _, err := b.API.Send(m); err != nil {
			logger.Warn("[Bot] failed to send results", logger.Int64("chat_id", chatID), logger.ErrorField(err))
		}
	case music.StatusRateLimited:
		b.reply(chatID, textRateLimited(out.RetryAfter))
	case music.StatusHourlyCap:
		b.reply(chatID, textHourlyCap)
	default:
		b.reply(chatID, textNoResults)
	}
}

// handleCallback routes button presses. Presses skip the flood guard.
func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if _, err := b.API.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		logger.Debug("[Bot] callback answer failed", logger.ErrorField(err))
	}
	if cq.Message == nil || cq.Data == noopCallback {
		return
	}
	caller, ok := b.caller(ctx, cq.From, false)
	if !ok {
		return
	}

	prefix, rest, _ := strings.Cut(cq.Data, ":")
	switch prefix {
	case trackCallbackPrefix:
		if sid, index, ok := parseTrackCallback(cq.Data); ok {
			b.pick(ctx, caller, cq.Message.Chat.ID, sid, index)
		}
	case chartCallbackPrefix:
		b.showChart(ctx, cq.Message, cq.Data)
	case chartPickPrefix:
		b.pickChartEntry(ctx, caller, cq.Message.Chat.ID, cq.Data)
	case topCallbackPrefix:
		b.showTop(ctx, cq.Message.Chat.ID, cq.Message.MessageID, rest)
	}
}

func (b *Bot) pick(ctx context.Context, caller music.Caller, chatID int64, sid string, index int) {
	status, err := b.API.Send(tgbotapi.NewMessage(chatID, textDownloading))
	if err == nil {
		defer func() {
			_, _ = b.API.Request(tgbotapi.NewDeleteMessage(chatID, status.MessageID))
		}()
	}

	out, err := b.Music.Select(ctx, caller, chatID, sid, index)
	if err != nil {
		logger.Error("[Bot] delivery failed", logger.Int64("user_id", caller.ID), logger.ErrorField(err))
		b.reply(chatID, textFailed)
		return
	}

	switch out.Status {
	case music.StatusOK:
		if err := b.Users.IncrementRequests(ctx, caller.ID); err != nil {
			logger.Warn("[Bot] request counter update failed", logger.Int64("user_id", caller.ID), logger.ErrorField(err))
		}
	case music.StatusSessionExpired:
		b.reply(chatID, textSessionExpired)
	case music.StatusTooLarge:
		b.reply(chatID, textTooLarge)
	case music.StatusAgeRestricted:
		b.reply(chatID, textAgeRestricted)
	default:
		b.reply(chatID, textFailed)
	}
}

func (b *Bot) importForwardedAudio(ctx context.Context, caller music.Caller, msg *tgbotapi.Message) {
	label, ok, err := b.Admin.ForwardMode(ctx, caller.ID)
	if err != nil {
		logger.Warn("[Bot] forward mode lookup failed", logger.ErrorField(err))
		return
	}
	if !ok {
		return
	}

	externalID := channel.ExternalID(caller.ID, msg.MessageID)
	if msg.ForwardFromChat != nil {
		externalID = channel.ExternalID(msg.ForwardFromChat.ID, msg.ForwardFromMessageID)
	}
	a := audioOf(msg.Audio)
	if _, err := b.Loader.Import(ctx, externalID, label, *a); err != nil {
		logger.Error("[Bot] forwarded audio import failed", logger.String("id", externalID), logger.ErrorField(err))
		b.reply(msg.Chat.ID, textFailed)
		return
	}
	logger.Info("[Bot] admin forwarded audio",
		logger.Int64("admin_id", caller.ID),
		logger.String("id", externalID),
		logger.String("label", label))
	b.reply(msg.Chat.ID, textImported(*a, label))
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.API.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		logger.Warn("[Bot] failed to send message", logger.Int64("chat_id", chatID), logger.ErrorField(err))
	}
}
