package bot

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/zorins376-hub/music-bot/cache"
	"github.com/zorins376-hub/music-bot/config"
	"github.com/zorins376-hub/music-bot/core/channel"
	"github.com/zorins376-hub/music-bot/core/music"
	"github.com/zorins376-hub/music-bot/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const queuePreview = 10

func (b *Bot) handleCommand(ctx context.Context, caller music.Caller, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	args := strings.Fields(msg.CommandArguments())

	switch msg.Command() {
	case "start", "help":
		b.reply(chatID, textHelp)
	case "quality":
		b.cmdQuality(ctx, caller, chatID, args)
	case "charts":
		b.cmdCharts(chatID)
	case "history":
		b.cmdHistory(ctx, caller, chatID)
	case "stats":
		b.cmdStats(ctx, caller, chatID)
	case "top":
		period := "week"
		if len(args) > 0 {
			period = strings.ToLower(args[0])
		}
		if _, ok := topSince(b.now(), period); !ok {
			b.reply(chatID, textTopUsage)
			return
		}
		b.showTop(ctx, chatID, 0, period)
	case "set", "forward", "load", "queue", "premium", "ban", "unban":
		if !caller.Admin {
			b.reply(chatID, textNotAllowed)
			return
		}
		b.handleAdminCommand(ctx, caller, msg.Command(), chatID, args)
	default:
		b.reply(chatID, textHelp)
	}
}

func (b *Bot) cmdQuality(ctx context.Context, caller music.Caller, chatID int64, args []string) {
	if len(args) != 1 {
		b.reply(chatID, textQualityUsage)
		return
	}
	bitrate, err := strconv.Atoi(args[0])
	if err != nil || !config.ValidBitrate(bitrate) {
		b.reply(chatID, textQualityUsage)
		return
	}
	if bitrate > 192 && !caller.Premium && !caller.Admin {
		b.reply(chatID, textPremiumOnly)
		return
	}
	if err := b.Users.SetQuality(ctx, caller.ID, bitrate); err != nil {
		logger.Error("[Bot] failed to set quality", logger.Int64("user_id", caller.ID), logger.ErrorField(err))
		b.reply(chatID, textFailed)
		return
	}
	b.reply(chatID, textQualitySet(bitrate))
}

func (b *Bot) handleAdminCommand(ctx context.Context, caller music.Caller, cmd string, chatID int64, args []string) {
	switch cmd {
	case "set":
		b.cmdSet(ctx, chatID, args)
	case "forward":
		b.cmdForward(ctx, caller, chatID, args)
	case "load":
		b.cmdLoad(ctx, chatID, args)
	case "queue":
		b.cmdQueue(ctx, chatID, args)
	case "premium":
		b.cmdPremium(ctx, chatID, args)
	case "ban", "unban":
		b.cmdBan(ctx, chatID, args, cmd == "ban")
	}
}

func (b *Bot) cmdSet(ctx context.Context, chatID int64, args []string) {
	if len(args) != 2 {
		b.reply(chatID, textSetUsage)
		return
	}
	value, err := strconv.Atoi(args[1])
	if err != nil {
		b.reply(chatID, textSetUsage)
		return
	}
	switch args[0] {
	case cache.SettingMaxResults:
		if value < 1 || value > b.Config.MaxResults {
			b.reply(chatID, fmt.Sprintf("✖ max_results must be within 1..%d", b.Config.MaxResults))
			return
		}
	case cache.SettingDefaultBitrate:
		if !config.ValidBitrate(value) {
			b.reply(chatID, fmt.Sprintf("✖ default_bitrate must be one of %v", config.BitrateTiers))
			return
		}
	default:
		b.reply(chatID, textSetUsage)
		return
	}
	if err := b.Settings.Set(ctx, args[0], value); err != nil {
		logger.Error("[Bot] failed to save setting", logger.String("key", args[0]), logger.ErrorField(err))
		b.reply(chatID, textFailed)
		return
	}
	b.reply(chatID, textSettingSaved(args[0], value))
}

func (b *Bot) knownLabel(label string) bool {
	return slices.Contains(b.Config.HouseChannels, label)
}

func (b *Bot) unknownLabel(chatID int64) {
	b.reply(chatID, fmt.Sprintf(textUnknownLabel, strings.Join(b.Config.HouseChannels, ", ")))
}

func (b *Bot) cmdForward(ctx context.Context, caller music.Caller, chatID int64, args []string) {
	if len(args) != 1 {
		b.reply(chatID, textForwardUsage)
		return
	}
	label := strings.ToLower(args[0])
	if label == "off" {
		if err := b.Admin.ClearForwardMode(ctx, caller.ID); err != nil {
			logger.Error("[Bot] failed to clear forward mode", logger.ErrorField(err))
			b.reply(chatID, textFailed)
			return
		}
		b.reply(chatID, textForwardOff)
		return
	}
	if !b.knownLabel(label) {
		b.unknownLabel(chatID)
		return
	}
	if err := b.Admin.SetForwardMode(ctx, caller.ID, label); err != nil {
		logger.Error("[Bot] failed to set forward mode", logger.ErrorField(err))
		b.reply(chatID, textFailed)
		return
	}
	b.reply(chatID, textForwardOn(label))
}

func (b *Bot) cmdLoad(ctx context.Context, chatID int64, args []string) {
	if len(args) != 2 {
		b.reply(chatID, textLoadUsage)
		return
	}
	ref, label := args[0], strings.ToLower(args[1])
	if !b.knownLabel(label) {
		b.unknownLabel(chatID)
		return
	}

	status, err := b.API.Send(tgbotapi.NewMessage(chatID, textLoadStarted(ref, label)))
	if err != nil {
		logger.Warn("[Bot] failed to send load status", logger.ErrorField(err))
		return
	}
	edit := func(text string) {
		if _, err := b.API.Send(tgbotapi.NewEditMessageText(chatID, status.MessageID, text)); err != nil {
			logger.Debug("[Bot] status edit failed", logger.ErrorField(err))
		}
	}

	// the load outlives the update that started it
	started := b.Background.TryGo(context.WithoutCancel(ctx), func(ctx context.Context) {
		p, err := b.Loader.Load(ctx, ref, label, chatID, func(p channel.Progress) { edit(textLoadProgress(p)) })
		if err != nil {
			edit(textLoadFailed(err))
			return
		}
		edit(textLoadDone(label, p))
	})
	if !started {
		edit(textLoaderBusy)
	}
}

func (b *Bot) cmdQueue(ctx context.Context, chatID int64, args []string) {
	if len(args) != 1 {
		b.reply(chatID, textQueueUsage)
		return
	}
	label := strings.ToLower(args[0])
	total, err := b.Radio.Len(ctx, label)
	if err != nil {
		logger.Error("[Bot] radio queue length failed", logger.ErrorField(err))
		b.reply(chatID, textFailed)
		return
	}
	head, err := b.Radio.Range(ctx, label, 0, queuePreview-1)
	if err != nil {
		logger.Error("[Bot] radio queue range failed", logger.ErrorField(err))
		b.reply(chatID, textFailed)
		return
	}
	b.reply(chatID, textQueue(label, total, head))
}

func (b *Bot) cmdPremium(ctx context.Context, chatID int64, args []string) {
	if len(args) != 2 {
		b.reply(chatID, textPremiumUsage)
		return
	}
	userID, err1 := strconv.ParseInt(args[0], 10, 64)
	days, err2 := strconv.Atoi(args[1])
	if err1 != nil || err2 != nil || days <= 0 {
		b.reply(chatID, textPremiumUsage)
		return
	}
	until := b.now().Add(time.Duration(days) * 24 * time.Hour)
	if err := b.Users.SetPremium(ctx, userID, &until); err != nil {
		logger.Error("[Bot] failed to grant premium", logger.Int64("user_id", userID), logger.ErrorField(err))
		b.reply(chatID, textFailed)
		return
	}
	b.reply(chatID, textPremiumGranted(userID, days))
}

func (b *Bot) cmdBan(ctx context.Context, chatID int64, args []string, banned bool) {
	if len(args) != 1 {
		b.reply(chatID, textBanUsage)
		return
	}
	userID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		b.reply(chatID, textBanUsage)
		return
	}
	if err := b.Users.SetBanned(ctx, userID, banned); err != nil {
		logger.Error("[Bot] failed to update ban", logger.Int64("user_id", userID), logger.ErrorField(err))
		b.reply(chatID, textFailed)
		return
	}
	b.reply(chatID, textBanned(userID, banned))
}
