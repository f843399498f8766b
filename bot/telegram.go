package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/zorins376-hub/music-bot/core/channel"
	"github.com/zorins376-hub/music-bot/core/delivery"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// API is the part of *tgbotapi.BotAPI the bot uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetChat(config tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error)
}

// Publisher sends audio messages and reports the platform file handle.
type Publisher struct {
	api API
}

func NewPublisher(api API) *Publisher {
	return &Publisher{api: api}
}

// SendAudio sends by handle when one is given, otherwise uploads the file.
func (p *Publisher) SendAudio(ctx context.Context, dest int64, a delivery.Audio) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var file tgbotapi.RequestFileData
	switch {
	case a.Handle != "":
		file = tgbotapi.FileID(a.Handle)
	case a.Path != "":
		file = tgbotapi.FilePath(a.Path)
	default:
		return "", fmt.Errorf("nothing to send")
	}

	msg := tgbotapi.NewAudio(dest, file)
	msg.Title = a.Title
	msg.Performer = a.Artist
	msg.Duration = a.Duration
	sent, err := p.api.Send(msg)
	if err != nil {
		return "", fmt.Errorf("failed to send audio: %w", err)
	}
	if sent.Audio == nil {
		return "", fmt.Errorf("sent message %d carries no audio", sent.MessageID)
	}
	return sent.Audio.FileID, nil
}

// Forwarder drives channel history loads through the Bot API.
type Forwarder struct {
	api API
}

func NewForwarder(api API) *Forwarder {
	return &Forwarder{api: api}
}

// ResolveChat accepts "@username" or a numeric chat id.
func (f *Forwarder) ResolveChat(ctx context.Context, ref string) (int64, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return id, nil
	}
	if !strings.HasPrefix(ref, "@") {
		ref = "@" + ref
	}
	chat, err := f.api.GetChat(tgbotapi.ChatInfoConfig{ChatConfig: tgbotapi.ChatConfig{SuperGroupUsername: ref}})
	if err != nil {
		return 0, err
	}
	return chat.ID, nil
}

func (f *Forwarder) Forward(ctx context.Context, to, from int64, messageID int) (channel.Forwarded, error) {
	if err := ctx.Err(); err != nil {
		return channel.Forwarded{}, err
	}
	cfg := tgbotapi.NewForward(to, from, messageID)
	cfg.DisableNotification = true
	msg, err := f.api.Send(cfg)
	if err != nil {
		return channel.Forwarded{}, err
	}
	return channel.Forwarded{MessageID: msg.MessageID, Audio: audioOf(msg.Audio)}, nil
}

func (f *Forwarder) Delete(ctx context.Context, chatID int64, messageID int) error {
	_, err := f.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	return err
}

func audioOf(a *tgbotapi.Audio) *channel.Audio {
	if a == nil {
		return nil
	}
	return &channel.Audio{
		FileID:   a.FileID,
		FileName: a.FileName,
		Title:    a.Title,
		Artist:   a.Performer,
		Duration: a.Duration,
	}
}
