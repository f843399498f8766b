package channel

import (
	"context"
	"fmt"
	"time"

	"github.com/zorins376-hub/music-bot/cache"
	"github.com/zorins376-hub/music-bot/logger"
	"github.com/zorins376-hub/music-bot/metrics"
	"github.com/zorins376-hub/music-bot/model"
)

const (
	defaultMaxFailures   = 30
	defaultProgressEvery = 50
	defaultForwardDelay  = 100 * time.Millisecond
	defaultFailureDelay  = 50 * time.Millisecond
)

// Audio is the audio attachment of a channel message.
type Audio struct {
	FileID   string
	FileName string
	Title    string
	Artist   string
	Duration int
}

// Forwarded is a copy of a channel message forwarded into the admin chat.
// Audio is nil for non-audio messages.
type Forwarded struct {
	MessageID int
	Audio     *Audio
}

// Forwarder is the messaging surface the loader drives.
type Forwarder interface {
	ResolveChat(ctx context.Context, ref string) (int64, error)
	Forward(ctx context.Context, to, from int64, messageID int) (Forwarded, error)
	Delete(ctx context.Context, chatID int64, messageID int) error
}

// TrackImporter stores channel tracks without counting downloads.
type TrackImporter interface {
	Import(ctx context.Context, externalID string, meta model.TrackMeta) (int64, error)
}

// RadioQueue receives every imported track.
type RadioQueue interface {
	Push(ctx context.Context, label string, entry cache.RadioEntry) error
}

// Progress counts what a load has done so far.
type Progress struct {
	LastMessageID int
	Saved         int
	Skipped       int
	Errors        int
}

// Loader imports the audio history of a channel by forwarding its messages
// one by one, starting at message 1.
type Loader struct {
	forwarder Forwarder
	tracks    TrackImporter
	radio     RadioQueue

	MaxFailures   int
	ProgressEvery int
	ForwardDelay  time.Duration
	FailureDelay  time.Duration
}

func NewLoader(forwarder Forwarder, tracks TrackImporter, radio RadioQueue) *Loader {
	return &Loader{
		forwarder:     forwarder,
		tracks:        tracks,
		radio:         radio,
		MaxFailures:   defaultMaxFailures,
		ProgressEvery: defaultProgressEvery,
		ForwardDelay:  defaultForwardDelay,
		FailureDelay:  defaultFailureDelay,
	}
}

// ExternalID is the track id of a channel message.
func ExternalID(chatID int64, messageID int) string {
	return fmt.Sprintf("tg_%d_%d", chatID, messageID)
}

// Import stores one channel audio under label and queues it for radio.
func (l *Loader) Import(ctx context.Context, externalID, label string, a Audio) (int64, error) {
	title := a.Title
	if title == "" {
		title = a.FileName
	}
	if title == "" {
		title = "Unknown"
	}
	id, err := l.tracks.Import(ctx, externalID, model.TrackMeta{
		Title:    title,
		Artist:   a.Artist,
		Duration: a.Duration,
		Source:   model.SourceChannel,
		Channel:  label,
		FileID:   a.FileID,
	})
	if err != nil {
		return 0, err
	}
	err = l.radio.Push(ctx, label, cache.RadioEntry{
		TrackID:  id,
		FileID:   a.FileID,
		Title:    title,
		Artist:   a.Artist,
		Duration: a.Duration,
		Channel:  label,
	})
	if err != nil {
		logger.Warn("[ChannelLoader] radio push failed", logger.String("id", externalID), logger.ErrorField(err))
	}
	metrics.ChannelTracksImportedTotal.WithLabelValues(label).Inc()
	return id, nil
}

// Load walks the channel until MaxFailures consecutive messages cannot be
// forwarded or ctx is done. report, when non-nil, is called every
// ProgressEvery messages.
func (l *Loader) Load(ctx context.Context, channelRef, label string, adminChat int64, report func(Progress)) (Progress, error) {
	var p Progress
	chatID, err := l.forwarder.ResolveChat(ctx, channelRef)
	if err != nil {
		return p, fmt.Errorf("failed to resolve channel %s: %w", channelRef, err)
	}
	logger.Info("[ChannelLoader] start",
		logger.String("channel", channelRef),
		logger.Int64("chat_id", chatID),
		logger.String("label", label))

	failures := 0
	for failures < l.MaxFailures {
		if err := ctx.Err(); err != nil {
			return p, err
		}
		p.LastMessageID++
		msgID := p.LastMessageID

		fwd, err := l.forwarder.Forward(ctx, adminChat, chatID, msgID)
		if err != nil {
			failures++
			p.Errors++
			if err := sleep(ctx, l.FailureDelay); err != nil {
				return p, err
			}
		} else {
			failures = 0
			if fwd.Audio != nil {
				if _, err := l.Import(ctx, ExternalID(chatID, msgID), label, *fwd.Audio); err != nil {
					logger.Warn("[ChannelLoader] import failed", logger.Int("message_id", msgID), logger.ErrorField(err))
					p.Errors++
				} else {
					p.Saved++
				}
			} else {
				p.Skipped++
			}
			if err := l.forwarder.Delete(ctx, adminChat, fwd.MessageID); err != nil {
				logger.Debug("[ChannelLoader] delete failed", logger.Int("message_id", fwd.MessageID), logger.ErrorField(err))
			}
			if err := sleep(ctx, l.ForwardDelay); err != nil {
				return p, err
			}
		}

		if report != nil && l.ProgressEvery > 0 && msgID%l.ProgressEvery == 0 {
			report(p)
		}
	}

	logger.Info("[ChannelLoader] done",
		logger.String("label", label),
		logger.Int("saved", p.Saved),
		logger.Int("skipped", p.Skipped),
		logger.Int("errors", p.Errors))
	return p, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
