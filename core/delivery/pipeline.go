package delivery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zorins376-hub/music-bot/config"
	"github.com/zorins376-hub/music-bot/core/provider"
	"github.com/zorins376-hub/music-bot/logger"
	"github.com/zorins376-hub/music-bot/metrics"
	"github.com/zorins376-hub/music-bot/model"

	"github.com/dustin/go-humanize"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Origin tells where the delivered audio came from.
type Origin string

const (
	OriginHandle   Origin = "handle"   // handle carried by the candidate
	OriginCache    Origin = "cache"    // delivery cache
	OriginArchive  Origin = "archive"  // object storage
	OriginDownload Origin = "download" // provider fetch
)

// DeliveryCache maps (external id, bitrate) to a platform file handle.
type DeliveryCache interface {
	Get(ctx context.Context, externalID string, bitrate int) (string, bool, error)
	Set(ctx context.Context, externalID string, bitrate int, handle string) error
}

// TrackStore records deliveries in the relational store.
type TrackStore interface {
	Upsert(ctx context.Context, externalID string, meta model.TrackMeta) (int64, error)
}

// HistoryRecorder writes play events.
type HistoryRecorder interface {
	RecordEvent(ctx context.Context, event model.ListeningHistory) error
}

// Audio is what gets sent: either an existing Handle or a local Path.
type Audio struct {
	Handle   string
	Path     string
	Title    string
	Artist   string
	Duration int
}

// Publisher sends audio to a chat and returns the platform file handle.
type Publisher interface {
	SendAudio(ctx context.Context, destination int64, audio Audio) (string, error)
}

// FetcherSet resolves the fetcher owning a source tag.
type FetcherSet interface {
	Fetcher(source model.Source) (provider.Fetcher, bool)
}

// Archive is an optional long-term copy of fetched files.
type Archive interface {
	Get(ctx context.Context, externalID string, bitrate int, dst string) (bool, error)
	Put(ctx context.Context, externalID string, bitrate int, path string) error
}

// Tagger writes metadata into a fetched file before upload.
type Tagger interface {
	Tag(path string, c model.Candidate) error
}

// Runner runs blocking work on a bounded pool.
type Runner interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// Options tune the pipeline.
type Options struct {
	MaxFileSize     int64
	DownloadTimeout time.Duration
	DownloadDir     string
}

// Request is one user's pick.
type Request struct {
	Destination int64
	UserID      int64
	Candidate   model.Candidate
	Bitrate     int
}

// Result is a successful delivery. Bitrate is the one actually delivered.
type Result struct {
	Handle  string
	TrackID int64
	Bitrate int
	Origin  Origin
}

// Pipeline turns a picked candidate into a delivered audio message.
type Pipeline struct {
	fetchers  FetcherSet
	cache     DeliveryCache
	publisher Publisher
	tracks    TrackStore
	history   HistoryRecorder
	runner    Runner
	archive   Archive
	tagger    Tagger
	opts      Options
	tracer    trace.Tracer
}

// NewPipeline wires the pipeline. archive and tagger may be nil.
func NewPipeline(fetchers FetcherSet, cache DeliveryCache, publisher Publisher, tracks TrackStore,
	history HistoryRecorder, runner Runner, archive Archive, tagger Tagger, opts Options) *Pipeline {
	if opts.DownloadTimeout <= 0 {
		opts.DownloadTimeout = 90 * time.Second
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = 45 * 1024 * 1024
	}
	return &Pipeline{
		fetchers:  fetchers,
		cache:     cache,
		publisher: publisher,
		tracks:    tracks,
		history:   history,
		runner:    runner,
		archive:   archive,
		tagger:    tagger,
		opts:      opts,
		tracer:    otel.Tracer("music-bot/delivery"),
	}
}

// Deliver sends the candidate to req.Destination. Every failure is a *DownloadError.
func (p *Pipeline) Deliver(ctx context.Context, req Request) (res Result, err error) {
	c := req.Candidate
	ctx, span := p.tracer.Start(ctx, "delivery.deliver", trace.WithAttributes(
		attribute.String("external_id", c.ExternalID),
		attribute.Int("bitrate", req.Bitrate),
	))
	defer func() {
		if err != nil {
			de := Classify(err)
			metrics.DownloadFailuresTotal.WithLabelValues(string(de.Kind)).Inc()
			span.RecordError(de)
			err = de
		} else {
			span.SetAttributes(attribute.String("origin", string(res.Origin)))
		}
		span.End()
	}()

	if c.DeliveryHandle != "" {
		handle, err := p.sendHandle(ctx, req, c.DeliveryHandle)
		if err == nil {
			return p.finish(ctx, req, handle, req.Bitrate, OriginHandle)
		}
		if _, local := c.Locator.(model.LocalRef); local || c.Locator == nil {
			return Result{}, err
		}
		logger.Warn("[Delivery] stored handle rejected, fetching again", logger.String("external_id", c.ExternalID), logger.ErrorField(err))
	}

	if handle, ok := p.cachedHandle(ctx, c.ExternalID, req.Bitrate); ok {
		sent, err := p.sendHandle(ctx, req, handle)
		if err == nil {
			metrics.DeliveryCacheHitsTotal.Inc()
			return p.finish(ctx, req, sent, req.Bitrate, OriginCache)
		}
		logger.Warn("[Delivery] cached handle rejected, fetching again", logger.String("external_id", c.ExternalID), logger.ErrorField(err))
	}
	metrics.DeliveryCacheMissesTotal.Inc()

	return p.download(ctx, req)
}

func (p *Pipeline) download(ctx context.Context, req Request) (Result, error) {
	c := req.Candidate
	if err := os.MkdirAll(p.opts.DownloadDir, 0755); err != nil {
		return Result{}, fmt.Errorf("failed to create download dir: %w", err)
	}
	// the whole directory goes, including artwork the fetcher left next to the mp3
	dir, err := os.MkdirTemp(p.opts.DownloadDir, "dl-*")
	if err != nil {
		return Result{}, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			logger.Warn("[Delivery] cleanup failed", logger.String("dir", dir), logger.ErrorField(err))
		}
	}()

	path, bitrate, origin, err := p.obtain(ctx, c, req.Bitrate, dir)
	if err != nil {
		return Result{}, err
	}

	if p.tagger != nil {
		if err := p.tagger.Tag(path, c); err != nil {
			logger.Warn("[Delivery] tagging failed", logger.String("external_id", c.ExternalID), logger.ErrorField(err))
		}
	}

	handle, err := p.publisher.SendAudio(ctx, req.Destination, Audio{
		Path:     path,
		Title:    c.Title,
		Artist:   c.Artist,
		Duration: c.DurationSeconds,
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to publish %s: %w", c.ExternalID, err)
	}

	if err := p.cache.Set(ctx, c.ExternalID, bitrate, handle); err != nil {
		logger.Warn("[Delivery] delivery cache write failed", logger.String("external_id", c.ExternalID), logger.ErrorField(err))
	}
	if p.archive != nil && origin == OriginDownload {
		if err := p.archive.Put(ctx, c.ExternalID, bitrate, path); err != nil {
			logger.Warn("[Delivery] archive upload failed", logger.String("external_id", c.ExternalID), logger.ErrorField(err))
		}
	}
	return p.finish(ctx, req, handle, bitrate, origin)
}

// obtain produces a local file within the size ceiling, retrying once at the
// minimum tier when the first file is too large and the source can re-encode.
func (p *Pipeline) obtain(ctx context.Context, c model.Candidate, bitrate int, dir string) (string, int, Origin, error) {
	path, origin, err := p.fetch(ctx, c, bitrate, dir)
	if err != nil {
		return "", 0, "", err
	}
	size, err := fileSize(path)
	if err != nil {
		return "", 0, "", err
	}
	if size <= p.opts.MaxFileSize {
		return path, bitrate, origin, nil
	}

	logger.Info("[Delivery] file over size limit",
		logger.String("external_id", c.ExternalID),
		logger.Int("bitrate", bitrate),
		logger.String("size", humanize.IBytes(uint64(size))))
	_ = os.Remove(path)

	if bitrate <= config.MinBitrate || !reencodable(c.Locator) {
		return "", 0, "", &DownloadError{Kind: KindTooLarge, Err: fmt.Errorf("%s is %s", c.ExternalID, humanize.IBytes(uint64(size)))}
	}

	bitrate = config.MinBitrate
	path, origin, err = p.fetch(ctx, c, bitrate, dir)
	if err != nil {
		return "", 0, "", err
	}
	if size, err = fileSize(path); err != nil {
		return "", 0, "", err
	}
	if size > p.opts.MaxFileSize {
		return "", 0, "", &DownloadError{Kind: KindTooLarge, Err: fmt.Errorf("%s is %s at %dkbps", c.ExternalID, humanize.IBytes(uint64(size)), bitrate)}
	}
	return path, bitrate, origin, nil
}

func (p *Pipeline) fetch(ctx context.Context, c model.Candidate, bitrate int, dir string) (string, Origin, error) {
	if p.archive != nil {
		dst := filepath.Join(dir, fmt.Sprintf("archive-%d.mp3", bitrate))
		ok, err := p.archive.Get(ctx, c.ExternalID, bitrate, dst)
		if err != nil {
			logger.Warn("[Delivery] archive read failed", logger.String("external_id", c.ExternalID), logger.ErrorField(err))
		} else if ok {
			return dst, OriginArchive, nil
		}
	}

	var fetcher provider.Fetcher
	switch c.Locator.(type) {
	case model.CatalogRef, model.VideoRef, model.AudioSocialRef, model.DirectURLRef:
		f, ok := p.fetchers.Fetcher(c.Source)
		if !ok {
			return "", "", fmt.Errorf("no fetcher for %s: %w", c.Source, ErrProviderUnavailable)
		}
		fetcher = f
	case model.LocalRef, nil:
		return "", "", fmt.Errorf("%s has no stored handle: %w", c.ExternalID, ErrProviderUnavailable)
	default:
		return "", "", fmt.Errorf("unsupported locator %T", c.Locator)
	}

	var path string
	start := time.Now()
	err := p.runner.Do(ctx, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, p.opts.DownloadTimeout)
		defer cancel()
		var err error
		path, err = fetcher.Fetch(ctx, c, bitrate, dir)
		return err
	})
	metrics.DownloadDuration.WithLabelValues(string(c.Source)).Observe(time.Since(start).Seconds())
	if err != nil {
		return "", "", err
	}
	return path, OriginDownload, nil
}

func (p *Pipeline) cachedHandle(ctx context.Context, externalID string, bitrate int) (string, bool) {
	handle, ok, err := p.cache.Get(ctx, externalID, bitrate)
	if err != nil {
		logger.Warn("[Delivery] delivery cache read failed", logger.String("external_id", externalID), logger.ErrorField(err))
		return "", false
	}
	return handle, ok
}

func (p *Pipeline) sendHandle(ctx context.Context, req Request, handle string) (string, error) {
	c := req.Candidate
	sent, err := p.publisher.SendAudio(ctx, req.Destination, Audio{
		Handle:   handle,
		Title:    c.Title,
		Artist:   c.Artist,
		Duration: c.DurationSeconds,
	})
	if err != nil {
		return "", err
	}
	if sent == "" {
		sent = handle
	}
	return sent, nil
}

// finish records the delivery. Failures here are logged, the user already has the audio.
func (p *Pipeline) finish(ctx context.Context, req Request, handle string, bitrate int, origin Origin) (Result, error) {
	c := req.Candidate
	source := string(c.Source)
	trackID, err := p.tracks.Upsert(ctx, c.ExternalID, model.TrackMeta{
		Title:       c.Title,
		Artist:      c.Artist,
		Duration:    c.DurationSeconds,
		Source:      source,
		FileID:      handle,
		ReleaseYear: c.ReleaseYear,
	})
	if err != nil {
		logger.Error("[Delivery] track upsert failed", logger.String("external_id", c.ExternalID), logger.ErrorField(err))
	}

	if p.history != nil && req.UserID != 0 {
		ev := model.ListeningHistory{UserID: req.UserID, Action: model.ActionPlay, Source: source}
		if trackID != 0 {
			ev.TrackID = &trackID
		}
		if err := p.history.RecordEvent(ctx, ev); err != nil {
			logger.Warn("[Delivery] history write failed", logger.Int64("user_id", req.UserID), logger.ErrorField(err))
		}
	}

	logger.Info("[Delivery] delivered",
		logger.String("external_id", c.ExternalID),
		logger.String("origin", string(origin)),
		logger.Int("bitrate", bitrate))
	return Result{Handle: handle, TrackID: trackID, Bitrate: bitrate, Origin: origin}, nil
}

// reencodable reports whether asking the source for a lower bitrate can shrink the file.
func reencodable(l model.Locator) bool {
	switch l.(type) {
	case model.CatalogRef, model.VideoRef, model.AudioSocialRef:
		return true
	default:
		return false
	}
}

func fileSize(path string) (int64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("failed to stat fetched file: %w", err)
	}
	return fi.Size(), nil
}
