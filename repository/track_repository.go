package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/zorins376-hub/music-bot/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TrackRepository defines the track operations the bot needs.
type TrackRepository interface {
	// Upsert records a delivery: creates the row on first sight, otherwise
	// increments downloads and refreshes the file handle when one is given.
	Upsert(ctx context.Context, externalID string, meta model.TrackMeta) (int64, error)
	// Import stores a curated channel track without counting a download.
	Import(ctx context.Context, externalID string, meta model.TrackMeta) (int64, error)
	FindLocal(ctx context.Context, query string, limit int) ([]model.Track, error)
	GetByExternalID(ctx context.Context, externalID string) (*model.Track, error)
}

// likeEscaper makes user text match literally inside LIKE ... ESCAPE '!'.
// A backslash escape would need different quoting on MySQL and SQLite.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

type gormTrackRepository struct {
	db            *gorm.DB
	houseChannels []string
}

// NewTrackRepository returns a gorm-backed TrackRepository. houseChannels are
// ranked first by FindLocal, in the given order.
func NewTrackRepository(db *gorm.DB, houseChannels []string) TrackRepository {
	return &gormTrackRepository{db: db, houseChannels: houseChannels}
}

func (r *gormTrackRepository) Upsert(ctx context.Context, externalID string, meta model.TrackMeta) (int64, error) {
	return r.upsert(ctx, externalID, meta, true)
}

func (r *gormTrackRepository) Import(ctx context.Context, externalID string, meta model.TrackMeta) (int64, error) {
	return r.upsert(ctx, externalID, meta, false)
}

func (r *gormTrackRepository) upsert(ctx context.Context, externalID string, meta model.TrackMeta, countDownload bool) (int64, error) {
	if externalID == "" {
		return 0, fmt.Errorf("failed to upsert track: empty external id")
	}

	track := model.Track{
		ExternalID:  externalID,
		Title:       meta.Title,
		Artist:      meta.Artist,
		Duration:    meta.Duration,
		Source:      meta.Source,
		Channel:     meta.Channel,
		FileID:      meta.FileID,
		ReleaseYear: meta.ReleaseYear,
	}
	if countDownload {
		track.Downloads = 1
	}

	// title, artist and duration stay as first written
	updates := clause.Assignments(map[string]interface{}{"updated_at": time.Now()})
	if countDownload {
		updates = append(updates, clause.Assignment{Column: clause.Column{Name: "downloads"}, Value: gorm.Expr("downloads + 1")})
	}
	if meta.FileID != "" {
		updates = append(updates, clause.AssignmentColumns([]string{"file_id"})...)
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoUpdates: updates,
	}).Create(&track).Error
	if err != nil {
		return 0, fmt.Errorf("failed to upsert track %s: %w", externalID, err)
	}

	var id int64
	err = r.db.WithContext(ctx).Model(&model.Track{}).
		Where("external_id = ?", externalID).
		Pluck("id", &id).Error
	if err != nil {
		return 0, fmt.Errorf("failed to read track id %s: %w", externalID, err)
	}
	return id, nil
}

// FindLocal matches the query against title or artist, case-insensitively.
// Only house-channel tracks and tracks that already have a file handle qualify.
// House channels come first in their configured order, then by downloads.
func (r *gormTrackRepository) FindLocal(ctx context.Context, query string, limit int) ([]model.Track, error) {
	q := model.NormalizeQuery(query)
	if q == "" || limit <= 0 {
		return nil, nil
	}
	pattern := "%" + likeEscaper.Replace(q) + "%"

	tx := r.db.WithContext(ctx).Model(&model.Track{}).
		Where("(LOWER(title) LIKE ? ESCAPE '!' OR LOWER(artist) LIKE ? ESCAPE '!')", pattern, pattern)

	if len(r.houseChannels) > 0 {
		tx = tx.Where("(channel IN ? OR (file_id IS NOT NULL AND file_id <> ''))", r.houseChannels)

		var sb strings.Builder
		vars := make([]interface{}, 0, len(r.houseChannels))
		sb.WriteString("CASE channel")
		for i, ch := range r.houseChannels {
			sb.WriteString(" WHEN ? THEN ")
			sb.WriteString(strconv.Itoa(i))
			vars = append(vars, ch)
		}
		sb.WriteString(" ELSE ")
		sb.WriteString(strconv.Itoa(len(r.houseChannels)))
		sb.WriteString(" END")
		tx = tx.Order(clause.OrderBy{Expression: clause.Expr{SQL: sb.String(), Vars: vars, WithoutParentheses: true}})
	} else {
		tx = tx.Where("file_id IS NOT NULL AND file_id <> ''")
	}

	var tracks []model.Track
	if err := tx.Order("downloads DESC").Order("id ASC").Limit(limit).Find(&tracks).Error; err != nil {
		return nil, fmt.Errorf("failed to search local tracks: %w", err)
	}
	return tracks, nil
}

func (r *gormTrackRepository) GetByExternalID(ctx context.Context, externalID string) (*model.Track, error) {
	var track model.Track
	err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&track).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get track %s: %w", externalID, err)
	}
	return &track, nil
}
