package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/zorins376-hub/music-bot/model"

	"gorm.io/gorm"
)

// HistoryRepository reads and writes listening history.
type HistoryRepository interface {
	RecordEvent(ctx context.Context, event model.ListeningHistory) error
	CountByUser(ctx context.Context, userID int64, action string) (int64, error)
	// RecentPlays returns the user's latest plays, newest first.
	RecentPlays(ctx context.Context, userID int64, limit int) ([]PlayedTrack, error)
	// TopTracks ranks tracks by plays since the given time; a zero since
	// means all time.
	TopTracks(ctx context.Context, since time.Time, limit int) ([]TopTrack, error)
	UserStats(ctx context.Context, userID int64, weekStart time.Time) (UserStats, error)
}

// PlayedTrack is one play. Title and Artist are empty when the track row is gone.
type PlayedTrack struct {
	TrackID *int64
	Title   string
	Artist  string
	Query   string
}

// TopTrack is a track with its play count.
type TopTrack struct {
	ID     int64
	Title  string
	Artist string
	Plays  int64
}

// UserStats summarizes one user's plays.
type UserStats struct {
	Total     int64
	Week      int64
	TopArtist string
}

type gormHistoryRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &gormHistoryRepository{db: db}
}

func (r *gormHistoryRepository) RecordEvent(ctx context.Context, event model.ListeningHistory) error {
	if err := r.db.WithContext(ctx).Create(&event).Error; err != nil {
		return fmt.Errorf("failed to record %s event for user %d: %w", event.Action, event.UserID, err)
	}
	return nil
}

func (r *gormHistoryRepository) CountByUser(ctx context.Context, userID int64, action string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.ListeningHistory{}).
		Where("user_id = ? AND action = ?", userID, action).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count history: %w", err)
	}
	return n, nil
}

func (r *gormHistoryRepository) RecentPlays(ctx context.Context, userID int64, limit int) ([]PlayedTrack, error) {
	var rows []PlayedTrack
	err := r.db.WithContext(ctx).Table("listening_history AS h").
		Select("h.track_id, h.query, COALESCE(t.title, '') AS title, COALESCE(t.artist, '') AS artist").
		Joins("LEFT JOIN tracks AS t ON t.id = h.track_id").
		Where("h.user_id = ? AND h.action = ?", userID, model.ActionPlay).
		Order("h.created_at DESC").Order("h.id DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load history of user %d: %w", userID, err)
	}
	return rows, nil
}

func (r *gormHistoryRepository) TopTracks(ctx context.Context, since time.Time, limit int) ([]TopTrack, error) {
	tx := r.db.WithContext(ctx).Table("listening_history AS h").
		Select("t.id, t.title, t.artist, COUNT(h.id) AS plays").
		Joins("JOIN tracks AS t ON t.id = h.track_id").
		Where("h.action = ?", model.ActionPlay)
	if !since.IsZero() {
		tx = tx.Where("h.created_at >= ?", since)
	}

	var rows []TopTrack
	err := tx.Group("t.id, t.title, t.artist").
		Order("plays DESC").Order("t.id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to rank tracks: %w", err)
	}
	return rows, nil
}

func (r *gormHistoryRepository) UserStats(ctx context.Context, userID int64, weekStart time.Time) (UserStats, error) {
	var st UserStats
	plays := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&model.ListeningHistory{}).
			Where("user_id = ? AND action = ?", userID, model.ActionPlay)
	}
	if err := plays().Count(&st.Total).Error; err != nil {
		return st, fmt.Errorf("failed to count plays: %w", err)
	}
	if err := plays().Where("created_at >= ?", weekStart).Count(&st.Week).Error; err != nil {
		return st, fmt.Errorf("failed to count weekly plays: %w", err)
	}

	var top []struct {
		Artist string
		Plays  int64
	}
	err := r.db.WithContext(ctx).Table("listening_history AS h").
		Select("t.artist, COUNT(h.id) AS plays").
		Joins("JOIN tracks AS t ON t.id = h.track_id").
		Where("h.user_id = ? AND h.action = ? AND t.artist IS NOT NULL AND t.artist <> ''", userID, model.ActionPlay).
		Group("t.artist").
		Order("plays DESC").Order("t.artist ASC").
		Limit(1).
		Scan(&top).Error
	if err != nil {
		return st, fmt.Errorf("failed to find top artist: %w", err)
	}
	if len(top) > 0 {
		st.TopArtist = top[0].Artist
	}
	return st, nil
}
