package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zorins376-hub/music-bot/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository defines the user operations the bot needs.
type UserRepository interface {
	// GetOrCreate loads the user, creating it on first contact and refreshing
	// names and last activity otherwise. Expired premium is switched off.
	GetOrCreate(ctx context.Context, profile model.User) (*model.User, error)
	SetQuality(ctx context.Context, userID int64, bitrate int) error
	SetPremium(ctx context.Context, userID int64, until *time.Time) error
	SetBanned(ctx context.Context, userID int64, banned bool) error
	IncrementRequests(ctx context.Context, userID int64) error
}

type gormUserRepository struct {
	db             *gorm.DB
	defaultQuality int
}

func NewUserRepository(db *gorm.DB, defaultQuality int) UserRepository {
	return &gormUserRepository{db: db, defaultQuality: defaultQuality}
}

func (r *gormUserRepository) GetOrCreate(ctx context.Context, profile model.User) (*model.User, error) {
	now := time.Now()
	db := r.db.WithContext(ctx)

	var user model.User
	err := db.Where("id = ?", profile.ID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = model.User{
			ID:         profile.ID,
			Username:   profile.Username,
			FirstName:  profile.FirstName,
			Quality:    r.defaultQuality,
			IsPremium:  profile.IsPremium,
			LastActive: now,
		}
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create user %d: %w", profile.ID, err)
		}
		if err := db.Where("id = ?", profile.ID).First(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to reload user %d: %w", profile.ID, err)
		}
		return &user, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", profile.ID, err)
	}

	updates := map[string]interface{}{
		"username":    profile.Username,
		"first_name":  profile.FirstName,
		"last_active": now,
	}
	if user.IsPremium && !user.PremiumActive(now) {
		updates["is_premium"] = false
		updates["premium_until"] = nil
		user.IsPremium = false
		user.PremiumUntil = nil
	}
	if profile.IsPremium && !user.IsPremium {
		updates["is_premium"] = true
		user.IsPremium = true
	}
	if err := db.Model(&model.User{}).Where("id = ?", profile.ID).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to touch user %d: %w", profile.ID, err)
	}
	user.Username, user.FirstName, user.LastActive = profile.Username, profile.FirstName, now
	return &user, nil
}

func (r *gormUserRepository) SetQuality(ctx context.Context, userID int64, bitrate int) error {
	return r.update(ctx, userID, map[string]interface{}{"quality": bitrate})
}

func (r *gormUserRepository) SetPremium(ctx context.Context, userID int64, until *time.Time) error {
	return r.update(ctx, userID, map[string]interface{}{"is_premium": true, "premium_until": until})
}

func (r *gormUserRepository) SetBanned(ctx context.Context, userID int64, banned bool) error {
	return r.update(ctx, userID, map[string]interface{}{"is_banned": banned})
}

func (r *gormUserRepository) IncrementRequests(ctx context.Context, userID int64) error {
	return r.update(ctx, userID, map[string]interface{}{"request_count": gorm.Expr("request_count + 1")})
}

func (r *gormUserRepository) update(ctx context.Context, userID int64, values map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Updates(values)
	if res.Error != nil {
		return fmt.Errorf("failed to update user %d: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %d not found", userID)
	}
	return nil
}
