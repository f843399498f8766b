package model

import "time"

// User is a Telegram user. ID is the Telegram user id.
type User struct {
	ID           int64      `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Username     string     `json:"username,omitempty" gorm:"size:64"`
	FirstName    string     `json:"firstName,omitempty" gorm:"size:128"`
	Quality      int        `json:"quality" gorm:"default:192"`
	IsPremium    bool       `json:"isPremium" gorm:"default:false"`
	PremiumUntil *time.Time `json:"premiumUntil,omitempty"`
	IsBanned     bool       `json:"isBanned" gorm:"default:false"`
	RequestCount int64      `json:"requestCount" gorm:"default:0"`
	LastActive   time.Time  `json:"lastActive"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

// PremiumActive reports whether premium is on at the given moment.
func (u *User) PremiumActive(now time.Time) bool {
	if !u.IsPremium {
		return false
	}
	return u.PremiumUntil == nil || u.PremiumUntil.After(now)
}
