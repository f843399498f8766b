package model

import "time"

// Track is a delivered or curated track, keyed by its provider-scoped external id.
// Title, Artist and Duration are written once on creation. Downloads and FileID
// are the only columns an upsert touches afterwards.
type Track struct {
	ID          int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	ExternalID  string    `json:"externalId" gorm:"size:128;uniqueIndex;not null"`
	Title       string    `json:"title" gorm:"size:255;not null"`
	Artist      string    `json:"artist" gorm:"size:255"`
	Duration    int       `json:"duration"` // seconds
	Source      string    `json:"source" gorm:"size:20;index"`
	Channel     string    `json:"channel,omitempty" gorm:"size:32;index"`
	FileID      string    `json:"fileId,omitempty" gorm:"size:255"`
	Downloads   int64     `json:"downloads" gorm:"default:0;index"`
	ReleaseYear int       `json:"releaseYear,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (Track) TableName() string {
	return "tracks"
}

// TrackMeta is the payload of a track upsert.
type TrackMeta struct {
	Title       string
	Artist      string
	Duration    int
	Source      string
	Channel     string
	FileID      string
	ReleaseYear int
}

// History actions.
const (
	ActionSearch = "search"
	ActionPlay   = "play"
)

// ListeningHistory records searches and plays per user.
type ListeningHistory struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID    int64     `json:"userId" gorm:"index;not null"`
	TrackID   *int64    `json:"trackId,omitempty" gorm:"index"`
	Query     string    `json:"query,omitempty" gorm:"size:500"`
	Action    string    `json:"action" gorm:"size:20;not null"`
	Source    string    `json:"source,omitempty" gorm:"size:20"`
	CreatedAt time.Time `json:"createdAt" gorm:"index"`
}

func (ListeningHistory) TableName() string {
	return "listening_history"
}
