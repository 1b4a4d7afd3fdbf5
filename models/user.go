package models

import (
	"time"
)

// User is created on first sign-in and keyed by the identity provider's uid.
// Counters are only ever changed with in-database increments.
type User struct {
	ID          string `gorm:"primaryKey;size:128" json:"id"`
	DisplayName string `gorm:"size:255;not null" json:"display_name"`
	Email       string `gorm:"size:255" json:"email,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty"`

	// 🏆 Progress counters
	Score        int64 `gorm:"not null;default:0;index" json:"score"`
	GamesCreated int   `gorm:"not null;default:0" json:"games_created"`
	GamesPlayed  int   `gorm:"not null;default:0" json:"games_played"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// LeaderboardEntry is the public projection of a ranked user.
type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	PhotoURL    string `json:"photo_url,omitempty"`
	Score       int64  `json:"score"`
	GamesPlayed int    `json:"games_played"`
}
