// models/game.go
package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	// PointsPerCorrectAnswer is awarded once per correct play.
	PointsPerCorrectAnswer = 10

	MinGeneratedDifferences = 3
	MaxGeneratedDifferences = 10
)

// GameRound is one generated puzzle. Differences and DifficultyRange are
// written once at creation; PlayCount is the only column updated afterwards.
type GameRound struct {
	ID          string `json:"id" gorm:"primaryKey;size:64"`
	CreatorID   string `json:"creator_id" gorm:"size:128;not null;index"`
	CreatorName string `json:"creator_name"`
	Prompt      string `json:"prompt" gorm:"type:text;not null"`
	Slug        string `json:"slug" gorm:"size:100"`

	// 🖼️ Media
	OriginalImageURL string `json:"original_image_url"`
	ModifiedImageURL string `json:"modified_image_url"`

	// Ground truth, never sent to players before verification
	Differences     datatypes.JSONSlice[string] `json:"differences"`
	DifficultyRange DifficultyRange             `json:"difficulty_range" gorm:"size:8;not null"`

	PlayCount int64     `json:"play_count" gorm:"not null;default:0"`
	IsPublic  bool      `json:"is_public" gorm:"not null;index"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;index"`
}

// DifferenceCount is the authoritative answer for the round.
func (g *GameRound) DifferenceCount() int {
	return len(g.Differences)
}

// Public strips the ground truth from a round before it leaves the service.
func (g *GameRound) Public() PublicGameRound {
	return PublicGameRound{
		ID:               g.ID,
		CreatorID:        g.CreatorID,
		CreatorName:      g.CreatorName,
		Prompt:           g.Prompt,
		Slug:             g.Slug,
		OriginalImageURL: g.OriginalImageURL,
		ModifiedImageURL: g.ModifiedImageURL,
		CreatedAt:        g.CreatedAt,
		PlayCount:        g.PlayCount,
		IsPublic:         g.IsPublic,
	}
}

// PublicGameRound is the player-facing payload. It has no differences and no
// difficulty range on purpose; there is no way to populate them.
type PublicGameRound struct {
	ID               string    `json:"id"`
	CreatorID        string    `json:"creator_id"`
	CreatorName      string    `json:"creator_name"`
	Prompt           string    `json:"prompt"`
	Slug             string    `json:"slug"`
	OriginalImageURL string    `json:"original_image_url"`
	ModifiedImageURL string    `json:"modified_image_url"`
	CreatedAt        time.Time `json:"created_at"`
	PlayCount        int64     `json:"play_count"`
	IsPublic         bool      `json:"is_public"`
}
