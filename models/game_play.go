package models

import (
	"net/url"
	"time"
)

// GamePlay records one player's single attempt at a round. Rows are inserted
// once and never updated or deleted.
type GamePlay struct {
	GameID         string          `json:"game_id" gorm:"primaryKey;size:64"`
	PlayerID       string          `json:"player_id" gorm:"primaryKey;size:128;index"`
	PlayerName     string          `json:"player_name"`
	SelectedAnswer DifficultyRange `json:"selected_answer" gorm:"size:8;not null"`
	CorrectCount   int             `json:"correct_count" gorm:"not null"`
	IsCorrect      bool            `json:"is_correct" gorm:"not null"`
	PointsEarned   int             `json:"points_earned" gorm:"not null"`
	PlayedAt       time.Time       `json:"played_at" gorm:"autoCreateTime"`
}

// Key returns the composite identity of the play.
func (p *GamePlay) Key() GamePlayKey {
	return GamePlayKey{GameID: p.GameID, PlayerID: p.PlayerID}
}

// GamePlayKey identifies a play by (game, player).
type GamePlayKey struct {
	GameID   string
	PlayerID string
}

// String escapes both halves so that ids containing '_' or '/' can never
// produce the same encoding for different pairs.
func (k GamePlayKey) String() string {
	return url.PathEscape(k.GameID) + "/" + url.PathEscape(k.PlayerID)
}
