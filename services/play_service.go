package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"spot-the-difference/metrics"
	"spot-the-difference/models"
)

// ScoreMirror receives the points of committed plays. Failures never affect
// a play.
type ScoreMirror interface {
	AddScore(ctx context.Context, userID string, points int64) error
}

type PlayService struct {
	DB     *gorm.DB
	Mirror ScoreMirror

	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewPlayService(db *gorm.DB, mirror ScoreMirror, logger *slog.Logger, m *metrics.Metrics) *PlayService {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.New()
	}
	return &PlayService{DB: db, Mirror: mirror, logger: logger, metrics: m}
}

type VerifyAnswerInput struct {
	GameID     string
	PlayerID   string
	PlayerName string
	Answer     string
}

type PlayResult struct {
	IsCorrect    bool `json:"is_correct"`
	ActualCount  int  `json:"actual_count"`
	PointsEarned int  `json:"points_earned"`
}

// VerifyAnswer scores a guess and records the play, the game's play count and
// the player's score in one transaction. A player gets exactly one committed
// play per game; a losing concurrent attempt sees ErrAlreadyPlayed.
func (s *PlayService) VerifyAnswer(ctx context.Context, in VerifyAnswerInput) (*PlayResult, error) {
	if in.PlayerID == "" {
		return nil, ErrInvalidUserID
	}
	if in.GameID == "" {
		return nil, ErrGameNotFound
	}
	guess, err := models.ParseAnswer(in.Answer)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAnswer, err)
	}

	var (
		result PlayResult
		played models.GamePlay
	)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var game models.GameRound
		if err := tx.Select("id", "creator_id", "is_public", "differences").
			Where("id = ?", in.GameID).
			Take(&game).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrGameNotFound
			}
			return fmt.Errorf("failed to load game: %w", err)
		}

		if !game.IsPublic || game.CreatorID == in.PlayerID {
			return ErrCannotPlay
		}

		var existing int64
		if err := tx.Model(&models.GamePlay{}).
			Where("game_id = ? AND player_id = ?", in.GameID, in.PlayerID).
			Count(&existing).Error; err != nil {
			return fmt.Errorf("failed to check previous play: %w", err)
		}
		if existing > 0 {
			return ErrAlreadyPlayed
		}

		actual := game.DifferenceCount()
		result = PlayResult{ActualCount: actual, IsCorrect: guess.Contains(actual)}
		if result.IsCorrect {
			result.PointsEarned = models.PointsPerCorrectAnswer
		}

		played = models.GamePlay{
			GameID:         in.GameID,
			PlayerID:       in.PlayerID,
			PlayerName:     in.PlayerName,
			SelectedAnswer: guess,
			CorrectCount:   actual,
			IsCorrect:      result.IsCorrect,
			PointsEarned:   result.PointsEarned,
		}
		if err := tx.Create(&played).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrAlreadyPlayed
			}
			return fmt.Errorf("failed to record play: %w", err)
		}

		if err := tx.Model(&models.GameRound{}).
			Where("id = ?", in.GameID).
			UpdateColumn("play_count", gorm.Expr("play_count + ?", 1)).Error; err != nil {
			return fmt.Errorf("failed to update play count: %w", err)
		}

		res := tx.Model(&models.User{}).
			Where("id = ?", in.PlayerID).
			UpdateColumns(map[string]any{
				"score":        gorm.Expr("score + ?", result.PointsEarned),
				"games_played": gorm.Expr("games_played + ?", 1),
			})
		if res.Error != nil {
			return fmt.Errorf("failed to update player stats: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrUserNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyPlayed) {
			s.metrics.PlayConflicts.Inc()
		}
		return nil, err
	}

	label := "incorrect"
	if result.IsCorrect {
		label = "correct"
	}
	s.metrics.PlaysVerified.WithLabelValues(label).Inc()
	s.logger.InfoContext(ctx, "Verified answer",
		"play", played.Key().String(),
		"correct", result.IsCorrect,
		"actual", result.ActualCount,
		"points", result.PointsEarned,
	)

	// Increments commute, so concurrent plays can reach Redis in any order.
	if s.Mirror != nil && result.PointsEarned > 0 {
		if err := s.Mirror.AddScore(ctx, in.PlayerID, int64(result.PointsEarned)); err != nil {
			s.logger.WarnContext(ctx, "Failed to update leaderboard mirror", "user_id", in.PlayerID, "error", err)
		}
	}
	return &result, nil
}

// GetPlay returns the player's play for the game, or nil if there is none.
func (s *PlayService) GetPlay(ctx context.Context, gameID, playerID string) (*models.GamePlay, error) {
	if playerID == "" {
		return nil, ErrInvalidUserID
	}
	var play models.GamePlay
	err := s.DB.WithContext(ctx).
		Where("game_id = ? AND player_id = ?", gameID, playerID).
		Take(&play).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load play: %w", err)
	}
	return &play, nil
}
