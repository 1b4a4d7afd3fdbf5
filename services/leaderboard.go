package services

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"spot-the-difference/cache"
	"spot-the-difference/models"
)

const MaxLeaderboardSize = 50

// RankedScores is a read model of the leaderboard, e.g. the Redis mirror.
type RankedScores interface {
	Top(ctx context.Context, n int) ([]cache.ScoreEntry, error)
}

type LeaderboardService struct {
	DB     *gorm.DB
	Mirror RankedScores
	Size   int

	users  *UserService
	logger *slog.Logger
}

func NewLeaderboardService(db *gorm.DB, mirror RankedScores, size int, logger *slog.Logger) *LeaderboardService {
	if logger == nil {
		logger = slog.Default()
	}
	if size <= 0 || size > MaxLeaderboardSize {
		size = MaxLeaderboardSize
	}
	return &LeaderboardService{DB: db, Mirror: mirror, Size: size, users: NewUserService(db, logger), logger: logger}
}

// Top returns the highest scoring users. The mirror is used when present and
// populated; any mirror error falls back to the database.
func (s *LeaderboardService) Top(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 || limit > s.Size {
		limit = s.Size
	}

	if s.Mirror != nil {
		entries, err := s.fromMirror(ctx, limit)
		if err == nil && len(entries) > 0 {
			return entries, nil
		}
		if err != nil {
			s.logger.WarnContext(ctx, "Leaderboard mirror unavailable, reading database", "error", err)
		}
	}
	return s.fromDatabase(ctx, limit)
}

func (s *LeaderboardService) fromDatabase(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	var users []models.User
	if err := s.DB.WithContext(ctx).
		Order("score DESC").
		Order("id ASC").
		Limit(limit).
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}

	entries := make([]models.LeaderboardEntry, len(users))
	for i, u := range users {
		entries[i] = entry(i+1, u, u.Score)
	}
	return entries, nil
}

func (s *LeaderboardService) fromMirror(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	scores, err := s.Mirror.Top(ctx, limit)
	if err != nil || len(scores) == 0 {
		return nil, err
	}

	ids := make([]string, len(scores))
	for i, sc := range scores {
		ids[i] = sc.UserID
	}
	byID, err := s.users.UsersByID(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to hydrate leaderboard: %w", err)
	}

	entries := make([]models.LeaderboardEntry, 0, len(scores))
	for _, sc := range scores {
		u, ok := byID[sc.UserID]
		if !ok {
			continue
		}
		entries = append(entries, entry(len(entries)+1, u, sc.Score))
	}
	return entries, nil
}

// AllScores lists every user's committed score for a mirror rebuild.
func (s *LeaderboardService) AllScores(ctx context.Context) ([]cache.ScoreEntry, error) {
	var users []models.User
	if err := s.DB.WithContext(ctx).Select("id", "score").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to load scores: %w", err)
	}
	out := make([]cache.ScoreEntry, len(users))
	for i, u := range users {
		out[i] = cache.ScoreEntry{UserID: u.ID, Score: u.Score}
	}
	return out, nil
}

func entry(rank int, u models.User, score int64) models.LeaderboardEntry {
	return models.LeaderboardEntry{
		Rank:        rank,
		UserID:      u.ID,
		DisplayName: u.DisplayName,
		PhotoURL:    u.PhotoURL,
		Score:       score,
		GamesPlayed: u.GamesPlayed,
	}
}
