package services

import (
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"spot-the-difference/metrics"
	"spot-the-difference/models"
)

// newTestDB opens a private in-memory SQLite database. A single connection
// keeps every goroutine on the same memory database and serializes
// transactions.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Discard,
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, Migrate(db))
	return db
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedUser(t *testing.T, db *gorm.DB, id string, gamesCreated int) *models.User {
	t.Helper()
	user := &models.User{ID: id, DisplayName: "user " + id, GamesCreated: gamesCreated}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedGame(t *testing.T, db *gorm.DB, creatorID string, differences int, public bool) *models.GameRound {
	t.Helper()
	diffs := make([]string, differences)
	for i := range diffs {
		diffs[i] = fmt.Sprintf("difference %d", i+1)
	}
	game := &models.GameRound{
		ID:              uuid.NewString(),
		CreatorID:       creatorID,
		CreatorName:     "creator " + creatorID,
		Prompt:          "a cat on a bookshelf",
		Differences:     diffs,
		DifficultyRange: models.RangeFor(differences),
		IsPublic:        public,
		CreatedAt:       time.Now(),
	}
	require.NoError(t, db.Create(game).Error)
	return game
}

func reloadUser(t *testing.T, db *gorm.DB, id string) models.User {
	t.Helper()
	var user models.User
	require.NoError(t, db.Where("id = ?", id).Take(&user).Error)
	return user
}

func reloadGame(t *testing.T, db *gorm.DB, id string) models.GameRound {
	t.Helper()
	var game models.GameRound
	require.NoError(t, db.Where("id = ?", id).Take(&game).Error)
	return game
}

func newQuota(db *gorm.DB, userLimit, appLimit int) *QuotaService {
	return NewQuotaService(db, userLimit, appLimit, discardLogger(), metrics.New())
}
