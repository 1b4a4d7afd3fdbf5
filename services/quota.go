// services/quota.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"spot-the-difference/metrics"
	"spot-the-difference/models"
)

type QuotaService struct {
	DB        *gorm.DB
	UserLimit int
	AppLimit  int

	logger  *slog.Logger
	metrics *metrics.Metrics
}

// QuotaReservation is the state observed while reserving one creation.
type QuotaReservation struct {
	UserQuota models.QuotaStatus `json:"user_quota"`
	AppQuota  models.QuotaStatus `json:"app_quota"`
}

func NewQuotaService(db *gorm.DB, userLimit, appLimit int, logger *slog.Logger, m *metrics.Metrics) *QuotaService {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.New()
	}
	return &QuotaService{DB: db, UserLimit: userLimit, AppLimit: appLimit, logger: logger, metrics: m}
}

// Reserve consumes one unit of the user's creation quota.
//
// The app-wide check is a plain COUNT outside the transaction and can be
// overshot by concurrent creators. The user check locks the user row, so
// games_created never exceeds UserLimit.
func (s *QuotaService) Reserve(ctx context.Context, userID string) (*QuotaReservation, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}

	app, err := s.AppQuota(ctx)
	if err != nil {
		return nil, err
	}
	if app.Exhausted() {
		s.metrics.QuotaRejections.WithLabelValues(string(QuotaScopeApp)).Inc()
		return nil, &QuotaExceededError{Scope: QuotaScopeApp, Status: app}
	}

	var userStatus models.QuotaStatus
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "games_created").
			Where("id = ?", userID).
			Take(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("failed to load user quota: %w", err)
		}

		if user.GamesCreated >= s.UserLimit {
			return &QuotaExceededError{
				Scope:  QuotaScopeUser,
				Status: models.NewQuotaStatus(user.GamesCreated, s.UserLimit),
			}
		}

		if err := tx.Model(&models.User{}).
			Where("id = ?", userID).
			UpdateColumn("games_created", gorm.Expr("games_created + ?", 1)).Error; err != nil {
			return fmt.Errorf("failed to reserve quota: %w", err)
		}

		userStatus = models.NewQuotaStatus(user.GamesCreated+1, s.UserLimit)
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrUserQuotaExhausted) {
			s.metrics.QuotaRejections.WithLabelValues(string(QuotaScopeUser)).Inc()
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "Reserved game quota",
		"user_id", userID,
		"user_used", userStatus.Used,
		"user_limit", userStatus.Limit,
		"app_used", app.Used,
	)
	return &QuotaReservation{UserQuota: userStatus, AppQuota: app}, nil
}

// UserQuota reports the user's creation quota. Unknown users have the full
// quota available.
func (s *QuotaService) UserQuota(ctx context.Context, userID string) (models.QuotaStatus, error) {
	if userID == "" {
		return models.QuotaStatus{}, ErrInvalidUserID
	}
	var user models.User
	err := s.DB.WithContext(ctx).Select("id", "games_created").Where("id = ?", userID).Take(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewQuotaStatus(0, s.UserLimit), nil
		}
		return models.QuotaStatus{}, fmt.Errorf("failed to load user quota: %w", err)
	}
	return models.NewQuotaStatus(user.GamesCreated, s.UserLimit), nil
}

// AppQuota counts every stored round against the app-wide limit.
func (s *QuotaService) AppQuota(ctx context.Context) (models.QuotaStatus, error) {
	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.GameRound{}).Count(&count).Error; err != nil {
		return models.QuotaStatus{}, fmt.Errorf("failed to count games: %w", err)
	}
	return models.NewQuotaStatus(int(count), s.AppLimit), nil
}
