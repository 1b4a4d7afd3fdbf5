// services/users.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"spot-the-difference/models"
)

const anonymousName = "Anonymous"

type UserService struct {
	DB     *gorm.DB
	logger *slog.Logger
}

func NewUserService(db *gorm.DB, logger *slog.Logger) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{DB: db, logger: logger}
}

// SignIn is the profile the identity provider reports on sign-in.
type SignIn struct {
	ID          string `json:"-"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	PhotoURL    string `json:"photo_url"`
}

// SyncUser creates the user on first sign-in and refreshes the profile
// fields afterwards. Counters are never touched here.
func (s *UserService) SyncUser(ctx context.Context, in SignIn) (*models.User, error) {
	if in.ID == "" {
		return nil, ErrInvalidUserID
	}
	name := strings.TrimSpace(in.DisplayName)
	if name == "" {
		name = anonymousName
	}

	user := models.User{
		ID:          in.ID,
		DisplayName: name,
		Email:       strings.TrimSpace(in.Email),
		PhotoURL:    strings.TrimSpace(in.PhotoURL),
	}
	if err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"display_name", "email", "photo_url", "updated_at"}),
	}).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to sync user: %w", err)
	}

	s.logger.DebugContext(ctx, "Synced user profile", "user_id", in.ID)
	return s.GetUser(ctx, in.ID)
}

func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	if id == "" {
		return nil, ErrInvalidUserID
	}
	var user models.User
	if err := s.DB.WithContext(ctx).Where("id = ?", id).Take(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

// UsersByID loads users keyed by id. Missing ids are simply absent.
func (s *UserService) UsersByID(ctx context.Context, ids []string) (map[string]models.User, error) {
	out := make(map[string]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []models.User
	if err := s.DB.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}
