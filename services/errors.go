package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"spot-the-difference/models"
)

var (
	ErrInvalidUserID        = errors.New("user id is required")
	ErrInvalidInput         = errors.New("invalid input")
	ErrInvalidAnswer        = errors.New("invalid answer")
	ErrUserNotFound         = errors.New("user not found")
	ErrGameNotFound         = errors.New("game not found")
	ErrCannotPlay           = errors.New("cannot play this game")
	ErrAlreadyPlayed        = errors.New("you have already played this game")
	ErrNoGamesAvailable     = errors.New("no games available")
	ErrUserQuotaExhausted   = errors.New("user game quota exhausted")
	ErrAppQuotaExhausted    = errors.New("app-wide game quota exhausted")
	ErrGeneratorUnavailable = errors.New("image generation is not configured")
)

// QuotaScope names which limit rejected a reservation.
type QuotaScope string

const (
	QuotaScopeUser QuotaScope = "user"
	QuotaScopeApp  QuotaScope = "app"
)

// QuotaExceededError carries the snapshot of the quota that rejected a
// reservation. It unwraps to ErrUserQuotaExhausted or ErrAppQuotaExhausted.
type QuotaExceededError struct {
	Scope  QuotaScope
	Status models.QuotaStatus
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("%s game quota exhausted (%d/%d)", e.Scope, e.Status.Used, e.Status.Limit)
}

func (e *QuotaExceededError) Unwrap() error {
	if e.Scope == QuotaScopeApp {
		return ErrAppQuotaExhausted
	}
	return ErrUserQuotaExhausted
}

// isUniqueViolation recognises duplicate-key errors from postgres (23505),
// from gorm's translated error and from sqlite.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
