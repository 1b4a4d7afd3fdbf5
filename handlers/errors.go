package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"spot-the-difference/generator"
	"spot-the-difference/services"
)

// respondError maps domain errors onto HTTP statuses. Unknown errors are
// logged and reported as 500 without details.
func respondError(c *fiber.Ctx, logger *slog.Logger, err error) error {
	var quotaErr *services.QuotaExceededError
	if errors.As(err, &quotaErr) {
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error": quotaErr.Error(),
			"scope": quotaErr.Scope,
			"quota": quotaErr.Status,
		})
	}

	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		logger.ErrorContext(c.UserContext(), "Request failed", "method", c.Method(), "path", c.Path(), "error", err)
		return c.Status(status).JSON(fiber.Map{"error": "internal server error"})
	}
	if status >= fiber.StatusBadGateway {
		logger.WarnContext(c.UserContext(), "Upstream failure", "path", c.Path(), "error", err)
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidUserID),
		errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrInvalidAnswer),
		errors.Is(err, generator.ErrInvalidCount):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrGameNotFound),
		errors.Is(err, services.ErrNoGamesAvailable):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrCannotPlay):
		return fiber.StatusForbidden
	case errors.Is(err, services.ErrAlreadyPlayed):
		return fiber.StatusConflict
	case errors.Is(err, generator.ErrRateLimited),
		errors.Is(err, services.ErrGeneratorUnavailable):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, services.ErrUpstream),
		errors.Is(err, generator.ErrContentBlocked),
		errors.Is(err, generator.ErrGenerationStopped),
		errors.Is(err, generator.ErrNoImage),
		errors.Is(err, generator.ErrInvalidDifferences):
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}
