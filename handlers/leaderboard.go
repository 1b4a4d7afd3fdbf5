package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"spot-the-difference/services"
)

type LeaderboardHandler struct {
	Leaderboard *services.LeaderboardService
	Logger      *slog.Logger
}

func (h *LeaderboardHandler) Top(c *fiber.Ctx) error {
	entries, err := h.Leaderboard.Top(c.UserContext(), c.QueryInt("limit", services.MaxLeaderboardSize))
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(entries)
}
