package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"spot-the-difference/middleware"
	"spot-the-difference/services"
)

type UserHandler struct {
	Users  *services.UserService
	Quota  *services.QuotaService
	Games  *services.GameService
	Logger *slog.Logger
}

// SyncMe is called by the client after every sign-in.
func (h *UserHandler) SyncMe(c *fiber.Ctx) error {
	var req services.SignIn
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	req.ID = middleware.UserID(c)
	if req.DisplayName == "" {
		req.DisplayName = middleware.UserName(c)
	}

	user, err := h.Users.SyncUser(c.UserContext(), req)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(user)
}

func (h *UserHandler) GetMe(c *fiber.Ctx) error {
	user, err := h.Users.GetUser(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(user)
}

func (h *UserHandler) MyQuota(c *fiber.Ctx) error {
	ctx := c.UserContext()
	user, err := h.Quota.UserQuota(ctx, middleware.UserID(c))
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	app, err := h.Quota.AppQuota(ctx)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(services.QuotaReservation{UserQuota: user, AppQuota: app})
}

func (h *UserHandler) AppQuota(c *fiber.Ctx) error {
	app, err := h.Quota.AppQuota(c.UserContext())
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(app)
}

// MyGames lists the caller's own rounds, ground truth included.
func (h *UserHandler) MyGames(c *fiber.Ctx) error {
	games, err := h.Games.CreatorGames(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(games)
}
