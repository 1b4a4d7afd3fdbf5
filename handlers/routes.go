// handlers/routes.go
package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"spot-the-difference/middleware"
)

// Routes bundles everything SetupRoutes mounts.
type Routes struct {
	Games       *GameHandler
	Users       *UserHandler
	Leaderboard *LeaderboardHandler
	Generate    *GenerateHandler
	Limiter     *middleware.KeyedRateLimiter
	Logger      *slog.Logger
}

// SetupRoutes mounts the API. Gateway auth is expected to be installed on app
// already.
func SetupRoutes(app fiber.Router, r Routes) {
	// 🔓 No user context needed
	app.Get("/quota/app", r.Users.AppQuota)
	app.Get("/leaderboard", r.Leaderboard.Top)
	app.Get("/games/community", r.Games.CommunityGames)

	// 🔐 Everything below requires X-User-ID
	secured := app.Group("/", middleware.UserContextMiddleware(r.Logger))

	secured.Post("/users/me", r.Users.SyncMe)
	secured.Get("/users/me", r.Users.GetMe)
	secured.Get("/users/me/quota", r.Users.MyQuota)
	secured.Get("/users/me/games", r.Users.MyGames)

	throttle := middleware.RateLimitMiddleware(r.Limiter)

	secured.Get("/games/random", r.Games.RandomGame)
	secured.Post("/games/generate", throttle, r.Games.GenerateGame)
	secured.Post("/games", r.Games.CreateGame)
	secured.Get("/games/:id", r.Games.GetGame)
	secured.Get("/games/:id/play", r.Games.GetPlay)
	secured.Post("/games/:id/verify", r.Games.VerifyAnswer)

	secured.Post("/generate/image", throttle, r.Generate.Image)
	secured.Post("/generate/differences", throttle, r.Generate.Differences)
	secured.Post("/generate/modified", throttle, r.Generate.Modified)
}
