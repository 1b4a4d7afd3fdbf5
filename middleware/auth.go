// middleware/auth.go
package middleware

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	localUserID   = "user_id"
	localUserName = "user_name"
)

// UserContextMiddleware extracts the user identity set by the Gateway and
// rejects requests without one.
func UserContextMiddleware(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := strings.TrimSpace(c.Get("X-User-ID"))
		if userID == "" {
			logger.Warn("[USER_CTX] X-User-ID required but missing", "path", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-User-ID, request must come through gateway with auth context",
			})
		}

		// Attach to ctx for handlers
		c.Locals(localUserID, userID)
		c.Locals(localUserName, strings.TrimSpace(c.Get("X-User-Name")))

		logger.Debug("[USER_CTX] user attached", "user_id", userID, "path", c.Path())
		return c.Next()
	}
}

// UserID returns the caller set by UserContextMiddleware.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(localUserID).(string)
	return id
}

// UserName returns the display name forwarded by the Gateway, if any.
func UserName(c *fiber.Ctx) string {
	name, _ := c.Locals(localUserName).(string)
	return name
}
