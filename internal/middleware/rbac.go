package middleware

import (
	"slices"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/portfolio-api/internal/session"
	"github.com/noah-isme/portfolio-api/internal/utils"
)

// RequireRole guards a route group; the review queue, for example, admits
// only teachers and admins.
func RequireRole(roles ...session.Role) fiber.Handler {
	allowed := make([]session.Role, 0, len(roles))
	for _, role := range roles {
		if parsed := session.ParseRole(string(role)); parsed != session.RolePublic {
			allowed = append(allowed, parsed)
		}
	}

	return func(c *fiber.Ctx) error {
		user := session.Current(c)
		if !user.Authenticated() {
			return utils.Fail(c, fiber.StatusUnauthorized, "authentication required", nil)
		}
		if !slices.Contains(allowed, user.Role) {
			return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", nil)
		}
		return c.Next()
	}
}
