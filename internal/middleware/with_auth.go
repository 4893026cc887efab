package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/portfolio-api/internal/session"
	"github.com/noah-isme/portfolio-api/internal/utils"
)

// Role requirements accepted by WithAuth.
const (
	AuthRoleAny      = "any"
	AuthRoleStudent  = "student"
	AuthRoleReviewer = "reviewer"
)

var authRoleChecks = map[string]func(session.User) bool{
	AuthRoleAny:      func(session.User) bool { return true },
	AuthRoleStudent:  func(u session.User) bool { return u.Role == session.RoleStudent },
	AuthRoleReviewer: session.User.IsReviewer,
}

// AuthOptions configures WithAuth. Any role other than AuthRoleAny implies
// RequireUser.
type AuthOptions struct {
	Role        string
	RequireUser bool
}

// WithAuth guards a single handler using the session bound by JWTProtected
// or OptionalJWT. Unknown roles are matched against the caller's role name.
func WithAuth(handler fiber.Handler, opts AuthOptions) fiber.Handler {
	role := strings.ToLower(strings.TrimSpace(opts.Role))
	if role == "" {
		role = AuthRoleAny
	}
	allowed, ok := authRoleChecks[role]
	if !ok {
		allowed = func(u session.User) bool { return string(u.Role) == role }
	}
	requireUser := opts.RequireUser || role != AuthRoleAny

	return func(c *fiber.Ctx) error {
		user := session.Current(c)
		if requireUser && !user.Authenticated() {
			return utils.Fail(c, fiber.StatusUnauthorized, "authentication required", nil)
		}
		if !allowed(user) {
			return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", nil)
		}
		return handler(c)
	}
}
