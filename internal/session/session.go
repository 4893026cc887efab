// Package session describes the authenticated caller of a request. A User is
// resolved once per request by middleware and passed explicitly to services.
package session

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Role is the caller's authorization role.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
	RolePublic  Role = "public"
)

// CookieName carries the session token issued by the SSO exchange.
const CookieName = "portfolio_session"

const (
	localsUserID = "user_id"
	localsRole   = "user_role"
)

// ParseRole maps a claim value to a Role; unknown values fall back to public.
func ParseRole(value string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(value))) {
	case RoleStudent:
		return RoleStudent
	case RoleTeacher:
		return RoleTeacher
	case RoleAdmin:
		return RoleAdmin
	default:
		return RolePublic
	}
}

// User is the current caller.
type User struct {
	ID   uint
	Role Role
}

// Anonymous is the caller of an unauthenticated request.
var Anonymous = User{Role: RolePublic}

// Authenticated reports whether the caller carries an identity.
func (u User) Authenticated() bool {
	return u.ID != 0 && u.Role != RolePublic
}

// IsReviewer reports whether the caller can review assignments.
func (u User) IsReviewer() bool {
	return u.Role == RoleTeacher || u.Role == RoleAdmin
}

// Bind stores the user on the request.
func Bind(c *fiber.Ctx, user User) {
	c.Locals(localsUserID, user.ID)
	c.Locals(localsRole, string(user.Role))
}

// Current returns the user bound to the request, or Anonymous.
func Current(c *fiber.Ctx) User {
	if c == nil {
		return Anonymous
	}
	user := User{Role: RolePublic}
	switch id := c.Locals(localsUserID).(type) {
	case uint:
		user.ID = id
	case int:
		if id > 0 {
			user.ID = uint(id)
		}
	}
	if role, ok := c.Locals(localsRole).(string); ok {
		user.Role = ParseRole(role)
	}
	if user.ID == 0 {
		return Anonymous
	}
	return user
}
