package middleware

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/portfolio-api/internal/session"
	"github.com/noah-isme/portfolio-api/internal/utils"
)

var (
	errMissingToken    = errors.New("authorization token missing")
	errMalformedBearer = errors.New("invalid authorization header")
	errInvalidToken    = errors.New("invalid token")
	errInvalidSubject  = errors.New("invalid token subject")
	errInvalidRole     = errors.New("invalid token role")
)

var jwtParser = jwt.NewParser(jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))

// JWTProtected rejects requests without a valid session token and binds the
// caller otherwise. The token comes from the bearer header or, for browsers
// returning from SSO, the session cookie.
func JWTProtected(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := userFromRequest(c, secret)
		if err != nil {
			return utils.Fail(c, fiber.StatusUnauthorized, err.Error(), nil)
		}

		session.Bind(c, user)
		return c.Next()
	}
}

// OptionalJWT binds the caller when a valid token is present and lets
// anonymous requests through otherwise.
func OptionalJWT(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if user, err := userFromRequest(c, secret); err == nil {
			session.Bind(c, user)
		}
		return c.Next()
	}
}

func userFromRequest(c *fiber.Ctx, secret string) (session.User, error) {
	raw, err := tokenFromRequest(c)
	if err != nil {
		return session.Anonymous, err
	}

	claims := jwt.MapClaims{}
	token, err := jwtParser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return session.Anonymous, errInvalidToken
	}

	id, ok := subjectFromClaims(claims)
	if !ok {
		return session.Anonymous, errInvalidSubject
	}

	user := session.User{ID: id, Role: session.ParseRole(roleFromClaims(claims))}
	if !user.Authenticated() {
		return session.Anonymous, errInvalidRole
	}
	return user, nil
}

func tokenFromRequest(c *fiber.Ctx) (string, error) {
	header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if header == "" {
		if cookie := strings.TrimSpace(c.Cookies(session.CookieName)); cookie != "" {
			return cookie, nil
		}
		return "", errMissingToken
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", errMalformedBearer
	}
	if token = strings.TrimSpace(token); token == "" {
		return "", errMalformedBearer
	}
	return token, nil
}

// subjectFromClaims accepts the numeric user ID under sub, user_id or id, as a
// JSON number or a decimal string.
func subjectFromClaims(claims jwt.MapClaims) (uint, bool) {
	for _, key := range []string{"sub", "user_id", "id"} {
		var id uint64
		switch v := claims[key].(type) {
		case float64:
			if v <= 0 || v != float64(uint64(v)) {
				continue
			}
			id = uint64(v)
		case string:
			parsed, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
			if err != nil {
				continue
			}
			id = parsed
		default:
			continue
		}
		if id > 0 {
			return uint(id), true
		}
	}
	return 0, false
}

// roleFromClaims reads role, or the first non-empty entry of roles.
func roleFromClaims(claims jwt.MapClaims) string {
	if role, ok := claims["role"].(string); ok && strings.TrimSpace(role) != "" {
		return role
	}
	if roles, ok := claims["roles"].([]interface{}); ok {
		for _, item := range roles {
			if role, ok := item.(string); ok && strings.TrimSpace(role) != "" {
				return role
			}
		}
	}
	return ""
}
