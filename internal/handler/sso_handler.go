package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/portfolio-api/internal/service"
	"github.com/noah-isme/portfolio-api/internal/session"
	"github.com/noah-isme/portfolio-api/internal/utils"
)

const authCookieName = session.CookieName

// SSOExchangeRequest carries the partner token.
type SSOExchangeRequest struct {
	Token string `json:"token"`
}

// SSOExchangeResponse tells the client where to go after the exchange.
type SSOExchangeResponse struct {
	RedirectURL  string     `json:"redirect_url"`
	SessionToken string     `json:"session_token,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	ClearAuth    bool       `json:"clear_auth"`
	UserID       uint       `json:"user_id,omitempty"`
	Role         string     `json:"role,omitempty"`
}

// SSOHandler exchanges partner tokens for API sessions.
type SSOHandler struct {
	service service.SSOService
	secure  bool
	logger  zerolog.Logger
}

// NewSSOHandler constructs an SSO handler. Secure marks the session cookie
// as HTTPS-only.
func NewSSOHandler(service service.SSOService, secure bool, logger zerolog.Logger) *SSOHandler {
	return &SSOHandler{
		service: service,
		secure:  secure,
		logger:  logger.With().Str("component", "sso_handler").Logger(),
	}
}

// Register attaches SSO routes.
func (h *SSOHandler) Register(router fiber.Router) {
	router.Post("/exchange", h.exchange)
	router.Get("/exchange", h.exchange)
}

func (h *SSOHandler) exchange(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" && c.Method() == fiber.MethodPost {
		var payload SSOExchangeRequest
		if err := c.BodyParser(&payload); err == nil {
			token = payload.Token
		}
	}

	result, err := h.service.Exchange(requestContext(c), token)
	response := SSOExchangeResponse{
		RedirectURL: result.RedirectURL,
		ClearAuth:   result.ClearAuth,
	}

	if err != nil {
		if result.ClearAuth {
			c.Cookie(&fiber.Cookie{
				Name:     authCookieName,
				Value:    "",
				Path:     "/",
				Expires:  time.Unix(0, 0),
				HTTPOnly: true,
				Secure:   h.secure,
			})
		}
		if errors.Is(err, service.ErrSSOInvalidToken) {
			return c.Status(fiber.StatusUnauthorized).JSON(utils.APIResponse{
				Success: false,
				Data:    response,
				Message: err.Error(),
			})
		}
		return handleError(c, h.logger, err)
	}

	expiresAt := result.ExpiresAt
	response.SessionToken = result.SessionToken
	response.ExpiresAt = &expiresAt
	response.UserID = result.User.ID
	response.Role = string(result.User.Role)

	c.Cookie(&fiber.Cookie{
		Name:     authCookieName,
		Value:    result.SessionToken,
		Path:     "/",
		Expires:  expiresAt,
		HTTPOnly: true,
		Secure:   h.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	return utils.SendSuccess(c, "session established", response)
}
