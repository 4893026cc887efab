package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/portfolio-api/internal/service"
	"github.com/noah-isme/portfolio-api/internal/utils"
)

// PortfolioHandler serves the public showcase of a student's verified work.
type PortfolioHandler struct {
	service service.PortfolioService
	logger  zerolog.Logger
}

// NewPortfolioHandler constructs a public portfolio handler.
func NewPortfolioHandler(service service.PortfolioService, logger zerolog.Logger) *PortfolioHandler {
	return &PortfolioHandler{
		service: service,
		logger:  logger.With().Str("component", "portfolio_handler").Logger(),
	}
}

// Register attaches public portfolio routes.
func (h *PortfolioHandler) Register(router fiber.Router) {
	router.Get("/:student_id", h.get)
}

func (h *PortfolioHandler) get(c *fiber.Ctx) error {
	studentID, err := parseUintParam(c, "student_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	portfolio, err := h.service.Get(requestContext(c), studentID)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	c.Set(fiber.HeaderCacheControl, "public, max-age=60")
	return utils.SendSuccess(c, "portfolio retrieved", portfolio)
}
