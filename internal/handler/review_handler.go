package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/portfolio-api/internal/dto"
	"github.com/noah-isme/portfolio-api/internal/service"
	"github.com/noah-isme/portfolio-api/internal/session"
	"github.com/noah-isme/portfolio-api/internal/utils"
)

// ReviewHandler exposes the teacher review queue and decisions.
type ReviewHandler struct {
	service service.ReviewService
	logger  zerolog.Logger
}

// NewReviewHandler constructs a review handler.
func NewReviewHandler(service service.ReviewService, logger zerolog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: service,
		logger:  logger.With().Str("component", "review_handler").Logger(),
	}
}

// Register attaches review routes.
func (h *ReviewHandler) Register(router fiber.Router) {
	router.Get("", h.queue)
	router.Post("/:id/review", h.review)
}

func (h *ReviewHandler) queue(c *fiber.Ctx) error {
	var query dto.AssignmentListQuery
	if err := c.QueryParser(&query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}

	result, err := h.service.Queue(requestContext(c), session.Current(c), query)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return utils.OK(c, result.Items, "review queue", fiber.Map{
		"total":     result.Total,
		"page":      result.Page,
		"page_size": result.PageSize,
	})
}

func (h *ReviewHandler) review(c *fiber.Ctx) error {
	var payload dto.ReviewDecisionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request payload")
	}

	result, err := h.service.Review(requestContext(c), session.Current(c), c.Params("id"), payload)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "review recorded", result)
}
