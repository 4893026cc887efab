package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/portfolio-api/internal/dto"
	"github.com/noah-isme/portfolio-api/internal/service"
	"github.com/noah-isme/portfolio-api/internal/session"
	"github.com/noah-isme/portfolio-api/internal/utils"
)

// DraftHandler persists in-progress wizard state.
type DraftHandler struct {
	service service.DraftService
	logger  zerolog.Logger
}

// NewDraftHandler constructs a draft handler.
func NewDraftHandler(service service.DraftService, logger zerolog.Logger) *DraftHandler {
	return &DraftHandler{
		service: service,
		logger:  logger.With().Str("component", "draft_handler").Logger(),
	}
}

// Register attaches draft routes. The id is an assignment id or "new".
func (h *DraftHandler) Register(router fiber.Router) {
	router.Get("/:id", h.load)
	router.Put("/:id", h.save)
	router.Delete("/:id", h.clear)
}

func (h *DraftHandler) load(c *fiber.Ctx) error {
	result, err := h.service.Load(requestContext(c), session.Current(c), c.Params("id"))
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "draft retrieved", result)
}

func (h *DraftHandler) save(c *fiber.Ctx) error {
	var payload dto.DraftSaveRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request payload")
	}

	result, err := h.service.Save(requestContext(c), session.Current(c), c.Params("id"), payload)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "draft saved", result)
}

func (h *DraftHandler) clear(c *fiber.Ctx) error {
	if err := h.service.Clear(requestContext(c), session.Current(c), c.Params("id")); err != nil {
		return handleError(c, h.logger, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
