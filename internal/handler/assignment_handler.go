package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/portfolio-api/internal/dto"
	"github.com/noah-isme/portfolio-api/internal/service"
	"github.com/noah-isme/portfolio-api/internal/session"
	"github.com/noah-isme/portfolio-api/internal/utils"
)

// AssignmentHandler wires the student assignment wizard routes.
type AssignmentHandler struct {
	service service.AssignmentService
	reviews service.ReviewService
	logger  zerolog.Logger
}

// NewAssignmentHandler constructs the handler. The review service backs the
// publish route, which students share with reviewers.
func NewAssignmentHandler(service service.AssignmentService, reviews service.ReviewService, logger zerolog.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		service: service,
		reviews: reviews,
		logger:  logger.With().Str("component", "assignment_handler").Logger(),
	}
}

// Register attaches assignment endpoints to the router group.
func (h *AssignmentHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Put("/:id", h.update)
	router.Delete("/:id", h.delete)
	router.Post("/:id/navigate", h.navigate)
	router.Post("/:id/submit", h.submit)
	router.Get("/:id/sanity", h.sanity)
	router.Get("/:id/history", h.history)
	router.Post("/:id/publish", h.publish)
}

func (h *AssignmentHandler) list(c *fiber.Ctx) error {
	var query dto.AssignmentListQuery
	if err := c.QueryParser(&query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}

	result, err := h.service.List(requestContext(c), session.Current(c), query)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return utils.OK(c, result.Items, "assignments retrieved", fiber.Map{
		"total":     result.Total,
		"page":      result.Page,
		"page_size": result.PageSize,
	})
}

func (h *AssignmentHandler) create(c *fiber.Ctx) error {
	var payload dto.AssignmentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request payload")
	}

	assignment, err := h.service.Create(requestContext(c), session.Current(c), payload)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "assignment created", assignment)
}

func (h *AssignmentHandler) get(c *fiber.Ctx) error {
	assignment, err := h.service.Get(requestContext(c), session.Current(c), c.Params("id"))
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "assignment retrieved", assignment)
}

func (h *AssignmentHandler) update(c *fiber.Ctx) error {
	var payload dto.AssignmentUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request payload")
	}

	assignment, err := h.service.Update(requestContext(c), session.Current(c), c.Params("id"), payload)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "assignment updated", assignment)
}

func (h *AssignmentHandler) delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.service.Delete(requestContext(c), session.Current(c), id); err != nil {
		return handleError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "assignment deleted", fiber.Map{"id": id})
}

func (h *AssignmentHandler) navigate(c *fiber.Ctx) error {
	var payload dto.StepNavigationRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request payload")
	}

	result, err := h.service.Navigate(requestContext(c), session.Current(c), c.Params("id"), payload)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "step completed", result)
}

func (h *AssignmentHandler) submit(c *fiber.Ctx) error {
	assignment, err := h.service.Submit(requestContext(c), session.Current(c), c.Params("id"))
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "assignment submitted", assignment)
}

func (h *AssignmentHandler) sanity(c *fiber.Ctx) error {
	result, err := h.service.SanityCheck(requestContext(c), session.Current(c), c.Params("id"))
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "sanity check completed", result)
}

func (h *AssignmentHandler) history(c *fiber.Ctx) error {
	entries, err := h.service.History(requestContext(c), session.Current(c), c.Params("id"))
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "assignment history", entries)
}

func (h *AssignmentHandler) publish(c *fiber.Ctx) error {
	if h.reviews == nil {
		return utils.SendError(c, fiber.StatusNotImplemented, "publishing is not available")
	}

	assignment, err := h.reviews.Publish(requestContext(c), session.Current(c), c.Params("id"))
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "assignment published", assignment)
}
