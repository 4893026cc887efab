package handler

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/portfolio-api/internal/service"
	"github.com/noah-isme/portfolio-api/internal/session"
	"github.com/noah-isme/portfolio-api/internal/utils"
)

const uploadFormField = "file"

// UploadHandler accepts artifact files for the wizard's evidence step. The
// returned file reference is attached to an assignment on the next save.
type UploadHandler struct {
	service service.UploadService
	logger  zerolog.Logger
}

func NewUploadHandler(service service.UploadService, logger zerolog.Logger) *UploadHandler {
	return &UploadHandler{
		service: service,
		logger:  logger.With().Str("component", "upload_handler").Logger(),
	}
}

func (h *UploadHandler) Register(router fiber.Router) {
	router.Post("", h.upload)
}

func (h *UploadHandler) upload(c *fiber.Ctx) error {
	header, err := c.FormFile(uploadFormField)
	if err != nil {
		return handleError(c, h.logger, service.ErrUploadMissing)
	}

	processDocumentation := false
	if raw := strings.TrimSpace(c.FormValue("process_documentation")); raw != "" {
		processDocumentation, err = strconv.ParseBool(raw)
		if err != nil {
			return utils.Fail(c, fiber.StatusBadRequest, "process_documentation must be a boolean", nil)
		}
	}

	result, err := h.service.Upload(requestContext(c), session.Current(c), header, processDocumentation)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "artifact uploaded", result)
}
