package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/portfolio-api/internal/middleware"
	"github.com/noah-isme/portfolio-api/internal/service"
	"github.com/noah-isme/portfolio-api/internal/utils"
	"github.com/noah-isme/portfolio-api/internal/workflow"
)

func parseUintParam(c *fiber.Ctx, key string) (uint, error) {
	value := strings.TrimSpace(c.Params(key))
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil || parsed == 0 {
		return 0, errors.New("invalid " + key)
	}
	return uint(parsed), nil
}

func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

// missingFieldsResponse is the 422 body listing what blocks a submission.
type missingFieldsResponse struct {
	Missing map[workflow.Step][]string `json:"missing"`
}

// handleError maps service and workflow errors to HTTP responses.
func handleError(c *fiber.Ctx, logger zerolog.Logger, err error) error {
	var (
		validationErrors validator.ValidationErrors
		incomplete       *workflow.IncompleteError
	)

	switch {
	case errors.As(err, &incomplete):
		return utils.Fail(c, fiber.StatusUnprocessableEntity, "assignment is incomplete", missingFieldsResponse{Missing: incomplete.Missing})
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	case errors.Is(err, workflow.ErrUnknownStep),
		errors.Is(err, workflow.ErrUnknownStatus),
		errors.Is(err, workflow.ErrUnknownQuestion),
		errors.Is(err, workflow.ErrUnknownMonth):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, workflow.ErrInvalidTransition),
		errors.Is(err, workflow.ErrStepLocked),
		errors.Is(err, service.ErrAssignmentLocked):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrAssignmentNotFound),
		errors.Is(err, service.ErrDraftNotFound),
		errors.Is(err, service.ErrStudentNotFound),
		errors.Is(err, service.ErrNotificationNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrForbidden):
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	case errors.Is(err, service.ErrUploadTooLarge):
		return utils.SendError(c, fiber.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, service.ErrUploadTypeNotAllowed),
		errors.Is(err, service.ErrUploadScanFailed),
		errors.Is(err, service.ErrUploadMissing):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrStorageUnavailable):
		requestLogger(logger, c).Error().Err(err).Msg("artifact storage failed")
		return utils.FailRetryable(c, fiber.StatusBadGateway, "artifact storage unavailable")
	default:
		requestLogger(logger, c).Error().Err(err).Msg("request failed")
		return utils.FailRetryable(c, fiber.StatusInternalServerError, "internal server error")
	}
}
