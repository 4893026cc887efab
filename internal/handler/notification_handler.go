package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/portfolio-api/internal/dto"
	"github.com/noah-isme/portfolio-api/internal/service"
	"github.com/noah-isme/portfolio-api/internal/session"
	"github.com/noah-isme/portfolio-api/internal/utils"
)

// NotificationHandler manages SSE notification streams and the inbox.
type NotificationHandler struct {
	service service.NotificationService
	logger  zerolog.Logger
	timeout time.Duration
}

// NewNotificationHandler constructs a handler instance.
func NewNotificationHandler(service service.NotificationService, logger zerolog.Logger, timeout time.Duration) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		logger:  logger.With().Str("component", "notification_handler").Logger(),
		timeout: timeout,
	}
}

// Register binds the notification routes.
func (h *NotificationHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/stream", h.stream)
	router.Patch("/:id/read", h.markRead)
}

func (h *NotificationHandler) list(c *fiber.Ctx) error {
	user := session.Current(c)
	if !user.Authenticated() {
		return utils.Fail(c, fiber.StatusUnauthorized, "authentication required", nil)
	}

	var query dto.NotificationListQuery
	if err := c.QueryParser(&query); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid query parameters", nil)
	}

	inbox, err := h.service.List(requestContext(c), user.ID, query)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return utils.OK(c, inbox.Items, "notifications", fiber.Map{
		"unread": inbox.Unread,
		"limit":  query.Limit,
		"offset": query.Offset,
	})
}

// stream pushes the caller's notifications as server-sent events until the
// client disconnects. Comments keep idle proxies from closing the socket.
func (h *NotificationHandler) stream(c *fiber.Ctx) error {
	user := session.Current(c)
	if !user.Authenticated() {
		return utils.Fail(c, fiber.StatusUnauthorized, "authentication required", nil)
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	ctx, cancel := context.WithCancel(requestContext(c))
	events, unsubscribe := h.service.Subscribe(user.ID)
	interval := h.keepAlive()
	logger := h.logger.With().Uint("user_id", user.ID).Logger()

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		defer unsubscribe()

		sse := eventWriter{w: w}
		if err := sse.open(interval); err != nil {
			return
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case notification, ok := <-events:
				if !ok {
					return
				}
				if err := sse.notification(notification); err != nil {
					logger.Debug().Err(err).Msg("notification stream closed")
					return
				}
			case now := <-ticker.C:
				if err := sse.comment("ping " + now.UTC().Format(time.RFC3339)); err != nil {
					logger.Debug().Err(err).Msg("notification stream closed")
					return
				}
			}
		}
	})

	return nil
}

func (h *NotificationHandler) keepAlive() time.Duration {
	if h.timeout <= 0 {
		return 15 * time.Second
	}
	return h.timeout / 2
}

func (h *NotificationHandler) markRead(c *fiber.Ctx) error {
	user := session.Current(c)
	if !user.Authenticated() {
		return utils.Fail(c, fiber.StatusUnauthorized, "authentication required", nil)
	}

	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid notification id", nil)
	}

	notification, err := h.service.MarkRead(requestContext(c), id, user.ID)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return utils.OK(c, notification, "notification marked as read", nil)
}

// eventWriter frames server-sent events. Every write is flushed so events
// reach the browser immediately.
type eventWriter struct {
	w *bufio.Writer
}

func (e eventWriter) open(retry time.Duration) error {
	if _, err := fmt.Fprintf(e.w, "retry: %d\n\n", retry.Milliseconds()); err != nil {
		return err
	}
	return e.w.Flush()
}

func (e eventWriter) notification(n dto.NotificationResponse) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(e.w, "id: %d\nevent: notification\ndata: %s\n\n", n.ID, payload); err != nil {
		return err
	}
	return e.w.Flush()
}

func (e eventWriter) comment(text string) error {
	if _, err := fmt.Fprintf(e.w, ": %s\n\n", text); err != nil {
		return err
	}
	return e.w.Flush()
}
