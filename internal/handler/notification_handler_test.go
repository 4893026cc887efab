package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/portfolio-api/internal/dto"
	"github.com/noah-isme/portfolio-api/internal/handler"
	"github.com/noah-isme/portfolio-api/internal/service"
)

type stubNotificationService struct {
	listedFor uint
	query     dto.NotificationListQuery
	items     []dto.NotificationResponse
	markErr   error
}

func (s *stubNotificationService) Notify(context.Context, service.NotificationEvent) {}

func (s *stubNotificationService) List(_ context.Context, userID uint, query dto.NotificationListQuery) (dto.NotificationListResponse, error) {
	s.listedFor = userID
	s.query = query
	return dto.NotificationListResponse{Items: s.items, Unread: int64(len(s.items))}, nil
}

func (s *stubNotificationService) MarkRead(_ context.Context, id uint, userID uint) (dto.NotificationResponse, error) {
	if s.markErr != nil {
		return dto.NotificationResponse{}, s.markErr
	}
	return dto.NotificationResponse{ID: id, UserID: userID, Read: true}, nil
}

func (s *stubNotificationService) Subscribe(uint) (<-chan dto.NotificationResponse, func()) {
	ch := make(chan dto.NotificationResponse)
	return ch, func() {}
}

func (s *stubNotificationService) Start(context.Context) {}

func newNotificationApp(svc service.NotificationService) *fiber.App {
	app := fiber.New()
	group := app.Group("/api/v2/notifications", fakeAuth)
	handler.NewNotificationHandler(svc, zerolog.Nop(), 0).Register(group)
	return app
}

func TestNotificationHandlerListsCallerInbox(t *testing.T) {
	svc := &stubNotificationService{items: []dto.NotificationResponse{{ID: 3, UserID: teacherUser.ID, Type: service.NotificationAssignmentSubmitted}}}
	app := newNotificationApp(svc)

	resp, env := doJSON(t, app, http.MethodGet, "/api/v2/notifications?limit=5&unread=true", &teacherUser, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.True(t, env.Success)
	require.Equal(t, teacherUser.ID, svc.listedFor)
	require.Equal(t, dto.NotificationListQuery{Limit: 5, UnreadOnly: true}, svc.query)
	require.JSONEq(t, `{"unread":1,"limit":5,"offset":0}`, string(env.Meta))

	resp, _ = doJSON(t, app, http.MethodGet, "/api/v2/notifications?limit=many", &teacherUser, nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestNotificationHandlerMarkRead(t *testing.T) {
	svc := &stubNotificationService{}
	app := newNotificationApp(svc)

	resp, _ := doJSON(t, app, http.MethodPatch, "/api/v2/notifications/3/read", &studentUser, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	svc.markErr = service.ErrNotificationNotFound
	resp, _ = doJSON(t, app, http.MethodPatch, "/api/v2/notifications/3/read", &studentUser, nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPatch, "/api/v2/notifications/x/read", &studentUser, nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
