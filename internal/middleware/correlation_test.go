package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func correlationApp() *fiber.App {
	app := fiber.New()
	app.Use(CorrelationID())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(GetCorrelationID(c) + "|" + CorrelationIDFromContext(c.UserContext()))
	})
	return app
}

func TestCorrelationIDReusesIncomingHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-42")

	resp, err := correlationApp().Test(req)
	require.NoError(t, err)
	require.Equal(t, "req-42", resp.Header.Get("X-Correlation-ID"))

	var body bytes.Buffer
	_, err = body.ReadFrom(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "req-42|req-42", body.String())
}

func TestCorrelationIDReplacesUnsafeHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Correlation-ID", strings.Repeat("a", 200))

	resp, err := correlationApp().Test(req)
	require.NoError(t, err)
	require.Len(t, resp.Header.Get("X-Correlation-ID"), 36)
}

func TestContextWithCorrelationIgnoresBlank(t *testing.T) {
	ctx := ContextWithCorrelation(nil, "  ")
	require.NotNil(t, ctx)
	require.Empty(t, CorrelationIDFromContext(ctx))
	require.Equal(t, "abc", CorrelationIDFromContext(ContextWithCorrelation(ctx, " abc ")))
}
