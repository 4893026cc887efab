package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/portfolio-api/internal/models"
	"github.com/noah-isme/portfolio-api/internal/session"
)

const testUserHeader = "X-Test-User"

type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Meta      json.RawMessage `json:"meta"`
	Details   json.RawMessage `json:"details"`
	Retryable bool            `json:"retryable"`
	Message   string          `json:"message"`
}

// fakeAuth binds the user named in the X-Test-User header ("role:id").
func fakeAuth(c *fiber.Ctx) error {
	header := c.Get(testUserHeader)
	if header == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "authorization header missing"})
	}
	role, id, _ := strings.Cut(header, ":")
	parsed, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return c.SendStatus(fiber.StatusUnauthorized)
	}
	session.Bind(c, session.User{ID: uint(parsed), Role: session.ParseRole(role)})
	return c.Next()
}

func optionalFakeAuth(c *fiber.Ctx) error {
	if c.Get(testUserHeader) == "" {
		return c.Next()
	}
	return fakeAuth(c)
}

func asUser(user session.User) string {
	return fmt.Sprintf("%s:%d", user.Role, user.ID)
}

func doJSON(t *testing.T, app *fiber.App, method, path string, user *session.User, body interface{}) (*http.Response, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != nil {
		req.Header.Set(testUserHeader, asUser(*user))
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp, decodeEnvelope(t, resp)
}

func decodeEnvelope(t *testing.T, resp *http.Response) envelope {
	t.Helper()
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var env envelope
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return env
}

func setupHandlerDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:handler_%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func boolRef(v bool) *bool {
	return &v
}
