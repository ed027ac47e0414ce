package serverutils

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func testApp() *fiber.App {
	app := fiber.New()
	app.Get("/protected", NewJwtMiddleware(testSecret), func(ctx *fiber.Ctx) error {
		return ctx.SendString(ctx.Locals(LocalsSessionID).(string))
	})
	return app
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	app := testApp()
	req := httptest.NewRequest("GET", "/protected", nil)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestMiddlewareAcceptsCookieToken(t *testing.T) {
	token, err := SignSessionToken(testSecret, "sess-123", time.Hour)
	require.NoError(t, err)

	app := testApp()
	req := httptest.NewRequest("GET", "/protected", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestMiddlewareAcceptsBearerToken(t *testing.T) {
	token, err := SignSessionToken(testSecret, "sess-123", time.Hour)
	require.NoError(t, err)

	app := testApp()
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestMiddlewareRejectsWrongSecret(t *testing.T) {
	token, err := SignSessionToken("other-secret", "sess-123", time.Hour)
	require.NoError(t, err)

	app := testApp()
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestMiddlewareRejectsExpiredToken(t *testing.T) {
	token, err := SignSessionToken(testSecret, "sess-123", -time.Minute)
	require.NoError(t, err)

	app := testApp()
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
