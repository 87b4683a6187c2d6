package httpapi

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediascraper/internal/config"
	"mediascraper/internal/store"
)

func basicAuthHeader(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

func newAuthTestApp(cfg *config.Config) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: newErrorHandler(nil)})
	app.Use(basicAuthMiddleware(cfg, store.New(nil)))
	app.Get("/x", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	return app
}

func TestBasicAuth_MissingHeaderRejected(t *testing.T) {
	cfg := &config.Config{}
	cfg.Auth.Username, cfg.Auth.Password = "admin", "secret"
	app := newAuthTestApp(cfg)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/x", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderWWWAuthenticate))
}

func TestBasicAuth_WrongCredentialsRejected(t *testing.T) {
	cfg := &config.Config{}
	cfg.Auth.Username, cfg.Auth.Password = "admin", "secret"
	app := newAuthTestApp(cfg)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(fiber.HeaderAuthorization, basicAuthHeader("admin", "wrong"))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestParseBasicAuth_RoundTrip(t *testing.T) {
	user, pass, ok := parseBasicAuth(basicAuthHeader("admin", "s3cr3t"))
	require.True(t, ok)
	assert.Equal(t, "admin", user)
	assert.Equal(t, "s3cr3t", pass)
}

func TestParseBasicAuth_RejectsNonBasicScheme(t *testing.T) {
	_, _, ok := parseBasicAuth("Bearer abc123")
	assert.False(t, ok)
}
