package httpapi

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediascraper/internal/store"
)

func newTestAppWithHandler(err error) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: newErrorHandler(nil)})
	app.Get("/x", func(c *fiber.Ctx) error { return err })
	return app
}

func TestErrorHandler_APIErrorUsesDeclaredStatus(t *testing.T) {
	app := newTestAppWithHandler(errConflict("already exists"))
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/x", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestErrorHandler_StoreNotFoundMapsTo404(t *testing.T) {
	app := newTestAppWithHandler(store.ErrNotFound)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/x", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestErrorHandler_StoreConflictMapsTo409(t *testing.T) {
	app := newTestAppWithHandler(store.ErrConflict)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/x", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestErrorHandler_UnknownErrorMaskedAs500(t *testing.T) {
	app := newTestAppWithHandler(errors.New("boom"))
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/x", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}
