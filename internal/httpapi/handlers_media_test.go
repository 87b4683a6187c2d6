package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediascraper/internal/model"
)

func TestHandleListMedia_RejectsUnknownType(t *testing.T) {
	s := &Server{}
	app := fiber.New(fiber.Config{ErrorHandler: newErrorHandler(nil)})
	app.Get("/media", s.handleListMedia)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/media?type=audio", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestMediaResponse_MapsFields(t *testing.T) {
	m := model.Media{
		ID:        7,
		JobID:     3,
		SourceURL: "https://example.com/page",
		MediaURL:  "https://example.com/a.jpg",
		Type:      model.MediaImage,
		Title:     "cover",
		CreatedAt: time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC),
	}

	resp := mediaResponse(m)
	assert.Equal(t, int64(7), resp.ID)
	assert.Equal(t, "image", resp.Type)
	assert.Equal(t, "2026-02-03T04:05:06Z", resp.CreatedAt)
	assert.Equal(t, int64(3), resp.JobID)
}
