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

func newPageLimitTestApp() *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: newErrorHandler(nil)})
	app.Get("/x", func(c *fiber.Ctx) error {
		page, limit, err := parsePageLimit(c)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"page": page, "limit": limit})
	})
	return app
}

func TestParsePageLimit_Defaults(t *testing.T) {
	app := newPageLimitTestApp()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/x", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestParsePageLimit_RejectsOutOfRangeLimit(t *testing.T) {
	app := newPageLimitTestApp()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/x?limit=500", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestParsePageLimit_RejectsNonPositivePage(t *testing.T) {
	app := newPageLimitTestApp()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/x?page=0", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestJobResponse_OmitsURLsUnlessIncluded(t *testing.T) {
	job := model.Job{
		ID:        1,
		URLs:      []string{"https://a.com", "https://b.com"},
		Status:    model.JobCompleted,
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	summary := jobResponse(job, 4, false)
	assert.Nil(t, summary.URLs)
	assert.Equal(t, 2, summary.TotalURLs)
	assert.Equal(t, 4, summary.MediaFound)

	detail := jobResponse(job, 4, true)
	assert.Equal(t, job.URLs, detail.URLs)
}
