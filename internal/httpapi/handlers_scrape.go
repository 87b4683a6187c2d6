package httpapi

import (
	"net/url"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"mediascraper/internal/cache"
)

func (s *Server) handleSubmitScrape(c *fiber.Ctx) error {
	var req ScrapeRequest
	if err := c.BodyParser(&req); err != nil {
		return errValidation("malformed request body")
	}

	if len(req.URLs) == 0 || len(req.URLs) > s.cfg.Scraper.MaxURLsPerJob {
		return errValidation("urls must contain between 1 and " + strconv.Itoa(s.cfg.Scraper.MaxURLsPerJob) + " entries")
	}
	for _, raw := range req.URLs {
		if !validHTTPURL(raw) {
			return errValidation("invalid url: " + raw)
		}
	}

	res, err := s.ctl.Submit(c.Context(), nil, req.URLs)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(Envelope{
		Success: true,
		Data: ScrapeResponse{
			JobID:             res.JobID,
			Status:            string(res.Status),
			TotalURLs:         res.TotalURLs,
			DuplicatesRemoved: res.DuplicatesRemoved,
			CreatedAt:         res.CreatedAt.Format(time.RFC3339),
		},
	})
}

func (s *Server) handleQueueStats(c *fiber.Ctx) error {
	var resp QueueStatsResponse
	if s.cache.GetJSON(c.Context(), cache.QueueStatsKey, &resp) {
		return c.JSON(Envelope{Success: true, Data: resp})
	}

	stats, err := s.ctl.QueueStats(c.Context())
	if err != nil {
		return err
	}
	resp = QueueStatsResponse{
		Waiting:     stats.Waiting,
		Active:      stats.Active,
		Completed:   stats.Completed,
		Failed:      stats.Failed,
		IsPaused:    stats.IsPaused,
		PausedByCPU: stats.PausedByCPU,
	}
	s.cache.SetQueueStats(c.Context(), resp)
	return c.JSON(Envelope{Success: true, Data: resp})
}

func validHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
