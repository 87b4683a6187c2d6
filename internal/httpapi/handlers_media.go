package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"mediascraper/internal/cache"
	"mediascraper/internal/model"
	"mediascraper/internal/store"
)

type cachedMediaList struct {
	Items []MediaResponse `json:"items"`
	Total int             `json:"total"`
}

func (s *Server) handleListMedia(c *fiber.Ctx) error {
	page, limit, err := parsePageLimit(c)
	if err != nil {
		return err
	}

	mediaType := c.Query("type")
	if mediaType != "" && mediaType != string(model.MediaImage) && mediaType != string(model.MediaVideo) {
		return errValidation("type must be image or video")
	}
	search := c.Query("search")

	cacheKey := cache.MediaListKey(page, limit, mediaType, search)
	var cached cachedMediaList
	if s.cache.GetJSON(c.Context(), cacheKey, &cached) {
		return c.JSON(Envelope{Success: true, Data: cached.Items, Pagination: newPagination(cached.Total, page, limit)})
	}

	filter := store.MediaFilter{Type: model.MediaType(mediaType), Search: search}
	items, total, err := s.store.ListMedia(c.Context(), filter, limit, (page-1)*limit)
	if err != nil {
		return err
	}

	out := make([]MediaResponse, 0, len(items))
	for _, m := range items {
		out = append(out, mediaResponse(m))
	}

	s.cache.SetMediaList(c.Context(), cacheKey, cachedMediaList{Items: out, Total: total})
	return c.JSON(Envelope{Success: true, Data: out, Pagination: newPagination(total, page, limit)})
}

func (s *Server) handleMediaStats(c *fiber.Ctx) error {
	var stats MediaStatsResponse
	if s.cache.GetJSON(c.Context(), cache.MediaStatsKey, &stats) {
		return c.JSON(Envelope{Success: true, Data: stats})
	}

	raw, err := s.store.GetMediaStats(c.Context())
	if err != nil {
		return err
	}
	stats = MediaStatsResponse{Total: raw.Total, Images: raw.Images, Videos: raw.Videos, Last24h: raw.Last24h}

	s.cache.SetMediaStats(c.Context(), stats)
	return c.JSON(Envelope{Success: true, Data: stats})
}

func (s *Server) handleGetMedia(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return errValidation("media id must be a positive integer")
	}

	m, job, err := s.store.GetMedia(c.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errNotFound("media not found")
		}
		return err
	}

	return c.JSON(Envelope{Success: true, Data: MediaDetailResponse{
		MediaResponse: mediaResponse(m),
		Job:           JobSummary{JobID: job.ID, Status: string(job.Status)},
	}})
}

func mediaResponse(m model.Media) MediaResponse {
	return MediaResponse{
		ID:        m.ID,
		MediaURL:  m.MediaURL,
		Type:      string(m.Type),
		Title:     m.Title,
		SourceURL: m.SourceURL,
		CreatedAt: m.CreatedAt.Format(time.RFC3339),
		JobID:     m.JobID,
	}
}
