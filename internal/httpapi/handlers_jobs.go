package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"mediascraper/internal/model"
	"mediascraper/internal/store"
)

func (s *Server) handleListJobs(c *fiber.Ctx) error {
	page, limit, err := parsePageLimit(c)
	if err != nil {
		return err
	}

	jobs, total, err := s.store.ListJobs(c.Context(), limit, (page-1)*limit)
	if err != nil {
		return err
	}

	out := make([]JobResponse, 0, len(jobs))
	for _, j := range jobs {
		mediaFound, err := s.store.MediaCountForJob(c.Context(), j.ID)
		if err != nil {
			return err
		}
		out = append(out, jobResponse(j, mediaFound, false))
	}

	return c.JSON(Envelope{Success: true, Data: out, Pagination: newPagination(total, page, limit)})
}

func (s *Server) handleGetJob(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return errValidation("job id must be a positive integer")
	}

	job, err := s.store.GetJob(c.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errNotFound("job not found")
		}
		return err
	}

	mediaFound, err := s.store.MediaCountForJob(c.Context(), job.ID)
	if err != nil {
		return err
	}

	return c.JSON(Envelope{Success: true, Data: jobResponse(job, mediaFound, true)})
}

func jobResponse(j model.Job, mediaFound int, includeURLs bool) JobResponse {
	resp := JobResponse{
		JobID:      j.ID,
		Status:     string(j.Status),
		TotalURLs:  len(j.URLs),
		MediaFound: mediaFound,
		CreatedAt:  j.CreatedAt.Format(time.RFC3339),
	}
	if j.CompletedAt != nil {
		formatted := j.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &formatted
	}
	if includeURLs {
		resp.URLs = j.URLs
	}
	return resp
}

func parsePageLimit(c *fiber.Ctx) (page, limit int, err error) {
	page = 1
	limit = 20

	if v := c.Query("page"); v != "" {
		page, err = strconv.Atoi(v)
		if err != nil || page < 1 {
			return 0, 0, errValidation("page must be a positive integer")
		}
	}
	if v := c.Query("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 1 || limit > 100 {
			return 0, 0, errValidation("limit must be between 1 and 100")
		}
	}
	return page, limit, nil
}
