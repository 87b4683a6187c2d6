package httpapi

// Envelope is the response shape every endpoint returns:
// {success, data?, pagination?, error?, message?}.
type Envelope struct {
	Success    bool        `json:"success"`
	Data       any         `json:"data,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Error      string      `json:"error,omitempty"`
	Message    string      `json:"message,omitempty"`
}

// Pagination accompanies every paginated list response.
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

func newPagination(total, page, limit int) *Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return &Pagination{Total: total, Page: page, Limit: limit, TotalPages: totalPages}
}

// ScrapeRequest is the POST /api/scrape body.
type ScrapeRequest struct {
	URLs []string `json:"urls"`
}

// LoginRequest is the POST /api/auth/login body.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserResponse is the shape returned by login/me.
type UserResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	CreatedAt string `json:"createdAt"`
}

// ScrapeResponse is the shape returned by POST /api/scrape.
type ScrapeResponse struct {
	JobID             int64  `json:"job_id"`
	Status            string `json:"status"`
	TotalURLs         int    `json:"total_urls"`
	DuplicatesRemoved int    `json:"duplicates_removed"`
	CreatedAt         string `json:"created_at"`
}

// JobResponse is one row of GET /api/jobs and the full GET /api/jobs/:id body.
type JobResponse struct {
	JobID       int64    `json:"job_id"`
	Status      string   `json:"status"`
	TotalURLs   int      `json:"total_urls"`
	MediaFound  int      `json:"media_found"`
	CreatedAt   string   `json:"created_at"`
	CompletedAt *string  `json:"completed_at"`
	URLs        []string `json:"urls,omitempty"`
}

// MediaResponse is one row of GET /api/media.
type MediaResponse struct {
	ID        int64  `json:"id"`
	MediaURL  string `json:"media_url"`
	Type      string `json:"type"`
	Title     string `json:"title,omitempty"`
	SourceURL string `json:"source_url"`
	CreatedAt string `json:"created_at"`
	JobID     int64  `json:"job_id"`
}

// MediaDetailResponse is the full GET /api/media/:id body, including
// a summary of the parent job.
type MediaDetailResponse struct {
	MediaResponse
	Job JobSummary `json:"job"`
}

// JobSummary is the nested job summary on a media detail response.
type JobSummary struct {
	JobID  int64  `json:"job_id"`
	Status string `json:"status"`
}

// MediaStatsResponse is the GET /api/media/stats body.
type MediaStatsResponse struct {
	Total   int `json:"total"`
	Images  int `json:"images"`
	Videos  int `json:"videos"`
	Last24h int `json:"last24h"`
}

// QueueStatsResponse is the GET /api/scrape/queue/stats body.
type QueueStatsResponse struct {
	Waiting     int64 `json:"waiting"`
	Active      int64 `json:"active"`
	Completed   int64 `json:"completed"`
	Failed      int64 `json:"failed"`
	IsPaused    bool  `json:"isPaused"`
	PausedByCPU bool  `json:"pausedByCpu"`
}
