// Package model holds the domain types shared across the pipeline:
// jobs, extracted media, users, and dead-letter records.
package model

import "time"

// JobStatus is the lifecycle state of a Job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// MediaType distinguishes extracted asset kinds.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// Job is one user submission: a batch of page URLs to scrape.
type Job struct {
	ID          int64
	UserID      *int64
	URLs        []string
	Status      JobStatus
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// Media is one asset (image or video) extracted from a page visited
// as part of a Job.
type Media struct {
	ID        int64
	JobID     int64
	SourceURL string
	MediaURL  string
	Type      MediaType
	Title     string
	CreatedAt time.Time
}

// User is an authentication principal seeded at bootstrap time.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// DeadLetter is a permanently failed queue item, kept queryable
// alongside the mandatory structured log record.
type DeadLetter struct {
	ID           int64
	QueueItemID  string
	JobID        int64
	URL          string
	Attempts     int
	ErrorMessage string
	CreatedAt    time.Time
}

// ExtractedAsset is a single candidate media reference found on a page,
// before it is persisted as Media.
type ExtractedAsset struct {
	MediaURL string
	Type     MediaType
	Title    string
}
