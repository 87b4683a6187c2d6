// Package store is the relational access layer: jobs, media, users,
// and dead letters. It is a thin hand-written layer over database/sql
// (no ORM, no generated query package) since the pack's sqlc-generated
// code was not retrievable for regeneration here.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"mediascraper/internal/model"
)

// ErrNotFound is returned when a lookup by id matches no row.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a unique constraint is violated.
var ErrConflict = errors.New("conflict")

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// Store wraps a pooled *sql.DB with the pipeline's query surface.
type Store struct {
	DB *sql.DB
}

// New creates a Store around an already-opened, pooled *sql.DB.
func New(db *sql.DB) *Store {
	return &Store{DB: db}
}

// CreateJob inserts a new pending job and returns its assigned id and
// creation timestamp.
func (s *Store) CreateJob(ctx context.Context, userID *int64, urls []string) (model.Job, error) {
	payload, err := json.Marshal(urls)
	if err != nil {
		return model.Job{}, fmt.Errorf("marshal urls: %w", err)
	}

	row := s.DB.QueryRowContext(ctx, `
		INSERT INTO scrape_jobs (user_id, urls, status)
		VALUES ($1, $2, 'pending')
		RETURNING id, status, created_at, completed_at`,
		nullInt64(userID), payload)

	var job model.Job
	job.UserID = userID
	job.URLs = urls
	var status string
	var completedAt sql.NullTime
	if err := row.Scan(&job.ID, &status, &job.CreatedAt, &completedAt); err != nil {
		return model.Job{}, fmt.Errorf("insert job: %w", err)
	}
	job.Status = model.JobStatus(status)
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}
	return job, nil
}

// GetJob fetches a single job by id.
func (s *Store) GetJob(ctx context.Context, id int64) (model.Job, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT id, user_id, urls, status, created_at, completed_at
		FROM scrape_jobs WHERE id = $1`, id)
	return scanJob(row)
}

// ListJobs returns a page of jobs ordered by created_at desc, plus the
// total job count.
func (s *Store) ListJobs(ctx context.Context, limit, offset int) ([]model.Job, int, error) {
	var total int
	if err := s.DB.QueryRowContext(ctx, `SELECT count(*) FROM scrape_jobs`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, user_id, urls, status, created_at, completed_at
		FROM scrape_jobs ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, 0, err
		}
		jobs = append(jobs, job)
	}
	return jobs, total, rows.Err()
}

// TransitionJobProcessing moves a job from pending to processing. It
// is idempotent: re-entry while already processing or terminal is a
// no-op (job status transitions are monotonic).
func (s *Store) TransitionJobProcessing(ctx context.Context, id int64) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE scrape_jobs SET status = 'processing'
		WHERE id = $1 AND status = 'pending'`, id)
	return err
}

// FinishJob sets a job's terminal status and completed_at timestamp.
// It only applies while the job is not already terminal, preserving
// the pending->processing->{completed|failed} monotonic invariant.
func (s *Store) FinishJob(ctx context.Context, id int64, status model.JobStatus) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE scrape_jobs SET status = $2, completed_at = now()
		WHERE id = $1 AND status NOT IN ('completed', 'failed')`, id, string(status))
	return err
}

// InsertMedia bulk-inserts extracted media for a page, skipping rows
// that would violate the (job_id, media_url) unique constraint.
func (s *Store) InsertMedia(ctx context.Context, jobID int64, sourceURL string, assets []model.ExtractedAsset) (int, error) {
	if len(assets) == 0 {
		return 0, nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO media (job_id, source_url, media_url, type, title)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (job_id, media_url) DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert media: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, a := range assets {
		res, err := stmt.ExecContext(ctx, jobID, sourceURL, a.MediaURL, string(a.Type), nullString(a.Title))
		if err != nil {
			return 0, fmt.Errorf("insert media: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit media: %w", err)
	}
	return inserted, nil
}

// MediaFilter describes optional filters for listing/counting media.
type MediaFilter struct {
	Type   model.MediaType
	Search string
}

// ListMedia returns a page of media rows matching the filter, ordered
// by created_at desc, plus the total matching count.
func (s *Store) ListMedia(ctx context.Context, filter MediaFilter, limit, offset int) ([]model.Media, int, error) {
	where, args := mediaWhere(filter)

	var total int
	countQuery := "SELECT count(*) FROM media" + where
	if err := s.DB.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count media: %w", err)
	}

	args = append(args, limit, offset)
	listQuery := fmt.Sprintf(`
		SELECT id, job_id, source_url, media_url, type, title, created_at
		FROM media%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, len(args)-1, len(args))

	rows, err := s.DB.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list media: %w", err)
	}
	defer rows.Close()

	var out []model.Media
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	return out, total, rows.Err()
}

func mediaWhere(filter MediaFilter) (string, []any) {
	var conds []string
	var args []any
	pos := 1

	if filter.Type != "" {
		conds = append(conds, fmt.Sprintf("type = $%d", pos))
		args = append(args, string(filter.Type))
		pos++
	}
	if strings.TrimSpace(filter.Search) != "" {
		conds = append(conds, fmt.Sprintf("(title ILIKE $%d OR source_url ILIKE $%d)", pos, pos))
		args = append(args, "%"+filter.Search+"%")
		pos++
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// GetMedia fetches a single media row plus a summary of its parent job.
func (s *Store) GetMedia(ctx context.Context, id int64) (model.Media, model.Job, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT id, job_id, source_url, media_url, type, title, created_at
		FROM media WHERE id = $1`, id)
	m, err := scanMedia(row)
	if err != nil {
		return model.Media{}, model.Job{}, err
	}

	job, err := s.GetJob(ctx, m.JobID)
	if err != nil {
		return model.Media{}, model.Job{}, err
	}
	return m, job, nil
}

// MediaStats aggregates the counters behind GET /api/media/stats.
type MediaStats struct {
	Total   int
	Images  int
	Videos  int
	Last24h int
}

// GetMediaStats computes aggregate media counts.
func (s *Store) GetMediaStats(ctx context.Context) (MediaStats, error) {
	var stats MediaStats
	row := s.DB.QueryRowContext(ctx, `
		SELECT
			count(*),
			count(*) FILTER (WHERE type = 'image'),
			count(*) FILTER (WHERE type = 'video'),
			count(*) FILTER (WHERE created_at >= now() - interval '24 hours')
		FROM media`)
	if err := row.Scan(&stats.Total, &stats.Images, &stats.Videos, &stats.Last24h); err != nil {
		return MediaStats{}, fmt.Errorf("media stats: %w", err)
	}
	return stats, nil
}

// MediaCountForJob returns the number of media rows belonging to a job
// (used to populate media_found on job summaries).
func (s *Store) MediaCountForJob(ctx context.Context, jobID int64) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx, `SELECT count(*) FROM media WHERE job_id = $1`, jobID).Scan(&n)
	return n, err
}

// GetUserByUsername looks up a user by username for credential checks.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT id, username, password_hash, created_at
		FROM users WHERE username = $1`, username)

	var u model.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, err
	}
	return u, nil
}

// CreateUser inserts a new user with an already-hashed password.
func (s *Store) CreateUser(ctx context.Context, username, passwordHash string) (model.User, error) {
	row := s.DB.QueryRowContext(ctx, `
		INSERT INTO users (username, password_hash)
		VALUES ($1, $2)
		RETURNING id, username, password_hash, created_at`, username, passwordHash)

	var u model.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return model.User{}, ErrConflict
		}
		return model.User{}, err
	}
	return u, nil
}

// InsertDeadLetter persists a permanently-failed queue item so it is
// queryable beyond the structured log record spec mandates.
func (s *Store) InsertDeadLetter(ctx context.Context, dl model.DeadLetter) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO dead_letters (queue_item_id, job_id, url, attempts, error_message)
		VALUES ($1, $2, $3, $4, $5)`,
		dl.QueueItemID, dl.JobID, dl.URL, dl.Attempts, dl.ErrorMessage)
	return err
}

func scanJob(row scanner) (model.Job, error) {
	var job model.Job
	var userID sql.NullInt64
	var rawURLs []byte
	var status string
	var completedAt sql.NullTime

	if err := row.Scan(&job.ID, &userID, &rawURLs, &status, &job.CreatedAt, &completedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Job{}, ErrNotFound
		}
		return model.Job{}, err
	}

	if userID.Valid {
		job.UserID = &userID.Int64
	}
	var urls []string
	if len(rawURLs) > 0 {
		if err := json.Unmarshal(rawURLs, &urls); err != nil {
			return model.Job{}, fmt.Errorf("unmarshal urls: %w", err)
		}
	}
	job.URLs = urls
	job.Status = model.JobStatus(status)
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}
	return job, nil
}

func scanMedia(row scanner) (model.Media, error) {
	var m model.Media
	var typ string
	var title sql.NullString

	if err := row.Scan(&m.ID, &m.JobID, &m.SourceURL, &m.MediaURL, &typ, &title, &m.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Media{}, ErrNotFound
		}
		return model.Media{}, err
	}
	m.Type = model.MediaType(typ)
	if title.Valid {
		m.Title = title.String
	}
	return m, nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullString(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}
