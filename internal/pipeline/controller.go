// Package pipeline is the Controller: it fans a submitted job's URLs
// into queue items, runs the per-item worker handler, aggregates
// per-URL outcomes into a job's terminal status, and drives the
// CPU/memory backpressure loops that pause and resume the queue.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"mediascraper/internal/cache"
	"mediascraper/internal/metrics"
	"mediascraper/internal/model"
	"mediascraper/internal/queue"
	"mediascraper/internal/scrape"
	"mediascraper/internal/store"
)

const (
	heapWarnBeforeScrape = 350 << 20 // 350 MB
	heapWarnAfterScrape  = 400 << 20 // 400 MB
)

// Controller is the process-wide owner of job submission, the worker
// handler, progress aggregation, and backpressure.
type Controller struct {
	store   *store.Store
	cache   *cache.Cache
	queue   *queue.Queue
	router  *scrape.Router
	tracker *Tracker
	log     *slog.Logger
}

// New builds a Controller over its already-constructed collaborators.
func New(st *store.Store, c *cache.Cache, q *queue.Queue, router *scrape.Router, log *slog.Logger) *Controller {
	ctl := &Controller{store: st, cache: c, queue: q, router: router, tracker: NewTracker(), log: log}
	q.SetEvents(queue.Events{
		OnActive:    ctl.onActive,
		OnCompleted: ctl.onCompleted,
		OnFailed:    ctl.onFailed,
		OnStalled:   ctl.onStalled,
		OnError:     ctl.onError,
	})
	return ctl
}

// SubmitResult is returned to the HTTP layer for POST /api/scrape.
type SubmitResult struct {
	JobID             int64
	Status            model.JobStatus
	TotalURLs         int
	DuplicatesRemoved int
	CreatedAt         time.Time
}

// Submit de-duplicates urls in submission order, persists a pending
// Job, and fans one queue item per URL with LIFO-by-recency priority.
func (c *Controller) Submit(ctx context.Context, userID *int64, urls []string) (SubmitResult, error) {
	deduped, duplicates := dedupPreserveOrder(urls)

	job, err := c.store.CreateJob(ctx, userID, deduped)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("create job: %w", err)
	}

	for _, u := range job.URLs {
		priority := float64(time.Now().UnixNano())
		if _, err := c.queue.Enqueue(ctx, job.ID, u, priority, true); err != nil {
			return SubmitResult{}, fmt.Errorf("enqueue %q: %w", u, err)
		}
	}

	return SubmitResult{
		JobID:             job.ID,
		Status:            job.Status,
		TotalURLs:         len(deduped),
		DuplicatesRemoved: duplicates,
		CreatedAt:         job.CreatedAt,
	}, nil
}

// HandleItem is the queue worker handler for one {job_id, url} item.
func (c *Controller) HandleItem(ctx context.Context, item queue.Item) error {
	if err := c.store.TransitionJobProcessing(ctx, item.JobID); err != nil {
		return fmt.Errorf("transition job processing: %w", err)
	}

	if cached, ok := c.cache.GetURL(ctx, item.URL); ok {
		if err := c.persist(ctx, item, toModelAssets(cached)); err != nil {
			return err
		}
		return nil
	}

	gcHintIfAbove(heapWarnBeforeScrape, c.log)

	res := c.router.Route(ctx, item.URL)
	metrics.RecordScrapeOutcome(res.ScraperUsed, res.Success)
	if !res.Success {
		if res.Err != nil {
			return res.Err
		}
		return fmt.Errorf("scrape failed for %s", item.URL)
	}

	if len(res.Media) > 0 {
		if err := c.persist(ctx, item, res.Media); err != nil {
			return err
		}
		c.cache.SetURL(ctx, item.URL, toCachedAssets(res.Media))
		c.cache.InvalidateMedia(ctx)
	}

	gcHintIfAbove(heapWarnAfterScrape, c.log)
	return nil
}

// QueueStats snapshots queue depth and pause state for the HTTP layer,
// also refreshing the queue-depth gauges.
func (c *Controller) QueueStats(ctx context.Context) (queue.Stats, error) {
	stats, err := c.queue.GetStats(ctx)
	if err != nil {
		return queue.Stats{}, err
	}
	metrics.SetQueueDepth("waiting", float64(stats.Waiting))
	metrics.SetQueueDepth("active", float64(stats.Active))
	metrics.SetQueueDepth("completed", float64(stats.Completed))
	metrics.SetQueueDepth("failed", float64(stats.Failed))
	return stats, nil
}

func (c *Controller) persist(ctx context.Context, item queue.Item, assets []model.ExtractedAsset) error {
	if len(assets) == 0 {
		return nil
	}
	if _, err := c.store.InsertMedia(ctx, item.JobID, item.URL, assets); err != nil {
		return fmt.Errorf("insert media: %w", err)
	}
	return nil
}

// DeadLetter implements queue.DeadLetterSink, persisting a queryable
// record alongside the queue's own structured log emission.
func (c *Controller) DeadLetter(ctx context.Context, item queue.Item, errMessage string) {
	dl := model.DeadLetter{
		QueueItemID:  item.ID,
		JobID:        item.JobID,
		URL:          item.URL,
		Attempts:     item.Attempts,
		ErrorMessage: errMessage,
	}
	if err := c.store.InsertDeadLetter(ctx, dl); err != nil {
		c.log.Error("failed to persist dead letter", "job_id", item.JobID, "url", item.URL, "error", err)
	}
}

func (c *Controller) onActive(item queue.Item) {
	ctx := context.Background()
	job, err := c.store.GetJob(ctx, item.JobID)
	if err != nil {
		c.log.Error("tracker: failed to load job on active", "job_id", item.JobID, "error", err)
		return
	}
	c.tracker.Touch(item.JobID, len(job.URLs))
}

func (c *Controller) onCompleted(item queue.Item) {
	c.finalizeOutcome(item.JobID, true)
}

func (c *Controller) onFailed(item queue.Item, _ error) {
	c.finalizeOutcome(item.JobID, false)
}

func (c *Controller) onStalled(item queue.Item) {
	c.log.Warn("queue item stalled", "job_id", item.JobID, "url", item.URL, "stalled_count", item.Stalled)
}

func (c *Controller) onError(err error) {
	c.log.Error("queue error", "error", err)
}

func (c *Controller) finalizeOutcome(jobID int64, success bool) {
	done, allFailed := c.tracker.Outcome(jobID, success)
	if !done {
		return
	}
	status := model.JobCompleted
	if allFailed {
		status = model.JobFailed
	}
	ctx := context.Background()
	if err := c.store.FinishJob(ctx, jobID, status); err != nil {
		c.log.Error("failed to finalize job status", "job_id", jobID, "status", status, "error", err)
	}
}

func gcHintIfAbove(threshold uint64, log *slog.Logger) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	if m.HeapAlloc > threshold {
		if log != nil {
			log.Warn("heap above threshold, issuing GC hint", "heap_alloc_bytes", m.HeapAlloc, "threshold_bytes", threshold)
		}
		runtime.GC()
	}
}
