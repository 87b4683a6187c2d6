package pipeline

import "sync"

// progress is the in-memory per-job outcome count the Controller uses
// to decide when a job has reached a terminal status.
type progress struct {
	total     int
	completed int
	failed    int
}

// Tracker is the concurrent job_id -> progress map. Entries are
// created lazily on first touch and deleted once every URL in the job
// has reached a terminal per-URL outcome.
type Tracker struct {
	mu    sync.Mutex
	byJob map[int64]*progress
}

// NewTracker builds an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{byJob: make(map[int64]*progress)}
}

// Touch lazily initializes the tracker entry for jobID with the job's
// total URL count. Safe to call repeatedly; only the first call for a
// given jobID has effect.
func (t *Tracker) Touch(jobID int64, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.byJob[jobID]; !ok {
		t.byJob[jobID] = &progress{total: total}
	}
}

// Outcome records one URL's terminal outcome (success or failure) for
// jobID and reports whether the job has now reached quiescence, along
// with whether every URL failed (job should end "failed" rather than
// "completed").
func (t *Tracker) Outcome(jobID int64, success bool) (done bool, allFailed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.byJob[jobID]
	if !ok {
		// Defensive: an outcome arrived before any Touch. Treat this
		// single URL as the whole job so it still resolves.
		p = &progress{total: 1}
		t.byJob[jobID] = p
	}

	if success {
		p.completed++
	} else {
		p.failed++
	}

	if p.completed+p.failed >= p.total {
		delete(t.byJob, jobID)
		return true, p.failed == p.total
	}
	return false, false
}
