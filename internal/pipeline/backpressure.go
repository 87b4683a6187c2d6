package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"mediascraper/internal/metrics"
)

const (
	cpuSamplePeriod    = 5 * time.Second
	memorySamplePeriod = 30 * time.Second
	cpuPauseThreshold  = 0.70
	cpuResumeThreshold = 0.40
	minPauseDuration   = 10 * time.Second
	heapWarnThreshold  = 500 << 20 // 500 MB
)

// backpressure holds the state the CPU loop needs across ticks: the
// previous /proc/stat sample and whether (and since when) the queue
// is currently paused due to CPU load.
type backpressure struct {
	lastIdle  uint64
	lastTotal uint64
	hasSample bool

	pausedByCPU bool
	pausedSince time.Time
}

// RunBackpressureLoops starts the CPU and memory feedback loops. It
// blocks until ctx is cancelled, so callers should run it in its own
// goroutine.
func (c *Controller) RunBackpressureLoops(ctx context.Context) {
	bp := &backpressure{}

	cpuTicker := time.NewTicker(cpuSamplePeriod)
	memTicker := time.NewTicker(memorySamplePeriod)
	defer cpuTicker.Stop()
	defer memTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-cpuTicker.C:
			c.sampleCPU(ctx, bp)
		case <-memTicker.C:
			c.sampleMemory()
		}
	}
}

// sampleCPU reads a fresh /proc/stat sample, computes the load delta
// against the previous tick, and pauses/resumes the queue crossing the
// 70%/40% thresholds with a minimum pause duration to avoid flapping
// under oscillating load.
func (c *Controller) sampleCPU(ctx context.Context, bp *backpressure) {
	idle, total, err := readCPUSample()
	if err != nil {
		c.log.Warn("cpu sampling failed", "error", err)
		return
	}

	if !bp.hasSample {
		bp.lastIdle, bp.lastTotal, bp.hasSample = idle, total, true
		return
	}

	deltaTotal := total - bp.lastTotal
	deltaIdle := idle - bp.lastIdle
	bp.lastIdle, bp.lastTotal = idle, total

	if deltaTotal == 0 {
		return
	}
	load := 1 - float64(deltaIdle)/float64(deltaTotal)

	now := time.Now()
	switch {
	case load > cpuPauseThreshold && !bp.pausedByCPU:
		if err := c.queue.Pause(ctx, true); err != nil {
			c.log.Error("failed to pause queue on cpu pressure", "error", err)
			return
		}
		bp.pausedByCPU = true
		bp.pausedSince = now
		c.log.Warn("queue paused: cpu load above threshold", "load", load)
	case load < cpuResumeThreshold && bp.pausedByCPU && now.Sub(bp.pausedSince) >= minPauseDuration:
		if err := c.queue.Resume(ctx, true); err != nil {
			c.log.Error("failed to resume queue after cpu pressure", "error", err)
			return
		}
		bp.pausedByCPU = false
		c.log.Info("queue resumed: cpu load below threshold", "load", load)
	}
}

// sampleMemory warns and issues a GC hint when resident heap exceeds
// the warning threshold. Independent of pause state.
func (c *Controller) sampleMemory() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.SetMemoryPressure(m.HeapAlloc)
	if m.HeapAlloc > heapWarnThreshold {
		c.log.Warn("heap above warning threshold", "heap_alloc_bytes", m.HeapAlloc)
		runtime.GC()
	}
}

// readCPUSample parses the aggregate "cpu" line of /proc/stat into
// (idle, total) jiffy counts.
func readCPUSample() (idle, total uint64, err error) {
	f, err := os.Open("/proc/stat")
	if err != nil {
		return 0, 0, fmt.Errorf("open /proc/stat: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return 0, 0, fmt.Errorf("read /proc/stat: empty")
	}
	fields := strings.Fields(scanner.Text())
	if len(fields) < 5 || fields[0] != "cpu" {
		return 0, 0, fmt.Errorf("unexpected /proc/stat format")
	}

	var values []uint64
	for _, f := range fields[1:] {
		v, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("parse /proc/stat field %q: %w", f, err)
		}
		values = append(values, v)
		total += v
	}
	// Fields: user, nice, system, idle, iowait, irq, softirq, steal...
	if len(values) >= 4 {
		idle = values[3]
	}
	return idle, total, nil
}
