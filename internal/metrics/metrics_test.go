package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordRequest_IncrementsCounterAndObservesLatency(t *testing.T) {
	RecordRequest("GET", "/api/jobs", 200, 42*time.Millisecond)

	count := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/api/jobs", "200"))
	assert.Equal(t, float64(1), count)
}

func TestSetQueueDepth_ReportsGaugeValue(t *testing.T) {
	SetQueueDepth("waiting", 7)
	assert.Equal(t, float64(7), testutil.ToFloat64(queueDepth.WithLabelValues("waiting")))
}

func TestRecordScrapeOutcome_LabelsSuccessAndFailure(t *testing.T) {
	before := testutil.ToFloat64(scrapeOutcomesTotal.WithLabelValues("static", "success"))
	RecordScrapeOutcome("static", true)
	after := testutil.ToFloat64(scrapeOutcomesTotal.WithLabelValues("static", "success"))
	assert.Equal(t, before+1, after)

	RecordScrapeOutcome("dynamic", false)
	assert.Equal(t, float64(1), testutil.ToFloat64(scrapeOutcomesTotal.WithLabelValues("dynamic", "failure")))
}

func TestSetMemoryPressure_ReportsGaugeValue(t *testing.T) {
	SetMemoryPressure(1 << 20)
	assert.Equal(t, float64(1<<20), testutil.ToFloat64(memoryPressureBytes))
}
