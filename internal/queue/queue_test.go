package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOptions_WithDefaults(t *testing.T) {
	o := Options{}.withDefaults()

	assert.Equal(t, 2, o.AttemptsMax)
	assert.Equal(t, 2, o.MaxStalled)
	assert.Equal(t, 60*time.Second, o.LeaseDuration)
	assert.Equal(t, 35*time.Second, o.ItemTimeout)
	assert.Equal(t, 2*time.Second, o.BaseBackoff)
	assert.Equal(t, 30*time.Second, o.MaxBackoff)
	assert.Equal(t, 50, o.RetainCompleted)
	assert.Equal(t, 100, o.RetainFailed)
	assert.Equal(t, 15*time.Second, o.StallCheckPeriod)
	assert.Equal(t, 1*time.Second, o.PromotePeriod)
}

func TestOptions_WithDefaults_PreservesExplicitValues(t *testing.T) {
	o := Options{AttemptsMax: 5, BaseBackoff: time.Second}.withDefaults()
	assert.Equal(t, 5, o.AttemptsMax)
	assert.Equal(t, time.Second, o.BaseBackoff)
	assert.Equal(t, 30*time.Second, o.MaxBackoff) // untouched field still defaults
}

func TestQueue_BackoffFor_ExponentialWithCap(t *testing.T) {
	q := New(nil, "test", Options{BaseBackoff: 2 * time.Second, MaxBackoff: 10 * time.Second}, nil, nil)

	assert.Equal(t, 2*time.Second, q.backoffFor(1))
	assert.Equal(t, 4*time.Second, q.backoffFor(2))
	assert.Equal(t, 8*time.Second, q.backoffFor(3))
	assert.Equal(t, 10*time.Second, q.backoffFor(4)) // capped
}

func TestOptions_WithDefaults_ItemTimeoutIndependentOfLeaseDuration(t *testing.T) {
	o := Options{LeaseDuration: 2 * time.Minute}.withDefaults()
	assert.Equal(t, 2*time.Minute, o.LeaseDuration)
	assert.Equal(t, 35*time.Second, o.ItemTimeout) // unaffected by a custom lease
}

func TestQueue_KeyNamespacesByQueueName(t *testing.T) {
	q := New(nil, "scrape", Options{}, nil, nil)
	assert.Equal(t, "queue:scrape:waiting", q.key("waiting"))
}

func TestQueue_SetDeadLetterSinkBreaksConstructionCycle(t *testing.T) {
	q := New(nil, "scrape", Options{}, nil, nil)
	assert.Nil(t, q.dlq)

	sink := &recordingSink{}
	q.SetDeadLetterSink(sink)
	assert.Same(t, sink, q.dlq)
}

type recordingSink struct {
	calls int
}

func (r *recordingSink) DeadLetter(_ context.Context, _ Item, _ string) { r.calls++ }
