package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracker_DoneOnceEveryURLResolves(t *testing.T) {
	tr := NewTracker()
	tr.Touch(1, 3)

	done, allFailed := tr.Outcome(1, true)
	assert.False(t, done)

	done, allFailed = tr.Outcome(1, false)
	assert.False(t, done)

	done, allFailed = tr.Outcome(1, true)
	assert.True(t, done)
	assert.False(t, allFailed)
}

func TestTracker_AllFailedReportsFailedJob(t *testing.T) {
	tr := NewTracker()
	tr.Touch(2, 2)

	done, _ := tr.Outcome(2, false)
	assert.False(t, done)

	done, allFailed := tr.Outcome(2, false)
	assert.True(t, done)
	assert.True(t, allFailed)
}

func TestTracker_TouchIsIdempotent(t *testing.T) {
	tr := NewTracker()
	tr.Touch(3, 5)
	tr.Touch(3, 999) // second Touch must not override the first total

	for i := 0; i < 4; i++ {
		done, _ := tr.Outcome(3, true)
		assert.False(t, done)
	}
	done, _ := tr.Outcome(3, true)
	assert.True(t, done)
}

func TestTracker_OutcomeWithoutTouchResolvesAsSingleURLJob(t *testing.T) {
	tr := NewTracker()
	done, allFailed := tr.Outcome(4, true)
	assert.True(t, done)
	assert.False(t, allFailed)
}

func TestTracker_EntryRemovedAfterCompletion(t *testing.T) {
	tr := NewTracker()
	tr.Touch(5, 1)
	tr.Outcome(5, true)

	_, exists := tr.byJob[5]
	assert.False(t, exists)
}
