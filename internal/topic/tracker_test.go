package topic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrackerObserveAccumulates(t *testing.T) {
	tracker := NewTracker()
	assert.Empty(t, tracker.Exhausted())

	added := tracker.Observe("Your startup is a group chat with a logo")
	assert.Contains(t, added, CategoryCareer)
	assert.Equal(t, []string{"career"}, tracker.Exhausted())

	added = tracker.Observe("No wonder you're still single")
	assert.Contains(t, added, CategoryDating)
	assert.Equal(t, []string{"career", "dating"}, tracker.Exhausted())
}

func TestTrackerMonotonic(t *testing.T) {
	tracker := NewTracker()
	tracker.Observe("that haircut and that outfit")
	before := tracker.Exhausted()

	// Re-observing the same category adds nothing and removes nothing
	added := tracker.Observe("another ugly photo")
	assert.Empty(t, added)
	assert.Equal(t, before, tracker.Exhausted())

	// Unrelated text never shrinks the set
	tracker.Observe("zzz nothing matches here qqq")
	assert.Equal(t, before, tracker.Exhausted())
}

func TestTrackerSharedAcrossSpeakers(t *testing.T) {
	// Scope is per-match: turns from both fighters feed one set
	tracker := NewTracker()
	tracker.Observe("fighter one mocks your job")
	tracker.Observe("fighter two mocks your mom")

	assert.True(t, tracker.IsExhausted(CategoryCareer))
	assert.True(t, tracker.IsExhausted(CategoryFamily))
}

func TestFromHistoryMatchesLiveTracking(t *testing.T) {
	texts := []string{
		"your resume is fan fiction",
		"imagine being this boring",
		"went to the gym once for the selfie",
	}

	live := NewTracker()
	for _, text := range texts {
		live.Observe(text)
	}

	rebuilt := FromHistory(texts)
	assert.Equal(t, live.Exhausted(), rebuilt.Exhausted())
}

func TestTrackerExhaustedSorted(t *testing.T) {
	tracker := NewTracker()
	tracker.Observe("dumb selfie posted for followers while unemployed")

	exhausted := tracker.Exhausted()
	for i := 1; i < len(exhausted); i++ {
		assert.Less(t, exhausted[i-1], exhausted[i])
	}
}
