package topic

import (
	"sort"
	"sync"
)

// Tracker accumulates the categories already attacked during a match.
// The set is match-scoped: both fighters' roasts feed the same set, and a
// category never leaves it until the tracker is discarded with the match.
type Tracker struct {
	mu        sync.RWMutex
	exhausted map[Category]struct{}
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{
		exhausted: make(map[Category]struct{}),
	}
}

// Observe classifies a roast text and marks its categories exhausted.
// It returns the categories newly added by this observation.
func (t *Tracker) Observe(text string) []Category {
	categories := Classify(text)
	if len(categories) == 0 {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	var added []Category
	for _, c := range categories {
		if _, seen := t.exhausted[c]; !seen {
			t.exhausted[c] = struct{}{}
			added = append(added, c)
		}
	}
	return added
}

// Exhausted returns the current exhausted set as sorted strings, the shape
// the generation and judge requests expect.
func (t *Tracker) Exhausted() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]string, 0, len(t.exhausted))
	for c := range t.exhausted {
		out = append(out, string(c))
	}
	sort.Strings(out)
	return out
}

// IsExhausted reports whether a category has already been attacked
func (t *Tracker) IsExhausted(c Category) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.exhausted[c]
	return ok
}

// FromHistory rebuilds a tracker from an ordered list of roast texts.
// Used when a session snapshot is reconstructed rather than tracked live.
func FromHistory(texts []string) *Tracker {
	t := NewTracker()
	for _, text := range texts {
		t.Observe(text)
	}
	return t
}
