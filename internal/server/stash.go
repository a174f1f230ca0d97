package server

import "sync"

// SetupStash is a string-keyed scratch store the frontend uses to carry
// values between setup screens (selected voices, pending URLs, draft names).
// Contents are transient: the whole stash is cleared whenever a new match is
// set up.
type SetupStash struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewSetupStash creates an empty stash
func NewSetupStash() *SetupStash {
	return &SetupStash{values: make(map[string]string)}
}

// Put stores a value under a key, overwriting any previous value
func (s *SetupStash) Put(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Get retrieves a value and reports whether the key exists
func (s *SetupStash) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[key]
	return value, ok
}

// Clear drops every stored value
func (s *SetupStash) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string]string)
}

// Len reports the number of stored keys
func (s *SetupStash) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}
