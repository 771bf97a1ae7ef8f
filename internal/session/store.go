package session

import "sync"

// Store holds the current bearer credential. The API client only reads and
// clears it; writes come from the external auth flow.
type Store interface {
	// Credential returns the current token and whether one is set.
	Credential() (string, bool)
	// Set replaces the current token.
	Set(token string)
	// Clear removes the current token.
	Clear()
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu    sync.RWMutex
	token string
}

// NewMemoryStore creates a MemoryStore, optionally seeded with a token.
func NewMemoryStore(token string) *MemoryStore {
	return &MemoryStore{token: token}
}

func (s *MemoryStore) Credential() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

func (s *MemoryStore) Set(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
}
