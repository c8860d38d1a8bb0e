package db

import (
	"sync"

	"github.com/happypulse/radar/internal/services"
)

// MemoryStore keeps the session record in memory only. Used when no
// database path is configured and in tests.
type MemoryStore struct {
	mu  sync.Mutex
	rec *services.SessionRecord
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Load() (*services.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec == nil {
		return nil, nil
	}
	c := *s.rec
	return &c, nil
}

func (s *MemoryStore) Save(rec *services.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *rec
	s.rec = &c
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = nil
	return nil
}

var _ services.SessionStore = (*MemoryStore)(nil)
