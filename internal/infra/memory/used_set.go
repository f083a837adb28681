package memory

import (
	"context"
	"sync"
)

// UsedSet is an in-memory implementation of app.UsedSet. Its contents last for the process only.
type UsedSet struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

func NewUsedSet() *UsedSet {
	return &UsedSet{ids: make(map[string]struct{})}
}

func (s *UsedSet) Members(_ context.Context) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]struct{}, len(s.ids))
	for id := range s.ids {
		out[id] = struct{}{}
	}
	return out, nil
}

func (s *UsedSet) Add(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[id] = struct{}{}
	return nil
}

func (s *UsedSet) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = make(map[string]struct{})
	return nil
}
