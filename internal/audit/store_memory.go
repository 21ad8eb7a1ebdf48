package audit

import (
	"context"
	"sync"

	"caseform/internal/domain"
)

// InMemoryStore keeps audit events per case. Used in dev wiring and tests.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[domain.CaseID][]Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[domain.CaseID][]Event)}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.CaseID] = append(s.events[event.CaseID], event)
	return nil
}

func (s *InMemoryStore) ListByCase(_ context.Context, caseID domain.CaseID) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event{}, s.events[caseID]...), nil
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[domain.CaseID][]Event)
}
