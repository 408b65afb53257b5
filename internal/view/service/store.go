package service

import (
	"sync"

	"labslot/pkg/model"
)

// FacetStore holds per-user facet state in memory. Facet selections are a
// session-scoped UI preference: losing them on restart only resets filters
// to everything-visible, so no persistence is warranted.
type FacetStore struct {
	mu     sync.RWMutex
	states map[string]model.FacetState
}

func NewFacetStore() *FacetStore {
	return &FacetStore{
		states: make(map[string]model.FacetState),
	}
}

// Get returns a copy of the user's state. Unknown users get a fresh empty
// state; callers reconcile it against the catalog before use.
func (s *FacetStore) Get(userID string) model.FacetState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[userID]
	if !ok {
		return model.NewFacetState()
	}
	return state.Clone()
}

func (s *FacetStore) Put(userID string, state model.FacetState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[userID] = state.Clone()
}

func (s *FacetStore) Delete(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, userID)
}

// UpdateAll applies fn to every stored state. Used when the catalog changes
// and all users' facet values must be reconciled at once.
func (s *FacetStore) UpdateAll(fn func(state model.FacetState) model.FacetState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for userID, state := range s.states {
		s.states[userID] = fn(state.Clone())
	}
}
