package checkout

import "sync"

// Store holds in-progress flows keyed by draft ID. Drafts are deliberately
// transient: a restart loses them, only the authenticated session survives
// in durable storage.
type Store struct {
	mu    sync.RWMutex
	flows map[string]*Flow
}

func NewStore() *Store {
	return &Store{flows: make(map[string]*Flow)}
}

func (s *Store) Put(f *Flow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flows[f.ID()] = f
}

func (s *Store) Get(id string) (*Flow, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.flows[id]
	return f, ok
}

// Delete drops a finished or abandoned draft.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.flows, id)
}
