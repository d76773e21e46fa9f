package tokenstore

import "sync"

// MemoryStore is an in-process Store and PendingStore. Values are copied on
// the way in and out so callers cannot mutate stored state.
type MemoryStore struct {
	mu      sync.Mutex
	token   *TokenSet
	pending *PendingAuth
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load() (*TokenSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token == nil {
		return nil, nil //nolint:nilnil // not signed in
	}

	cp := *s.token

	return &cp, nil
}

func (s *MemoryStore) Save(ts *TokenSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *ts
	s.token = &cp

	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = nil

	return nil
}

func (s *MemoryStore) PutPending(p *PendingAuth) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *p
	cp.Scopes = append([]string(nil), p.Scopes...)
	s.pending = &cp

	return nil
}

func (s *MemoryStore) TakePending() (*PendingAuth, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.pending
	s.pending = nil

	return p, nil
}
