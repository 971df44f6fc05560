package checkout

import "sync"

// ActiveOrderStore remembers the order a shopper is paying for across a redirect.
type ActiveOrderStore interface {
	ActiveOrderID() (string, bool)
	SetActiveOrderID(id string)
	ClearActiveOrder()
}

type MemoryOrderStore struct {
	mu sync.Mutex
	id string
}

func NewMemoryOrderStore() *MemoryOrderStore {
	return &MemoryOrderStore{}
}

func (s *MemoryOrderStore) ActiveOrderID() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id, s.id != ""
}

func (s *MemoryOrderStore) SetActiveOrderID(id string) {
	s.mu.Lock()
	s.id = id
	s.mu.Unlock()
}

func (s *MemoryOrderStore) ClearActiveOrder() {
	s.SetActiveOrderID("")
}
