// README: In-memory vehicle store; entries are replaced whole, never edited in place.
package fleet

import (
	"sort"
	"sync"

	"ridemap/internal/types"
)

type Store struct {
	mu   sync.RWMutex
	data map[types.ID]Vehicle
}

func NewStore() *Store {
	return &Store{data: make(map[types.ID]Vehicle)}
}

// Insert adds v unless a vehicle with the same id is already stored.
func (s *Store) Insert(v Vehicle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[v.ID]; exists {
		return ErrDuplicateVehicle
	}
	s.data[v.ID] = v
	return nil
}

// Replace swaps the stored value for v.ID. It reports false when the id is unknown.
func (s *Store) Replace(v Vehicle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[v.ID]; !exists {
		return false
	}
	s.data[v.ID] = v
	return true
}

func (s *Store) Get(id types.ID) (Vehicle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[id]
	return v, ok
}

func (s *Store) Delete(id types.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[id]; !exists {
		return false
	}
	delete(s.data, id)
	return true
}

// Values returns a copy of all vehicles ordered by id.
func (s *Store) Values() []Vehicle {
	s.mu.RLock()
	out := make([]Vehicle, 0, len(s.data))
	for _, v := range s.data {
		out = append(out, v)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
