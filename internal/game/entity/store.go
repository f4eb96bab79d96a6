package entity

// Store is an insertion-ordered map of entities keyed by id.
// Iteration order is the order in which ids were first inserted, which keeps
// turn order stable for turn-based plugins.
//
// Store is not safe for concurrent use; it is owned by exactly one room.
type Store struct {
	order []string
	byID  map[string]*Entity
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{byID: make(map[string]*Entity)}
}

// Put inserts or replaces e.
//
// Postcondition: Get(e.ID) == e. A replaced id keeps its original position.
func (s *Store) Put(e *Entity) {
	if _, ok := s.byID[e.ID]; !ok {
		s.order = append(s.order, e.ID)
	}
	s.byID[e.ID] = e
}

// Get returns the entity with the given id.
func (s *Store) Get(id string) (*Entity, bool) {
	e, ok := s.byID[id]
	return e, ok
}

// Has reports whether id is present.
func (s *Store) Has(id string) bool {
	_, ok := s.byID[id]
	return ok
}

// Delete removes id and reports whether it was present.
func (s *Store) Delete(id string) bool {
	if _, ok := s.byID[id]; !ok {
		return false
	}
	delete(s.byID, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Len returns the number of entities.
func (s *Store) Len() int {
	return len(s.byID)
}

// IDs returns the ids in insertion order.
func (s *Store) IDs() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// All returns the entities in insertion order.
func (s *Store) All() []*Entity {
	out := make([]*Entity, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// Clear removes every entity.
func (s *Store) Clear() {
	s.order = nil
	s.byID = make(map[string]*Entity)
}

// MarshalJSON renders the store as an id-keyed object, the shape clients index by.
func (s *Store) MarshalJSON() ([]byte, error) {
	return marshalOrdered(s)
}
