package level

import "fmt"

// Library indexes loaded levels by ID. It is read-only after startup and
// safe for concurrent reads.
type Library struct {
	levels map[string]*Level
}

// NewLibrary returns an empty Library.
func NewLibrary() *Library {
	return &Library{levels: make(map[string]*Level)}
}

// Add registers lvl.
//
// Postcondition: Returns an error on duplicate IDs.
func (l *Library) Add(lvl *Level) error {
	if _, exists := l.levels[lvl.ID]; exists {
		return fmt.Errorf("duplicate level ID: %q", lvl.ID)
	}
	l.levels[lvl.ID] = lvl
	return nil
}

// Get returns the level with the given ID.
func (l *Library) Get(id string) (*Level, bool) {
	lvl, ok := l.levels[id]
	return lvl, ok
}

// Len returns the number of loaded levels.
func (l *Library) Len() int {
	return len(l.levels)
}
