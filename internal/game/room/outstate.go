package room

import "github.com/cory-johannsen/gamehub/internal/game/entity"

// OutState collects the partial entity states a plugin produces during one
// update. A non-empty OutState becomes exactly one serverUpdate broadcast.
type OutState struct {
	entries []any
}

// Push appends one entry. Entries must be JSON-serializable.
func (o *OutState) Push(entry any) {
	o.entries = append(o.entries, entry)
}

// PushEntity appends the standard moved-entity entry for e.
func (o *OutState) PushEntity(e *entity.Entity) {
	u := EntityUpdate{ID: e.ID, Position: e.Transform.Position}
	if e.Velocity != nil {
		v := *e.Velocity
		u.Velocity = &v
	}
	speed := e.Speed
	u.Speed = &speed
	o.entries = append(o.entries, u)
}

// Len returns the number of entries.
func (o *OutState) Len() int {
	return len(o.entries)
}

// Entries returns the entries in push order.
func (o *OutState) Entries() []any {
	return o.entries
}

// EntityUpdate is the partial state entry for a moved entity.
type EntityUpdate struct {
	ID       string       `json:"id"`
	Position entity.Vec3  `json:"position"`
	Velocity *entity.Vec3 `json:"velocity,omitempty"`
	Speed    *float64     `json:"speed,omitempty"`
}
