// Package level provides static level data: the camera, weather and initial
// things a plugin places into a freshly created room.
package level

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/gamehub/internal/game/entity"
	"github.com/cory-johannsen/gamehub/internal/game/room"
)

// Level is the validated, immutable description of a room's starting state.
type Level struct {
	ID      string
	Paused  bool
	Camera  map[string]any
	Weather map[string]any
	Things  []*entity.Entity
}

// Validate checks that the level has an ID and that thing ids are unique and
// never tagged as players.
//
// Postcondition: Returns nil if valid, or an error describing the first violation.
func (l *Level) Validate() error {
	if l.ID == "" {
		return errors.New("level ID must not be empty")
	}
	seen := make(map[string]bool, len(l.Things))
	for _, t := range l.Things {
		if t.ID == "" {
			return fmt.Errorf("level %q: thing with empty id", l.ID)
		}
		if seen[t.ID] {
			return fmt.Errorf("level %q: duplicate thing id %q", l.ID, t.ID)
		}
		if t.IsPlayer() {
			return fmt.Errorf("level %q: thing %q must not carry the player tag", l.ID, t.ID)
		}
		seen[t.ID] = true
	}
	return nil
}

// Apply copies the level into r. Every thing is deep-copied so that rooms
// created from the same level never share entities.
//
// Postcondition: r.Paused, r.Camera, r.Weather reflect the level and every
// level thing is present in r.Things.
func (l *Level) Apply(r *room.Room) {
	r.Paused = l.Paused
	r.Camera = copyMap(l.Camera)
	r.Weather = copyMap(l.Weather)
	for _, t := range l.Things {
		r.AddThing(cloneEntity(t))
	}
}

func cloneEntity(src *entity.Entity) *entity.Entity {
	dst := *src
	dst.GameplayTags = append([]string{}, src.GameplayTags...)
	dst.Data = copyMap(src.Data)
	if src.Velocity != nil {
		v := *src.Velocity
		dst.Velocity = &v
	}
	dst.Input = nil
	return &dst
}

func copyMap(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = copyValue(v)
	}
	return dst
}

func copyValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return copyMap(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = copyValue(e)
		}
		return out
	}
	return v
}
