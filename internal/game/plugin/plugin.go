// Package plugin defines the contract every game type implements. A plugin
// instance is shared by all rooms of its game type and must keep no per-room
// state of its own; everything mutable lives in the *room.Room it is handed.
package plugin

import (
	"github.com/cory-johannsen/gamehub/internal/game/entity"
	"github.com/cory-johannsen/gamehub/internal/game/room"
)

// Plugin is the required capability set of a game type.
type Plugin interface {
	// Name is the human-readable plugin name used in logs.
	Name() string
	// Persistent reports whether rooms survive being emptied of players.
	Persistent() bool
	// Create initializes a freshly created room, typically from level data.
	Create(r *room.Room) error
	// Update advances r by one tick, appending partial states to out.
	Update(r *room.Room, out *room.OutState) error
}

// InputHandler is implemented by plugins that consume client input
// immediately instead of reading the buffered Input on the next tick.
type InputHandler interface {
	PlayerInput(r *room.Room, p *entity.Entity, in entity.Input)
}

// AISeeder is implemented by plugins that fill rooms with server-driven players.
type AISeeder interface {
	// AIPlayerMax returns the maximum number of AI players r may hold.
	AIPlayerMax(r *room.Room) int
	// AddAIPlayers builds AI players for r. The caller inserts them.
	AddAIPlayers(r *room.Room) []*entity.Entity
}

// PlayerDefaults is implemented by plugins that define the initial data map
// of a joining player.
type PlayerDefaults interface {
	PlayerData() map[string]any
}
