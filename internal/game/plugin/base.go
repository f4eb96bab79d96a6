package plugin

import "github.com/cory-johannsen/gamehub/internal/game/room"

// Base provides no-op Create and Update so small plugins only implement what
// they need.
type Base struct {
	PluginName string
	Persist    bool
}

// Name implements Plugin.
func (b Base) Name() string { return b.PluginName }

// Persistent implements Plugin.
func (b Base) Persistent() bool { return b.Persist }

// Create implements Plugin.
func (Base) Create(*room.Room) error { return nil }

// Update implements Plugin.
func (Base) Update(*room.Room, *room.OutState) error { return nil }
