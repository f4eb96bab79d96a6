// Package scripted adapts Lua game scripts to the plugin contract.
package scripted

import (
	"github.com/cory-johannsen/gamehub/internal/game/entity"
	"github.com/cory-johannsen/gamehub/internal/game/plugin"
	"github.com/cory-johannsen/gamehub/internal/game/room"
	"github.com/cory-johannsen/gamehub/internal/scripting"
)

// Plugin runs a script's create and update hooks.
type Plugin struct {
	plugin.Base
	rt *scripting.Runtime
}

// InputPlugin additionally routes player input to the script's
// player_input hook instead of buffering it.
type InputPlugin struct {
	*Plugin
}

// New wraps rt. The result implements plugin.InputHandler only when the
// script defines player_input.
//
// Precondition: rt must be non-nil.
func New(rt *scripting.Runtime) plugin.Plugin {
	p := &Plugin{
		Base: plugin.Base{PluginName: rt.Name(), Persist: rt.Persistent()},
		rt:   rt,
	}
	if rt.HasHook(scripting.HookPlayerInput) {
		return &InputPlugin{Plugin: p}
	}
	return p
}

// Create runs the script's create hook.
func (p *Plugin) Create(r *room.Room) error {
	return p.rt.Create(r)
}

// Update runs the script's update hook.
func (p *Plugin) Update(r *room.Room, out *room.OutState) error {
	return p.rt.Update(r, out)
}

// PlayerInput runs the script's player_input hook.
func (p *InputPlugin) PlayerInput(r *room.Room, pl *entity.Entity, in entity.Input) {
	p.rt.PlayerInput(r, pl, in)
}

// Register loads every script in mgr as a game type.
//
// Postcondition: returns the registered ids, or the first registration error.
func Register(mgr *scripting.Manager, register func(gameID string, p plugin.Plugin) error) ([]string, error) {
	ids := mgr.GameIDs()
	for _, id := range ids {
		rt, _ := mgr.Runtime(id)
		if err := register(id, New(rt)); err != nil {
			return nil, err
		}
	}
	return ids, nil
}
