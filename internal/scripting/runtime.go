package scripting

import (
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/gamehub/internal/game/dice"
	"github.com/cory-johannsen/gamehub/internal/game/entity"
	"github.com/cory-johannsen/gamehub/internal/game/room"
)

// Hook names a script may define as globals.
const (
	HookCreate      = "create"
	HookUpdate      = "update"
	HookPlayerInput = "player_input"
)

// persistentGlobal is the script global that marks its rooms persistent.
const persistentGlobal = "persistent"

// Runtime is one loaded script: a VM plus the engine bindings. Hooks are
// serialized by an internal mutex.
type Runtime struct {
	name   string
	limit  int
	roller *dice.Roller
	logger *zap.Logger

	mu sync.Mutex
	L  *lua.LState

	// Bound for the duration of a hook call.
	room *room.Room
	out  *room.OutState
}

// newRuntime creates a VM, installs the engine table and runs src as the
// script body under the instruction limit.
//
// Postcondition: on error the VM is closed.
func newRuntime(name, chunk string, src func(L *lua.LState) error, limit int, roller *dice.Roller, logger *zap.Logger) (*Runtime, error) {
	rt := &Runtime{
		name:   name,
		limit:  limit,
		roller: roller,
		logger: logger,
		L:      NewSandboxedState(),
	}
	rt.registerEngine(rt.L)
	if err := Limited(rt.L, limit, func() error { return src(rt.L) }); err != nil {
		rt.L.Close()
		return nil, fmt.Errorf("scripting: loading %q: %w", chunk, err)
	}
	return rt, nil
}

// Name returns the game id the script was loaded as.
func (rt *Runtime) Name() string {
	return rt.name
}

// HasHook reports whether the script defines hook as a function.
func (rt *Runtime) HasHook(hook string) bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.L.GetGlobal(hook).Type() == lua.LTFunction
}

// Persistent reports whether the script set the persistent global.
func (rt *Runtime) Persistent() bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return lua.LVAsBool(rt.L.GetGlobal(persistentGlobal))
}

// Create runs the create hook for a new room.
func (rt *Runtime) Create(r *room.Room) error {
	return rt.call(HookCreate, r, nil, nil)
}

// Update runs the update hook for one tick.
func (rt *Runtime) Update(r *room.Room, out *room.OutState) error {
	return rt.call(HookUpdate, r, out, nil)
}

// PlayerInput runs the player_input hook. Failures are logged at warn and
// not returned; the input is dropped.
func (rt *Runtime) PlayerInput(r *room.Room, p *entity.Entity, in entity.Input) {
	args := func(L *lua.LState) []lua.LValue {
		return []lua.LValue{lua.LString(p.ID), toLua(L, map[string]any(in))}
	}
	if err := rt.call(HookPlayerInput, r, nil, args); err != nil {
		rt.logger.Warn("scripting: Lua runtime error",
			zap.String("script", rt.name),
			zap.String("room", r.RoomID),
			zap.String("hook", HookPlayerInput),
			zap.Error(err),
		)
	}
}

// Close releases the VM.
func (rt *Runtime) Close() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.L.Close()
}

// call invokes hook with the room id followed by the values built by args.
// A hook the script does not define is a no-op.
func (rt *Runtime) call(hook string, r *room.Room, out *room.OutState, args func(*lua.LState) []lua.LValue) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	fn := rt.L.GetGlobal(hook)
	if fn.Type() != lua.LTFunction {
		return nil
	}
	unbind := rt.bind(r, out)
	defer unbind()

	all := []lua.LValue{lua.LString(r.RoomID)}
	if args != nil {
		all = append(all, args(rt.L)...)
	}
	err := Limited(rt.L, rt.limit, func() error {
		return rt.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, all...)
	})
	if err != nil {
		return fmt.Errorf("scripting: %s.%s: %w", rt.name, hook, err)
	}
	return nil
}
