package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/gamehub/internal/game/entity"
	"github.com/cory-johannsen/gamehub/internal/game/room"
)

// cachePrefix namespaces script cache entries inside Room.Cache.
const cachePrefix = "script."

// registerEngine installs the engine table. Every function operates on the
// room bound by the hook currently running and is a no-op outside a hook.
func (rt *Runtime) registerEngine(L *lua.LState) {
	engine := L.NewTable()
	L.SetFuncs(engine, map[string]lua.LGFunction{
		"room_id":      rt.luaRoomID,
		"players":      rt.luaPlayers,
		"things":       rt.luaThings,
		"get":          rt.luaGet,
		"move":         rt.luaMove,
		"set_data":     rt.luaSetData,
		"data":         rt.luaData,
		"push":         rt.luaPush,
		"emit":         rt.luaEmit,
		"start":        rt.luaStart,
		"game_over":    rt.luaGameOver,
		"cache_get":    rt.luaCacheGet,
		"cache_set":    rt.luaCacheSet,
		"timer":        rt.luaTimer,
		"set_timer":    rt.luaSetTimer,
		"player_count": rt.luaPlayerCount,
		"roll":         rt.luaRoll,
		"log":          rt.luaLog,
	})
	L.SetGlobal("engine", engine)
}

func (rt *Runtime) luaRoomID(L *lua.LState) int {
	if rt.room == nil {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(rt.room.RoomID))
	return 1
}

func (rt *Runtime) luaPlayers(L *lua.LState) int {
	if rt.room == nil {
		L.Push(L.NewTable())
		return 1
	}
	L.Push(toLua(L, rt.room.Players.IDs()))
	return 1
}

func (rt *Runtime) luaThings(L *lua.LState) int {
	t := L.NewTable()
	if rt.room != nil {
		for _, e := range rt.room.Things.All() {
			if !e.IsPlayer() {
				t.Append(lua.LString(e.ID))
			}
		}
	}
	L.Push(t)
	return 1
}

// luaGet returns a snapshot table of an entity, or nil.
func (rt *Runtime) luaGet(L *lua.LState) int {
	e := rt.entity(L.CheckString(1))
	if e == nil {
		L.Push(lua.LNil)
		return 1
	}
	pos := e.Transform.Position
	L.Push(toLua(L, map[string]any{
		"id":        e.ID,
		"name":      e.Name,
		"type":      e.Type,
		"speed":     e.Speed,
		"score":     e.Score,
		"x":         pos.X,
		"y":         pos.Y,
		"z":         pos.Z,
		"is_player": e.IsPlayer(),
		"is_ai":     e.IsAI(),
		"input":     map[string]any(e.Input),
	}))
	return 1
}

func (rt *Runtime) luaMove(L *lua.LState) int {
	e := rt.entity(L.CheckString(1))
	if e == nil {
		L.Push(lua.LFalse)
		return 1
	}
	e.Transform.Position = entity.Vec3{
		X: float64(L.CheckNumber(2)),
		Y: float64(L.CheckNumber(3)),
		Z: float64(L.CheckNumber(4)),
	}.Round2()
	L.Push(lua.LTrue)
	return 1
}

func (rt *Runtime) luaSetData(L *lua.LState) int {
	e := rt.entity(L.CheckString(1))
	if e == nil {
		return 0
	}
	key := L.CheckString(2)
	if e.Data == nil {
		e.Data = make(map[string]any)
	}
	e.Data[key] = toGo(L.Get(3))
	return 0
}

func (rt *Runtime) luaData(L *lua.LState) int {
	e := rt.entity(L.CheckString(1))
	if e == nil {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(toLua(L, e.Data[L.CheckString(2)]))
	return 1
}

// luaPush reports an entity's position, velocity and speed in this tick's
// serverUpdate. Only valid during update.
func (rt *Runtime) luaPush(L *lua.LState) int {
	e := rt.entity(L.CheckString(1))
	if e == nil || rt.out == nil {
		L.Push(lua.LFalse)
		return 1
	}
	rt.out.PushEntity(e)
	L.Push(lua.LTrue)
	return 1
}

func (rt *Runtime) luaEmit(L *lua.LState) int {
	if rt.room == nil {
		return 0
	}
	rt.room.Emit(L.CheckString(1), toGo(L.Get(2)))
	return 0
}

func (rt *Runtime) luaStart(L *lua.LState) int {
	if rt.room != nil {
		rt.room.Start()
	}
	return 0
}

func (rt *Runtime) luaGameOver(L *lua.LState) int {
	if rt.room != nil {
		rt.room.EndGame()
	}
	return 0
}

func (rt *Runtime) luaCacheGet(L *lua.LState) int {
	if rt.room == nil {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(toLua(L, rt.room.Cache[cachePrefix+L.CheckString(1)]))
	return 1
}

func (rt *Runtime) luaCacheSet(L *lua.LState) int {
	if rt.room == nil {
		return 0
	}
	rt.room.Cache[cachePrefix+L.CheckString(1)] = toGo(L.Get(2))
	return 0
}

func (rt *Runtime) luaTimer(L *lua.LState) int {
	if rt.room == nil {
		L.Push(lua.LNumber(0))
		return 1
	}
	L.Push(lua.LNumber(rt.room.Timer))
	return 1
}

func (rt *Runtime) luaSetTimer(L *lua.LState) int {
	if rt.room != nil {
		rt.room.Timer = L.CheckInt(1)
	}
	return 0
}

func (rt *Runtime) luaPlayerCount(L *lua.LState) int {
	n := 0
	if rt.room != nil {
		n = rt.room.PlayerCount()
	}
	L.Push(lua.LNumber(n))
	return 1
}

// luaRoll evaluates a dice expression such as "2d6+1" and returns its total.
func (rt *Runtime) luaRoll(L *lua.LState) int {
	res, err := rt.roller.RollExpr(L.CheckString(1))
	if err != nil {
		L.RaiseError("engine.roll: %s", err.Error())
		return 0
	}
	L.Push(lua.LNumber(res.Total()))
	return 1
}

func (rt *Runtime) luaLog(L *lua.LState) int {
	fields := []zap.Field{zap.String("script", rt.name)}
	if rt.room != nil {
		fields = append(fields, zap.String("room", rt.room.RoomID))
	}
	rt.logger.Info(L.CheckString(1), fields...)
	return 0
}

func (rt *Runtime) entity(id string) *entity.Entity {
	if rt.room == nil {
		return nil
	}
	e, _ := rt.room.Thing(id)
	return e
}

// bind scopes the engine table to r and out for the duration of one hook.
func (rt *Runtime) bind(r *room.Room, out *room.OutState) func() {
	rt.room, rt.out = r, out
	return func() { rt.room, rt.out = nil, nil }
}
