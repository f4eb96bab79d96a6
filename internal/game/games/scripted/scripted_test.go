package scripted_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/gamehub/internal/game/dice"
	"github.com/cory-johannsen/gamehub/internal/game/entity"
	"github.com/cory-johannsen/gamehub/internal/game/games/scripted"
	"github.com/cory-johannsen/gamehub/internal/game/plugin"
	"github.com/cory-johannsen/gamehub/internal/game/registry"
	"github.com/cory-johannsen/gamehub/internal/game/room"
	"github.com/cory-johannsen/gamehub/internal/scripting"
)

func newManager(t *testing.T) *scripting.Manager {
	t.Helper()
	mgr := scripting.NewManager(dice.NewRoller(dice.NewSeededSource(7), zap.NewNop()), zap.NewNop())
	t.Cleanup(mgr.Close)
	return mgr
}

func TestNew_InputHandlerOnlyWhenHookDefined(t *testing.T) {
	mgr := newManager(t)
	plain, err := mgr.LoadString("plain", `function update(room_id) end`, 0)
	require.NoError(t, err)
	withInput, err := mgr.LoadString("input", `function player_input(room_id, id, input) end`, 0)
	require.NoError(t, err)

	_, ok := scripted.New(plain).(plugin.InputHandler)
	assert.False(t, ok)
	_, ok = scripted.New(withInput).(plugin.InputHandler)
	assert.True(t, ok)
}

func TestNew_CarriesNameAndPersistence(t *testing.T) {
	mgr := newManager(t)
	rt, err := mgr.LoadString("hub", `persistent = true`, 0)
	require.NoError(t, err)
	p := scripted.New(rt)
	assert.Equal(t, "hub", p.Name())
	assert.True(t, p.Persistent())
}

func TestRegister_AddsEveryScriptToRegistry(t *testing.T) {
	mgr := newManager(t)
	_, err := mgr.LoadString("alpha", `function create(room_id) engine.cache_set("made", room_id) end`, 0)
	require.NoError(t, err)
	_, err = mgr.LoadString("beta", `persistent = true`, 0)
	require.NoError(t, err)

	reg := registry.New(zap.NewNop())
	ids, err := scripted.Register(mgr, reg.Register)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, ids)

	g, ok := reg.Game("alpha")
	require.True(t, ok)
	rm, err := g.Ensure("room1")
	require.NoError(t, err)
	assert.Equal(t, "room1", rm.Cache["script.made"])
}

func TestInputPlugin_RoutesInput(t *testing.T) {
	mgr := newManager(t)
	rt, err := mgr.LoadString("jump", `
		function player_input(room_id, id, input)
			if input.jump then
				local me = engine.get(id)
				engine.move(id, me.x, me.y + 1, me.z)
			end
		end
	`, 0)
	require.NoError(t, err)
	p := scripted.New(rt).(plugin.InputHandler)

	r := room.New("jump", "room1")
	pl := entity.NewPlayer("p", "", nil)
	r.AddPlayer(pl)
	p.PlayerInput(r, pl, entity.Input{"jump": true})
	assert.Equal(t, 1.0, pl.Transform.Position.Y)
	assert.Nil(t, pl.Input)
}
