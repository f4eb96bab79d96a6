package ws

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/gamehub/internal/config"
	"github.com/cory-johannsen/gamehub/internal/game/entity"
	"github.com/cory-johannsen/gamehub/internal/game/session"
	"github.com/cory-johannsen/gamehub/internal/gameserver"
)

// recordingCoordinator records the calls dispatch makes.
type recordingCoordinator struct {
	calls []string
	args  []any
}

func (r *recordingCoordinator) record(name string, arg any) {
	r.calls = append(r.calls, name)
	r.args = append(r.args, arg)
}

func (r *recordingCoordinator) Connect(gameserver.ConnectRequest) (*session.Session, error) {
	return nil, errors.New("not used")
}
func (r *recordingCoordinator) Disconnect(string)                    { r.record("Disconnect", nil) }
func (r *recordingCoordinator) PlayerInput(_ string, in entity.Input) { r.record("PlayerInput", in) }
func (r *recordingCoordinator) MutateTransform(_, kind string, req gameserver.TransformRequest) {
	r.record("MutateTransform:"+kind, req)
}
func (r *recordingCoordinator) PlayerScore(_ string, delta int) { r.record("PlayerScore", delta) }
func (r *recordingCoordinator) ChangeRoom(_, roomID string) error {
	r.record("ChangeRoom", roomID)
	return nil
}
func (r *recordingCoordinator) Chat(_, message string) { r.record("Chat", message) }
func (r *recordingCoordinator) SpawnThing(_ string, req gameserver.SpawnRequest) string {
	r.record("SpawnThing", req)
	return "id"
}
func (r *recordingCoordinator) AddThing(_ string, t *entity.Entity) bool {
	r.record("AddThing", t)
	return true
}
func (r *recordingCoordinator) RemoveThing(_, id string) bool  { r.record("RemoveThing", id); return true }
func (r *recordingCoordinator) RespawnThing(_, id string) bool { r.record("RespawnThing", id); return true }
func (r *recordingCoordinator) DisposeThing(_, id string) bool { r.record("DisposeThing", id); return true }
func (r *recordingCoordinator) ClearAllThings(string) int {
	r.record("ClearAllThings", nil)
	return 0
}
func (r *recordingCoordinator) RoomPlayerCounts(string) { r.record("RoomPlayerCounts", nil) }

func newDispatcher(t *testing.T) (*Handler, *recordingCoordinator) {
	rec := &recordingCoordinator{}
	return NewHandler(config.WebSocketConfig{}, rec, zaptest.NewLogger(t)), rec
}

func env(event, data string) session.Envelope {
	e := session.Envelope{Event: event}
	if data != "" {
		e.Data = json.RawMessage(data)
	}
	return e
}

func TestDispatchScalarAndObjectForms(t *testing.T) {
	cases := []struct {
		env  session.Envelope
		call string
		arg  any
	}{
		{env(gameserver.EventPlayerScore, `3`), "PlayerScore", 3},
		{env(gameserver.EventPlayerScore, `{"delta":-2}`), "PlayerScore", -2},
		{env(gameserver.EventPlayerChangeRoom, `"room7"`), "ChangeRoom", "room7"},
		{env(gameserver.EventPlayerChangeRoom, ` {"roomId":"lobby"}`), "ChangeRoom", "lobby"},
		{env(gameserver.EventChat, `"hi"`), "Chat", "hi"},
		{env(gameserver.EventChat, `{"message":"yo"}`), "Chat", "yo"},
		{env(gameserver.EventRemoveThing, `{"id":"t1"}`), "RemoveThing", "t1"},
		{env(gameserver.EventRespawnThing, `"t1"`), "RespawnThing", "t1"},
		{env(gameserver.EventDisposeThing, `{"id":"t2"}`), "DisposeThing", "t2"},
		{env(gameserver.EventClearAllThings, ``), "ClearAllThings", nil},
		{env(gameserver.EventGetAllRoomPlayerCount, `{}`), "RoomPlayerCounts", nil},
	}
	for _, tc := range cases {
		t.Run(tc.env.Event+string(tc.env.Data), func(t *testing.T) {
			h, rec := newDispatcher(t)
			require.NoError(t, h.dispatch("p1", tc.env))
			require.Equal(t, []string{tc.call}, rec.calls)
			assert.Equal(t, tc.arg, rec.args[0])
		})
	}
}

func TestDispatchClientEventNames(t *testing.T) {
	h, rec := newDispatcher(t)
	require.NoError(t, h.dispatch("p1", env("playerChangeRoom", `"room1"`)))
	require.NoError(t, h.dispatch("p1", env("chatMessage", `"hello"`)))

	require.Equal(t, []string{"ChangeRoom", "Chat"}, rec.calls)
	assert.Equal(t, []any{"room1", "hello"}, rec.args)

	for _, stale := range []string{"changeRoom", "chat"} {
		assert.ErrorIs(t, h.dispatch("p1", env(stale, `"room1"`)), errUnknownEvent, stale)
	}
}

func TestDispatchTransformKinds(t *testing.T) {
	h, rec := newDispatcher(t)
	require.NoError(t, h.dispatch("p1", env("thingPositionScale", `{"id":"crate","position":{"x":1,"y":2,"z":3}}`)))

	require.Equal(t, []string{"MutateTransform:thingPositionScale"}, rec.calls)
	req := rec.args[0].(gameserver.TransformRequest)
	assert.Equal(t, "crate", req.ID)
	assert.Equal(t, &entity.Vec3{X: 1, Y: 2, Z: 3}, req.Position)
	assert.Nil(t, req.Scale)
}

func TestDispatchThingPayloads(t *testing.T) {
	h, rec := newDispatcher(t)
	require.NoError(t, h.dispatch("p1", env(gameserver.EventSpawnThing, `{"type":"Crate","speed":0.5,"gameplayTags":["box"]}`)))
	require.NoError(t, h.dispatch("p1", env(gameserver.EventAddThing, `{"thing":{"id":"t9","type":"Crate"}}`)))

	require.Equal(t, []string{"SpawnThing", "AddThing"}, rec.calls)
	spawn := rec.args[0].(gameserver.SpawnRequest)
	assert.Equal(t, "Crate", spawn.Type)
	assert.Equal(t, 0.5, spawn.Speed)
	assert.Equal(t, []string{"box"}, spawn.Tags)
	assert.Equal(t, "t9", rec.args[1].(*entity.Entity).ID)
}

func TestDispatchPlayerInputIsOpaque(t *testing.T) {
	h, rec := newDispatcher(t)
	require.NoError(t, h.dispatch("p1", env(gameserver.EventPlayerInput, `{"left":true,"aim":{"x":1}}`)))

	in := rec.args[0].(entity.Input)
	assert.True(t, in.Bool("left"))
	assert.Contains(t, in, "aim")
}

func TestDispatchRejectsUnknownAndMalformed(t *testing.T) {
	h, rec := newDispatcher(t)

	err := h.dispatch("p1", env("playerTeleported", `{}`))
	assert.ErrorIs(t, err, errUnknownEvent)

	assert.Error(t, h.dispatch("p1", env(gameserver.EventPlayerScore, `"three"`)))
	assert.Error(t, h.dispatch("p1", env("playerPosition", `[1,2]`)))
	assert.Empty(t, rec.calls)
}
