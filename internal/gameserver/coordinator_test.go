package gameserver_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/gamehub/internal/game/entity"
	"github.com/cory-johannsen/gamehub/internal/game/games/sandbox"
	"github.com/cory-johannsen/gamehub/internal/game/level"
	"github.com/cory-johannsen/gamehub/internal/game/plugin"
	"github.com/cory-johannsen/gamehub/internal/game/room"
	"github.com/cory-johannsen/gamehub/internal/gameserver"
	"github.com/cory-johannsen/gamehub/internal/observability"
	"github.com/cory-johannsen/gamehub/internal/testutil"
)

func basicGames() map[string]plugin.Plugin {
	return map[string]plugin.Plugin{"g": &stubPlugin{}}
}

func TestConnect_UnknownGameRejected(t *testing.T) {
	h := newHarness(t, basicGames())
	_, err := h.c.Connect(gameserver.ConnectRequest{ConnID: "a", GameID: "nope", RoomID: "room1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, gameserver.ErrUnknownGame))
	assert.Zero(t, h.sessions.Count())
}

func TestConnect_InvalidRoomRejected(t *testing.T) {
	h := newHarness(t, basicGames())
	for _, id := range []string{"", "room", "room-1", "room12345678901234567", "other"} {
		_, err := h.c.Connect(gameserver.ConnectRequest{ConnID: "a", GameID: "g", RoomID: id})
		require.Error(t, err, id)
		assert.True(t, errors.Is(err, gameserver.ErrInvalidRoom), id)
	}
	g, _ := h.reg.Game("g")
	assert.Empty(t, g.RoomIDs(), "rejected handshakes create nothing")
	assert.Zero(t, h.sessions.Count())
}

func TestConnect_DuplicateConnectionRejected(t *testing.T) {
	h := newHarness(t, basicGames())
	h.connect(t, "a", "g", "room1")
	_, err := h.c.Connect(gameserver.ConnectRequest{ConnID: "a", GameID: "g", RoomID: "room2"})
	assert.ErrorIs(t, err, gameserver.ErrDuplicateConnection)
}

func TestConnect_GeneratesIDWhenMissing(t *testing.T) {
	h := newHarness(t, basicGames())
	sess, err := h.c.Connect(gameserver.ConnectRequest{GameID: "g", RoomID: "lobby"})
	require.NoError(t, err)
	assert.Len(t, sess.ID, 36)
	p := player(t, h, "g", "lobby", sess.ID)
	assert.Equal(t, sess.ID, p.Name)
}

func TestConnect_AppliesInitialTransform(t *testing.T) {
	h := newHarness(t, basicGames())
	tr := entity.DefaultTransform()
	tr.Position = entity.Vec3{X: 1, Y: 2, Z: 3}
	_, err := h.c.Connect(gameserver.ConnectRequest{ConnID: "a", GameID: "g", RoomID: "room1", Transform: &tr})
	require.NoError(t, err)
	assert.Equal(t, entity.Vec3{X: 1, Y: 2, Z: 3}, player(t, h, "g", "room1", "a").Transform.Position)
}

func TestConnect_DoubleJoin(t *testing.T) {
	stub := &stubPlugin{}
	h := newHarness(t, map[string]plugin.Plugin{"g": stub})
	a := h.connect(t, "a", "g", "room1")
	b := h.connect(t, "b", "g", "room1")

	assert.Equal(t, 1, stub.creates, "room created once")
	n, err := h.c.PlayerCount("g", "room1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	aFrames := testutil.Drain(t, a)
	bFrames := testutil.Drain(t, b)
	assert.Equal(t, []string{gameserver.EventInit, gameserver.EventPlayerJoined}, testutil.Events(aFrames))
	assert.Equal(t, []string{gameserver.EventInit}, testutil.Events(bFrames))

	initData := testutil.Payload(t, bFrames[0])
	assert.Equal(t, "b", initData["you"])
	game := initData["game"].(map[string]any)
	assert.Equal(t, "room1", game["roomId"])
	assert.Len(t, game["players"], 2)

	joined := testutil.Payload(t, aFrames[1])
	assert.Equal(t, "b", joined["player"].(map[string]any)["id"])
	assert.Equal(t, 2.0, joined["playerCount"])
}

func TestConnect_PlayerDefaults(t *testing.T) {
	h := newHarness(t, basicGames())
	h.connect(t, "a", "g", "room1")
	p := player(t, h, "g", "room1", "a")
	assert.True(t, p.IsPlayer())
	assert.Equal(t, entity.DefaultPlayerSpeed, p.Speed)
	assert.Equal(t, 3, p.DataInt("health"))
	color, ok := p.Data["colorData"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 1, color["a"])
}

func TestDisconnect_NotifiesRoomAndClosesSession(t *testing.T) {
	h := newHarness(t, basicGames())
	a := h.connect(t, "a", "g", "room1")
	b := h.connect(t, "b", "g", "room1")
	drainAll(t, a, b)

	h.c.Disconnect("a")
	assert.True(t, a.Outbox.IsClosed())
	frames := testutil.Drain(t, b)
	require.Equal(t, []string{gameserver.EventPlayerLeft}, testutil.Events(frames))
	left := testutil.Payload(t, frames[0])
	assert.Equal(t, "a", left["playerId"])
	assert.Equal(t, 1.0, left["playerCount"])

	h.c.Disconnect("a")
	assert.Empty(t, testutil.Drain(t, b), "second disconnect is a no-op")
}

func TestPlayerInput_BufferedWithoutHandler(t *testing.T) {
	h := newHarness(t, basicGames())
	h.connect(t, "a", "g", "room1")
	h.c.PlayerInput("a", entity.Input{"left": true})
	h.c.PlayerInput("a", entity.Input{"right": true})
	assert.Equal(t, entity.Input{"right": true}, player(t, h, "g", "room1", "a").Input)
}

func TestPlayerInput_ForwardedToHandler(t *testing.T) {
	ip := &inputPlugin{stubPlugin: &stubPlugin{}}
	h := newHarness(t, map[string]plugin.Plugin{"g": ip})
	h.connect(t, "a", "g", "room1")
	h.c.PlayerInput("a", entity.Input{"jump": true})
	require.Len(t, ip.inputs, 1)
	assert.Nil(t, player(t, h, "g", "room1", "a").Input)

	h.c.PlayerInput("ghost", entity.Input{"jump": true})
	assert.Len(t, ip.inputs, 1, "unknown connection ignored")
}

func TestPlayerScore_Broadcast(t *testing.T) {
	h := newHarness(t, basicGames())
	a := h.connect(t, "a", "g", "room1")
	b := h.connect(t, "b", "g", "room1")
	drainAll(t, a, b)

	h.c.PlayerScore("a", 5)
	h.c.PlayerScore("a", -2)
	frames := testutil.Filter(testutil.Drain(t, b), gameserver.EventPlayerScored)
	require.Len(t, frames, 2)
	assert.Equal(t, 3.0, testutil.Payload(t, frames[1])["score"])
	assert.Len(t, testutil.Drain(t, a), 2, "sender receives its own score events")
}

func TestChangeRoom_Scenario(t *testing.T) {
	h := newHarness(t, basicGames())
	a := h.connect(t, "a", "g", "room1")
	b := h.connect(t, "b", "g", "room1")
	c := h.connect(t, "c", "g", "room2")
	h.c.PlayerScore("a", 7)
	drainAll(t, a, b, c)

	require.NoError(t, h.c.ChangeRoom("a", "room2"))

	bFrames := testutil.Drain(t, b)
	require.Equal(t, []string{gameserver.EventPlayerLeft}, testutil.Events(bFrames))
	assert.Equal(t, 1.0, testutil.Payload(t, bFrames[0])["playerCount"])

	cFrames := testutil.Drain(t, c)
	require.Equal(t, []string{gameserver.EventPlayerJoined}, testutil.Events(cFrames))
	assert.Equal(t, 2.0, testutil.Payload(t, cFrames[0])["playerCount"])

	aFrames := testutil.Drain(t, a)
	require.Equal(t, []string{gameserver.EventInit}, testutil.Events(aFrames))
	game := testutil.Payload(t, aFrames[0])["game"].(map[string]any)
	assert.Equal(t, "room2", game["roomId"])

	assert.Equal(t, 0, player(t, h, "g", "room2", "a").Score)
	assert.Equal(t, "room2", a.RoomID)
	n, _ := h.c.PlayerCount("g", "room1")
	assert.Equal(t, 1, n)

	// Messages in the old room no longer reach a.
	h.c.Chat("b", "hello")
	assert.Empty(t, testutil.Drain(t, a))
}

func TestChangeRoom_FromLobby(t *testing.T) {
	h := newHarness(t, basicGames())
	a := h.connect(t, "a", "g", room.Lobby)
	b := h.connect(t, "b", "g", room.Lobby)
	c := h.connect(t, "c", "g", "room1")
	h.c.PlayerScore("a", 4)
	drainAll(t, a, b, c)

	require.NoError(t, h.c.ChangeRoom("a", "room1"))

	bFrames := testutil.Drain(t, b)
	require.Equal(t, []string{gameserver.EventPlayerLeft}, testutil.Events(bFrames))
	assert.Equal(t, "a", testutil.Payload(t, bFrames[0])["playerId"])

	cFrames := testutil.Drain(t, c)
	require.Equal(t, []string{gameserver.EventPlayerJoined}, testutil.Events(cFrames))
	joined := testutil.Payload(t, cFrames[0])["player"].(map[string]any)
	assert.Equal(t, "a", joined["id"])

	var inLobby bool
	require.True(t, h.c.Inspect("g", room.Lobby, func(r *room.Room) {
		_, inLobby = r.Player("a")
	}), "lobby survives the move")
	assert.False(t, inLobby)
	assert.Equal(t, 0, player(t, h, "g", "room1", "a").Score)
	assert.Equal(t, "room1", a.RoomID)
}

func TestChangeRoom_InvalidOrSameIsNoOp(t *testing.T) {
	h := newHarness(t, basicGames())
	a := h.connect(t, "a", "g", "room1")
	b := h.connect(t, "b", "g", "room1")
	drainAll(t, a, b)

	require.NoError(t, h.c.ChangeRoom("a", "room1"))
	require.NoError(t, h.c.ChangeRoom("a", "bad room"))
	assert.Empty(t, testutil.Drain(t, a))
	assert.Empty(t, testutil.Drain(t, b))
	assert.Equal(t, "room1", a.RoomID)
}

func TestTick_ServerUpdateOnlyWhenNonEmpty(t *testing.T) {
	stub := &stubPlugin{update: func(r *room.Room, out *room.OutState) error {
		if push, _ := r.Cache["push"].(bool); push {
			out.Push(map[string]any{"id": "x"})
			out.Push(map[string]any{"id": "y"})
		}
		return nil
	}}
	h := newHarness(t, map[string]plugin.Plugin{"g": stub})
	a := h.connect(t, "a", "g", "room1")
	drainAll(t, a)

	h.c.Tick()
	assert.Empty(t, testutil.Drain(t, a))

	h.c.Inspect("g", "room1", func(r *room.Room) { r.Cache["push"] = true })
	h.c.Tick()
	frames := testutil.Drain(t, a)
	require.Equal(t, []string{gameserver.EventServerUpdate}, testutil.Events(frames))
	assert.Len(t, testutil.Payload(t, frames[0])["things"], 2)
	assert.Equal(t, uint64(2), h.c.Ticks())
}

func TestTick_DestroysEmptyNonPersistentRooms(t *testing.T) {
	h := newHarness(t, map[string]plugin.Plugin{
		"g":       &stubPlugin{},
		"persist": &stubPlugin{Base: plugin.Base{Persist: true}},
	})
	h.connect(t, "a", "g", "room1")
	h.connect(t, "b", "persist", "room1")
	h.connect(t, "c", "g", "lobby")
	h.c.Disconnect("a")
	h.c.Disconnect("b")
	h.c.Disconnect("c")

	assert.True(t, h.c.Inspect("g", "room1", func(*room.Room) {}), "destruction waits for the tick")
	h.c.Tick()
	assert.False(t, h.c.Inspect("g", "room1", func(*room.Room) {}))
	assert.True(t, h.c.Inspect("persist", "room1", func(*room.Room) {}))
	assert.True(t, h.c.Inspect("g", "lobby", func(*room.Room) {}), "lobby survives")
}

func TestTick_RoomWithOnlyAIPlayersDestroyed(t *testing.T) {
	seeder := &seederPlugin{stubPlugin: &stubPlugin{}, n: 2}
	h := newHarness(t, map[string]plugin.Plugin{"g": seeder})
	h.connect(t, "a", "g", "room1")
	h.c.Disconnect("a")
	h.c.Tick()
	assert.False(t, h.c.Inspect("g", "room1", func(*room.Room) {}))
}

func TestTick_GameOverMigratesToLobby(t *testing.T) {
	seeder := &seederPlugin{n: 1, stubPlugin: &stubPlugin{update: func(r *room.Room, _ *room.OutState) error {
		if !r.IsLobby() && r.HumanCount() >= 2 {
			r.EndGame()
		}
		return nil
	}}}
	h := newHarness(t, map[string]plugin.Plugin{"g": seeder})
	a := h.connect(t, "a", "g", "room1")
	b := h.connect(t, "b", "g", "room1")
	h.c.PlayerScore("a", 10)
	drainAll(t, a, b)

	h.c.Tick()

	aEvents := testutil.Events(testutil.Drain(t, a))
	bFrames := testutil.Drain(t, b)
	assert.Equal(t, []string{
		gameserver.EventGameEnded,
		gameserver.EventPlayersMoved,
		gameserver.EventInit,
		gameserver.EventPlayerJoined,
	}, aEvents)
	require.Equal(t, []string{
		gameserver.EventGameEnded,
		gameserver.EventPlayersMoved,
		gameserver.EventInit,
	}, testutil.Events(bFrames))

	assert.Equal(t, gameserver.GameOverReason, testutil.Payload(t, bFrames[0])["reason"])
	moved := testutil.Payload(t, bFrames[1])
	assert.Equal(t, room.Lobby, moved["toRoom"])
	assert.Equal(t, []any{"a", "b"}, moved["players"])

	assert.False(t, h.c.Inspect("g", "room1", func(*room.Room) {}), "finished room destroyed")
	h.c.Inspect("g", room.Lobby, func(r *room.Room) {
		assert.Equal(t, 2, r.PlayerCount(), "AI players are not migrated")
		assert.Equal(t, 0, r.Players.All()[0].Score)
	})
	assert.Equal(t, room.Lobby, a.RoomID)
	assert.Equal(t, room.Lobby, b.RoomID)
}

func TestTick_LobbyGameOverIgnored(t *testing.T) {
	stub := &stubPlugin{update: func(r *room.Room, _ *room.OutState) error {
		r.EndGame()
		return nil
	}}
	h := newHarness(t, map[string]plugin.Plugin{"g": stub})
	a := h.connect(t, "a", "g", room.Lobby)
	drainAll(t, a)
	h.c.Tick()
	assert.Empty(t, testutil.Drain(t, a))
	h.c.Inspect("g", room.Lobby, func(r *room.Room) { assert.False(t, r.GameOver) })
}

func TestTick_PluginFailureIsolatedPerRoom(t *testing.T) {
	boom := &stubPlugin{update: func(*room.Room, *room.OutState) error { panic("boom") }}
	fails := &stubPlugin{update: func(*room.Room, *room.OutState) error { return errors.New("bad state") }}
	ok := &stubPlugin{update: func(_ *room.Room, out *room.OutState) error {
		out.Push(map[string]any{"id": "x"})
		return nil
	}}
	h := newHarness(t, map[string]plugin.Plugin{"boom": boom, "fails": fails, "ok": ok})
	h.connect(t, "a", "boom", "room1")
	h.connect(t, "b", "fails", "room1")
	c := h.connect(t, "c", "ok", "room1")
	drainAll(t, c)

	require.NotPanics(t, h.c.Tick)
	assert.Equal(t, []string{gameserver.EventServerUpdate}, testutil.Events(testutil.Drain(t, c)))
	assert.Equal(t, 1, h.logs.FilterMessage("plugin panic").Len())
	assert.Equal(t, 1, h.logs.FilterMessage("plugin error").Len())
	assert.True(t, h.c.Inspect("boom", "room1", func(*room.Room) {}))

	failure := h.logs.FilterMessage("plugin error").All()[0].ContextMap()
	assert.Equal(t, "fails", failure[observability.KeyGame])
	assert.Equal(t, "room1", failure[observability.KeyRoom])
	assert.Equal(t, "update", failure["phase"])
}

func TestTick_InputScenario(t *testing.T) {
	ground := entity.NewThing("ground", "Ground", "Plane")
	ground.Data["bodyType"] = sandbox.BodyStatic
	levels := level.NewLibrary()
	require.NoError(t, levels.Add(&level.Level{ID: sandbox.GameID, Things: []*entity.Entity{ground}}))

	h := newHarness(t, map[string]plugin.Plugin{
		sandbox.GameID: sandbox.New(levels, zap.NewNop()),
	})
	a := h.connect(t, "a", sandbox.GameID, room.Sandbox)
	b := h.connect(t, "b", sandbox.GameID, room.Sandbox)
	drainAll(t, a, b)

	var hasGround bool
	require.True(t, h.c.Inspect(sandbox.GameID, room.Sandbox, func(r *room.Room) {
		_, hasGround = r.Thing("ground")
	}))
	require.True(t, hasGround, "level applied on create")

	speed := player(t, h, sandbox.GameID, room.Sandbox, "a").Speed
	h.c.PlayerInput("a", entity.Input{"left": true})
	h.c.Tick()

	assert.InDelta(t, -speed, player(t, h, sandbox.GameID, room.Sandbox, "a").Transform.Position.X, 1e-9)

	frames := testutil.Drain(t, b)
	require.Equal(t, []string{gameserver.EventServerUpdate}, testutil.Events(frames))
	var update struct {
		Things []struct {
			ID       string       `json:"id"`
			Position entity.Vec3  `json:"position"`
			Velocity *entity.Vec3 `json:"velocity"`
		} `json:"things"`
	}
	testutil.DecodeData(t, frames[0], &update)
	require.Len(t, update.Things, 1, "static level things and idle players are not sent")
	assert.Equal(t, "a", update.Things[0].ID)
	assert.InDelta(t, -speed, update.Things[0].Position.X, 1e-9)
	require.NotNil(t, update.Things[0].Velocity)
	assert.Equal(t, -1.0, update.Things[0].Velocity.X)
}

func TestAISeeding_FirstHumanJoinOnly(t *testing.T) {
	seeder := &seederPlugin{stubPlugin: &stubPlugin{}, n: 2}
	h := newHarness(t, map[string]plugin.Plugin{"g": seeder})
	a := h.connect(t, "a", "g", "room1")

	frames := testutil.Drain(t, a)
	assert.Equal(t, []string{gameserver.EventInit, gameserver.EventPlayerJoined, gameserver.EventPlayerJoined}, testutil.Events(frames))
	h.c.Inspect("g", "room1", func(r *room.Room) {
		assert.Len(t, r.AIPlayers(), 2, "capped at AIPlayerMax")
	})

	h.connect(t, "b", "g", "room1")
	h.connect(t, "c", "g", room.Lobby)
	assert.Equal(t, 1, seeder.calls, "seeded once, never in the lobby")
}

func TestChat_RelayedToRoom(t *testing.T) {
	h := newHarness(t, basicGames())
	a := h.connect(t, "a", "g", "room1")
	b := h.connect(t, "b", "g", "room1")
	other := h.connect(t, "c", "g", "room2")
	drainAll(t, a, b, other)

	h.c.Chat("a", "  hi there  ")
	h.c.Chat("a", "   ")
	aFrames := testutil.Drain(t, a)
	bFrames := testutil.Drain(t, b)
	require.Len(t, aFrames, 1)
	require.Len(t, bFrames, 1)
	msg := testutil.Payload(t, bFrames[0])
	assert.Equal(t, "hi there", msg["message"])
	assert.Equal(t, "a", msg["playerId"])
	assert.Equal(t, "a", msg["name"])
	assert.Empty(t, testutil.Drain(t, other))
}

func TestRoomPlayerCounts_PrivateReply(t *testing.T) {
	h := newHarness(t, basicGames())
	a := h.connect(t, "a", "g", "room1")
	b := h.connect(t, "b", "g", "room1")
	h.connect(t, "c", "g", "room2")
	drainAll(t, a, b)

	h.c.RoomPlayerCounts("a")
	frames := testutil.Drain(t, a)
	require.Equal(t, []string{gameserver.EventAllRoomPlayerCnt}, testutil.Events(frames))
	counts := testutil.Payload(t, frames[0])["counts"].(map[string]any)
	assert.Equal(t, map[string]any{"room1": 2.0, "room2": 1.0}, counts)
	assert.Empty(t, testutil.Drain(t, b))
}

func TestNotify_ReachesEverySession(t *testing.T) {
	h := newHarness(t, map[string]plugin.Plugin{"g": &stubPlugin{}, "h": &stubPlugin{}})
	a := h.connect(t, "a", "g", "room1")
	b := h.connect(t, "b", "h", "lobby")
	drainAll(t, a, b)

	assert.Equal(t, 2, h.c.Notify("maintenance at noon"))
	for _, frames := range [][]string{
		testutil.Events(testutil.Drain(t, a)),
		testutil.Events(testutil.Drain(t, b)),
	} {
		assert.Equal(t, []string{gameserver.EventPlayerNotify}, frames)
	}
}

func TestQueries_ReadOnly(t *testing.T) {
	h := newHarness(t, map[string]plugin.Plugin{"g": &stubPlugin{}, "h": &stubPlugin{}})
	h.connect(t, "a", "g", "room1")
	h.connect(t, "b", "g", "room2")

	n, err := h.c.PlayerCount("g", "room9")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.False(t, h.c.Inspect("g", "room9", func(*room.Room) {}), "queries never create rooms")

	_, err = h.c.PlayerCount("zzz", "room1")
	assert.ErrorIs(t, err, gameserver.ErrUnknownGame)
	_, err = h.c.PlayerCount("g", "nope")
	assert.ErrorIs(t, err, gameserver.ErrInvalidRoom)

	perRoom, err := h.c.PlayerCountPerRoom("g")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"room1": 1, "room2": 1}, perRoom)
	assert.Equal(t, map[string]int{"g": 2, "h": 0}, h.c.PlayerCountPerGame())
	assert.Equal(t, 2, h.c.TotalPlayers())
	assert.Equal(t, gameserver.Summary{TotalPlayers: 2, ActiveGames: 1}, h.c.Summary())
}
