package gameserver_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/gamehub/internal/game/dice"
	"github.com/cory-johannsen/gamehub/internal/game/entity"
	"github.com/cory-johannsen/gamehub/internal/game/plugin"
	"github.com/cory-johannsen/gamehub/internal/game/registry"
	"github.com/cory-johannsen/gamehub/internal/game/room"
	"github.com/cory-johannsen/gamehub/internal/game/session"
	"github.com/cory-johannsen/gamehub/internal/gameserver"
	"github.com/cory-johannsen/gamehub/internal/testutil"
)

// stubPlugin runs an optional update function and counts creations.
type stubPlugin struct {
	plugin.Base
	update  func(r *room.Room, out *room.OutState) error
	creates int
}

func (s *stubPlugin) Create(*room.Room) error {
	s.creates++
	return nil
}

func (s *stubPlugin) Update(r *room.Room, out *room.OutState) error {
	if s.update != nil {
		return s.update(r, out)
	}
	return nil
}

// inputPlugin records the inputs routed to it.
type inputPlugin struct {
	*stubPlugin
	inputs []entity.Input
}

func (p *inputPlugin) PlayerInput(_ *room.Room, _ *entity.Entity, in entity.Input) {
	p.inputs = append(p.inputs, in)
}

// seederPlugin adds n AI players to every non-lobby room.
type seederPlugin struct {
	*stubPlugin
	n     int
	calls int
}

func (p *seederPlugin) AIPlayerMax(*room.Room) int { return p.n }

func (p *seederPlugin) AddAIPlayers(*room.Room) []*entity.Entity {
	p.calls++
	var out []*entity.Entity
	for i := 0; i <= p.n; i++ {
		out = append(out, entity.NewPlayer("ai"+string(rune('a'+i)), "", map[string]any{"isAi": true}))
	}
	return out
}

type harness struct {
	reg      *registry.Registry
	sessions *session.Manager
	c        *gameserver.Coordinator
	logs     *observer.ObservedLogs
}

func newHarness(t *testing.T, games map[string]plugin.Plugin) *harness {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)
	reg := registry.New(logger)
	for id, p := range games {
		require.NoError(t, reg.Register(id, p))
	}
	sessions := session.NewManager(256)
	roller := dice.NewRoller(dice.NewSeededSource(1), logger)
	return &harness{
		reg:      reg,
		sessions: sessions,
		c:        gameserver.NewCoordinator(reg, sessions, roller, logger),
		logs:     logs,
	}
}

func (h *harness) connect(t *testing.T, id, gameID, roomID string) *session.Session {
	t.Helper()
	sess, err := h.c.Connect(gameserver.ConnectRequest{ConnID: id, GameID: gameID, RoomID: roomID, Name: id})
	require.NoError(t, err)
	return sess
}

func drainAll(t *testing.T, sessions ...*session.Session) {
	t.Helper()
	for _, s := range sessions {
		testutil.Drain(t, s)
	}
}

func player(t *testing.T, h *harness, gameID, roomID, id string) *entity.Entity {
	t.Helper()
	var p *entity.Entity
	require.True(t, h.c.Inspect(gameID, roomID, func(r *room.Room) {
		p, _ = r.Player(id)
	}), "room %s/%s missing", gameID, roomID)
	require.NotNil(t, p, "player %s missing", id)
	return p
}
