package basic_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/gamehub/internal/game/entity"
	"github.com/cory-johannsen/gamehub/internal/game/games/basic"
	"github.com/cory-johannsen/gamehub/internal/game/level"
	"github.com/cory-johannsen/gamehub/internal/game/room"
)

type emitted struct {
	event string
	data  any
}

func newRoom(t *testing.T, p *basic.Plugin, roomID string) (*room.Room, *[]emitted) {
	t.Helper()
	r := room.New(basic.GameID, roomID)
	var log []emitted
	r.SetEmitter(func(event string, data any) { log = append(log, emitted{event, data}) })
	require.NoError(t, p.Create(r))
	r.MarkInitialized()
	return r, &log
}

func tick(t *testing.T, p *basic.Plugin, r *room.Room) {
	t.Helper()
	var out room.OutState
	require.NoError(t, p.Update(r, &out))
}

func TestUpdate_WaitsForTwoPlayers(t *testing.T) {
	p := basic.New(level.NewLibrary(), 10, zap.NewNop())
	r, log := newRoom(t, p, "room1")
	r.AddPlayer(entity.NewPlayer("a", "A", nil))

	tick(t, p, r)
	assert.False(t, r.Started)
	assert.Empty(t, *log)
}

func TestUpdate_StartsAndCountsTimer(t *testing.T) {
	p := basic.New(level.NewLibrary(), 10, zap.NewNop())
	r, log := newRoom(t, p, "room1")
	r.AddPlayer(entity.NewPlayer("a", "A", nil))
	r.AddPlayer(entity.NewPlayer("b", "B", nil))

	tick(t, p, r)
	require.True(t, r.Started)
	require.Len(t, *log, 2)
	assert.Equal(t, basic.EventGameStarted, (*log)[0].event)
	started := (*log)[0].data.(basic.GameStarted)
	assert.Equal(t, []string{"a", "b"}, started.Players)
	assert.Equal(t, basic.EventGameUpdate, (*log)[1].event)
	assert.Equal(t, 1, r.Timer)
}

func TestUpdate_TimeLimitEndsGame(t *testing.T) {
	p := basic.New(level.NewLibrary(), 3, zap.NewNop())
	r, log := newRoom(t, p, "room1")
	r.AddPlayer(entity.NewPlayer("a", "A", nil))
	r.AddPlayer(entity.NewPlayer("b", "B", nil))

	for i := 0; i < 3; i++ {
		tick(t, p, r)
	}
	assert.True(t, r.GameOver)
	assert.Equal(t, room.Over, r.State())
	assert.Equal(t, basic.EventGameOver, (*log)[len(*log)-1].event)

	n := len(*log)
	tick(t, p, r)
	assert.Len(t, *log, n, "finished game emits nothing further")
}

func TestUpdate_LobbyNeverStarts(t *testing.T) {
	p := basic.New(level.NewLibrary(), 3, zap.NewNop())
	r, log := newRoom(t, p, room.Lobby)
	r.AddPlayer(entity.NewPlayer("a", "A", nil))
	r.AddPlayer(entity.NewPlayer("b", "B", nil))

	tick(t, p, r)
	assert.False(t, r.Started)
	assert.Empty(t, *log)
}

func TestNew_DefaultTimeLimit(t *testing.T) {
	p := basic.New(level.NewLibrary(), 0, zap.NewNop())
	r, _ := newRoom(t, p, "room1")
	r.AddPlayer(entity.NewPlayer("a", "A", nil))
	r.AddPlayer(entity.NewPlayer("b", "B", nil))
	for i := 0; i < basic.DefaultTimeLimit-1; i++ {
		tick(t, p, r)
	}
	assert.False(t, r.GameOver)
	tick(t, p, r)
	assert.True(t, r.GameOver)
}
