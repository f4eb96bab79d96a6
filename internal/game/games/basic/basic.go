// Package basic implements the minimal timed game: it starts once two
// players are present, counts ticks, and ends at a time limit.
package basic

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/gamehub/internal/game/level"
	"github.com/cory-johannsen/gamehub/internal/game/plugin"
	"github.com/cory-johannsen/gamehub/internal/game/room"
)

// GameID is the registry name of the basic game.
const GameID = "basic"

// DefaultTimeLimit is the number of ticks a started game lasts.
const DefaultTimeLimit = 1000

// MinPlayers is the player count that starts a game.
const MinPlayers = 2

// Events emitted to the room.
const (
	EventGameStarted = "gameStarted"
	EventGameUpdate  = "gameUpdate"
	EventGameOver    = "gameOver"
	TimeLimitReason  = "Time limit reached"
)

// GameStarted is the payload of gameStarted.
type GameStarted struct {
	Players     []string `json:"players"`
	PlayerCount int      `json:"playerCount"`
}

type gameUpdate struct {
	Timer int `json:"timer"`
}

type gameOver struct {
	Reason string `json:"reason"`
}

// Plugin is the basic game.
type Plugin struct {
	plugin.Base
	levels    *level.Library
	timeLimit int
	logger    *zap.Logger
}

// New creates the basic plugin.
//
// Precondition: levels and logger must be non-nil.
// Postcondition: a non-positive timeLimit selects DefaultTimeLimit.
func New(levels *level.Library, timeLimit int, logger *zap.Logger) *Plugin {
	if timeLimit <= 0 {
		timeLimit = DefaultTimeLimit
	}
	return &Plugin{
		Base:      plugin.Base{PluginName: "BasicGame"},
		levels:    levels,
		timeLimit: timeLimit,
		logger:    logger,
	}
}

// Create applies the "basic" level to every non-lobby room.
func (p *Plugin) Create(r *room.Room) error {
	if r.IsLobby() {
		return nil
	}
	if lvl, ok := p.levels.Get(GameID); ok {
		lvl.Apply(r)
	}
	r.Started = false
	r.Timer = 0
	r.CurrentPlayerIndex = 0
	return nil
}

// Update starts the game at MinPlayers and advances its timer.
func (p *Plugin) Update(r *room.Room, _ *room.OutState) error {
	if r.IsLobby() || r.GameOver {
		return nil
	}

	if !r.Started && r.PlayerCount() >= MinPlayers {
		r.Start()
		r.Emit(EventGameStarted, GameStarted{Players: r.Players.IDs(), PlayerCount: r.PlayerCount()})
		p.logger.Debug("game started", zap.String("room", r.RoomID), zap.Int("players", r.PlayerCount()))
	}
	if !r.Started {
		return nil
	}

	r.Timer++
	r.Emit(EventGameUpdate, gameUpdate{Timer: r.Timer})
	if r.Timer >= p.timeLimit {
		r.Emit(EventGameOver, gameOver{Reason: TimeLimitReason})
		r.EndGame()
	}
	return nil
}
