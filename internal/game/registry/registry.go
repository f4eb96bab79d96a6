// Package registry tracks the registered game types and the live rooms of
// each. It is the only place rooms are created or destroyed.
package registry

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/cory-johannsen/gamehub/internal/game/entity"
	"github.com/cory-johannsen/gamehub/internal/game/plugin"
	"github.com/cory-johannsen/gamehub/internal/game/room"
)

// ErrUnknownGame is returned when a gameId has no registered plugin.
var ErrUnknownGame = errors.New("unknown game")

// Game is one registered game type: its shared plugin and its live rooms.
type Game struct {
	ID     string
	Plugin plugin.Plugin

	rooms    map[string]*room.Room
	onCreate func(*room.Room)
	logger   *zap.Logger
}

// Registry owns every Game.
//
// Registry is not safe for concurrent use; the coordinator that owns it
// serializes all access.
type Registry struct {
	games    map[string]*Game
	onCreate func(*room.Room)
	logger   *zap.Logger
}

// New creates an empty Registry.
//
// Precondition: logger must be non-nil.
func New(logger *zap.Logger) *Registry {
	return &Registry{
		games:  make(map[string]*Game),
		logger: logger,
	}
}

// OnRoomCreated installs a hook run for every room right after it is created
// and before the plugin initializes it. The coordinator uses it to attach the
// room's channel emitter.
func (r *Registry) OnRoomCreated(fn func(*room.Room)) {
	r.onCreate = fn
	for _, g := range r.games {
		g.onCreate = fn
	}
}

// Register adds a game type.
//
// Precondition: gameID must be non-empty; p must be non-nil.
// Postcondition: Returns an error if gameID is already registered.
func (r *Registry) Register(gameID string, p plugin.Plugin) error {
	if gameID == "" {
		return errors.New("game ID must not be empty")
	}
	if p == nil {
		return fmt.Errorf("game %q: plugin must not be nil", gameID)
	}
	if _, exists := r.games[gameID]; exists {
		return fmt.Errorf("game %q already registered", gameID)
	}
	r.games[gameID] = &Game{
		ID:       gameID,
		Plugin:   p,
		rooms:    make(map[string]*room.Room),
		onCreate: r.onCreate,
		logger:   r.logger.With(zap.String("game", gameID)),
	}
	return nil
}

// Game returns the registered game with the given ID.
func (r *Registry) Game(gameID string) (*Game, bool) {
	g, ok := r.games[gameID]
	return g, ok
}

// MustGame returns the game or ErrUnknownGame.
func (r *Registry) MustGame(gameID string) (*Game, error) {
	g, ok := r.games[gameID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGame, gameID)
	}
	return g, nil
}

// GameIDs returns the registered game IDs in sorted order.
func (r *Registry) GameIDs() []string {
	ids := make([]string, 0, len(r.games))
	for id := range r.games {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Games returns the registered games sorted by ID.
func (r *Registry) Games() []*Game {
	out := make([]*Game, 0, len(r.games))
	for _, id := range r.GameIDs() {
		out = append(out, r.games[id])
	}
	return out
}

// Room returns an existing room without creating it.
func (g *Game) Room(roomID string) (*room.Room, bool) {
	rm, ok := g.rooms[roomID]
	return rm, ok
}

// Ensure returns the room with roomID, creating and initializing it on first
// reference. Repeated calls return the same room; Create runs once.
//
// Postcondition: On error no room is registered under roomID.
func (g *Game) Ensure(roomID string) (*room.Room, error) {
	if rm, ok := g.rooms[roomID]; ok {
		return rm, nil
	}
	rm := room.New(g.ID, roomID)
	if g.onCreate != nil {
		g.onCreate(rm)
	}
	g.rooms[roomID] = rm
	if err := g.Plugin.Create(rm); err != nil {
		delete(g.rooms, roomID)
		rm.MarkDestroyed()
		return nil, fmt.Errorf("creating room %q of game %q: %w", roomID, g.ID, err)
	}
	rm.MarkInitialized()
	g.logger.Debug("room created", zap.String("room", roomID))
	return rm, nil
}

// Destroy drops a room. The lobby is only dropped when force is set.
//
// Postcondition: Returns true if the room existed and was removed.
func (g *Game) Destroy(roomID string, force bool) bool {
	rm, ok := g.rooms[roomID]
	if !ok {
		return false
	}
	if rm.IsLobby() && !force {
		return false
	}
	delete(g.rooms, roomID)
	rm.MarkDestroyed()
	g.logger.Debug("room destroyed", zap.String("room", roomID))
	return true
}

// RoomIDs returns the live room IDs in sorted order.
func (g *Game) RoomIDs() []string {
	ids := make([]string, 0, len(g.rooms))
	for id := range g.rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Rooms returns the live rooms sorted by ID.
func (g *Game) Rooms() []*room.Room {
	out := make([]*room.Room, 0, len(g.rooms))
	for _, id := range g.RoomIDs() {
		out = append(out, g.rooms[id])
	}
	return out
}

// PlayerCount returns the number of players across all rooms.
func (g *Game) PlayerCount() int {
	n := 0
	for _, rm := range g.rooms {
		n += rm.PlayerCount()
	}
	return n
}

// PlayerCountPerRoom returns roomID → player count for every live room.
func (g *Game) PlayerCountPerRoom() map[string]int {
	out := make(map[string]int, len(g.rooms))
	for id, rm := range g.rooms {
		out[id] = rm.PlayerCount()
	}
	return out
}

// ShouldDestroyEmpty reports whether rm has no human players left and may be
// dropped: the plugin is not persistent and rm is not the lobby.
func (g *Game) ShouldDestroyEmpty(rm *room.Room) bool {
	return rm.HumanCount() == 0 && !g.Plugin.Persistent() && !rm.IsLobby()
}

// MovePlayers moves every human player from one room to another, resetting
// their score. AI players stay behind and are dropped with their room.
//
// Postcondition: from holds no human players; the moved players are returned
// in their original order.
func (g *Game) MovePlayers(from, to *room.Room) []*entity.Entity {
	moved := from.HumanPlayers()
	for _, p := range moved {
		from.RemovePlayer(p.ID)
		p.Score = 0
		p.Input = nil
		to.AddPlayer(p)
	}
	return moved
}
