// Package room models one live instance of a game type: its entity stores,
// lifecycle flags and broadcast channel address.
package room

import (
	"encoding/json"
	"fmt"

	"github.com/cory-johannsen/gamehub/internal/game/entity"
)

// Lobby is the reserved room that receives players migrated out of finished
// games. It is never destroyed.
const Lobby = "lobby"

// Sandbox is the reserved free-play room.
const Sandbox = "sandbox"

// RemovedThingsKey is the Cache key holding things removed with removeThing,
// kept so they can be respawned.
const RemovedThingsKey = "removedThings"

// Emitter delivers a named event to every subscriber of a room's channel.
type Emitter func(event string, data any)

// Room is one simulated instance of a game type.
//
// Invariant: every id in Players is also in Things, mapped to the same entity.
// Room is not safe for concurrent use; the coordinator serializes access.
type Room struct {
	GameID string
	RoomID string
	// Name is the channel address, "<gameId>:<roomId>".
	Name string

	Started            bool
	Paused             bool
	GameOver           bool
	Timer              int
	CurrentPlayerIndex int

	// Cache is plugin scratch space. It is not sent to clients.
	Cache   map[string]any
	Camera  map[string]any
	Weather map[string]any

	Players *entity.Store
	Things  *entity.Store

	initialized bool
	destroyed   bool
	emit        Emitter
}

// New creates an uninitialized room.
//
// Precondition: gameID and roomID must be non-empty.
func New(gameID, roomID string) *Room {
	return &Room{
		GameID:  gameID,
		RoomID:  roomID,
		Name:    ChannelName(gameID, roomID),
		Cache:   make(map[string]any),
		Camera:  make(map[string]any),
		Weather: make(map[string]any),
		Players: entity.NewStore(),
		Things:  entity.NewStore(),
	}
}

// ChannelName returns the broadcast channel address of a room.
func ChannelName(gameID, roomID string) string {
	return fmt.Sprintf("%s:%s", gameID, roomID)
}

// IsLobby reports whether r is the reserved lobby room.
func (r *Room) IsLobby() bool {
	return r.RoomID == Lobby
}

// SetEmitter installs the channel broadcaster used by Emit.
func (r *Room) SetEmitter(fn Emitter) {
	r.emit = fn
}

// Emit broadcasts event to the room's channel. It is a no-op before an
// emitter is installed.
func (r *Room) Emit(event string, data any) {
	if r.emit != nil {
		r.emit(event, data)
	}
}

// AddPlayer inserts p into both stores.
//
// Precondition: p.IsPlayer().
func (r *Room) AddPlayer(p *entity.Entity) {
	r.Players.Put(p)
	r.Things.Put(p)
}

// RemovePlayer removes a player from both stores.
//
// Postcondition: returns false if id was not a player of this room.
func (r *Room) RemovePlayer(id string) bool {
	if !r.Players.Delete(id) {
		return false
	}
	r.Things.Delete(id)
	return true
}

// Player returns the player with the given id.
func (r *Room) Player(id string) (*entity.Entity, bool) {
	return r.Players.Get(id)
}

// Thing returns any entity, player or not, with the given id.
func (r *Room) Thing(id string) (*entity.Entity, bool) {
	return r.Things.Get(id)
}

// AddThing inserts a non-player entity.
//
// Postcondition: returns false, leaving the room unchanged, when t carries
// the player tag or its id belongs to a player.
func (r *Room) AddThing(t *entity.Entity) bool {
	if t.IsPlayer() || r.Players.Has(t.ID) {
		return false
	}
	r.Things.Put(t)
	return true
}

// RemoveThing removes a non-player entity. Players are never removed here.
func (r *Room) RemoveThing(id string) (*entity.Entity, bool) {
	if r.Players.Has(id) {
		return nil, false
	}
	t, ok := r.Things.Get(id)
	if !ok {
		return nil, false
	}
	r.Things.Delete(id)
	return t, true
}

// ClearThings removes every non-player entity and returns how many were removed.
func (r *Room) ClearThings() int {
	n := 0
	for _, t := range r.Things.All() {
		if r.Players.Has(t.ID) {
			continue
		}
		r.Things.Delete(t.ID)
		n++
	}
	return n
}

// PlayerCount returns the number of players, AI included.
func (r *Room) PlayerCount() int {
	return r.Players.Len()
}

// HumanPlayers returns the connection-backed players in join order.
func (r *Room) HumanPlayers() []*entity.Entity {
	var out []*entity.Entity
	for _, p := range r.Players.All() {
		if !p.IsAI() {
			out = append(out, p)
		}
	}
	return out
}

// AIPlayers returns the server-driven players in join order.
func (r *Room) AIPlayers() []*entity.Entity {
	var out []*entity.Entity
	for _, p := range r.Players.All() {
		if p.IsAI() {
			out = append(out, p)
		}
	}
	return out
}

// HumanCount returns the number of connection-backed players.
func (r *Room) HumanCount() int {
	return len(r.HumanPlayers())
}

// removedThings returns the respawn cache, creating it on first use.
func (r *Room) removedThings() map[string]*entity.Entity {
	m, ok := r.Cache[RemovedThingsKey].(map[string]*entity.Entity)
	if !ok {
		m = make(map[string]*entity.Entity)
		r.Cache[RemovedThingsKey] = m
	}
	return m
}

// StashThing records a removed thing so it can be respawned later.
func (r *Room) StashThing(t *entity.Entity) {
	r.removedThings()[t.ID] = t
}

// UnstashThing takes a previously removed thing out of the respawn cache.
func (r *Room) UnstashThing(id string) (*entity.Entity, bool) {
	m := r.removedThings()
	t, ok := m[id]
	if ok {
		delete(m, id)
	}
	return t, ok
}

// DropStashed forgets a removed thing for good.
func (r *Room) DropStashed(id string) bool {
	m := r.removedThings()
	_, ok := m[id]
	delete(m, id)
	return ok
}

type snapshot struct {
	GameID             string         `json:"gameId"`
	RoomID             string         `json:"roomId"`
	RoomName           string         `json:"roomName"`
	Started            bool           `json:"started"`
	Paused             bool           `json:"paused"`
	GameOver           bool           `json:"gameOver"`
	Timer              int            `json:"timer"`
	CurrentPlayerIndex int            `json:"currentPlayerIndex"`
	Camera             map[string]any `json:"camera"`
	Weather            map[string]any `json:"weather"`
	Players            *entity.Store  `json:"players"`
	Things             *entity.Store  `json:"things"`
}

// MarshalJSON renders the client-visible view of the room used by init and
// playerJoined payloads.
func (r *Room) MarshalJSON() ([]byte, error) {
	return json.Marshal(snapshot{
		GameID:             r.GameID,
		RoomID:             r.RoomID,
		RoomName:           r.Name,
		Started:            r.Started,
		Paused:             r.Paused,
		GameOver:           r.GameOver,
		Timer:              r.Timer,
		CurrentPlayerIndex: r.CurrentPlayerIndex,
		Camera:             r.Camera,
		Weather:            r.Weather,
		Players:            r.Players,
		Things:             r.Things,
	})
}
