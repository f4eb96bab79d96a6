package gameserver

import (
	"github.com/cory-johannsen/gamehub/internal/game/entity"
	"github.com/cory-johannsen/gamehub/internal/game/room"
)

// Inbound event kinds accepted from clients, excluding the transform family
// which is parsed by ParseTransformKind.
const (
	EventPlayerInput           = "playerInput"
	EventPlayerScore           = "playerScore"
	EventPlayerChangeRoom      = "playerChangeRoom"
	EventChat                  = "chatMessage" // same name as the relayed event
	EventSpawnThing            = "spawnThing"
	EventAddThing              = "addThing"
	EventRemoveThing           = "removeThing"
	EventRespawnThing          = "respawnThing"
	EventDisposeThing          = "disposeThing"
	EventClearAllThings        = "clearAllThings"
	EventGetAllRoomPlayerCount = "getAllRoomPlayerCount"
)

// Outbound event names.
const (
	EventInit             = "init"
	EventPlayerJoined     = "playerJoined"
	EventPlayerLeft       = "playerLeft"
	EventPlayerScored     = "playerScored"
	EventThingSpawned     = "thingSpawned"
	EventThingAdded       = "thingAdded"
	EventThingRemoved     = "thingRemoved"
	EventThingDisposed    = "thingDisposed"
	EventAllThingsCleared = "allThingsCleared"
	EventChatMessage      = "chatMessage"
	EventAllRoomPlayerCnt = "allRoomPlayerCount"
	EventPlayerNotify     = "playerNotify"
	EventServerUpdate     = "serverUpdate"
	EventGameEnded        = "gameEnded"
	EventPlayersMoved     = "playersMoved"
)

// GameOverReason is the reason sent with gameEnded.
const GameOverReason = "Game Over"

const (
	aiSeededCacheKey    = "aiSeeded"
	defaultSpawnedThing = "BasicThing"
)

type initPayload struct {
	You  string     `json:"you"`
	Game *room.Room `json:"game"`
}

type playerJoinedPayload struct {
	Player      *entity.Entity `json:"player"`
	Game        *room.Room     `json:"game"`
	PlayerCount int            `json:"playerCount"`
}

type playerLeftPayload struct {
	PlayerID    string `json:"playerId"`
	PlayerCount int    `json:"playerCount"`
}

type playerScoredPayload struct {
	PlayerID string `json:"playerId"`
	Score    int    `json:"score"`
}

type thingPayload struct {
	Thing *entity.Entity `json:"thing"`
}

type idPayload struct {
	ID string `json:"id"`
}

type chatPayload struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Message  string `json:"message"`
}

type roomCountsPayload struct {
	GameID string         `json:"gameId"`
	Counts map[string]int `json:"counts"`
}

type notifyPayload struct {
	Message string `json:"message"`
}

type serverUpdatePayload struct {
	Things []any `json:"things"`
}

type gameEndedPayload struct {
	Reason string `json:"reason"`
}

type playersMovedPayload struct {
	ToRoom  string   `json:"toRoom"`
	Players []string `json:"players"`
}

// emptyPayload serializes as {}.
type emptyPayload struct{}
