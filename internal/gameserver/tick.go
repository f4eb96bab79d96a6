package gameserver

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/gamehub/internal/game/registry"
	"github.com/cory-johannsen/gamehub/internal/game/room"
	"github.com/cory-johannsen/gamehub/internal/observability"
)

// Tick advances every live room of every game by one step.
//
// For each room, in order: the plugin updates it; a finished game sends
// gameEnded, moves its human players to the lobby and is destroyed; a
// non-persistent room without humans is destroyed; otherwise any collected
// entity updates go out as a single serverUpdate.
func (c *Coordinator) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, game := range c.registry.Games() {
		for _, rm := range game.Rooms() {
			c.tickRoom(game, rm)
		}
	}
	c.ticks++
}

func (c *Coordinator) tickRoom(game *registry.Game, rm *room.Room) {
	var out room.OutState
	if !c.guard(game, rm, "update", func() error {
		return game.Plugin.Update(rm, &out)
	}) {
		return
	}

	if rm.GameOver {
		if rm.IsLobby() {
			c.logger.Warn("ignoring game over in lobby", observability.Game(game.ID))
			rm.GameOver = false
			return
		}
		if err := c.endGame(game, rm); err != nil {
			observability.ForRoom(c.logger, game.ID, rm.RoomID).Error("ending game",
				zap.Error(err),
			)
		}
		return
	}

	if game.ShouldDestroyEmpty(rm) {
		game.Destroy(rm.RoomID, false)
		return
	}

	if out.Len() > 0 {
		c.broadcast(rm.Name, EventServerUpdate, serverUpdatePayload{Things: out.Entries()}, "")
	}
}

// endGame migrates the human players of a finished room to the lobby and
// destroys it.
//
// Postcondition: on success rm no longer exists and each migrated session
// is subscribed to the lobby and has received a lobby init.
func (c *Coordinator) endGame(game *registry.Game, rm *room.Room) error {
	lobby, err := game.Ensure(room.Lobby)
	if err != nil {
		return fmt.Errorf("resolving lobby: %w", err)
	}
	c.broadcast(rm.Name, EventGameEnded, gameEndedPayload{Reason: GameOverReason}, "")

	moved := game.MovePlayers(rm, lobby)
	ids := make([]string, 0, len(moved))
	for _, p := range moved {
		ids = append(ids, p.ID)
	}
	c.broadcast(rm.Name, EventPlayersMoved, playersMovedPayload{ToRoom: room.Lobby, Players: ids}, "")

	for _, p := range moved {
		sess, _, err := c.move(p.ID, room.Lobby)
		if err != nil {
			c.logger.Warn("resubscribing migrated player", observability.Player(p.ID), zap.Error(err))
			continue
		}
		c.announceArrival(sess, lobby, p)
	}
	game.Destroy(rm.RoomID, false)

	observability.ForRoom(c.logger, game.ID, rm.RoomID).Info("game over",
		zap.Int("migrated", len(moved)),
	)
	return nil
}
