package gameserver

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/gamehub/internal/game/entity"
	"github.com/cory-johannsen/gamehub/internal/observability"
)

// SpawnRequest describes a thing the server should create.
type SpawnRequest struct {
	Type      string            `json:"type"`
	Name      string            `json:"name,omitempty"`
	Speed     float64           `json:"speed,omitempty"`
	Tags      []string          `json:"gameplayTags,omitempty"`
	Transform *entity.Transform `json:"transform,omitempty"`
	Data      map[string]any    `json:"data,omitempty"`
}

// SpawnThing creates a thing with a fresh id in the sender's room.
//
// Postcondition: returns the new id, or "" when the sender is unknown or the
// request asks for a player-tagged entity.
func (c *Coordinator) SpawnThing(connID string, req SpawnRequest) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, rm, _, ok := c.locate(connID)
	if !ok {
		return ""
	}
	typ := req.Type
	if typ == "" {
		typ = defaultSpawnedThing
	}
	t := entity.NewThing(c.newID(), req.Name, typ)
	t.Speed = req.Speed
	if req.Tags != nil {
		t.GameplayTags = append([]string{}, req.Tags...)
	}
	if req.Transform != nil {
		t.Transform = *req.Transform
	}
	if req.Data != nil {
		t.Data = req.Data
	}
	t.Normalize()
	if !rm.AddThing(t) {
		return ""
	}
	c.broadcast(rm.Name, EventThingSpawned, thingPayload{Thing: t}, "")
	observability.ForRoom(c.logger, rm.GameID, rm.RoomID).Debug("thing spawned", zap.String("thing", t.ID), zap.String("type", typ))
	return t.ID
}

// AddThing inserts a client-built thing. Things without an id, tagged as
// players, or whose id belongs to a player are ignored.
func (c *Coordinator) AddThing(connID string, t *entity.Entity) bool {
	if t == nil || t.ID == "" {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	_, rm, _, ok := c.locate(connID)
	if !ok {
		return false
	}
	t.Normalize()
	t.Input = nil
	if !rm.AddThing(t) {
		return false
	}
	rm.DropStashed(t.ID)
	c.broadcast(rm.Name, EventThingAdded, thingPayload{Thing: t}, "")
	return true
}

// RemoveThing takes a thing out of play, keeping it for respawnThing.
func (c *Coordinator) RemoveThing(connID, thingID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, rm, _, ok := c.locate(connID)
	if !ok {
		return false
	}
	t, ok := rm.RemoveThing(thingID)
	if !ok {
		return false
	}
	rm.StashThing(t)
	c.broadcast(rm.Name, EventThingRemoved, idPayload{ID: thingID}, "")
	return true
}

// RespawnThing puts a removed thing back into play.
func (c *Coordinator) RespawnThing(connID, thingID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, rm, _, ok := c.locate(connID)
	if !ok || rm.Things.Has(thingID) {
		return false
	}
	t, ok := rm.UnstashThing(thingID)
	if !ok {
		return false
	}
	rm.AddThing(t)
	c.broadcast(rm.Name, EventThingSpawned, thingPayload{Thing: t}, "")
	return true
}

// DisposeThing deletes a thing for good, whether in play or removed.
func (c *Coordinator) DisposeThing(connID, thingID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, rm, _, ok := c.locate(connID)
	if !ok {
		return false
	}
	_, inPlay := rm.RemoveThing(thingID)
	stashed := rm.DropStashed(thingID)
	if !inPlay && !stashed {
		return false
	}
	c.broadcast(rm.Name, EventThingDisposed, idPayload{ID: thingID}, "")
	return true
}

// ClearAllThings deletes every non-player thing of the sender's room.
func (c *Coordinator) ClearAllThings(connID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, rm, _, ok := c.locate(connID)
	if !ok {
		return 0
	}
	n := rm.ClearThings()
	c.broadcast(rm.Name, EventAllThingsCleared, emptyPayload{}, "")
	observability.ForRoom(c.logger, rm.GameID, rm.RoomID).Debug("things cleared", zap.Int("count", n))
	return n
}
