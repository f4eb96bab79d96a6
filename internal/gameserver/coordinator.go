// Package gameserver owns the session coordinator: it routes client events to
// rooms, runs the fixed-rate tick over every live room, and fans outbound
// events out to the sessions subscribed to each room channel.
package gameserver

import (
	"errors"
	"fmt"
	"maps"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/gamehub/internal/game/dice"
	"github.com/cory-johannsen/gamehub/internal/game/entity"
	"github.com/cory-johannsen/gamehub/internal/game/plugin"
	"github.com/cory-johannsen/gamehub/internal/game/registry"
	"github.com/cory-johannsen/gamehub/internal/game/room"
	"github.com/cory-johannsen/gamehub/internal/game/session"
	"github.com/cory-johannsen/gamehub/internal/observability"
)

var (
	// ErrUnknownGame is returned when a handshake or query names an unregistered game.
	ErrUnknownGame = registry.ErrUnknownGame
	// ErrInvalidRoom is returned when a room id fails the naming rule.
	ErrInvalidRoom = errors.New("invalid room id")
	// ErrDuplicateConnection is returned when a connection id is already bound.
	ErrDuplicateConnection = errors.New("connection already bound")
)

// ConnectRequest carries the handshake parameters of a new connection.
type ConnectRequest struct {
	// ConnID is generated when empty.
	ConnID string
	GameID string
	RoomID string
	Name   string
	// Transform, when non-nil, replaces the default transform of the new player.
	Transform *entity.Transform
}

// Summary is the admin overview of the coordinator.
type Summary struct {
	TotalPlayers int `json:"totalPlayers"`
	ActiveGames  int `json:"activeGames"`
}

// Coordinator is the single writer of all room state. Every inbound operation
// and every tick runs under its mutex, in arrival order.
type Coordinator struct {
	mu       sync.Mutex
	registry *registry.Registry
	sessions *session.Manager
	roller   *dice.Roller
	logger   *zap.Logger
	newID    func() string
	ticks    uint64
}

// NewCoordinator wires a coordinator to a registry and a session manager.
//
// Precondition: all arguments must be non-nil.
// Postcondition: every room the registry creates from now on emits through
// this coordinator.
func NewCoordinator(reg *registry.Registry, sessions *session.Manager, roller *dice.Roller, logger *zap.Logger) *Coordinator {
	c := &Coordinator{
		registry: reg,
		sessions: sessions,
		roller:   roller,
		logger:   logger,
		newID:    uuid.NewString,
	}
	reg.OnRoomCreated(func(rm *room.Room) {
		channel := rm.Name
		rm.SetEmitter(func(event string, data any) {
			c.broadcast(channel, event, data, "")
		})
	})
	return c
}

// Connect binds a new connection to a player in the requested room.
//
// Postcondition: on error no room, player or session was created.
// On success the caller received init and the room's other subscribers
// received playerJoined.
func (c *Coordinator) Connect(req ConnectRequest) (*session.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	game, ok := c.registry.Game(req.GameID)
	if !ok {
		return nil, fmt.Errorf("connecting to %q: %w", req.GameID, ErrUnknownGame)
	}
	if !room.ValidID(req.RoomID) {
		return nil, fmt.Errorf("connecting to %q/%q: %w", req.GameID, req.RoomID, ErrInvalidRoom)
	}
	id := req.ConnID
	if id == "" {
		id = c.newID()
	}
	if _, exists := c.sessions.Get(id); exists {
		return nil, fmt.Errorf("connecting %q: %w", id, ErrDuplicateConnection)
	}

	rm, err := game.Ensure(req.RoomID)
	if err != nil {
		return nil, fmt.Errorf("connecting to %q/%q: %w", req.GameID, req.RoomID, err)
	}

	player := c.newPlayer(game, id, req.Name)
	if req.Transform != nil {
		player.Transform = *req.Transform
		player.Normalize()
	}
	rm.AddPlayer(player)

	sess, err := c.sessions.Add(id, player.Name, req.GameID, req.RoomID)
	if err != nil {
		rm.RemovePlayer(id)
		return nil, fmt.Errorf("connecting %q: %w", id, err)
	}

	c.send(sess, EventInit, initPayload{You: id, Game: rm})
	c.broadcast(rm.Name, EventPlayerJoined, playerJoinedPayload{
		Player:      player,
		Game:        rm,
		PlayerCount: rm.PlayerCount(),
	}, id)
	c.seedAI(game, rm)

	observability.ForRoom(c.logger, req.GameID, req.RoomID).Info("player connected",
		observability.Player(id),
		zap.Int("players", rm.PlayerCount()),
	)
	return sess, nil
}

// Disconnect removes the player bound to connID and closes its session.
// The emptied room is left for the next tick to destroy.
func (c *Coordinator) Disconnect(connID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sess, ok := c.sessions.Get(connID)
	if !ok {
		return
	}
	if err := c.sessions.Remove(connID); err != nil {
		c.logger.Warn("removing session", observability.Player(connID), zap.Error(err))
	}
	rm, ok := c.roomOf(sess)
	if !ok || !rm.RemovePlayer(connID) {
		return
	}
	c.broadcast(rm.Name, EventPlayerLeft, playerLeftPayload{
		PlayerID:    connID,
		PlayerCount: rm.PlayerCount(),
	}, connID)
	observability.ForRoom(c.logger, sess.GameID, sess.RoomID).Info("player disconnected",
		observability.Player(connID),
	)
}

// PlayerInput hands an input payload to the plugin, or buffers it on the
// player for the next tick when the plugin does not take input directly.
func (c *Coordinator) PlayerInput(connID string, in entity.Input) {
	c.mu.Lock()
	defer c.mu.Unlock()

	game, rm, p, ok := c.locate(connID)
	if !ok {
		return
	}
	if h, ok := game.Plugin.(plugin.InputHandler); ok {
		c.guard(game, rm, "input", func() error {
			h.PlayerInput(rm, p, in)
			return nil
		})
		return
	}
	p.Input = in
}

// MutateTransform applies an inbound transform event of the given kind.
//
// Postcondition: stale ids, ids of other players, unknown kinds and requests
// carrying none of the kind's components change nothing and emit nothing.
func (c *Coordinator) MutateTransform(connID, kind string, req TransformRequest) {
	self, mask, ok := ParseTransformKind(kind)
	if !ok {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	_, rm, p, ok := c.locate(connID)
	if !ok {
		return
	}
	target := p
	if !self && req.ID != "" && req.ID != connID {
		t, found := rm.Thing(req.ID)
		if !found || t.IsPlayer() {
			return
		}
		target = t
	}
	applied, payload := applyTransform(target, req, mask)
	if applied == 0 {
		return
	}
	c.broadcast(rm.Name, MutationEvent(target.IsPlayer(), applied), payload, "")
}

// PlayerScore adds delta to the sender's score.
func (c *Coordinator) PlayerScore(connID string, delta int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, rm, p, ok := c.locate(connID)
	if !ok {
		return
	}
	p.Score += delta
	c.broadcast(rm.Name, EventPlayerScored, playerScoredPayload{PlayerID: p.ID, Score: p.Score}, "")
}

// ChangeRoom moves the sender to another room of the same game. Invalid or
// identical room ids are ignored.
//
// Postcondition: the player's score is 0; the old room's remaining
// subscribers got playerLeft, the new room's others got playerJoined, and
// the mover got a fresh init.
func (c *Coordinator) ChangeRoom(connID, roomID string) error {
	if !room.ValidID(roomID) {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	game, oldRoom, p, ok := c.locate(connID)
	if !ok || oldRoom.RoomID == roomID {
		return nil
	}
	newRoom, err := game.Ensure(roomID)
	if err != nil {
		return fmt.Errorf("changing room of %q: %w", connID, err)
	}

	oldRoom.RemovePlayer(connID)
	sess, _, err := c.move(connID, roomID)
	if err != nil {
		oldRoom.AddPlayer(p)
		return fmt.Errorf("changing room of %q: %w", connID, err)
	}
	c.broadcast(oldRoom.Name, EventPlayerLeft, playerLeftPayload{
		PlayerID:    connID,
		PlayerCount: oldRoom.PlayerCount(),
	}, connID)

	p.Score = 0
	p.Input = nil
	newRoom.AddPlayer(p)
	c.announceArrival(sess, newRoom, p)
	c.seedAI(game, newRoom)

	c.logger.Info("player changed room",
		observability.Player(connID),
		observability.Game(game.ID),
		zap.String("from", oldRoom.RoomID),
		zap.String("to", roomID),
	)
	return nil
}

// RoomPlayerCounts sends the sender the player count of every live room of
// its game.
func (c *Coordinator) RoomPlayerCounts(connID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sess, ok := c.sessions.Get(connID)
	if !ok {
		return
	}
	game, ok := c.registry.Game(sess.GameID)
	if !ok {
		return
	}
	c.send(sess, EventAllRoomPlayerCnt, roomCountsPayload{GameID: game.ID, Counts: game.PlayerCountPerRoom()})
}

// Notify sends an operator message to every connected session.
func (c *Coordinator) Notify(message string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	frame, err := session.Encode(EventPlayerNotify, notifyPayload{Message: message})
	if err != nil {
		c.logger.Error("encoding notify", zap.Error(err))
		return 0
	}
	all := c.sessions.All()
	for _, s := range all {
		c.push(s, EventPlayerNotify, frame)
	}
	c.logger.Info("operator notice sent", zap.Int("sessions", len(all)))
	return len(all)
}

// PlayerCount returns the number of players in one room. A room that does
// not exist counts zero; it is not created.
func (c *Coordinator) PlayerCount(gameID, roomID string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	game, err := c.registry.MustGame(gameID)
	if err != nil {
		return 0, err
	}
	if !room.ValidID(roomID) {
		return 0, fmt.Errorf("counting %q/%q: %w", gameID, roomID, ErrInvalidRoom)
	}
	rm, ok := game.Room(roomID)
	if !ok {
		return 0, nil
	}
	return rm.PlayerCount(), nil
}

// PlayerCountPerRoom returns roomID → players for one game.
func (c *Coordinator) PlayerCountPerRoom(gameID string) (map[string]int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	game, err := c.registry.MustGame(gameID)
	if err != nil {
		return nil, err
	}
	return game.PlayerCountPerRoom(), nil
}

// PlayerCountPerGame returns gameID → players for every registered game.
func (c *Coordinator) PlayerCountPerGame() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]int)
	for _, g := range c.registry.Games() {
		out[g.ID] = g.PlayerCount()
	}
	return out
}

// TotalPlayers returns the number of players across every game.
func (c *Coordinator) TotalPlayers() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, g := range c.registry.Games() {
		n += g.PlayerCount()
	}
	return n
}

// Summary reports total players and the number of games with at least one
// player.
func (c *Coordinator) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	var s Summary
	for _, g := range c.registry.Games() {
		n := g.PlayerCount()
		s.TotalPlayers += n
		if n > 0 {
			s.ActiveGames++
		}
	}
	return s
}

// Inspect runs fn against a live room under the coordinator lock. It does
// not create rooms.
//
// Postcondition: returns false when the game or room does not exist.
func (c *Coordinator) Inspect(gameID, roomID string, fn func(*room.Room)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	game, ok := c.registry.Game(gameID)
	if !ok {
		return false
	}
	rm, ok := game.Room(roomID)
	if !ok {
		return false
	}
	fn(rm)
	return true
}

// Ticks returns the number of completed ticks.
func (c *Coordinator) Ticks() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks
}

// newPlayer builds a player carrying the shared default data merged with the
// plugin's defaults.
func (c *Coordinator) newPlayer(game *registry.Game, id, name string) *entity.Entity {
	data := map[string]any{
		"health":  3,
		"credits": 0,
		"dice":    0,
		"colorData": map[string]any{
			"r": c.roller.Fraction(),
			"g": c.roller.Fraction(),
			"b": c.roller.Fraction(),
			"a": 1,
		},
	}
	if d, ok := game.Plugin.(plugin.PlayerDefaults); ok {
		maps.Copy(data, d.PlayerData())
	}
	return entity.NewPlayer(id, name, data)
}

// seedAI inserts the plugin's AI players the first time a human joins a
// non-lobby room.
func (c *Coordinator) seedAI(game *registry.Game, rm *room.Room) {
	seeder, ok := game.Plugin.(plugin.AISeeder)
	if !ok || rm.IsLobby() {
		return
	}
	if seeded, _ := rm.Cache[aiSeededCacheKey].(bool); seeded {
		return
	}
	rm.Cache[aiSeededCacheKey] = true

	var added []*entity.Entity
	c.guard(game, rm, "ai seeding", func() error {
		limit := seeder.AIPlayerMax(rm)
		count := len(rm.AIPlayers())
		for _, ai := range seeder.AddAIPlayers(rm) {
			if count >= limit {
				break
			}
			if ai == nil || ai.ID == "" || rm.Things.Has(ai.ID) {
				continue
			}
			ai.Normalize()
			if !ai.IsPlayer() {
				ai.GameplayTags = append(ai.GameplayTags, entity.PlayerTag)
			}
			ai.Data["isAi"] = true
			rm.AddPlayer(ai)
			added = append(added, ai)
			count++
		}
		return nil
	})
	for _, ai := range added {
		c.broadcast(rm.Name, EventPlayerJoined, playerJoinedPayload{
			Player:      ai,
			Game:        rm,
			PlayerCount: rm.PlayerCount(),
		}, "")
	}
	if len(added) > 0 {
		observability.ForRoom(c.logger, game.ID, rm.RoomID).Debug("ai players seeded",
			zap.Int("count", len(added)),
		)
	}
}

// announceArrival sends init to the arriving session and playerJoined to the
// rest of the room.
func (c *Coordinator) announceArrival(sess *session.Session, rm *room.Room, p *entity.Entity) {
	c.send(sess, EventInit, initPayload{You: p.ID, Game: rm})
	c.broadcast(rm.Name, EventPlayerJoined, playerJoinedPayload{
		Player:      p,
		Game:        rm,
		PlayerCount: rm.PlayerCount(),
	}, p.ID)
}

// move resubscribes a session to another room of its game.
func (c *Coordinator) move(connID, roomID string) (*session.Session, string, error) {
	old, err := c.sessions.Move(connID, roomID)
	if err != nil {
		return nil, "", err
	}
	sess, _ := c.sessions.Get(connID)
	return sess, old, nil
}

// locate resolves a connection to its game, room and player.
func (c *Coordinator) locate(connID string) (*registry.Game, *room.Room, *entity.Entity, bool) {
	sess, ok := c.sessions.Get(connID)
	if !ok {
		return nil, nil, nil, false
	}
	game, ok := c.registry.Game(sess.GameID)
	if !ok {
		return nil, nil, nil, false
	}
	rm, ok := game.Room(sess.RoomID)
	if !ok {
		return nil, nil, nil, false
	}
	p, ok := rm.Player(connID)
	if !ok {
		return nil, nil, nil, false
	}
	return game, rm, p, true
}

func (c *Coordinator) roomOf(sess *session.Session) (*room.Room, bool) {
	game, ok := c.registry.Game(sess.GameID)
	if !ok {
		return nil, false
	}
	return game.Room(sess.RoomID)
}

// guard runs plugin code, converting a panic into a logged error.
//
// Postcondition: returns false if fn failed or panicked.
func (c *Coordinator) guard(game *registry.Game, rm *room.Room, phase string, fn func() error) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			observability.ForRoom(c.logger, game.ID, rm.RoomID).Error("plugin panic",
				zap.String("phase", phase),
				zap.Any("panic", r),
			)
			ok = false
		}
	}()
	if err := fn(); err != nil {
		observability.ForRoom(c.logger, game.ID, rm.RoomID).Error("plugin error",
			zap.String("phase", phase),
			zap.Error(err),
		)
		return false
	}
	return true
}

// broadcast encodes once and delivers to every subscriber of channel except
// the session named by except.
func (c *Coordinator) broadcast(channel, event string, data any, except string) {
	frame, err := session.Encode(event, data)
	if err != nil {
		c.logger.Error("encoding event", zap.String("event", event), zap.Error(err))
		return
	}
	for _, s := range c.sessions.Subscribers(channel) {
		if s.ID == except {
			continue
		}
		c.push(s, event, frame)
	}
}

// send delivers one event to one session.
func (c *Coordinator) send(s *session.Session, event string, data any) {
	frame, err := session.Encode(event, data)
	if err != nil {
		c.logger.Error("encoding event", zap.String("event", event), zap.Error(err))
		return
	}
	c.push(s, event, frame)
}

func (c *Coordinator) push(s *session.Session, event string, frame []byte) {
	if err := s.Outbox.Push(frame); err != nil {
		if errors.Is(err, session.ErrOutboxClosed) {
			return
		}
		c.logger.Warn("dropping frame",
			observability.Player(s.ID),
			zap.String("event", event),
			zap.Error(err),
		)
	}
}
