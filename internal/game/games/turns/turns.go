// Package turns implements the turn-based dice game. Players, humans and AI
// alike, take turns in join order; on its turn a player may roll its dice
// for credits or end the turn. Idle players are first warned and then
// dropped from the rotation.
package turns

import (
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/gamehub/internal/game/dice"
	"github.com/cory-johannsen/gamehub/internal/game/entity"
	"github.com/cory-johannsen/gamehub/internal/game/level"
	"github.com/cory-johannsen/gamehub/internal/game/plugin"
	"github.com/cory-johannsen/gamehub/internal/game/room"
)

// GameID is the registry name of the turns game.
const GameID = "turns"

// MinPlayers is the player count that starts a game.
const MinPlayers = 2

// Thing ids the level is expected to provide.
const (
	GridThingID = "Thing_HexTileGrid"
	DiceThingID = "Thing_GameDice"
	GridType    = "HexTileGrid"
)

// Events emitted to the room.
const (
	EventGameStarted   = "gameStarted"
	EventTurnStarted   = "turnStarted"
	EventTurnEnded     = "turnEnded"
	EventDiceRolled    = "diceRolled"
	EventPlayerRemoved = "playerRemoved"
	EventGameOver      = "gameOver"
)

// Reasons sent with gameOver.
const (
	ReasonMaxRounds = "Max rounds reached"
	ReasonNoPlayers = "Not enough players"
)

const (
	roundKey     = "round"
	boardSizeKey = "boardSize"
	removedKey   = "removed"
	markedKey    = "markedForRemoval"
	thinkKey     = "thinkTimer"
)

var rollExpr = dice.MustParse("1d6")

var boardSizes = []struct {
	marker string
	size   int
}{
	{"Small", 1},
	{"Medium", 2},
	{"Large", 3},
	{"Huge", 4},
	{"Giant", 5},
}

// Config tunes the game.
type Config struct {
	// MaxRounds ends the game once every active player has had this many turns.
	MaxRounds int
	// TurnTimeout is the number of ticks a player may idle before its turn
	// is ended for it.
	TurnTimeout int
	// AIThinkTicks is the delay before an AI player acts.
	AIThinkTicks int
}

// DefaultConfig returns the standard tuning.
func DefaultConfig() Config {
	return Config{MaxRounds: 10, TurnTimeout: 1000, AIThinkTicks: 30}
}

// Plugin is the turns game.
type Plugin struct {
	plugin.Base
	levels *level.Library
	roller *dice.Roller
	cfg    Config
	logger *zap.Logger
}

// New creates the turns plugin. Zero fields of cfg take their defaults.
//
// Precondition: levels, roller and logger must be non-nil.
func New(levels *level.Library, roller *dice.Roller, cfg Config, logger *zap.Logger) *Plugin {
	def := DefaultConfig()
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = def.MaxRounds
	}
	if cfg.TurnTimeout <= 0 {
		cfg.TurnTimeout = def.TurnTimeout
	}
	if cfg.AIThinkTicks <= 0 {
		cfg.AIThinkTicks = def.AIThinkTicks
	}
	return &Plugin{
		Base:   plugin.Base{PluginName: "TurnsGame"},
		levels: levels,
		roller: roller,
		cfg:    cfg,
		logger: logger,
	}
}

// BoardSize derives the board radius from a room id: rooms named with
// Small, Medium, Large, Huge or Giant get 1 through 5; anything else gets 1.
func BoardSize(roomID string) int {
	for _, b := range boardSizes {
		if strings.Contains(roomID, b.marker) {
			return b.size
		}
	}
	return 1
}

// Create loads the "turns" level and sizes the board for the room.
func (p *Plugin) Create(r *room.Room) error {
	if r.IsLobby() {
		return nil
	}
	size := BoardSize(r.RoomID)
	if lvl, ok := p.levels.Get(GameID); ok {
		lvl.Apply(r)
	}
	r.Cache[boardSizeKey] = size
	r.Started = false
	r.Timer = 0
	r.CurrentPlayerIndex = 0

	dist := float64(8 + size)
	r.Camera["position"] = map[string]any{"x": 0.0, "y": dist + 8, "z": dist}

	if grid, ok := r.Thing(GridThingID); ok && grid.Type == GridType {
		layers := make(map[string]any)
		attacks := make(map[string]any)
		for _, key := range hexKeys(size) {
			layers[key] = []any{}
			attacks[key] = false
		}
		grid.Data["radius"] = size
		grid.Data["layers"] = layers
		grid.Data["attacks"] = attacks
	}
	return nil
}

// AIPlayerMax caps AI players at the board size.
func (p *Plugin) AIPlayerMax(r *room.Room) int {
	return BoardSize(r.RoomID)
}

// AddAIPlayers builds one AI player per board ring.
func (p *Plugin) AddAIPlayers(r *room.Room) []*entity.Entity {
	n := p.AIPlayerMax(r)
	out := make([]*entity.Entity, 0, n)
	for i := 0; i < n; i++ {
		id := "ai_" + p.roller.Token(1_000_000) + "_" + strconv.Itoa(i)
		out = append(out, entity.NewPlayer(id, "AI_"+id, map[string]any{
			"isAi":    true,
			"health":  3,
			"credits": 0,
			"dice":    0,
			"colorData": map[string]any{
				"r": p.roller.Fraction(),
				"g": p.roller.Fraction(),
				"b": p.roller.Fraction(),
				"a": 1,
			},
		}))
	}
	return out
}

// Update starts the game, runs the current turn and lays the players out on
// a circle around the board.
func (p *Plugin) Update(r *room.Room, out *room.OutState) error {
	if r.IsLobby() || r.GameOver {
		return nil
	}

	if !r.Started {
		if r.PlayerCount() < MinPlayers {
			return nil
		}
		p.start(r)
	}

	active := activePlayers(r)
	if len(active) < MinPlayers {
		r.Emit(EventGameOver, gameOverPayload{Reason: ReasonNoPlayers})
		r.EndGame()
		return nil
	}
	r.CurrentPlayerIndex %= len(active)
	p.runTurn(r, active)
	p.layout(r, out)
	return nil
}

func (p *Plugin) start(r *room.Room) {
	r.Start()
	r.Cache[roundKey] = 1
	for _, pl := range r.Players.All() {
		pl.Data["health"] = 3
		pl.Data["credits"] = 0
		pl.Data["dice"] = 0
		pl.Data["isAi"] = pl.IsAI()
		delete(pl.Data, removedKey)
		delete(pl.Data, markedKey)
	}
	ids := r.Players.IDs()
	r.Emit(EventGameStarted, gameStartedPayload{Players: ids, PlayerCount: len(ids)})

	first, _ := r.Players.Get(ids[0])
	first.Data["dice"] = 1
	r.Emit(EventTurnStarted, turnStartedPayload{
		PlayerID:  first.ID,
		RollsLeft: first.DataInt("dice"),
		Credits:   first.DataInt("credits"),
		Score:     first.Score,
		Health:    first.DataInt("health"),
	})
	p.logger.Debug("turns game started", zap.String("room", r.RoomID), zap.Int("players", len(ids)))
}

// runTurn processes one tick of the current player's turn.
func (p *Plugin) runTurn(r *room.Room, active []*entity.Entity) {
	cur := active[r.CurrentPlayerIndex]
	in := cur.Input
	if in == nil {
		in = entity.Input{}
	}
	endTurn := in.Bool("endTurn")
	rollDice := in.Bool("rollDice")

	r.Timer++
	if r.Timer > p.cfg.TurnTimeout {
		r.Timer = 0
		if cur.DataBool(markedKey) {
			cur.Data[removedKey] = true
			r.Emit(EventPlayerRemoved, playerRemovedPayload{PlayerID: cur.ID, PlayerCount: len(active) - 1})
			p.logger.Debug("idle player removed from rotation", zap.String("room", r.RoomID), zap.String("player", cur.ID))
			remaining := activePlayers(r)
			if len(remaining) == 0 {
				return
			}
			r.CurrentPlayerIndex %= len(remaining)
			p.handOver(r, cur, remaining[r.CurrentPlayerIndex], false)
			return
		}
		cur.Data[markedKey] = true
		endTurn = true
	}

	if cur.IsAI() {
		cur.Data[markedKey] = false
		think := cur.DataInt(thinkKey) + 1
		if think < p.cfg.AIThinkTicks {
			cur.Data[thinkKey] = think
			return
		}
		cur.Data[thinkKey] = 0
		if cur.DataInt("dice") > 0 {
			rollDice = true
			in = entity.Input{"rollDice": true, "thingId": DiceThingID}
		} else {
			endTurn = true
		}
	}

	switch {
	case endTurn:
		next := (r.CurrentPlayerIndex + 1) % len(active)
		wrapped := next == 0
		r.CurrentPlayerIndex = next
		p.handOver(r, cur, active[next], wrapped)
	case rollDice && cur.DataInt("dice") > 0:
		cur.Data[markedKey] = false
		roll := p.roller.Roll(rollExpr).Total()
		cur.Data["dice"] = cur.DataInt("dice") - 1
		cur.Data["credits"] = cur.DataInt("credits") + roll
		thingID := in.String("thingId")
		cur.Data["diceRef"] = thingID
		r.Emit(EventDiceRolled, diceRolledPayload{
			PlayerID:  cur.ID,
			ThingID:   thingID,
			Roll:      roll,
			RollsLeft: cur.DataInt("dice"),
			Credits:   cur.DataInt("credits"),
			Score:     cur.Score,
			Health:    cur.DataInt("health"),
		})
	}
}

// handOver passes the turn from prev to next and counts rounds.
func (p *Plugin) handOver(r *room.Room, prev, next *entity.Entity, wrapped bool) {
	r.Timer = 0
	prev.Input = nil
	next.Input = nil
	next.Data["dice"] = next.DataInt("dice") + 1
	r.Emit(EventTurnEnded, turnEndedPayload{
		PreviousPlayerID: prev.ID,
		NextPlayerID:     next.ID,
		Score:            next.Score,
		Credits:          next.DataInt("credits"),
		RollsLeft:        next.DataInt("dice"),
		Health:           next.DataInt("health"),
	})
	if !wrapped {
		return
	}
	round, _ := r.Cache[roundKey].(int)
	round++
	r.Cache[roundKey] = round
	if round > p.cfg.MaxRounds {
		r.Emit(EventGameOver, gameOverPayload{Reason: ReasonMaxRounds})
		r.EndGame()
	}
}

// layout places every player on a circle outside the board and reports the
// positions.
func (p *Plugin) layout(r *room.Room, out *room.OutState) {
	players := r.Players.All()
	radius := float64(BoardSize(r.RoomID) + 6)
	if grid, ok := r.Thing(GridThingID); ok {
		if rad := grid.DataFloat("radius"); rad > 0 {
			radius = rad + 6
		}
	}
	arc := 2 * math.Pi / float64(len(players))
	for i, pl := range players {
		angle := float64(i) * arc
		pl.Transform.Position = entity.Vec3{
			X: math.Cos(angle) * radius,
			Y: 1,
			Z: math.Sin(angle) * radius,
		}.Round2()
		pl.Input = nil
		out.Push(room.EntityUpdate{ID: pl.ID, Position: pl.Transform.Position})
	}
}

// activePlayers returns the players still in the turn rotation.
func activePlayers(r *room.Room) []*entity.Entity {
	var out []*entity.Entity
	for _, pl := range r.Players.All() {
		if !pl.DataBool(removedKey) {
			out = append(out, pl)
		}
	}
	return out
}

// hexKeys returns the axial "q,r" coordinates of a hexagonal board.
func hexKeys(radius int) []string {
	var keys []string
	for q := -radius; q <= radius; q++ {
		r1 := max(-radius, -q-radius)
		r2 := min(radius, -q+radius)
		for r := r1; r <= r2; r++ {
			keys = append(keys, strconv.Itoa(q)+","+strconv.Itoa(r))
		}
	}
	return keys
}
