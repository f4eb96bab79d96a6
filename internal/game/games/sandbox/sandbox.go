// Package sandbox implements the default game type: free movement with
// simple gravity, no win condition.
package sandbox

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/gamehub/internal/game/entity"
	"github.com/cory-johannsen/gamehub/internal/game/level"
	"github.com/cory-johannsen/gamehub/internal/game/plugin"
	"github.com/cory-johannsen/gamehub/internal/game/room"
)

// GameID is the registry name of the sandbox game.
const GameID = "default"

// Physics constants, in world units per tick.
const (
	Gravity          = 0.03
	TerminalVelocity = -2.0
	FallAcceleration = 0.01
	MaxFallSpeed     = 0.2
)

// Body types recognised in an entity's "bodyType" data field.
const (
	BodyDynamic = "dynamic"
	BodyStatic  = "static"
)

// Plugin is the sandbox game.
type Plugin struct {
	plugin.Base
	levels *level.Library
	logger *zap.Logger
}

// New creates the sandbox plugin. A level whose id matches the room id, or
// failing that the game id, is applied to every new room.
//
// Precondition: levels and logger must be non-nil.
func New(levels *level.Library, logger *zap.Logger) *Plugin {
	return &Plugin{
		Base:   plugin.Base{PluginName: "Sandbox"},
		levels: levels,
		logger: logger,
	}
}

// Create applies the room's level, if any.
func (p *Plugin) Create(r *room.Room) error {
	if r.IsLobby() {
		return nil
	}
	lvl, ok := p.levels.Get(r.RoomID)
	if !ok {
		lvl, ok = p.levels.Get(GameID)
	}
	if ok {
		lvl.Apply(r)
		p.logger.Debug("level applied", zap.String("room", r.RoomID), zap.String("level", lvl.ID))
	}
	return nil
}

// Update moves every dynamic entity by its buffered input and velocity.
//
// Postcondition: each entity that moved has one entry in out carrying its
// new position, its velocity for this tick and its speed.
func (p *Plugin) Update(r *room.Room, out *room.OutState) error {
	if r.Paused {
		return nil
	}
	for _, t := range r.Things.All() {
		if u, moved := step(t); moved {
			out.Push(u)
		}
	}
	return nil
}

// step advances one entity by one tick.
func step(t *entity.Entity) (room.EntityUpdate, bool) {
	bodyType := t.DataString("bodyType")
	if bodyType == "" {
		bodyType = BodyDynamic
	}
	steer := direction(t.Input)
	t.Input = nil
	if bodyType != BodyDynamic {
		return room.EntityUpdate{}, false
	}

	pos := &t.Transform.Position
	speed := t.Speed
	var vel entity.Vec3
	if t.Velocity != nil {
		vel = *t.Velocity
	}

	if t.DataBool("onGround") || pos.Y <= 0 {
		vel.Y = 0
	} else {
		vel.Y -= Gravity
		if vel.Y < TerminalVelocity {
			vel.Y = TerminalVelocity
		}
		speed += FallAcceleration
		if speed > MaxFallSpeed {
			speed = MaxFallSpeed
		}
	}

	pos.X += steer.X * t.Speed
	pos.Y += steer.Y * t.Speed
	pos.Z += steer.Z * t.Speed
	if pos.Y < 0 {
		pos.Y = 0
		vel.Y = 0
	}
	vel = vel.Round2()
	if vel.IsZero() {
		t.Velocity = nil
	} else {
		v := vel
		t.Velocity = &v
	}
	if steer.IsZero() && vel.IsZero() {
		return room.EntityUpdate{}, false
	}

	speed = entity.Round2(speed)
	pos.X += vel.X * speed
	pos.Y += vel.Y * speed
	pos.Z += vel.Z * speed
	*pos = pos.Round2()
	if pos.Y < 0 {
		pos.Y = 0
	}

	reported := entity.Vec3{X: vel.X + steer.X, Y: vel.Y + steer.Y, Z: vel.Z + steer.Z}.Round2()
	return room.EntityUpdate{
		ID:       t.ID,
		Position: *pos,
		Velocity: &reported,
		Speed:    &speed,
	}, true
}

// direction maps the directional flags of an input payload to a unit step
// per axis. Forward is -Z.
func direction(in entity.Input) entity.Vec3 {
	var d entity.Vec3
	if in == nil {
		return d
	}
	if in.Bool("left") {
		d.X--
	}
	if in.Bool("right") {
		d.X++
	}
	if in.Bool("up") {
		d.Y++
	}
	if in.Bool("down") {
		d.Y--
	}
	if in.Bool("forward") {
		d.Z--
	}
	if in.Bool("backward") {
		d.Z++
	}
	return d
}
