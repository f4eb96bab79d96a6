// Package entity defines the simulated objects owned by a room: players and
// things, their transforms, and the ordered store that holds them.
package entity

import (
	"math"
	"slices"
)

// PlayerTag marks an entity as a player-controlled entity.
const PlayerTag = "player"

// DefaultPlayerSpeed is the per-tick movement step of a freshly joined player.
const DefaultPlayerSpeed = 0.3

// DefaultPlayerType is the client-side prefab of a freshly joined player.
const DefaultPlayerType = "BasicCapsuleThing"

// Vec3 is a three-component vector.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// IsZero reports whether every component is zero.
func (v Vec3) IsZero() bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}

// Round2 rounds every component to two decimal places.
func (v Vec3) Round2() Vec3 {
	return Vec3{X: Round2(v.X), Y: Round2(v.Y), Z: Round2(v.Z)}
}

// Round2 rounds f to two decimal places.
func Round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// Rotation is an Euler rotation in the layout three.js clients serialize.
type Rotation struct {
	IsEuler bool    `json:"isEuler"`
	X       float64 `json:"_x"`
	Y       float64 `json:"_y"`
	Z       float64 `json:"_z"`
	Order   string  `json:"_order"`
}

// DefaultRotation is the identity rotation.
func DefaultRotation() Rotation {
	return Rotation{IsEuler: true, Order: "XYZ"}
}

// Transform is the placement of an entity.
type Transform struct {
	Position Vec3     `json:"position"`
	Rotation Rotation `json:"rotation"`
	Scale    Vec3     `json:"scale"`
}

// DefaultTransform places an entity at the origin with unit scale.
func DefaultTransform() Transform {
	return Transform{
		Rotation: DefaultRotation(),
		Scale:    Vec3{X: 1, Y: 1, Z: 1},
	}
}

// Input is an opaque client input payload buffered on a player between ticks.
type Input map[string]any

// Bool reports whether key is present and true.
func (in Input) Bool(key string) bool {
	v, ok := in[key].(bool)
	return ok && v
}

// Float returns the numeric value stored under key.
func (in Input) Float(key string) (float64, bool) {
	switch v := in[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

// String returns the string value stored under key.
func (in Input) String(key string) string {
	s, _ := in[key].(string)
	return s
}

// Entity is a player or a thing.
//
// Invariant: an entity is a player iff GameplayTags contains PlayerTag.
type Entity struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Type         string         `json:"type"`
	Speed        float64        `json:"speed"`
	GameplayTags []string       `json:"gameplayTags"`
	Transform    Transform      `json:"transform"`
	Velocity     *Vec3          `json:"velocity,omitempty"`
	Data         map[string]any `json:"data"`
	Score        int            `json:"score"`

	// Input is written by the transport and consumed by the plugin once per tick.
	Input Input `json:"-"`
}

// NewPlayer builds a player entity with the default transform and the given data.
//
// Precondition: id must be non-empty.
// Postcondition: name defaults to id when empty; data is never nil.
func NewPlayer(id, name string, data map[string]any) *Entity {
	if name == "" {
		name = id
	}
	if data == nil {
		data = make(map[string]any)
	}
	return &Entity{
		ID:           id,
		Name:         name,
		Type:         DefaultPlayerType,
		Speed:        DefaultPlayerSpeed,
		GameplayTags: []string{PlayerTag},
		Transform:    DefaultTransform(),
		Data:         data,
	}
}

// NewThing builds a non-player entity.
//
// Postcondition: name defaults to "Thing_<id>" when empty.
func NewThing(id, name, typ string) *Entity {
	if name == "" {
		name = "Thing_" + id
	}
	return &Entity{
		ID:           id,
		Name:         name,
		Type:         typ,
		GameplayTags: []string{},
		Transform:    DefaultTransform(),
		Data:         make(map[string]any),
	}
}

// IsPlayer reports whether e carries the player tag.
func (e *Entity) IsPlayer() bool {
	return e.HasTag(PlayerTag)
}

// HasTag reports whether e carries tag.
func (e *Entity) HasTag(tag string) bool {
	return slices.Contains(e.GameplayTags, tag)
}

// IsAI reports whether the entity is a server-driven player.
func (e *Entity) IsAI() bool {
	v, _ := e.Data["isAi"].(bool)
	return v
}

// DataFloat returns a numeric data field, tolerating JSON-decoded numbers.
func (e *Entity) DataFloat(key string) float64 {
	switch v := e.Data[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

// DataInt returns a numeric data field truncated to int.
func (e *Entity) DataInt(key string) int {
	return int(e.DataFloat(key))
}

// DataBool returns a boolean data field.
func (e *Entity) DataBool(key string) bool {
	v, _ := e.Data[key].(bool)
	return v
}

// DataString returns a string data field.
func (e *Entity) DataString(key string) string {
	v, _ := e.Data[key].(string)
	return v
}

// Normalize fills in zero-valued fields of a client-built entity so it
// serializes the same way as a server-built one.
func (e *Entity) Normalize() {
	if e.GameplayTags == nil {
		e.GameplayTags = []string{}
	}
	if e.Data == nil {
		e.Data = make(map[string]any)
	}
	if e.Transform.Scale.IsZero() {
		e.Transform.Scale = Vec3{X: 1, Y: 1, Z: 1}
	}
	if e.Transform.Rotation.Order == "" {
		e.Transform.Rotation = DefaultRotation()
	}
	if e.Name == "" {
		e.Name = "Thing_" + e.ID
	}
}
