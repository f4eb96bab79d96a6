package gameserver

import (
	"strings"

	"github.com/cory-johannsen/gamehub/internal/game/entity"
)

// Fields is a bit set of transform components.
type Fields uint8

const (
	FieldPosition Fields = 1 << iota
	FieldRotation
	FieldScale
)

// allFields lists the components in wire order.
var allFields = []struct {
	field Fields
	name  string
	verb  string
}{
	{FieldPosition, "Position", "Moved"},
	{FieldRotation, "Rotation", "Rotated"},
	{FieldScale, "Scale", "Scaled"},
}

const (
	selfPrefix  = "player"
	thingPrefix = "thing"
)

// Has reports whether every bit of other is set in f.
func (f Fields) Has(other Fields) bool {
	return f&other == other && other != 0
}

// TransformKind returns the inbound kind for f, e.g. "playerPositionScale".
//
// Precondition: f != 0.
func TransformKind(self bool, f Fields) string {
	var b strings.Builder
	if self {
		b.WriteString(selfPrefix)
	} else {
		b.WriteString(thingPrefix)
	}
	for _, c := range allFields {
		if f.Has(c.field) {
			b.WriteString(c.name)
		}
	}
	return b.String()
}

// ParseTransformKind parses an inbound transform kind. Component names must
// appear in Position, Rotation, Scale order, each at most once.
//
// Postcondition: ok is false for any kind outside the 14 valid names.
func ParseTransformKind(kind string) (self bool, f Fields, ok bool) {
	var rest string
	switch {
	case strings.HasPrefix(kind, selfPrefix):
		self, rest = true, kind[len(selfPrefix):]
	case strings.HasPrefix(kind, thingPrefix):
		rest = kind[len(thingPrefix):]
	default:
		return false, 0, false
	}
	for _, c := range allFields {
		if strings.HasPrefix(rest, c.name) {
			f |= c.field
			rest = rest[len(c.name):]
		}
	}
	if f == 0 || rest != "" {
		return false, 0, false
	}
	return self, f, true
}

// MutationEvent returns the outbound event name for a mutation of fields f on
// a player or thing, e.g. "playerMovedRotated". Empty when f is zero.
func MutationEvent(player bool, f Fields) string {
	if f == 0 {
		return ""
	}
	var b strings.Builder
	if player {
		b.WriteString(selfPrefix)
	} else {
		b.WriteString(thingPrefix)
	}
	for _, c := range allFields {
		if f.Has(c.field) {
			b.WriteString(c.verb)
		}
	}
	return b.String()
}

// TransformRequest is the decoded payload of an inbound transform event.
// ID is ignored for self mutations.
type TransformRequest struct {
	ID       string           `json:"id,omitempty"`
	Position *entity.Vec3     `json:"position,omitempty"`
	Rotation *entity.Rotation `json:"rotation,omitempty"`
	Scale    *entity.Vec3     `json:"scale,omitempty"`
}

// Present returns the components carried by the request.
func (r TransformRequest) Present() Fields {
	var f Fields
	if r.Position != nil {
		f |= FieldPosition
	}
	if r.Rotation != nil {
		f |= FieldRotation
	}
	if r.Scale != nil {
		f |= FieldScale
	}
	return f
}

type transformPayload struct {
	ID       string           `json:"id"`
	Position *entity.Vec3     `json:"position,omitempty"`
	Rotation *entity.Rotation `json:"rotation,omitempty"`
	Scale    *entity.Vec3     `json:"scale,omitempty"`
}

// applyTransform writes the components in mask present in req onto e and
// returns the components written with the payload describing them.
func applyTransform(e *entity.Entity, req TransformRequest, mask Fields) (Fields, transformPayload) {
	applied := req.Present() & mask
	payload := transformPayload{ID: e.ID}
	if applied.Has(FieldPosition) {
		e.Transform.Position = *req.Position
		pos := e.Transform.Position
		payload.Position = &pos
	}
	if applied.Has(FieldRotation) {
		e.Transform.Rotation = *req.Rotation
		rot := e.Transform.Rotation
		payload.Rotation = &rot
	}
	if applied.Has(FieldScale) {
		e.Transform.Scale = *req.Scale
		sc := e.Transform.Scale
		payload.Scale = &sc
	}
	return applied, payload
}
