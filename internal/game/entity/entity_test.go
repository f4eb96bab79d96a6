package entity_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/gamehub/internal/game/entity"
)

func TestNewPlayer_Defaults(t *testing.T) {
	p := entity.NewPlayer("c1", "", nil)
	assert.Equal(t, "c1", p.Name)
	assert.True(t, p.IsPlayer())
	assert.False(t, p.IsAI())
	assert.Equal(t, entity.DefaultPlayerSpeed, p.Speed)
	assert.Equal(t, entity.Vec3{X: 1, Y: 1, Z: 1}, p.Transform.Scale)
	assert.Equal(t, "XYZ", p.Transform.Rotation.Order)
	assert.NotNil(t, p.Data)
}

func TestNewThing_NameDefault(t *testing.T) {
	th := entity.NewThing("box", "", "Crate")
	assert.Equal(t, "Thing_box", th.Name)
	assert.False(t, th.IsPlayer())
	assert.Empty(t, th.GameplayTags)
}

func TestEntity_JSONShape(t *testing.T) {
	p := entity.NewPlayer("c1", "Alice", map[string]any{"health": 3})
	p.Input = entity.Input{"left": true}
	raw, err := json.Marshal(p)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.NotContains(t, decoded, "input")
	assert.NotContains(t, decoded, "velocity")
	rot := decoded["transform"].(map[string]any)["rotation"].(map[string]any)
	assert.Equal(t, "XYZ", rot["_order"])
	assert.Equal(t, true, rot["isEuler"])
}

func TestEntity_DataAccessors(t *testing.T) {
	e := entity.NewThing("t", "", "X")
	e.Data["hp"] = float64(4)
	e.Data["n"] = 2
	e.Data["isAi"] = true
	e.Data["s"] = "v"
	assert.Equal(t, 4, e.DataInt("hp"))
	assert.Equal(t, 2.0, e.DataFloat("n"))
	assert.True(t, e.IsAI())
	assert.Equal(t, "v", e.DataString("s"))
	assert.Zero(t, e.DataFloat("missing"))
}

func TestNormalize_FillsClientThing(t *testing.T) {
	var e entity.Entity
	require.NoError(t, json.Unmarshal([]byte(`{"id":"rock","type":"Rock"}`), &e))
	e.Normalize()
	assert.Equal(t, "Thing_rock", e.Name)
	assert.Equal(t, entity.Vec3{X: 1, Y: 1, Z: 1}, e.Transform.Scale)
	assert.NotNil(t, e.Data)
	assert.NotNil(t, e.GameplayTags)
}

func TestInput_Accessors(t *testing.T) {
	in := entity.Input{"left": true, "q": float64(2), "type": "roll"}
	assert.True(t, in.Bool("left"))
	assert.False(t, in.Bool("right"))
	q, ok := in.Float("q")
	assert.True(t, ok)
	assert.Equal(t, 2.0, q)
	assert.Equal(t, "roll", in.String("type"))
}

func TestStore_OrderAndDelete(t *testing.T) {
	s := entity.NewStore()
	s.Put(entity.NewThing("a", "", "X"))
	s.Put(entity.NewThing("b", "", "X"))
	s.Put(entity.NewThing("c", "", "X"))
	s.Put(entity.NewThing("a", "again", "X"))
	assert.Equal(t, []string{"a", "b", "c"}, s.IDs())

	assert.True(t, s.Delete("b"))
	assert.False(t, s.Delete("b"))
	assert.Equal(t, []string{"a", "c"}, s.IDs())
	a, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, "again", a.Name)

	raw, err := json.Marshal(s)
	require.NoError(t, err)
	var decoded map[string]map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Len(t, decoded, 2)
	assert.Equal(t, "c", decoded["c"]["id"])
}

func TestStore_Property_LenMatchesIDs(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := entity.NewStore()
		present := map[string]bool{}
		ops := rapid.SliceOf(rapid.IntRange(0, 9)).Draw(rt, "ops")
		for i, op := range ops {
			id := string(rune('a' + op))
			if i%3 == 2 {
				s.Delete(id)
				delete(present, id)
				continue
			}
			s.Put(entity.NewThing(id, "", "X"))
			present[id] = true
		}
		assert.Equal(rt, len(present), s.Len())
		assert.Len(rt, s.IDs(), len(present))
		for _, id := range s.IDs() {
			assert.True(rt, present[id])
		}
	})
}
