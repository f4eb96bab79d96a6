package ws

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cory-johannsen/gamehub/internal/game/entity"
	"github.com/cory-johannsen/gamehub/internal/game/session"
	"github.com/cory-johannsen/gamehub/internal/gameserver"
)

var errUnknownEvent = errors.New("unknown event")

type scoreRequest struct {
	Delta int `json:"delta"`
}

type changeRoomRequest struct {
	RoomID string `json:"roomId"`
}

type chatRequest struct {
	Message string `json:"message"`
}

type addThingRequest struct {
	Thing *entity.Entity `json:"thing"`
}

type idRequest struct {
	ID string `json:"id"`
}

// dispatch routes one inbound envelope to the coordinator.
//
// Postcondition: returns an error only for unknown events and undecodable
// payloads; coordinator-level no-ops are not errors.
func (h *Handler) dispatch(connID string, env session.Envelope) error {
	if _, _, ok := gameserver.ParseTransformKind(env.Event); ok {
		var req gameserver.TransformRequest
		if err := decode(env.Data, &req); err != nil {
			return err
		}
		h.coord.MutateTransform(connID, env.Event, req)
		return nil
	}

	switch env.Event {
	case gameserver.EventPlayerInput:
		var in entity.Input
		if err := decode(env.Data, &in); err != nil {
			return err
		}
		h.coord.PlayerInput(connID, in)

	case gameserver.EventPlayerScore:
		var req scoreRequest
		if err := decodeScalar(env.Data, &req.Delta, &req); err != nil {
			return err
		}
		h.coord.PlayerScore(connID, req.Delta)

	case gameserver.EventPlayerChangeRoom:
		var req changeRoomRequest
		if err := decodeScalar(env.Data, &req.RoomID, &req); err != nil {
			return err
		}
		return h.coord.ChangeRoom(connID, req.RoomID)

	case gameserver.EventChat:
		var req chatRequest
		if err := decodeScalar(env.Data, &req.Message, &req); err != nil {
			return err
		}
		h.coord.Chat(connID, req.Message)

	case gameserver.EventSpawnThing:
		var req gameserver.SpawnRequest
		if err := decode(env.Data, &req); err != nil {
			return err
		}
		h.coord.SpawnThing(connID, req)

	case gameserver.EventAddThing:
		var req addThingRequest
		if err := decode(env.Data, &req); err != nil {
			return err
		}
		h.coord.AddThing(connID, req.Thing)

	case gameserver.EventRemoveThing, gameserver.EventRespawnThing, gameserver.EventDisposeThing:
		var req idRequest
		if err := decodeScalar(env.Data, &req.ID, &req); err != nil {
			return err
		}
		switch env.Event {
		case gameserver.EventRemoveThing:
			h.coord.RemoveThing(connID, req.ID)
		case gameserver.EventRespawnThing:
			h.coord.RespawnThing(connID, req.ID)
		default:
			h.coord.DisposeThing(connID, req.ID)
		}

	case gameserver.EventClearAllThings:
		h.coord.ClearAllThings(connID)

	case gameserver.EventGetAllRoomPlayerCount:
		h.coord.RoomPlayerCounts(connID)

	default:
		return fmt.Errorf("%w %q", errUnknownEvent, env.Event)
	}
	return nil
}

// decode unmarshals data into v. Absent data leaves v untouched.
func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding payload: %w", err)
	}
	return nil
}

// decodeScalar accepts either a bare JSON value, decoded into scalar, or an
// object, decoded into obj.
func decodeScalar(data json.RawMessage, scalar, obj any) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return decode(trimmed, obj)
	}
	return decode(trimmed, scalar)
}
