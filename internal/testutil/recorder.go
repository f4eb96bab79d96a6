// Package testutil provides test helpers for reading what the coordinator
// delivered to a session, either straight from its outbox or over a
// WebSocket connection.
package testutil

import (
	"encoding/json"
	"testing"

	"github.com/cory-johannsen/gamehub/internal/game/session"
)

// Drain returns every frame currently buffered in sess's outbox, decoded.
// It never blocks.
//
// Postcondition: the outbox is empty; fails the test on an undecodable frame.
func Drain(t *testing.T, sess *session.Session) []session.Envelope {
	t.Helper()
	var out []session.Envelope
	for {
		select {
		case frame, ok := <-sess.Outbox.Frames():
			if !ok {
				return out
			}
			env, err := session.Decode(frame)
			if err != nil {
				t.Fatalf("decoding frame for %s: %v", sess.ID, err)
			}
			out = append(out, env)
		default:
			return out
		}
	}
}

// Events returns the event names of envs in order.
func Events(envs []session.Envelope) []string {
	names := make([]string, len(envs))
	for i, env := range envs {
		names[i] = env.Event
	}
	return names
}

// Filter returns the envelopes named event, in order.
func Filter(envs []session.Envelope, event string) []session.Envelope {
	var out []session.Envelope
	for _, env := range envs {
		if env.Event == event {
			out = append(out, env)
		}
	}
	return out
}

// Payload decodes env's data into a generic map.
func Payload(t *testing.T, env session.Envelope) map[string]any {
	t.Helper()
	var m map[string]any
	DecodeData(t, env, &m)
	return m
}

// DecodeData unmarshals env's data into v or fails the test.
func DecodeData(t *testing.T, env session.Envelope, v any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decoding %s data %s: %v", env.Event, env.Data, err)
	}
}
