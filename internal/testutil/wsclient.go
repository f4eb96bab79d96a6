package testutil

import (
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cory-johannsen/gamehub/internal/game/session"
)

// WSClient is a WebSocket test client speaking the event envelope.
type WSClient struct {
	conn *websocket.Conn
	t    *testing.T
}

// DialWS connects to url and returns a test client.
//
// Precondition: url must be a ws:// URL of a listening server.
// Postcondition: Returns a connected WSClient or fails the test.
func DialWS(t *testing.T, url string) *WSClient {
	t.Helper()
	start := time.Now()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("connecting to %s: %v [%s]", url, err, time.Since(start))
	}
	t.Cleanup(func() {
		conn.Close()
	})

	t.Logf("ws client connected to %s [%s]", url, time.Since(start))
	return &WSClient{conn: conn, t: t}
}

// Send writes one event envelope.
func (c *WSClient) Send(event string, data any) {
	c.t.Helper()
	frame, err := session.Encode(event, data)
	if err != nil {
		c.t.Fatalf("encoding %q: %v", event, err)
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.t.Fatalf("sending %q: %v", event, err)
	}
}

// ReadUntil reads envelopes until one named event arrives or timeout occurs.
//
// Postcondition: Returns the matching envelope, or fails on timeout.
func (c *WSClient) ReadUntil(event string, timeout time.Duration) session.Envelope {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))
	var seen []string
	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			c.t.Fatalf("reading until %q: saw %v, error: %v", event, seen, err)
		}
		env, err := session.Decode(frame)
		if err != nil {
			c.t.Fatalf("decoding frame %s: %v", frame, err)
		}
		if env.Event == event {
			return env
		}
		seen = append(seen, env.Event)
	}
}

// ReadClose reads until the server closes the connection and returns the
// close error.
func (c *WSClient) ReadClose(timeout time.Duration) *websocket.CloseError {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))
	for {
		_, _, err := c.conn.ReadMessage()
		if err == nil {
			continue
		}
		if ce, ok := err.(*websocket.CloseError); ok {
			return ce
		}
		c.t.Fatalf("expected close frame, got %v", err)
		return nil
	}
}

// Close closes the underlying connection.
func (c *WSClient) Close() {
	c.conn.Close()
}
