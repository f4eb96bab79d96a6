package gameserver

import (
	"strings"
	"unicode/utf8"

	"github.com/cory-johannsen/gamehub/internal/observability"
)

// maxChatLength bounds a relayed chat message in bytes.
const maxChatLength = 512

// Chat relays a message from the sender to every subscriber of its room,
// the sender included.
//
// Postcondition: blank messages are dropped; long messages are truncated to
// maxChatLength bytes on a rune boundary.
func (c *Coordinator) Chat(connID, message string) {
	message = strings.TrimSpace(message)
	if message == "" {
		return
	}
	message = truncate(message, maxChatLength)

	c.mu.Lock()
	defer c.mu.Unlock()

	_, rm, p, ok := c.locate(connID)
	if !ok {
		return
	}
	c.broadcast(rm.Name, EventChatMessage, chatPayload{
		PlayerID: p.ID,
		Name:     p.Name,
		Message:  message,
	}, "")
	observability.ForRoom(c.logger, rm.GameID, rm.RoomID).Debug("chat", observability.Player(p.ID))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
