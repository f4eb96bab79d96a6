package session

import (
	"fmt"
	"sort"
	"sync"

	"github.com/cory-johannsen/gamehub/internal/game/room"
)

// Session is one connected client.
type Session struct {
	// ID is the connection identifier; it doubles as the player entity id.
	ID     string
	Name   string
	GameID string
	RoomID string
	// Outbox queues frames for the transport.
	Outbox *Outbox
}

// Channel returns the broadcast channel the session is subscribed to.
func (s *Session) Channel() string {
	return room.ChannelName(s.GameID, s.RoomID)
}

// Manager tracks all connected sessions and channel membership.
// All methods are safe for concurrent use.
type Manager struct {
	mu         sync.RWMutex
	sessions   map[string]*Session        // id → session
	channels   map[string]map[string]bool // channel → set of ids
	outboxSize int
}

// NewManager creates an empty Manager whose sessions get outboxes of
// outboxSize frames.
func NewManager(outboxSize int) *Manager {
	return &Manager{
		sessions:   make(map[string]*Session),
		channels:   make(map[string]map[string]bool),
		outboxSize: outboxSize,
	}
}

// Add registers a new session subscribed to the channel of (gameID, roomID).
//
// Precondition: id, gameID and roomID must be non-empty.
// Postcondition: Returns the created Session, or an error if id is already connected.
func (m *Manager) Add(id, name, gameID, roomID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[id]; exists {
		return nil, fmt.Errorf("connection %q already registered", id)
	}
	sess := &Session{
		ID:     id,
		Name:   name,
		GameID: gameID,
		RoomID: roomID,
		Outbox: NewOutbox(id, m.outboxSize),
	}
	m.sessions[id] = sess
	m.subscribe(sess.Channel(), id)
	return sess, nil
}

// Remove drops a session, unsubscribes it and closes its outbox.
//
// Postcondition: Returns an error if id is unknown.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, exists := m.sessions[id]
	if !exists {
		return fmt.Errorf("connection %q not found", id)
	}
	m.unsubscribe(sess.Channel(), id)
	_ = sess.Outbox.Close()
	delete(m.sessions, id)
	return nil
}

// Move resubscribes a session to another room of its game.
//
// Postcondition: Returns the previous room ID, or an error if id is unknown.
func (m *Manager) Move(id, newRoomID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, exists := m.sessions[id]
	if !exists {
		return "", fmt.Errorf("connection %q not found", id)
	}
	old := sess.RoomID
	m.unsubscribe(sess.Channel(), id)
	sess.RoomID = newRoomID
	m.subscribe(sess.Channel(), id)
	return old, nil
}

// Get returns the session for id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	return sess, ok
}

// Subscribers returns the sessions subscribed to channel, sorted by id.
func (m *Manager) Subscribers(channel string) []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := m.channels[channel]
	out := make([]*Session, 0, len(ids))
	for id := range ids {
		if sess, ok := m.sessions[id]; ok {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// All returns every session sorted by id.
func (m *Manager) All() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		out = append(out, sess)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Count returns the number of connected sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) subscribe(channel, id string) {
	if m.channels[channel] == nil {
		m.channels[channel] = make(map[string]bool)
	}
	m.channels[channel][id] = true
}

func (m *Manager) unsubscribe(channel, id string) {
	if set, ok := m.channels[channel]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(m.channels, channel)
		}
	}
}
