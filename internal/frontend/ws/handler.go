// Package ws is the WebSocket acceptor. It performs the connection handshake,
// decodes inbound event envelopes into coordinator calls, and drains each
// session's outbox to its socket.
package ws

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cory-johannsen/gamehub/internal/config"
	"github.com/cory-johannsen/gamehub/internal/game/entity"
	"github.com/cory-johannsen/gamehub/internal/game/session"
	"github.com/cory-johannsen/gamehub/internal/gameserver"
)

// Handshake query parameters.
const (
	ParamGameID    = "gameId"
	ParamRoomID    = "roomId"
	ParamName      = "name"
	ParamTransform = "transform"
)

// Coordinator is the subset of the session coordinator driven by client
// events.
type Coordinator interface {
	Connect(req gameserver.ConnectRequest) (*session.Session, error)
	Disconnect(connID string)
	PlayerInput(connID string, in entity.Input)
	MutateTransform(connID, kind string, req gameserver.TransformRequest)
	PlayerScore(connID string, delta int)
	ChangeRoom(connID, roomID string) error
	Chat(connID, message string)
	SpawnThing(connID string, req gameserver.SpawnRequest) string
	AddThing(connID string, t *entity.Entity) bool
	RemoveThing(connID, thingID string) bool
	RespawnThing(connID, thingID string) bool
	DisposeThing(connID, thingID string) bool
	ClearAllThings(connID string) int
	RoomPlayerCounts(connID string)
}

// Handler upgrades HTTP requests to WebSocket sessions.
type Handler struct {
	cfg      config.WebSocketConfig
	coord    Coordinator
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a Handler.
//
// Precondition: coord and logger must be non-nil; cfg must pass validation.
func NewHandler(cfg config.WebSocketConfig, coord Coordinator, logger *zap.Logger) *Handler {
	return &Handler{
		cfg:    cfg,
		coord:  coord,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(*http.Request) bool {
				return true
			},
		},
	}
}

// ServeHTTP performs the handshake and runs the session until the client
// goes away.
//
// Postcondition: a rejected handshake is closed with ClosePolicyViolation
// right after the upgrade and leaves no room, player or session behind.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req, parseErr := parseHandshake(r)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("upgrade failed", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
		return
	}

	if parseErr != nil {
		h.reject(conn, req, "malformed transform", parseErr)
		return
	}

	sess, err := h.coord.Connect(req)
	if err != nil {
		reason := "connection rejected"
		switch {
		case errors.Is(err, gameserver.ErrUnknownGame):
			reason = "unknown game"
		case errors.Is(err, gameserver.ErrInvalidRoom):
			reason = "invalid room"
		}
		h.reject(conn, req, reason, err)
		return
	}

	h.serve(conn, sess)
}

func parseHandshake(r *http.Request) (gameserver.ConnectRequest, error) {
	q := r.URL.Query()
	req := gameserver.ConnectRequest{
		GameID: q.Get(ParamGameID),
		RoomID: q.Get(ParamRoomID),
		Name:   q.Get(ParamName),
	}
	if raw := q.Get(ParamTransform); raw != "" {
		var t entity.Transform
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			return req, err
		}
		req.Transform = &t
	}
	return req, nil
}

func (h *Handler) reject(conn *websocket.Conn, req gameserver.ConnectRequest, reason string, err error) {
	h.logger.Info("handshake rejected",
		zap.String("game", req.GameID),
		zap.String("room", req.RoomID),
		zap.String("reason", reason),
		zap.Error(err),
	)
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(h.cfg.WriteTimeout))
	conn.Close()
}

// serve runs the read loop on the calling goroutine and the write loop on
// another. Whichever side fails first tears the session down.
func (h *Handler) serve(conn *websocket.Conn, sess *session.Session) {
	start := time.Now()
	done := make(chan struct{})
	go h.writeLoop(conn, sess, done)

	h.readLoop(conn, sess)

	h.coord.Disconnect(sess.ID)
	<-done
	conn.Close()

	h.logger.Debug("session closed",
		zap.String("player", sess.ID),
		zap.Duration("duration", time.Since(start)),
	)
}

func (h *Handler) readLoop(conn *websocket.Conn, sess *session.Session) {
	pongWait := h.cfg.PongWait()
	conn.SetReadLimit(h.cfg.ReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				h.logger.Debug("read failed", zap.String("player", sess.ID), zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		env, err := session.Decode(frame)
		if err != nil {
			h.logger.Debug("discarding malformed frame", zap.String("player", sess.ID), zap.Error(err))
			continue
		}
		if err := h.dispatch(sess.ID, env); err != nil {
			h.logger.Debug("discarding event",
				zap.String("player", sess.ID),
				zap.String("event", env.Event),
				zap.Error(err),
			)
		}
	}
}

// writeLoop drains the outbox until it is closed by Disconnect, pinging the
// client while idle.
func (h *Handler) writeLoop(conn *websocket.Conn, sess *session.Session, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()

	frames := sess.Outbox.Frames()
	for {
		select {
		case frame, ok := <-frames:
			_ = conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				h.logger.Debug("write failed", zap.String("player", sess.ID), zap.Error(err))
				// Unblocks the read loop, which disconnects and closes the outbox.
				conn.Close()
				drain(frames)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.cfg.WriteTimeout)); err != nil {
				conn.Close()
				drain(frames)
				return
			}
		}
	}
}

func drain(frames <-chan []byte) {
	for range frames {
	}
}
