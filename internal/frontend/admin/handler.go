// Package admin serves the operator HTTP API: player counts per room, game
// and server, and the global player notice.
package admin

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/gamehub/internal/config"
	"github.com/cory-johannsen/gamehub/internal/gameserver"
)

// Prefix is the path prefix of every admin route.
const Prefix = "/api/gameManager"

// TokenHeader carries the operator token on mutating requests.
const TokenHeader = "X-Operator-Token"

// maxBodyBytes bounds a request body.
const maxBodyBytes = 64 * 1024

// Coordinator is the read-only query surface plus the notice broadcast.
type Coordinator interface {
	PlayerCount(gameID, roomID string) (int, error)
	PlayerCountPerRoom(gameID string) (map[string]int, error)
	PlayerCountPerGame() map[string]int
	TotalPlayers() int
	Summary() gameserver.Summary
	Notify(message string) int
}

type playerCountResponse struct {
	PlayerCount int `json:"playerCount"`
}

type playerCountsResponse struct {
	PlayerCounts map[string]int `json:"playerCounts"`
}

type notifyRequest struct {
	Message string `json:"message"`
}

type notifyResponse struct {
	Success bool `json:"success"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type handler struct {
	cfg    config.AdminConfig
	coord  Coordinator
	logger *zap.Logger
}

// NewHandler returns the admin API routed under Prefix.
//
// Precondition: coord and logger must be non-nil.
func NewHandler(cfg config.AdminConfig, coord Coordinator, logger *zap.Logger) http.Handler {
	h := &handler{cfg: cfg, coord: coord, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+Prefix+"/playersInGame/{gameId}/{roomId}", h.playersInGame)
	mux.HandleFunc("GET "+Prefix+"/playersInAllGames", h.playersInAllGames)
	mux.HandleFunc("GET "+Prefix+"/playersInPerGames", h.playersInPerGames)
	mux.HandleFunc("GET "+Prefix+"/playersPerRoom/{gameId}", h.playersPerRoom)
	mux.HandleFunc("GET "+Prefix+"/summary", h.summary)
	mux.HandleFunc("POST "+Prefix+"/playerNotify", h.playerNotify)
	return mux
}

func (h *handler) playersInGame(w http.ResponseWriter, r *http.Request) {
	n, err := h.coord.PlayerCount(r.PathValue("gameId"), r.PathValue("roomId"))
	if err != nil {
		h.writeLookupError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, playerCountResponse{PlayerCount: n})
}

func (h *handler) playersInAllGames(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, playerCountResponse{PlayerCount: h.coord.TotalPlayers()})
}

func (h *handler) playersInPerGames(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, playerCountsResponse{PlayerCounts: h.coord.PlayerCountPerGame()})
}

func (h *handler) playersPerRoom(w http.ResponseWriter, r *http.Request) {
	counts, err := h.coord.PlayerCountPerRoom(r.PathValue("gameId"))
	if err != nil {
		h.writeLookupError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, playerCountsResponse{PlayerCounts: counts})
}

func (h *handler) summary(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.coord.Summary())
}

func (h *handler) playerNotify(w http.ResponseWriter, r *http.Request) {
	if h.cfg.OperatorTokenHash != "" && !CheckToken(r.Header.Get(TokenHeader), h.cfg.OperatorTokenHash) {
		h.logger.Warn("operator token rejected", zap.String("remote_addr", r.RemoteAddr))
		h.writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid operator token"})
		return
	}

	var req notifyRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed body"})
		return
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "message is required"})
		return
	}

	sent := h.coord.Notify(message)
	h.logger.Info("player notify", zap.String("message", message), zap.Int("sessions", sent))
	h.writeJSON(w, http.StatusOK, notifyResponse{Success: true})
}

func (h *handler) writeLookupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, gameserver.ErrUnknownGame):
		h.writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, gameserver.ErrInvalidRoom):
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		h.logger.Error("admin query failed", zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Debug("writing admin response", zap.Error(err))
	}
}
