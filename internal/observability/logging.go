// Package observability builds the process-wide structured logger.
package observability

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/gamehub/internal/config"
)

// ServiceName is attached to every log entry.
const ServiceName = "gamehub"

// NewLogger creates a structured logger from the given logging configuration.
// Extra options are applied after the defaults.
//
// Precondition: cfg.Level must be one of "debug", "info", "warn", "error".
// Precondition: cfg.Format must be "json" or "console".
// Postcondition: Returns a configured zap.Logger or a non-nil error.
func NewLogger(cfg config.LoggingConfig, opts ...zap.Option) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}

	var zapCfg zap.Config
	switch cfg.Format {
	case "json":
		zapCfg = zap.NewProductionConfig()
		zapCfg.InitialFields = map[string]any{"service": ServiceName}
	case "console":
		zapCfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	// Every warning is kept, including repeated per-tick ones.
	zapCfg.Sampling = nil

	logger, err := zapCfg.Build(opts...)
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}

// Component returns a child logger named for one subsystem.
func Component(logger *zap.Logger, name string) *zap.Logger {
	return logger.Named(name)
}

// Field keys shared by every component that logs about rooms and players.
const (
	KeyGame   = "game"
	KeyRoom   = "room"
	KeyPlayer = "player"
)

// Game tags an entry with a game type id.
func Game(id string) zap.Field { return zap.String(KeyGame, id) }

// Player tags an entry with a player (connection) id.
func Player(id string) zap.Field { return zap.String(KeyPlayer, id) }

// RoomFields returns the game and room fields identifying one room.
func RoomFields(gameID, roomID string) []zap.Field {
	return []zap.Field{Game(gameID), zap.String(KeyRoom, roomID)}
}

// ForRoom returns a child logger carrying the room's game and room fields.
func ForRoom(logger *zap.Logger, gameID, roomID string) *zap.Logger {
	return logger.With(RoomFields(gameID, roomID)...)
}
