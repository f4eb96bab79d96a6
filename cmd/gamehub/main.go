// Package main provides the gamehub server binary: the WebSocket session
// coordinator, its fixed-rate scheduler, the admin API and the health endpoint.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/gamehub/internal/config"
	"github.com/cory-johannsen/gamehub/internal/frontend/admin"
	"github.com/cory-johannsen/gamehub/internal/frontend/health"
	"github.com/cory-johannsen/gamehub/internal/frontend/ws"
	"github.com/cory-johannsen/gamehub/internal/game/dice"
	"github.com/cory-johannsen/gamehub/internal/game/games/basic"
	"github.com/cory-johannsen/gamehub/internal/game/games/sandbox"
	"github.com/cory-johannsen/gamehub/internal/game/games/scripted"
	"github.com/cory-johannsen/gamehub/internal/game/games/turns"
	"github.com/cory-johannsen/gamehub/internal/game/level"
	"github.com/cory-johannsen/gamehub/internal/game/registry"
	"github.com/cory-johannsen/gamehub/internal/game/session"
	"github.com/cory-johannsen/gamehub/internal/gameserver"
	"github.com/cory-johannsen/gamehub/internal/observability"
	"github.com/cory-johannsen/gamehub/internal/scripting"
	"github.com/cory-johannsen/gamehub/internal/server"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file; empty = defaults and GAMEHUB_ env only")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting gamehub",
		zap.String("http_addr", cfg.Server.Addr()),
		zap.Int("tick_rate", cfg.Scheduler.TickRate),
	)

	roller := dice.NewRoller(dice.NewCryptoSource(), observability.Component(logger, "dice"))

	// Load static content
	contentStart := time.Now()
	levels := level.NewLibrary()
	if cfg.Games.LevelDir != "" {
		levels, err = level.LoadDir(cfg.Games.LevelDir)
		if err != nil {
			logger.Fatal("loading levels", zap.Error(err))
		}
	}
	scripts := scripting.NewManager(roller, observability.Component(logger, "scripting"))
	defer scripts.Close()
	if cfg.Games.ScriptDir != "" {
		if _, err := scripts.LoadDir(cfg.Games.ScriptDir, cfg.Games.ScriptInstructionLimit); err != nil {
			logger.Fatal("loading scripts", zap.Error(err))
		}
	}
	logger.Info("content loaded",
		zap.Int("levels", levels.Len()),
		zap.Strings("scripts", scripts.GameIDs()),
		zap.Duration("elapsed", time.Since(contentStart)),
	)

	reg, err := buildRegistry(cfg.Games, levels, scripts, roller, observability.Component(logger, "games"))
	if err != nil {
		logger.Fatal("registering games", zap.Error(err))
	}
	logger.Info("games registered", zap.Strings("games", reg.GameIDs()))

	sessions := session.NewManager(cfg.WebSocket.OutboxSize)
	coord := gameserver.NewCoordinator(reg, sessions, roller, observability.Component(logger, "coordinator"))

	ticker := gameserver.NewTickManager(cfg.Scheduler.TickRate, observability.Component(logger, "scheduler"))
	ticker.RegisterTick("coordinator", coord.Tick)

	mux := http.NewServeMux()
	mux.Handle(cfg.WebSocket.Path, ws.NewHandler(cfg.WebSocket, coord, observability.Component(logger, "ws")))
	mux.Handle(admin.Prefix+"/", admin.NewHandler(cfg.Admin, coord, observability.Component(logger, "admin")))
	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Wire lifecycle
	lifecycle := server.NewLifecycle(logger)

	var healthServer *health.Server
	if cfg.Health.Enabled() {
		healthServer = health.NewServer(cfg.Health, observability.Component(logger, "health"))
		lifecycle.OnShutdown(func() { healthServer.SetServing(false) })
	}

	schedCtx, stopScheduler := context.WithCancel(ctx)
	lifecycle.Add("scheduler", &server.FuncService{
		StartFn: func() error {
			if healthServer != nil {
				healthServer.SetServing(true)
			}
			ticker.Run(schedCtx)
			return nil
		},
		StopFn: stopScheduler,
	})

	lifecycle.Add("http", &server.FuncService{
		StartFn: func() error {
			lis, err := net.Listen("tcp", httpServer.Addr)
			if err != nil {
				return fmt.Errorf("listening on %s: %w", httpServer.Addr, err)
			}
			logger.Info("http server listening",
				zap.String("addr", lis.Addr().String()),
				zap.String("ws_path", cfg.WebSocket.Path),
			)
			if err := httpServer.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
		StopFn: func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn("http shutdown", zap.Error(err))
			}
		},
	})

	if healthServer != nil {
		lifecycle.Add("health", healthServer)
	}

	logger.Info("gamehub initialized",
		zap.Duration("startup", time.Since(start)),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("final state",
		zap.Uint64("ticks", coord.Ticks()),
		zap.Int("players", coord.TotalPlayers()),
	)
}

// buildRegistry registers the built-in games followed by every loaded script.
//
// Postcondition: Returns an error if a script reuses a built-in game id.
func buildRegistry(cfg config.GamesConfig, levels *level.Library, scripts *scripting.Manager, roller *dice.Roller, logger *zap.Logger) (*registry.Registry, error) {
	reg := registry.New(logger)

	turnsCfg := turns.Config{
		MaxRounds:    cfg.TurnsMaxRounds,
		TurnTimeout:  cfg.TurnTimeoutTicks,
		AIThinkTicks: cfg.TurnsAIThinkTicks,
	}
	if err := reg.Register(sandbox.GameID, sandbox.New(levels, logger.Named(sandbox.GameID))); err != nil {
		return nil, err
	}
	if err := reg.Register(basic.GameID, basic.New(levels, cfg.BasicTimeLimit, logger.Named(basic.GameID))); err != nil {
		return nil, err
	}
	if err := reg.Register(turns.GameID, turns.New(levels, roller, turnsCfg, logger.Named(turns.GameID))); err != nil {
		return nil, err
	}
	if _, err := scripted.Register(scripts, reg.Register); err != nil {
		return nil, fmt.Errorf("registering scripted games: %w", err)
	}
	return reg, nil
}
