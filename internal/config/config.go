// Package config provides Viper-based configuration loading for the gamehub server.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds the HTTP listener settings shared by the WebSocket
// acceptor and the admin API.
type ServerConfig struct {
	// Host is the bind address for the HTTP listener.
	Host string `mapstructure:"host"`
	// Port is the TCP port for the HTTP listener.
	Port int `mapstructure:"port"`
	// ReadTimeout bounds reading a request's headers and body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout bounds writing a non-upgraded response.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// WebSocketConfig holds per-connection transport settings.
type WebSocketConfig struct {
	// Path is the URL path the acceptor is mounted on.
	Path string `mapstructure:"path"`
	// OutboxSize is the number of frames queued per connection before
	// further frames are dropped for it.
	OutboxSize int `mapstructure:"outbox_size"`
	// WriteTimeout is the per-frame write deadline.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// PingInterval is how often the server pings an otherwise idle client.
	PingInterval time.Duration `mapstructure:"ping_interval"`
	// ReadLimit is the largest inbound frame accepted, in bytes.
	ReadLimit int64 `mapstructure:"read_limit"`
}

// PongWait is how long the server waits for any inbound frame before it
// considers the connection dead.
func (w WebSocketConfig) PongWait() time.Duration {
	return w.PingInterval * 2
}

// SchedulerConfig holds the fixed-rate tick settings.
type SchedulerConfig struct {
	// TickRate is the number of ticks per second.
	TickRate int `mapstructure:"tick_rate"`
}

// GamesConfig holds plugin content and rule settings.
type GamesConfig struct {
	// LevelDir holds static level YAML files; empty disables levels.
	LevelDir string `mapstructure:"level_dir"`
	// ScriptDir holds Lua game scripts; empty disables scripted games.
	ScriptDir string `mapstructure:"script_dir"`
	// ScriptInstructionLimit caps the Lua instructions of one hook call.
	ScriptInstructionLimit int `mapstructure:"script_instruction_limit"`
	// BasicTimeLimit is the tick count after which a basic round ends.
	BasicTimeLimit int `mapstructure:"basic_time_limit"`
	// TurnsMaxRounds is the round count after which a turns game ends.
	TurnsMaxRounds int `mapstructure:"turns_max_rounds"`
	// TurnTimeoutTicks is how long a turns player may idle on their turn.
	TurnTimeoutTicks int `mapstructure:"turn_timeout_ticks"`
	// TurnsAIThinkTicks is how long an AI player waits before ending its turn.
	TurnsAIThinkTicks int `mapstructure:"turns_ai_think_ticks"`
}

// AdminConfig holds the administrative API settings.
type AdminConfig struct {
	// OperatorTokenHash is a bcrypt hash of the operator token required by
	// mutating admin endpoints. Empty leaves them open.
	OperatorTokenHash string `mapstructure:"operator_token_hash"`
}

// HealthConfig holds the gRPC health endpoint settings.
type HealthConfig struct {
	// GRPCHost is the bind address for the health service.
	GRPCHost string `mapstructure:"grpc_host"`
	// GRPCPort is the TCP port for the health service; 0 disables it.
	GRPCPort int `mapstructure:"grpc_port"`
}

// Addr returns the "host:port" gRPC address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (h HealthConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.GRPCHost, h.GRPCPort)
}

// Enabled reports whether the health service should be started.
func (h HealthConfig) Enabled() bool {
	return h.GRPCPort != 0
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Games     GamesConfig     `mapstructure:"games"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Health    HealthConfig    `mapstructure:"health"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	for _, err := range []error{
		validateServer(c.Server),
		validateWebSocket(c.WebSocket),
		validateScheduler(c.Scheduler),
		validateGames(c.Games),
		validateAdmin(c.Admin),
		validateHealth(c.Health),
		validateLogging(c.Logging),
	} {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func joined(errs []string) error {
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validPort(p int) bool {
	return p >= 1 && p <= 65535
}

func validateServer(s ServerConfig) error {
	var errs []string
	if !validPort(s.Port) {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", s.Port))
	}
	if s.ReadTimeout < 0 {
		errs = append(errs, "server.read_timeout must not be negative")
	}
	if s.WriteTimeout < 0 {
		errs = append(errs, "server.write_timeout must not be negative")
	}
	return joined(errs)
}

func validateWebSocket(w WebSocketConfig) error {
	var errs []string
	if !strings.HasPrefix(w.Path, "/") {
		errs = append(errs, fmt.Sprintf("websocket.path must start with /, got %q", w.Path))
	}
	if w.OutboxSize < 1 {
		errs = append(errs, fmt.Sprintf("websocket.outbox_size must be >= 1, got %d", w.OutboxSize))
	}
	if w.WriteTimeout <= 0 {
		errs = append(errs, "websocket.write_timeout must be positive")
	}
	if w.PingInterval <= 0 {
		errs = append(errs, "websocket.ping_interval must be positive")
	}
	if w.ReadLimit < 1 {
		errs = append(errs, fmt.Sprintf("websocket.read_limit must be >= 1, got %d", w.ReadLimit))
	}
	return joined(errs)
}

func validateScheduler(s SchedulerConfig) error {
	if s.TickRate < 1 || s.TickRate > 1000 {
		return fmt.Errorf("scheduler.tick_rate must be 1-1000, got %d", s.TickRate)
	}
	return nil
}

func validateGames(g GamesConfig) error {
	var errs []string
	if g.ScriptInstructionLimit < 0 {
		errs = append(errs, fmt.Sprintf("games.script_instruction_limit must be >= 0, got %d", g.ScriptInstructionLimit))
	}
	if g.BasicTimeLimit < 1 {
		errs = append(errs, fmt.Sprintf("games.basic_time_limit must be >= 1, got %d", g.BasicTimeLimit))
	}
	if g.TurnsMaxRounds < 1 {
		errs = append(errs, fmt.Sprintf("games.turns_max_rounds must be >= 1, got %d", g.TurnsMaxRounds))
	}
	if g.TurnTimeoutTicks < 1 {
		errs = append(errs, fmt.Sprintf("games.turn_timeout_ticks must be >= 1, got %d", g.TurnTimeoutTicks))
	}
	if g.TurnsAIThinkTicks < 0 {
		errs = append(errs, fmt.Sprintf("games.turns_ai_think_ticks must be >= 0, got %d", g.TurnsAIThinkTicks))
	}
	return joined(errs)
}

func validateAdmin(a AdminConfig) error {
	if a.OperatorTokenHash != "" && !strings.HasPrefix(a.OperatorTokenHash, "$2") {
		return fmt.Errorf("admin.operator_token_hash must be a bcrypt hash")
	}
	return nil
}

func validateHealth(h HealthConfig) error {
	var errs []string
	if h.GRPCPort != 0 && !validPort(h.GRPCPort) {
		errs = append(errs, fmt.Sprintf("health.grpc_port must be 0 or 1-65535, got %d", h.GRPCPort))
	}
	if h.GRPCPort != 0 && h.GRPCHost == "" {
		errs = append(errs, "health.grpc_host must not be empty")
	}
	return joined(errs)
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result. An empty path loads defaults and
// environment overrides only.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	}

	// Environment variable overrides with GAMEHUB_ prefix
	v.SetEnvPrefix("GAMEHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if path != "" {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SetDefaults installs the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")

	v.SetDefault("websocket.path", "/ws")
	v.SetDefault("websocket.outbox_size", 256)
	v.SetDefault("websocket.write_timeout", "10s")
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.read_limit", 64*1024)

	v.SetDefault("scheduler.tick_rate", 30)

	v.SetDefault("games.level_dir", "")
	v.SetDefault("games.script_dir", "")
	v.SetDefault("games.script_instruction_limit", 1_000_000)
	v.SetDefault("games.basic_time_limit", 1000)
	v.SetDefault("games.turns_max_rounds", 10)
	v.SetDefault("games.turn_timeout_ticks", 1000)
	v.SetDefault("games.turns_ai_think_ticks", 30)

	v.SetDefault("admin.operator_token_hash", "")

	v.SetDefault("health.grpc_host", "127.0.0.1")
	v.SetDefault("health.grpc_port", 50051)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
