// Package config provides centralized configuration management.
// Defaults live here; a YAML file and then environment variables override them.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gridpath/internal/grid"
)

// Search modes.
const (
	ModeOneShot = "oneshot"
	ModeStepped = "stepped"
)

// =============================================================================
// GRID CONFIGURATION
// =============================================================================

// GridConfig describes the pixel area covered by the grid.
// cols = Width/Spacing and rows = Height/Spacing; any remainder is unused.
type GridConfig struct {
	Width     int      `yaml:"width"`
	Height    int      `yaml:"height"`
	Spacing   int      `yaml:"spacing"`
	Obstacles [][2]int `yaml:"obstacles"` // initial obstacle cells as [x, y]
}

// DefaultGrid returns the reference 800x600 area with 20px cells (40x30 grid).
func DefaultGrid() GridConfig {
	return GridConfig{
		Width:   800,
		Height:  600,
		Spacing: 20,
	}
}

// Cols and Rows return the derived grid resolution.
func (c GridConfig) Cols() int {
	if c.Spacing <= 0 {
		return 0
	}
	return c.Width / c.Spacing
}

func (c GridConfig) Rows() int {
	if c.Spacing <= 0 {
		return 0
	}
	return c.Height / c.Spacing
}

func gridFromEnv(cfg GridConfig) GridConfig {
	if w := getEnvInt("GRID_WIDTH", 0); w > 0 {
		cfg.Width = w
	}
	if h := getEnvInt("GRID_HEIGHT", 0); h > 0 {
		cfg.Height = h
	}
	if s := getEnvInt("GRID_SPACING", 0); s > 0 {
		cfg.Spacing = s
	}
	return cfg
}

// =============================================================================
// AGENT CONFIGURATION
// =============================================================================

// AgentConfig holds the path follower settings.
type AgentConfig struct {
	StartX  int     `yaml:"start_x"` // start cell column
	StartY  int     `yaml:"start_y"` // start cell row
	Speed   float64 `yaml:"speed"`   // world units per tick
	Epsilon float64 `yaml:"epsilon"` // arrival radius
}

// DefaultAgent returns the reference agent: cell (5,5), speed 2.5, epsilon 1.
func DefaultAgent() AgentConfig {
	return AgentConfig{
		StartX:  5,
		StartY:  5,
		Speed:   2.5,
		Epsilon: 1.0,
	}
}

func agentFromEnv(cfg AgentConfig) AgentConfig {
	if v := getEnvInt("AGENT_START_X", -1); v >= 0 {
		cfg.StartX = v
	}
	if v := getEnvInt("AGENT_START_Y", -1); v >= 0 {
		cfg.StartY = v
	}
	if v := getEnvFloat("AGENT_SPEED", 0); v > 0 {
		cfg.Speed = v
	}
	if v := getEnvFloat("AGENT_EPSILON", 0); v > 0 {
		cfg.Epsilon = v
	}
	return cfg
}

// =============================================================================
// SIMULATION CONFIGURATION
// =============================================================================

// SimConfig controls the tick loop and search pacing.
type SimConfig struct {
	TickRate     int           `yaml:"tick_rate"`     // simulation ticks per second
	StepInterval time.Duration `yaml:"step_interval"` // stepped mode: time budget per search step
	Mode         string        `yaml:"mode"`          // "oneshot" or "stepped"
	QueueSize    int           `yaml:"queue_size"`    // pending command cap
	EventLogPath string        `yaml:"event_log_path"`
}

// DefaultSim returns 60 TPS with the reference ~1ms step cadence in stepped mode.
func DefaultSim() SimConfig {
	return SimConfig{
		TickRate:     60,
		StepInterval: time.Millisecond,
		Mode:         ModeStepped,
		QueueSize:    256,
	}
}

func simFromEnv(cfg SimConfig) SimConfig {
	if v := getEnvInt("SIM_TPS", 0); v > 0 {
		cfg.TickRate = v
	}
	if v := getEnvFloat("SIM_STEP_INTERVAL_MS", 0); v > 0 {
		cfg.StepInterval = time.Duration(v * float64(time.Millisecond))
	}
	if v := os.Getenv("SIM_MODE"); v != "" {
		cfg.Mode = strings.ToLower(v)
	}
	if v := getEnvInt("SIM_QUEUE_SIZE", 0); v > 0 {
		cfg.QueueSize = v
	}
	if v := os.Getenv("EVENT_LOG_PATH"); v != "" {
		cfg.EventLogPath = v
	}
	return cfg
}

// StepsPerTick converts the step cadence into a per-tick budget, at least one.
func (c SimConfig) StepsPerTick() int {
	if c.TickRate <= 0 || c.StepInterval <= 0 {
		return 1
	}
	tick := time.Second / time.Duration(c.TickRate)
	return max(1, int(tick/c.StepInterval))
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port              int           `yaml:"port"`
	BroadcastInterval time.Duration `yaml:"broadcast_interval"`
	DebugServer       bool          `yaml:"debug_server"`
	StaticDir         string        `yaml:"static_dir"`
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:              3000,
		BroadcastInterval: 100 * time.Millisecond,
		DebugServer:       true,
	}
}

func serverFromEnv(cfg ServerConfig) ServerConfig {
	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if os.Getenv("DISABLE_DEBUG_SERVER") == "true" {
		cfg.DebugServer = false
	}
	if v := os.Getenv("STATIC_DIR"); v != "" {
		cfg.StaticDir = v
	}
	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Grid   GridConfig   `yaml:"grid"`
	Agent  AgentConfig  `yaml:"agent"`
	Sim    SimConfig    `yaml:"sim"`
	Server ServerConfig `yaml:"server"`
}

// Default returns the configuration with no overrides applied.
func Default() AppConfig {
	return AppConfig{
		Grid:   DefaultGrid(),
		Agent:  DefaultAgent(),
		Sim:    DefaultSim(),
		Server: DefaultServer(),
	}
}

// Load returns defaults, overlaid by the YAML file named in GRID_CONFIG (if
// any), overlaid by environment variables.
func Load() (AppConfig, error) {
	cfg := Default()
	if path := os.Getenv("GRID_CONFIG"); path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}
	cfg = ApplyEnv(cfg)
	return cfg, cfg.Validate()
}

// ApplyEnv overlays environment variables onto cfg.
func ApplyEnv(cfg AppConfig) AppConfig {
	cfg.Grid = gridFromEnv(cfg.Grid)
	cfg.Agent = agentFromEnv(cfg.Agent)
	cfg.Sim = simFromEnv(cfg.Sim)
	cfg.Server = serverFromEnv(cfg.Server)
	return cfg
}

// Validate rejects configurations the simulation cannot run with.
func (c AppConfig) Validate() error {
	if c.Grid.Spacing <= 0 {
		return fmt.Errorf("config: spacing %d: %w", c.Grid.Spacing, grid.ErrInvalidSpacing)
	}
	cols, rows := c.Grid.Cols(), c.Grid.Rows()
	if cols <= 0 || rows <= 0 {
		return fmt.Errorf("config: %dx%d px at spacing %d: %w", c.Grid.Width, c.Grid.Height, c.Grid.Spacing, grid.ErrEmptyGrid)
	}
	if c.Agent.StartX < 0 || c.Agent.StartX >= cols || c.Agent.StartY < 0 || c.Agent.StartY >= rows {
		return fmt.Errorf("config: agent start (%d,%d) outside %dx%d grid", c.Agent.StartX, c.Agent.StartY, cols, rows)
	}
	for _, o := range c.Grid.Obstacles {
		if o[0] < 0 || o[0] >= cols || o[1] < 0 || o[1] >= rows {
			return fmt.Errorf("config: obstacle (%d,%d) outside %dx%d grid", o[0], o[1], cols, rows)
		}
	}
	if c.Agent.Speed <= 0 || c.Agent.Epsilon <= 0 {
		return fmt.Errorf("config: agent speed and epsilon must be positive")
	}
	if c.Sim.TickRate <= 0 {
		return fmt.Errorf("config: tick rate must be positive, got %d", c.Sim.TickRate)
	}
	if c.Sim.Mode != ModeOneShot && c.Sim.Mode != ModeStepped {
		return fmt.Errorf("config: unknown mode %q", c.Sim.Mode)
	}
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
