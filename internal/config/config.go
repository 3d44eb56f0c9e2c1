package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/park285/cheese-board/internal/chess"
	"github.com/park285/cheese-board/internal/game"
	"github.com/park285/cheese-board/internal/movegen"
)

type AppConfig struct {
	HTTPAddr string `yaml:"http_addr"`

	RedisURL       string `yaml:"redis_url"`
	DatabaseURL    string `yaml:"database_url"`
	SnapshotTTLSec int    `yaml:"snapshot_ttl_sec"`

	StockfishPath      string   `yaml:"stockfish_path"`
	StockfishFallbacks []string `yaml:"stockfish_fallbacks"`
	StockfishArgs      []string `yaml:"stockfish_args"`
	EnginesPerTier     int      `yaml:"engines_per_tier"`

	DefaultDifficulty string             `yaml:"default_difficulty"`
	Difficulties      []chess.Difficulty `yaml:"difficulties"`

	Game     GameConfig     `yaml:"game"`
	Geometry GeometryConfig `yaml:"geometry"`

	MessagesDir  string `yaml:"messages_dir"`
	HistoryLimit int    `yaml:"history_limit"`
}

type GameConfig struct {
	BoardSquares         int  `yaml:"board_squares"`
	InitialClockSec      int  `yaml:"initial_clock_sec"`
	CPUMoveDelayMs       int  `yaml:"cpu_move_delay_ms"`
	DisplayPauseMs       int  `yaml:"display_pause_ms"`
	AsyncOracle          bool `yaml:"async_oracle"`
	RelocateCastlingRook bool `yaml:"relocate_castling_rook"`
	FrameRate            int  `yaml:"frame_rate"`
}

// GeometryConfig holds the pixel layout used by the input and rendering boundary.
type GeometryConfig struct {
	BoardSize int `yaml:"board_size"`
	MarginTop int `yaml:"margin_top"`
}

func Default() *AppConfig {
	return &AppConfig{
		HTTPAddr:          ":8080",
		SnapshotTTLSec:    86400,
		DefaultDifficulty: chess.DefaultDifficultyName,
		Difficulties:      chess.DefaultDifficulties(),
		HistoryLimit:      10,
		Game: GameConfig{
			BoardSquares:    8,
			InitialClockSec: 600,
			CPUMoveDelayMs:  500,
			DisplayPauseMs:  500,
			FrameRate:       60,
		},
		Geometry: GeometryConfig{BoardSize: 800, MarginTop: 60},
	}
}

// Load reads CONFIG_FILE when set, applies environment overrides and validates.
func Load() (*AppConfig, error) {
	cfg := Default()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *AppConfig) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("HTTP_ADDR")); v != "" {
		c.HTTPAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_URL")); v != "" {
		c.RedisURL = v
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		c.DatabaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("SNAPSHOT_TTL")); v != "" { // seconds
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.SnapshotTTLSec = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("STOCKFISH_PATH")); v != "" {
		c.StockfishPath = v
	}
	if v := strings.TrimSpace(os.Getenv("STOCKFISH_FALLBACKS")); v != "" {
		c.StockfishFallbacks = splitList(v)
	}
	if v := strings.TrimSpace(os.Getenv("STOCKFISH_ARGS")); v != "" { // space separated
		c.StockfishArgs = strings.Fields(v)
	}
	if v := strings.TrimSpace(os.Getenv("ENGINES_PER_TIER")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.EnginesPerTier = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("DEFAULT_DIFFICULTY")); v != "" {
		c.DefaultDifficulty = v
	}
	if v := strings.TrimSpace(os.Getenv("MESSAGES_DIR")); v != "" {
		c.MessagesDir = v
	}
	if v := strings.TrimSpace(os.Getenv("HISTORY_LIMIT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.HistoryLimit = n
		}
	}

	if v := strings.TrimSpace(os.Getenv("INITIAL_CLOCK_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Game.InitialClockSec = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("CPU_MOVE_DELAY_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Game.CPUMoveDelayMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("ASYNC_ORACLE")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Game.AsyncOracle = b
		}
	}
	if v := strings.TrimSpace(os.Getenv("RELOCATE_CASTLING_ROOK")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Game.RelocateCastlingRook = b
		}
	}
	if v := strings.TrimSpace(os.Getenv("FRAME_RATE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Game.FrameRate = n
		}
	}
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (c *AppConfig) Validate() error {
	var errs []error
	if strings.TrimSpace(c.HTTPAddr) == "" {
		errs = append(errs, errors.New("HTTP_ADDR is required"))
	}
	if c.Game.BoardSquares != 8 {
		errs = append(errs, fmt.Errorf("game.board_squares must be 8, got %d", c.Game.BoardSquares))
	}
	if c.Game.InitialClockSec <= 0 {
		errs = append(errs, fmt.Errorf("game.initial_clock_sec must be > 0, got %d", c.Game.InitialClockSec))
	}
	if time.Duration(c.Game.CPUMoveDelayMs)*time.Millisecond < game.MinCPUMoveDelay {
		errs = append(errs, fmt.Errorf("game.cpu_move_delay_ms must be >= %d, got %d", game.MinCPUMoveDelay.Milliseconds(), c.Game.CPUMoveDelayMs))
	}
	if c.Game.DisplayPauseMs < 0 {
		errs = append(errs, fmt.Errorf("game.display_pause_ms must be >= 0, got %d", c.Game.DisplayPauseMs))
	}
	if c.Game.FrameRate < 1 || c.Game.FrameRate > 240 {
		errs = append(errs, fmt.Errorf("game.frame_rate must be in [1, 240], got %d", c.Game.FrameRate))
	}
	if c.Geometry.BoardSize < 8 || c.Geometry.MarginTop < 0 {
		errs = append(errs, fmt.Errorf("geometry: invalid board size %d / margin %d", c.Geometry.BoardSize, c.Geometry.MarginTop))
	}
	if _, err := c.DifficultyTable(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// DifficultyTable builds the tier table named by the configuration.
func (c *AppConfig) DifficultyTable() (*chess.DifficultyTable, error) {
	return chess.NewDifficultyTable(c.Difficulties, c.DefaultDifficulty)
}

func (c *AppConfig) SnapshotTTL() time.Duration {
	return time.Duration(c.SnapshotTTLSec) * time.Second
}

// Session converts the game section into a session configuration.
func (g GameConfig) Session() (game.Config, error) {
	gen, err := movegen.New(movegen.Config{Squares: g.BoardSquares})
	if err != nil {
		return game.Config{}, err
	}
	return game.Config{
		InitialClock:         time.Duration(g.InitialClockSec) * time.Second,
		CPUMoveDelay:         time.Duration(g.CPUMoveDelayMs) * time.Millisecond,
		DisplayPause:         time.Duration(g.DisplayPauseMs) * time.Millisecond,
		AsyncOracle:          g.AsyncOracle,
		RelocateCastlingRook: g.RelocateCastlingRook,
		Generator:            gen,
	}, nil
}

// FrameInterval is the period of the match loop.
func (g GameConfig) FrameInterval() time.Duration {
	if g.FrameRate <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(g.FrameRate)
}
