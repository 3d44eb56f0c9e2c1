package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" || cfg.SnapshotTTL() != 24*time.Hour {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	sc, err := cfg.Game.Session()
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if sc.InitialClock != 600*time.Second || sc.CPUMoveDelay != 500*time.Millisecond || sc.Generator == nil {
		t.Fatalf("session config %+v", sc)
	}
	if cfg.Game.FrameInterval() != time.Second/60 {
		t.Fatalf("frame interval %v", cfg.Game.FrameInterval())
	}
	table, err := cfg.DifficultyTable()
	if err != nil || table.Default() != "medium" {
		t.Fatalf("difficulty table: %v", err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("HTTP_ADDR", "127.0.0.1:9000")
	t.Setenv("SNAPSHOT_TTL", "60")
	t.Setenv("STOCKFISH_FALLBACKS", " /a/sf , ,/b/sf")
	t.Setenv("STOCKFISH_ARGS", "--bench-off  -q")
	t.Setenv("DEFAULT_DIFFICULTY", "hard")
	t.Setenv("ASYNC_ORACLE", "true")
	t.Setenv("INITIAL_CLOCK_SEC", "notanumber")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != "127.0.0.1:9000" || cfg.SnapshotTTLSec != 60 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if strings.Join(cfg.StockfishFallbacks, "|") != "/a/sf|/b/sf" {
		t.Fatalf("fallbacks %v", cfg.StockfishFallbacks)
	}
	if strings.Join(cfg.StockfishArgs, "|") != "--bench-off|-q" {
		t.Fatalf("engine args %v", cfg.StockfishArgs)
	}
	if !cfg.Game.AsyncOracle || cfg.Game.InitialClockSec != 600 {
		t.Fatalf("game overrides %+v", cfg.Game)
	}
	if table, _ := cfg.DifficultyTable(); table.Default() != "hard" {
		t.Fatalf("default difficulty %q", table.Default())
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cheese.yaml")
	body := `
http_addr: ":7000"
default_difficulty: club
difficulties:
  - name: club
    skill_level: 6
    depth: 5
game:
  board_squares: 8
  initial_clock_sec: 300
  cpu_move_delay_ms: 750
  frame_rate: 30
  relocate_castling_rook: true
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":7000" || cfg.Game.InitialClockSec != 300 || !cfg.Game.RelocateCastlingRook {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	// sections missing from the file keep their defaults
	if cfg.Game.DisplayPauseMs != 500 || cfg.Geometry.BoardSize != 800 {
		t.Fatalf("defaults lost: %+v", cfg)
	}
	table, err := cfg.DifficultyTable()
	if err != nil || table.Default() != "club" || len(table.Names()) != 1 {
		t.Fatalf("difficulty table from file: %v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*AppConfig){
		"squares":    func(c *AppConfig) { c.Game.BoardSquares = 10 },
		"delay":      func(c *AppConfig) { c.Game.CPUMoveDelayMs = 100 },
		"frame":      func(c *AppConfig) { c.Game.FrameRate = 0 },
		"clock":      func(c *AppConfig) { c.Game.InitialClockSec = 0 },
		"difficulty": func(c *AppConfig) { c.DefaultDifficulty = "nope" },
		"skill":      func(c *AppConfig) { c.Difficulties[0].SkillLevel = 30 },
		"addr":       func(c *AppConfig) { c.HTTPAddr = " " },
	}
	for name, mutate := range cases {
		cfg := Default()
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
