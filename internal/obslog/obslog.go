// Package obslog owns the process-wide zap logger.
package obslog

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var current atomic.Pointer[zap.Logger]

func init() { current.Store(zap.NewNop()) }

// L returns the installed logger, a no-op one until InitFromEnv or Set runs.
func L() *zap.Logger { return current.Load() }

// Set installs l; nil installs the no-op logger.
func Set(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	current.Store(l)
}

// Settings mirrors the LOG_* environment variables.
type Settings struct {
	Level   string
	Console bool
	ToFile  bool
	File    string
	// Format is legacy, json or console. legacy is pipe-separated with caller info.
	Format string
	Caller bool
}

// SettingsFromEnv reads LOG_LEVEL, LOG_TO_CONSOLE, LOG_TO_FILE, LOG_FILE,
// LOG_FORMAT and LOG_CALLER. Unknown formats fall back to legacy.
func SettingsFromEnv() Settings {
	s := Settings{
		Level:   envString("LOG_LEVEL", "info"),
		Console: envBool("LOG_TO_CONSOLE", true),
		ToFile:  envBool("LOG_TO_FILE", false),
		File:    envString("LOG_FILE", filepath.Join("logs", "cheese-board.log")),
		Format:  strings.ToLower(envString("LOG_FORMAT", "legacy")),
		Caller:  envBool("LOG_CALLER", false),
	}
	switch s.Format {
	case "legacy", "json", "console":
	default:
		s.Format = "legacy"
	}
	return s
}

func InitFromEnv() error {
	l, err := Build(SettingsFromEnv())
	if err != nil {
		return err
	}
	Set(l)
	return nil
}

// Build returns a logger writing to stdout, to s.File, or both. With neither
// enabled it still writes to stdout so nothing is silently lost.
func Build(s Settings) (*zap.Logger, error) {
	var sinks []string
	if s.Console {
		sinks = append(sinks, "stdout")
	}
	if s.ToFile {
		if dir := filepath.Dir(s.File); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create log dir: %w", err)
			}
		}
		sinks = append(sinks, s.File)
	}
	if len(sinks) == 0 {
		sinks = []string{"stdout"}
	}

	encoding, encCfg := encoderFor(s.Format)
	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(parseLevel(s.Level)),
		Encoding:         encoding,
		EncoderConfig:    encCfg,
		OutputPaths:      sinks,
		ErrorOutputPaths: []string{"stderr"},
		DisableCaller:    !s.Caller && s.Format != "legacy",
	}
	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l, nil
}

func encoderFor(format string) (string, zapcore.EncoderConfig) {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	switch format {
	case "json":
		cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
		return "json", cfg
	case "console":
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		return "console", cfg
	}
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.ConsoleSeparator = " | "
	return "console", cfg
}

// parseLevel accepts zap level names plus "warning"; anything else is info.
func parseLevel(s string) zapcore.Level {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "warning" {
		name = "warn"
	}
	lvl, err := zapcore.ParseLevel(name)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return b
}
