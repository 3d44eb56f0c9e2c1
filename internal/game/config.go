package game

import (
	"time"

	"github.com/park285/cheese-board/internal/movegen"
)

const (
	// DefaultInitialClock is the time each side starts with.
	DefaultInitialClock = 600 * time.Second
	// MinCPUMoveDelay is the lower bound of the wait before the oracle is queried.
	MinCPUMoveDelay     = 500 * time.Millisecond
	DefaultDisplayPause = 500 * time.Millisecond
)

// Config is the explicit configuration of a session.
type Config struct {
	InitialClock time.Duration
	CPUMoveDelay time.Duration
	// DisplayPause keeps the computer's move on screen before input resumes.
	// It is not charged to either clock.
	DisplayPause time.Duration
	// AsyncOracle runs the oracle query on a goroutine and lets Tick poll for it.
	AsyncOracle bool
	// RelocateCastlingRook also moves the rook when a king castles.
	RelocateCastlingRook bool
	Generator            *movegen.Generator
}

func DefaultConfig() Config {
	return Config{
		InitialClock: DefaultInitialClock,
		CPUMoveDelay: MinCPUMoveDelay,
		DisplayPause: DefaultDisplayPause,
		Generator:    movegen.Default(),
	}
}

func (c Config) normalized() Config {
	if c.InitialClock <= 0 {
		c.InitialClock = DefaultInitialClock
	}
	if c.CPUMoveDelay < MinCPUMoveDelay {
		c.CPUMoveDelay = MinCPUMoveDelay
	}
	if c.DisplayPause < 0 {
		c.DisplayPause = 0
	}
	if c.Generator == nil {
		c.Generator = movegen.Default()
	}
	return c
}
