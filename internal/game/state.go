package game

import (
	"context"
	"errors"
	"fmt"
)

// State is the phase of a session.
type State uint8

const (
	AwaitingSelection State = iota
	PieceSelected
	CPUPending
	Finished
)

var stateNames = [...]string{"awaiting_selection", "piece_selected", "cpu_pending", "finished"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

func ParseState(s string) (State, error) {
	for i, name := range stateNames {
		if name == s {
			return State(i), nil
		}
	}
	return AwaitingSelection, fmt.Errorf("unknown state %q", s)
}

var (
	ErrGameFinished     = errors.New("game finished")
	ErrOutOfBounds      = errors.New("square out of bounds")
	ErrComputerThinking = errors.New("computer is thinking")
	ErrEmptySource      = errors.New("no piece on source square")
	ErrNotCandidate     = errors.New("destination is not a candidate")
	ErrOracleRequired   = errors.New("human-vs-computer mode requires an oracle")
	ErrUnexpectedOracle = errors.New("human-vs-human mode takes no oracle")
)

// Oracle is the external best-move provider used in human-vs-computer mode.
// Moves are 4-character source+destination codes such as "e7e5".
type Oracle interface {
	// BestMove returns the suggested reply to history; ok=false means no move.
	BestMove(ctx context.Context, history []string) (move string, ok bool, err error)
	ApplyMove(ctx context.Context, move string) error
	ResetPosition(ctx context.Context) error
}

// Opponent is either Human{} or Computer{...}.
type Opponent interface {
	opponent()
}

// Human is the black side in human-vs-human mode.
type Human struct{}

// Computer plays black through an Oracle.
type Computer struct {
	Oracle     Oracle
	Difficulty string
}

func (Human) opponent()    {}
func (Computer) opponent() {}

// Outcome describes what a click did.
type Outcome uint8

const (
	Ignored Outcome = iota
	Selected
	Deselected
	Moved
)

var outcomeNames = [...]string{"ignored", "selected", "deselected", "moved"}

func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return "unknown"
}

// Event describes what a Tick did.
type Event uint8

const (
	NoEvent Event = iota
	ClockExpired
	ComputerMoved
	ComputerSkipped
)
