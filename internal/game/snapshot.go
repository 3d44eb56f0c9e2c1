package game

import (
	"fmt"
	"time"

	"github.com/park285/cheese-board/internal/board"
	"github.com/park285/cheese-board/internal/movegen"
)

// Snapshot is the serialisable state of a session. Selection is transient and
// not included.
type Snapshot struct {
	Mode         string   `json:"mode"`
	Difficulty   string   `json:"difficulty,omitempty"`
	Turn         string   `json:"turn"`
	Placement    string   `json:"placement"`
	WhiteClockMs int64    `json:"white_clock_ms"`
	BlackClockMs int64    `json:"black_clock_ms"`
	State        string   `json:"state"`
	History      []string `json:"history,omitempty"`
	Winner       string   `json:"winner,omitempty"`
	LastMove     string   `json:"last_move,omitempty"`
}

// Snapshot commits nothing; clocks are reported as of the last update.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		Mode:         s.mode.String(),
		Difficulty:   s.Difficulty(),
		Turn:         s.turn.String(),
		Placement:    s.board.Placement(),
		WhiteClockMs: s.clocks[board.White].Milliseconds(),
		BlackClockMs: s.clocks[board.Black].Milliseconds(),
		State:        s.state.String(),
		History:      s.History(),
	}
	if s.state == PieceSelected {
		snap.State = AwaitingSelection.String()
	}
	if w, ok := s.Winner(); ok {
		snap.Winner = w.String()
	}
	if m, ok := s.LastMove(); ok {
		snap.LastMove = m.UCI()
	}
	return snap
}

// Restore replaces the session state with snap. The mode must match the
// session's. A pending computer move restarts its scheduling delay.
func (s *Session) Restore(snap Snapshot) error {
	mode, err := movegen.ParseMode(snap.Mode)
	if err != nil {
		return err
	}
	if mode != s.mode {
		return fmt.Errorf("restore: snapshot mode %s does not match session mode %s", mode, s.mode)
	}
	b, err := board.ParsePlacement(snap.Placement)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	turn, err := board.ParseColor(snap.Turn)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	state, err := ParseState(snap.State)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	if state == PieceSelected {
		state = AwaitingSelection
	}
	if state == CPUPending && mode != movegen.HumanVsComputer {
		return fmt.Errorf("restore: %s state in %s mode", state, mode)
	}
	var last board.Move
	hasLast := false
	if snap.LastMove != "" {
		if last, err = board.ParseMove(snap.LastMove); err != nil {
			return fmt.Errorf("restore: %w", err)
		}
		hasLast = true
	}
	var winner board.Color
	hasWin := false
	if snap.Winner != "" {
		if winner, err = board.ParseColor(snap.Winner); err != nil {
			return fmt.Errorf("restore: %w", err)
		}
		hasWin = true
	}

	s.stopPending()
	now := s.now()
	s.board = b
	s.turn = turn
	s.state = state
	s.clocks = [2]time.Duration{
		time.Duration(snap.WhiteClockMs) * time.Millisecond,
		time.Duration(snap.BlackClockMs) * time.Millisecond,
	}
	s.lastUpdate = now
	s.clearSelection()
	s.history = append([]string(nil), snap.History...)
	s.lastMove, s.hasLast = last, hasLast
	s.winner, s.hasWin = winner, hasWin
	s.cpuSince = now
	s.pauseUntil = time.Time{}
	return nil
}
