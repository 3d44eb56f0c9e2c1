// Package game implements the match state machine: selection, move
// application, turn switching, per-side clocks and the computer's turn.
//
// A Session is not safe for concurrent use; callers serialise access.
package game

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/park285/cheese-board/internal/board"
	"github.com/park285/cheese-board/internal/movegen"
)

type Option func(*Session)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSleeper replaces time.Sleep for the display pause.
func WithSleeper(sleep func(time.Duration)) Option {
	return func(s *Session) {
		if sleep != nil {
			s.sleep = sleep
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

type oracleResult struct {
	move string
	ok   bool
	err  error
}

type Session struct {
	cfg    Config
	mode   movegen.Mode
	opp    Opponent
	logger *zap.Logger
	now    func() time.Time
	sleep  func(time.Duration)

	board      board.Board
	turn       board.Color
	state      State
	clocks     [2]time.Duration
	lastUpdate time.Time

	selected   board.Square
	hasSel     bool
	highlights []board.Square

	history  []string
	lastMove board.Move
	hasLast  bool
	winner   board.Color
	hasWin   bool

	cpuSince   time.Time
	pauseUntil time.Time
	pending    chan oracleResult
	cancel     context.CancelFunc
}

// NewSession starts a match in the starting position with white to move.
// HumanVsComputer requires a Computer opponent with an Oracle.
func NewSession(cfg Config, mode movegen.Mode, opp Opponent, opts ...Option) (*Session, error) {
	if opp == nil {
		opp = Human{}
	}
	switch o := opp.(type) {
	case Human:
		if mode == movegen.HumanVsComputer {
			return nil, ErrOracleRequired
		}
	case Computer:
		if mode != movegen.HumanVsComputer {
			return nil, ErrUnexpectedOracle
		}
		if o.Oracle == nil {
			return nil, ErrOracleRequired
		}
	default:
		return nil, fmt.Errorf("unsupported opponent %T", opp)
	}
	s := &Session{
		cfg:    cfg.normalized(),
		mode:   mode,
		opp:    opp,
		logger: zap.NewNop(),
		now:    time.Now,
		sleep:  time.Sleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.resetLocal()
	return s, nil
}

func (s *Session) resetLocal() {
	s.stopPending()
	s.board = board.New()
	s.turn = board.White
	s.state = AwaitingSelection
	s.clocks = [2]time.Duration{s.cfg.InitialClock, s.cfg.InitialClock}
	s.lastUpdate = s.now()
	s.clearSelection()
	s.history = nil
	s.lastMove, s.hasLast = board.Move{}, false
	s.winner, s.hasWin = board.White, false
	s.cpuSince = time.Time{}
	s.pauseUntil = time.Time{}
}

// Reset restores the starting position, clocks and turn, and resets the oracle.
// The oracle goes first; when it fails the session keeps the current game.
func (s *Session) Reset(ctx context.Context) error {
	if c, ok := s.opp.(Computer); ok {
		if err := c.Oracle.ResetPosition(ctx); err != nil {
			return fmt.Errorf("reset oracle: %w", err)
		}
	}
	s.resetLocal()
	return nil
}

// Close stops a pending asynchronous oracle query.
func (s *Session) Close() { s.stopPending() }

func (s *Session) stopPending() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.pending = nil
}

func (s *Session) clearSelection() {
	s.selected, s.hasSel = board.Square{}, false
	s.highlights = nil
}

// Click handles a click on sq. With no selection, a piece of the side to move
// (white only against the computer) becomes selected. With a selection, a
// click on a highlighted square plays the move and any other click clears it.
func (s *Session) Click(ctx context.Context, sq board.Square) (Outcome, error) {
	if s.state == Finished {
		return Ignored, ErrGameFinished
	}
	if !sq.Valid() {
		return Ignored, ErrOutOfBounds
	}
	now := s.now()
	if s.state == CPUPending || now.Before(s.pauseUntil) {
		return Ignored, ErrComputerThinking
	}
	if s.updateClock(now) {
		return Ignored, ErrGameFinished
	}

	if s.state == PieceSelected {
		from := s.selected
		if !movegen.Contains(s.highlights, sq) {
			s.clearSelection()
			s.state = AwaitingSelection
			return Deselected, nil
		}
		if err := s.applyMove(ctx, board.Move{From: from, To: sq}, now); err != nil {
			s.clearSelection()
			s.state = AwaitingSelection
			return Ignored, err
		}
		return Moved, nil
	}

	p, ok := s.board.PieceAt(sq)
	if !ok || p.Color != s.turn {
		return Ignored, nil
	}
	if s.mode == movegen.HumanVsComputer && p.Color != board.White {
		return Ignored, nil
	}
	s.selected, s.hasSel = sq, true
	s.highlights = s.cfg.Generator.Generate(p, sq, &s.board, s.mode)
	s.state = PieceSelected
	return Selected, nil
}

// Play applies the move from -> to for the side to move, provided to is a
// candidate of the piece on from. It is the programmatic equivalent of two clicks.
func (s *Session) Play(ctx context.Context, mv board.Move) error {
	if s.state == Finished {
		return ErrGameFinished
	}
	if !mv.From.Valid() || !mv.To.Valid() {
		return ErrOutOfBounds
	}
	now := s.now()
	if s.state == CPUPending || now.Before(s.pauseUntil) {
		return ErrComputerThinking
	}
	if s.updateClock(now) {
		return ErrGameFinished
	}
	p, ok := s.board.PieceAt(mv.From)
	if !ok {
		return ErrEmptySource
	}
	if p.Color != s.turn || !movegen.Contains(s.cfg.Generator.Generate(p, mv.From, &s.board, s.mode), mv.To) {
		return ErrNotCandidate
	}
	s.clearSelection()
	return s.applyMove(ctx, mv, now)
}

// applyMove moves the piece, commits the mover's clock and hands the turn over.
func (s *Session) applyMove(ctx context.Context, mv board.Move, now time.Time) error {
	p, ok := s.board.PieceAt(mv.From)
	if !ok {
		return ErrEmptySource
	}
	s.updateClock(now)
	s.board.Place(mv.To, p)
	s.board.Clear(mv.From)
	if s.cfg.RelocateCastlingRook && p.Kind == board.King {
		if rf, rt, hop := movegen.RookHop(mv.From, mv.To); hop {
			if r, ok := s.board.PieceAt(rf); ok && r == board.NewPiece(p.Color, board.Rook) {
				s.board.Place(rt, r)
				s.board.Clear(rf)
			}
		}
	}
	code := mv.UCI()
	s.history = append(s.history, code)
	s.lastMove, s.hasLast = mv, true
	s.clearSelection()
	s.turn = s.turn.Opposite()
	s.lastUpdate = now

	c, computer := s.opp.(Computer)
	if !computer {
		s.state = AwaitingSelection
		return nil
	}
	if err := c.Oracle.ApplyMove(ctx, code); err != nil {
		s.logger.Warn("oracle_apply_failed", zap.String("move", code), zap.Error(err))
	}
	if p.Color == board.White {
		s.state = CPUPending
		s.cpuSince = now
	} else {
		s.state = AwaitingSelection
	}
	return nil
}

// updateClock charges the time since the last update to the side to move and
// reports whether the game has ended. Time inside a display pause is free.
func (s *Session) updateClock(now time.Time) bool {
	if s.state == Finished {
		return true
	}
	from := s.lastUpdate
	if s.pauseUntil.After(from) {
		from = s.pauseUntil
	}
	if now.After(from) {
		s.clocks[s.turn] -= now.Sub(from)
	}
	if now.After(s.lastUpdate) {
		s.lastUpdate = now
	}
	if s.clocks[s.turn] <= 0 {
		s.finish(s.turn.Opposite())
		return true
	}
	return false
}

func (s *Session) finish(winner board.Color) {
	s.stopPending()
	if s.clocks[winner.Opposite()] < 0 {
		s.clocks[winner.Opposite()] = 0
	}
	s.clearSelection()
	s.state = Finished
	s.winner, s.hasWin = winner, true
	s.logger.Info("game_finished", zap.String("winner", winner.String()), zap.Int("moves", len(s.history)))
}

// Tick advances the clock of the side to move and, when the computer is due,
// queries the oracle. It is meant to be called once per frame.
func (s *Session) Tick(ctx context.Context) Event {
	if s.state == Finished {
		return NoEvent
	}
	now := s.now()
	if s.updateClock(now) {
		return ClockExpired
	}
	if s.state != CPUPending || now.Sub(s.cpuSince) < s.cfg.CPUMoveDelay {
		return NoEvent
	}
	c := s.opp.(Computer)
	if !s.cfg.AsyncOracle {
		move, ok, err := c.Oracle.BestMove(ctx, s.History())
		return s.onOracleResult(ctx, oracleResult{move: move, ok: ok, err: err})
	}
	if s.pending == nil {
		s.startQuery(ctx, c.Oracle)
		return NoEvent
	}
	select {
	case r := <-s.pending:
		s.pending, s.cancel = nil, nil
		return s.onOracleResult(ctx, r)
	default:
		return NoEvent
	}
}

func (s *Session) startQuery(ctx context.Context, o Oracle) {
	qctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	ch := make(chan oracleResult, 1)
	s.pending, s.cancel = ch, cancel
	history := s.History()
	go func() {
		defer cancel()
		move, ok, err := o.BestMove(qctx, history)
		ch <- oracleResult{move: move, ok: ok, err: err}
	}()
}

// onOracleResult applies the computer's move. No move, an error or an
// unusable move all skip black's turn without touching the board.
func (s *Session) onOracleResult(ctx context.Context, r oracleResult) Event {
	now := s.now()
	if s.updateClock(now) {
		return ClockExpired
	}
	mv, err := parseOracleMove(r)
	if err == nil {
		if p, ok := s.board.PieceAt(mv.From); !ok || p.Color != s.turn {
			err = fmt.Errorf("oracle move %s: %w", mv.UCI(), ErrEmptySource)
		}
	}
	if err != nil {
		s.logger.Info("cpu_move_skipped", zap.Error(err))
		s.turn = s.turn.Opposite()
		s.state = AwaitingSelection
		return ComputerSkipped
	}
	if err := s.applyMove(ctx, mv, now); err != nil {
		s.logger.Warn("cpu_move_failed", zap.Error(err))
		return ComputerSkipped
	}
	s.logger.Debug("cpu_move", zap.String("move", mv.UCI()))
	if s.cfg.DisplayPause > 0 {
		if s.cfg.AsyncOracle {
			s.pauseUntil = now.Add(s.cfg.DisplayPause)
		} else {
			s.sleep(s.cfg.DisplayPause)
			s.lastUpdate = s.now()
		}
	}
	return ComputerMoved
}

func parseOracleMove(r oracleResult) (board.Move, error) {
	if r.err != nil {
		return board.Move{}, r.err
	}
	if !r.ok || r.move == "" {
		return board.Move{}, fmt.Errorf("oracle returned no move")
	}
	code := r.move
	// promotion suffixes are dropped; pawns are never promoted
	if len(code) == 5 {
		code = code[:4]
	}
	return board.ParseMove(code)
}

func (s *Session) Board() board.Board { return s.board }

func (s *Session) Turn() board.Color { return s.turn }

func (s *Session) State() State { return s.state }

func (s *Session) Mode() movegen.Mode { return s.mode }

func (s *Session) Clock(c board.Color) time.Duration { return s.clocks[c] }

// Difficulty is the oracle's tier name, empty in human-vs-human mode.
func (s *Session) Difficulty() string {
	if c, ok := s.opp.(Computer); ok {
		return c.Difficulty
	}
	return ""
}

func (s *Session) Selected() (board.Square, bool) { return s.selected, s.hasSel }

func (s *Session) Highlights() []board.Square {
	return append([]board.Square(nil), s.highlights...)
}

func (s *Session) LastMove() (board.Move, bool) { return s.lastMove, s.hasLast }

func (s *Session) History() []string { return append([]string(nil), s.history...) }

// Winner reports the side that won on time.
func (s *Session) Winner() (board.Color, bool) { return s.winner, s.hasWin }
