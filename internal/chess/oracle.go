// Package chess adapts a UCI engine into the move oracle used by computer
// opponents: tier lookup, engine discovery and per-match position tracking.
package chess

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/park285/cheese-board/internal/chess/uci"
)

type ProviderOption func(*providerOptions)

type providerOptions struct {
	capacity int
	args     []string
	logger   *zap.Logger
}

// WithCapacity caps live engine processes per tier.
func WithCapacity(n int) ProviderOption { return func(o *providerOptions) { o.capacity = n } }

// WithEngineArgs passes extra arguments to each engine process.
func WithEngineArgs(args ...string) ProviderOption {
	return func(o *providerOptions) { o.args = append([]string(nil), args...) }
}

func WithLogger(l *zap.Logger) ProviderOption {
	return func(o *providerOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// Provider hands out oracles backed by a shared engine pool.
type Provider struct {
	pool   *uci.Pool
	table  *DifficultyTable
	logger *zap.Logger
}

func NewProvider(binaryPath string, table *DifficultyTable, opts ...ProviderOption) (*Provider, error) {
	o := providerOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if table == nil {
		table = DefaultTable()
	}
	pool, err := uci.NewPool(uci.PoolConfig{BinaryPath: binaryPath, Args: o.args, PerOptionsCapacity: o.capacity})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOracleNotFound, err)
	}
	return &Provider{pool: pool, table: table, logger: o.logger}, nil
}

// Open acquires an engine for the named tier and resets it to the start
// position. The returned Oracle must be closed to give the engine back.
func (p *Provider) Open(ctx context.Context, difficulty string) (*Oracle, error) {
	d, err := p.table.Get(difficulty)
	if err != nil {
		return nil, err
	}
	goCmd, err := BuildGoCommand(d)
	if err != nil {
		return nil, err
	}
	o := &Oracle{provider: p, difficulty: d, goCmd: goCmd}
	if err := o.ensureSession(ctx); err != nil {
		return nil, err
	}
	p.logger.Debug("oracle_open", zap.String("difficulty", d.Name))
	return o, nil
}

func (p *Provider) Close() error { return p.pool.Close() }

// Oracle tracks one match's move list against a pooled engine. It is safe for
// concurrent use.
type Oracle struct {
	provider   *Provider
	difficulty Difficulty
	goCmd      []string

	mu      sync.Mutex
	session *uci.Session
	moves   []string
	closed  bool
}

var errOracleClosed = errors.New("oracle closed")

func (o *Oracle) Difficulty() Difficulty { return o.difficulty }

// ensureSession must be called with o.mu held, or before o is shared.
func (o *Oracle) ensureSession(ctx context.Context) error {
	if o.closed {
		return errOracleClosed
	}
	if o.session != nil {
		return nil
	}
	s, err := o.provider.pool.Acquire(ctx, optionsFor(o.difficulty))
	if err != nil {
		return fmt.Errorf("acquire engine: %w", err)
	}
	if err := s.NewGame(ctx); err != nil {
		o.provider.pool.Release(s, err)
		return fmt.Errorf("new game: %w", err)
	}
	o.session = s
	return nil
}

// drop gives a misbehaving session back for disposal; the next call starts a fresh one.
func (o *Oracle) drop(err error) {
	if o.session != nil {
		o.provider.pool.Release(o.session, err)
		o.session = nil
	}
}

// BestMove asks the engine for a reply to history (moves from the start
// position), which replaces the tracked move list. ok is false when the engine
// has no move.
func (o *Oracle) BestMove(ctx context.Context, history []string) (string, bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.moves = append(o.moves[:0], history...)
	if err := o.ensureSession(ctx); err != nil {
		return "", false, err
	}
	resp, err := o.session.Search(ctx, uci.SearchRequest{
		Moves:       append([]string(nil), o.moves...),
		Limits:      limitsFor(o.difficulty),
		GoOverrides: o.goCmd,
	})
	if err != nil {
		o.drop(err)
		return "", false, err
	}
	fields := []zap.Field{
		zap.String("difficulty", o.difficulty.Name),
		zap.Int("ply", len(o.moves)),
		zap.String("move", resp.BestMove),
	}
	if len(resp.Candidates) > 0 {
		fields = append(fields, zap.Int("eval_cp", resp.Candidates[0].EvalCP))
	}
	o.provider.logger.Debug("oracle_move", fields...)
	if resp.BestMove == "" {
		return "", false, nil
	}
	return resp.BestMove, true, nil
}

// ApplyMove appends a played move to the tracked position.
func (o *Oracle) ApplyMove(_ context.Context, move string) error {
	if n := len(move); n != 4 && n != 5 {
		return fmt.Errorf("apply move %q: want 4 or 5 characters", move)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return errOracleClosed
	}
	o.moves = append(o.moves, move)
	return nil
}

// ResetPosition clears the move list and starts a new engine game.
func (o *Oracle) ResetPosition(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.moves = nil
	if err := o.ensureSession(ctx); err != nil {
		return err
	}
	if err := o.session.NewGame(ctx); err != nil {
		o.drop(err)
		return err
	}
	return nil
}

// Close returns the engine to the pool.
func (o *Oracle) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true
	o.drop(nil)
	return nil
}
