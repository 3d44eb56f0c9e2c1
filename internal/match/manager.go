// Package match keeps the live matches of a process: it creates sessions,
// drives them from a frame loop, persists snapshots and records finished games.
package match

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/cheese-board/internal/board"
	"github.com/park285/cheese-board/internal/game"
	"github.com/park285/cheese-board/internal/movegen"
	"github.com/park285/cheese-board/internal/msgcat"
	"github.com/park285/cheese-board/internal/record"
	"github.com/park285/cheese-board/internal/render"
	"github.com/park285/cheese-board/internal/store"
)

var (
	ErrMatchNotFound     = errors.New("match not found")
	ErrOracleUnavailable = errors.New("computer opponent unavailable")
)

const maxMessages = 8

// SnapshotStore persists live matches. *store.Store implements it.
type SnapshotStore interface {
	Save(ctx context.Context, rec *store.Record) error
	Load(ctx context.Context, id string) (*store.Record, error)
	Delete(ctx context.Context, id string) error
}

// Announcement is a user-facing message about a match.
type Announcement struct {
	MatchID string
	Key     string
	Text    string
}

type Option func(*Manager)

// WithOracleSource sets where computer opponents come from. err is the
// construction failure of the source, reported when a computer match is requested.
func WithOracleSource(src OracleSource, err error) Option {
	return func(m *Manager) { m.source, m.sourceErr = src, err }
}

func WithStore(s SnapshotStore) Option          { return func(m *Manager) { m.store = s } }
func WithRepository(r record.Repository) Option { return func(m *Manager) { m.repo = r } }
func WithCatalog(c *msgcat.Catalog) Option      { return func(m *Manager) { m.catalog = c } }

// WithAnnouncer receives every announcement in addition to the per-match log.
func WithAnnouncer(fn func(Announcement)) Option { return func(m *Manager) { m.announcer = fn } }

func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithSessionOptions are passed to every session the manager creates.
func WithSessionOptions(opts ...game.Option) Option {
	return func(m *Manager) { m.sessionOpts = append(m.sessionOpts, opts...) }
}

type Manager struct {
	cfg         game.Config
	frame       time.Duration
	source      OracleSource
	sourceErr   error
	store       SnapshotStore
	repo        record.Repository
	catalog     *msgcat.Catalog
	announcer   func(Announcement)
	logger      *zap.Logger
	now         func() time.Time
	sessionOpts []game.Option

	mu      sync.RWMutex
	matches map[string]*Match
}

// Match is one live session. Its mutex serialises clicks and ticks.
type Match struct {
	ID         string
	CreatedAt  time.Time
	difficulty string

	mu       sync.Mutex
	session  *game.Session
	oracle   EngineOracle
	recorded bool
	messages []string
}

// New builds a manager. frame is the period of Run; zero means 60 Hz.
func New(cfg game.Config, frame time.Duration, opts ...Option) *Manager {
	if frame <= 0 {
		frame = time.Second / 60
	}
	m := &Manager{
		cfg:     cfg,
		frame:   frame,
		logger:  zap.NewNop(),
		now:     time.Now,
		matches: make(map[string]*Match),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.repo == nil {
		m.repo = record.NewMemoryRepository()
	}
	if m.catalog == nil {
		m.catalog = msgcat.MustDefault()
	}
	return m
}

func (m *Manager) newSession(mode movegen.Mode, opp game.Opponent, id string) (*game.Session, error) {
	opts := append([]game.Option{
		game.WithClock(m.now),
		game.WithLogger(m.logger.With(zap.String("match", id))),
	}, m.sessionOpts...)
	return game.NewSession(m.cfg, mode, opp, opts...)
}

func (m *Manager) openOpponent(ctx context.Context, mode movegen.Mode, difficulty string) (game.Opponent, EngineOracle, string, error) {
	if mode != movegen.HumanVsComputer {
		return game.Human{}, nil, "", nil
	}
	if m.source == nil {
		if m.sourceErr != nil {
			return nil, nil, "", fmt.Errorf("%w: %w", ErrOracleUnavailable, m.sourceErr)
		}
		return nil, nil, "", ErrOracleUnavailable
	}
	o, name, err := m.source.Open(ctx, difficulty)
	if err != nil {
		return nil, nil, "", fmt.Errorf("%w: %w", ErrOracleUnavailable, err)
	}
	return game.Computer{Oracle: o, Difficulty: name}, o, name, nil
}

// Create starts a match. A computer match fails with ErrOracleUnavailable when
// no engine can be opened.
func (m *Manager) Create(ctx context.Context, mode movegen.Mode, difficulty string) (*View, error) {
	id := uuid.NewString()
	opp, oracle, name, err := m.openOpponent(ctx, mode, difficulty)
	if err != nil {
		m.logger.Warn("match_create_failed", zap.String("mode", mode.String()), zap.Error(err))
		return nil, err
	}
	sess, err := m.newSession(mode, opp, id)
	if err != nil {
		closeOracle(oracle)
		return nil, err
	}
	mt := &Match{ID: id, CreatedAt: m.now(), difficulty: name, session: sess, oracle: oracle}

	m.mu.Lock()
	m.matches[id] = mt
	m.mu.Unlock()

	mt.mu.Lock()
	defer mt.mu.Unlock()
	m.announce(mt, "match.created", map[string]any{"ID": id, "Mode": mode.String(), "Difficulty": name})
	m.persist(ctx, mt)
	m.logger.Info("match_create", zap.String("match", id), zap.String("mode", mode.String()), zap.String("difficulty", name))
	return mt.view(), nil
}

func (m *Manager) lookup(id string) (*Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mt, ok := m.matches[strings.TrimSpace(id)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, id)
	}
	return mt, nil
}

func (m *Manager) Get(id string) (*View, error) {
	mt, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	mt.mu.Lock()
	defer mt.mu.Unlock()
	return mt.view(), nil
}

// IDs lists live matches in creation order.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	list := make([]*Match, 0, len(m.matches))
	for _, mt := range m.matches {
		list = append(list, mt)
	}
	m.mu.RUnlock()
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
	ids := make([]string, len(list))
	for i, mt := range list {
		ids[i] = mt.ID
	}
	return ids
}

// Click forwards a board click to the match.
func (m *Manager) Click(ctx context.Context, id string, sq board.Square) (game.Outcome, *View, error) {
	mt, err := m.lookup(id)
	if err != nil {
		return game.Ignored, nil, err
	}
	mt.mu.Lock()
	defer mt.mu.Unlock()
	out, err := mt.session.Click(ctx, sq)
	if out == game.Moved || mt.session.State() == game.Finished {
		m.settle(ctx, mt)
	}
	return out, mt.view(), err
}

// Reset restarts the match from the starting position.
func (m *Manager) Reset(ctx context.Context, id string) (*View, error) {
	mt, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	mt.mu.Lock()
	defer mt.mu.Unlock()
	if err := mt.session.Reset(ctx); err != nil {
		return nil, err
	}
	mt.recorded = false
	mt.messages = nil
	m.announce(mt, "match.reset", map[string]any{"ID": mt.ID})
	m.persist(ctx, mt)
	return mt.view(), nil
}

// Close ends the match and forgets it, returning the engine to its pool.
func (m *Manager) Close(ctx context.Context, id string) error {
	m.mu.Lock()
	mt, ok := m.matches[strings.TrimSpace(id)]
	delete(m.matches, strings.TrimSpace(id))
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrMatchNotFound, id)
	}
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.session.Close()
	closeOracle(mt.oracle)
	mt.oracle = nil
	if m.store != nil {
		if err := m.store.Delete(ctx, mt.ID); err != nil {
			m.logger.Warn("match_snapshot_delete_failed", zap.String("match", mt.ID), zap.Error(err))
		}
	}
	m.announce(mt, "match.closed", map[string]any{"ID": mt.ID})
	m.logger.Info("match_close", zap.String("match", mt.ID))
	return nil
}

// Resume brings a stored match back to life after a restart.
func (m *Manager) Resume(ctx context.Context, id string) (*View, error) {
	if mt, err := m.lookup(id); err == nil {
		mt.mu.Lock()
		defer mt.mu.Unlock()
		return mt.view(), nil
	}
	if m.store == nil {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, id)
	}
	rec, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load match %s: %w", id, err)
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, id)
	}
	mode, err := movegen.ParseMode(rec.Snapshot.Mode)
	if err != nil {
		return nil, err
	}
	opp, oracle, name, err := m.openOpponent(ctx, mode, rec.Snapshot.Difficulty)
	if err != nil {
		return nil, err
	}
	sess, err := m.newSession(mode, opp, rec.ID)
	if err == nil {
		err = sess.Restore(rec.Snapshot)
	}
	if err == nil && oracle != nil {
		err = replay(ctx, oracle, rec.Snapshot.History)
	}
	if err != nil {
		closeOracle(oracle)
		return nil, fmt.Errorf("resume match %s: %w", id, err)
	}
	mt := &Match{ID: rec.ID, CreatedAt: rec.CreatedAt, difficulty: name, session: sess, oracle: oracle}
	// a game that finished before the restart was recorded then
	mt.recorded = sess.State() == game.Finished

	m.mu.Lock()
	if existing, ok := m.matches[mt.ID]; ok {
		m.mu.Unlock()
		sess.Close()
		closeOracle(oracle)
		existing.mu.Lock()
		defer existing.mu.Unlock()
		return existing.view(), nil
	}
	m.matches[mt.ID] = mt
	m.mu.Unlock()

	mt.mu.Lock()
	defer mt.mu.Unlock()
	m.announce(mt, "match.resumed", map[string]any{"ID": mt.ID, "Turn": sess.Turn().String()})
	m.logger.Info("match_resume", zap.String("match", mt.ID), zap.Int("moves", len(rec.Snapshot.History)))
	return mt.view(), nil
}

func replay(ctx context.Context, o EngineOracle, history []string) error {
	if err := o.ResetPosition(ctx); err != nil {
		return err
	}
	for _, mv := range history {
		if err := o.ApplyMove(ctx, mv); err != nil {
			return err
		}
	}
	return nil
}

// TickAll advances every live match by one frame.
func (m *Manager) TickAll(ctx context.Context) {
	m.mu.RLock()
	list := make([]*Match, 0, len(m.matches))
	for _, mt := range m.matches {
		list = append(list, mt)
	}
	m.mu.RUnlock()

	for _, mt := range list {
		m.tick(ctx, mt)
	}
}

func (m *Manager) tick(ctx context.Context, mt *Match) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	switch mt.session.Tick(ctx) {
	case game.NoEvent:
	case game.ComputerSkipped:
		m.announce(mt, "turn.cpu_skipped", map[string]any{"Turn": mt.session.Turn().String()})
		m.persist(ctx, mt)
	default:
		m.settle(ctx, mt)
	}
}

// Run ticks all matches at the frame rate until ctx is done.
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.frame)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.TickAll(ctx)
		}
	}
}

// Shutdown persists and closes every live match.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	list := make([]*Match, 0, len(m.matches))
	for id, mt := range m.matches {
		list = append(list, mt)
		delete(m.matches, id)
	}
	m.mu.Unlock()
	for _, mt := range list {
		mt.mu.Lock()
		m.persist(ctx, mt)
		mt.session.Close()
		closeOracle(mt.oracle)
		mt.oracle = nil
		mt.mu.Unlock()
	}
}

// Frame captures what a renderer needs for the match.
func (m *Manager) Frame(id string) (render.Frame, error) {
	mt, err := m.lookup(id)
	if err != nil {
		return render.Frame{}, err
	}
	mt.mu.Lock()
	defer mt.mu.Unlock()
	header := mt.session.Mode().String()
	if mt.difficulty != "" {
		header += " / " + mt.difficulty
	}
	if w, ok := mt.session.Winner(); ok {
		header = w.String() + " wins"
	}
	return render.FrameOf(mt.session, header), nil
}

// RecentGames lists recorded games, newest first.
func (m *Manager) RecentGames(ctx context.Context, limit int) ([]*record.Game, error) {
	return m.repo.GetRecentGames(ctx, limit)
}

// settle persists the match and records it once it has finished.
// Caller holds mt.mu.
func (m *Manager) settle(ctx context.Context, mt *Match) {
	if mt.session.State() == game.Finished && !mt.recorded {
		mt.recorded = true
		m.recordFinished(ctx, mt)
	}
	m.persist(ctx, mt)
}

func (m *Manager) recordFinished(ctx context.Context, mt *Match) {
	winner, _ := mt.session.Winner()
	now := m.now()
	moves := mt.session.History()
	g := &record.Game{
		MatchID:      mt.ID,
		Mode:         mt.session.Mode().String(),
		Difficulty:   mt.difficulty,
		Result:       record.ResultFor(winner.String()),
		Winner:       winner.String(),
		Method:       record.MethodTimeout,
		MovesUCI:     moves,
		MovesSAN:     record.Annotate(moves),
		StartedAt:    mt.CreatedAt,
		EndedAt:      now,
		Duration:     now.Sub(mt.CreatedAt),
		WhiteClockMs: mt.session.Clock(board.White).Milliseconds(),
		BlackClockMs: mt.session.Clock(board.Black).Milliseconds(),
	}
	g.PGN = record.BuildPGN(g)
	if _, err := m.repo.InsertGame(ctx, g); err != nil && !errors.Is(err, record.ErrDuplicateGame) {
		m.logger.Warn("match_record_failed", zap.String("match", mt.ID), zap.Error(err))
	}
	m.announce(mt, "result.timeout", map[string]any{"Winner": winner.String(), "Loser": winner.Opposite().String()})
	m.logger.Info("match_finished", zap.String("match", mt.ID), zap.String("winner", winner.String()), zap.Int("moves", len(moves)))
}

func (m *Manager) persist(ctx context.Context, mt *Match) {
	if m.store == nil {
		return
	}
	rec := &store.Record{ID: mt.ID, Snapshot: mt.session.Snapshot(), CreatedAt: mt.CreatedAt, UpdatedAt: m.now()}
	if err := m.store.Save(ctx, rec); err != nil {
		m.logger.Warn("match_snapshot_failed", zap.String("match", mt.ID), zap.Error(err))
	}
}

func (m *Manager) announce(mt *Match, key string, data map[string]any) {
	text := m.catalog.RenderOr(key, data, key)
	mt.messages = append(mt.messages, text)
	if n := len(mt.messages); n > maxMessages {
		mt.messages = append([]string(nil), mt.messages[n-maxMessages:]...)
	}
	if m.announcer != nil {
		m.announcer(Announcement{MatchID: mt.ID, Key: key, Text: text})
	}
}

func closeOracle(o EngineOracle) {
	if o != nil {
		_ = o.Close()
	}
}

// Describe renders a user-facing message for err, for presentation layers.
func (m *Manager) Describe(err error, id string) string {
	key := "errors.internal"
	switch {
	case errors.Is(err, ErrOracleUnavailable):
		key = "errors.oracle_unavailable"
	case errors.Is(err, ErrMatchNotFound):
		key = "errors.match_not_found"
	case errors.Is(err, game.ErrGameFinished):
		key = "errors.game_finished"
	case errors.Is(err, game.ErrComputerThinking):
		key = "errors.computer_thinking"
	case errors.Is(err, game.ErrOutOfBounds):
		key = "errors.out_of_bounds"
	}
	return m.catalog.RenderOr(key, map[string]any{"ID": id}, err.Error())
}
