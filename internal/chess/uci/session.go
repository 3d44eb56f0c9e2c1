// Package uci drives chess engines over the Universal Chess Interface.
package uci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/cheese-board/internal/obslog"
)

const (
	readyTimeout = 4 * time.Second
	closeGrace   = 500 * time.Millisecond

	readyAttempts   = 3
	readyRetryPause = 150 * time.Millisecond
)

// NoMove is what engines print after bestmove when they have nothing to play.
const NoMove = "(none)"

var ErrEngineExited = errors.New("engine exited")

// Options are the setoption values a process is started with. Two processes
// with equal Options are interchangeable.
type Options struct {
	Threads    int
	SkillLevel int
	HashMB     int
	MultiPV    int
	// Elo, when positive, enables UCI_LimitStrength.
	Elo int
}

type Limits struct {
	Depth          int
	MoveTimeMillis int
}

// Candidate is one principal variation from a search, scored for the side to move.
type Candidate struct {
	Move      string
	EvalCP    int
	Principal []string
}

// SearchRequest describes a position as moves played from the initial position.
type SearchRequest struct {
	Moves  []string
	Limits Limits
	// GoOverrides replaces the go command built from Limits.
	GoOverrides []string
}

type SearchResponse struct {
	Candidates []Candidate
	// BestMove is empty when the engine answered "bestmove (none)".
	BestMove string
}

// Session is one running engine process.
type Session struct {
	proc  *exec.Cmd
	stdin io.WriteCloser

	out    chan string
	exited chan struct{}
	stop   chan struct{}

	writeMu sync.Mutex
	closed  bool

	// one search at a time; the engine's output is not tagged per request
	busy sync.Mutex
}

// NewSession starts binaryPath with args and waits for uciok and readyok.
// ctx bounds the handshake only; the process lives until Close.
func NewSession(ctx context.Context, binaryPath string, opt Options, args ...string) (*Session, error) {
	if err := validateOptions(opt); err != nil {
		return nil, err
	}

	proc := exec.Command(binaryPath, args...)
	proc.Stderr = os.Stderr
	stdin, err := proc.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("engine stdin: %w", err)
	}
	stdout, err := proc.StdoutPipe()
	if err != nil {
		_ = stdin.Close()
		return nil, fmt.Errorf("engine stdout: %w", err)
	}
	if err := proc.Start(); err != nil {
		_ = stdin.Close()
		return nil, fmt.Errorf("start engine %s: %w", binaryPath, err)
	}

	s := &Session{
		proc:   proc,
		stdin:  stdin,
		out:    make(chan string, 64),
		exited: make(chan struct{}),
		stop:   make(chan struct{}),
	}
	go s.readOutput(stdout)

	if err := s.handshake(ctx, opt); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Session) readOutput(r io.Reader) {
	defer close(s.exited)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		select {
		case s.out <- line:
		case <-s.stop:
			return
		}
	}
}

func (s *Session) handshake(ctx context.Context, opt Options) error {
	ctx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()

	if err := s.roundTrip(ctx, "uci\n", "uciok"); err != nil {
		return err
	}
	for _, line := range optionCommands(opt) {
		if err := s.write(line); err != nil {
			return fmt.Errorf("configure engine: %w", err)
		}
	}
	return s.roundTrip(ctx, "isready\n", "readyok")
}

// EnsureReady pings the engine and waits for readyok.
func (s *Session) EnsureReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()
	return s.roundTrip(ctx, "isready\n", "readyok")
}

// NewGame clears the engine's game state. Engines can take a while to answer
// isready after ucinewgame, so the ping is retried a few times.
func (s *Session) NewGame(ctx context.Context) error {
	if err := s.write("ucinewgame\n"); err != nil {
		return fmt.Errorf("ucinewgame: %w", err)
	}
	var err error
	for attempt := 1; attempt <= readyAttempts; attempt++ {
		if err = s.EnsureReady(ctx); err == nil {
			return nil
		}
		if attempt == readyAttempts {
			break
		}
		obslog.L().Warn("uci_newgame_not_ready",
			zap.Int("attempt", attempt),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(readyRetryPause):
		}
	}
	return err
}

// Search sets up the position, starts a search and collects info lines until bestmove.
func (s *Session) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	s.busy.Lock()
	defer s.busy.Unlock()

	goTokens := req.GoOverrides
	if len(goTokens) == 0 {
		var err error
		if goTokens, err = buildGoTokens(req.Limits); err != nil {
			return SearchResponse{}, err
		}
	}
	position := buildPositionCommand(req.Moves)
	goCmd := strings.Join(goTokens, " ")

	if err := s.write(position); err != nil {
		return SearchResponse{}, fmt.Errorf("position: %w", err)
	}
	if err := s.write(goCmd + "\n"); err != nil {
		return SearchResponse{}, fmt.Errorf("go: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, computeSearchTimeout(req.Limits))
	defer cancel()

	byRank := make(map[int]Candidate)
	for {
		line, err := s.next(ctx)
		if err != nil {
			obslog.L().Warn("uci_search_aborted",
				zap.String("go", goCmd),
				zap.Int("plies", len(req.Moves)),
				zap.Error(err))
			return SearchResponse{}, fmt.Errorf("await bestmove: %w", err)
		}
		if strings.HasPrefix(line, "bestmove") {
			return SearchResponse{Candidates: rankedCandidates(byRank), BestMove: parseBestMove(line)}, nil
		}
		if strings.HasPrefix(line, "info ") {
			if rank, cand, ok := parseInfo(line); ok {
				byRank[rank] = cand
			}
		}
	}
}

// Close asks the engine to quit and kills it if it has not exited within a grace period.
func (s *Session) Close() error {
	s.writeMu.Lock()
	if s.closed {
		s.writeMu.Unlock()
		return nil
	}
	s.closed = true
	_, _ = io.WriteString(s.stdin, "quit\n")
	_ = s.stdin.Close()
	close(s.stop)
	s.writeMu.Unlock()

	waited := make(chan error, 1)
	go func() { waited <- s.proc.Wait() }()

	var err error
	select {
	case err = <-waited:
	case <-time.After(closeGrace):
		_ = s.proc.Process.Kill()
		err = <-waited
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

func (s *Session) write(line string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed {
		return ErrEngineExited
	}
	_, err := io.WriteString(s.stdin, line)
	return err
}

// roundTrip sends cmd and discards output until a line starting with want.
func (s *Session) roundTrip(ctx context.Context, cmd, want string) error {
	name := strings.TrimSpace(cmd)
	if err := s.write(cmd); err != nil {
		return fmt.Errorf("send %s: %w", name, err)
	}
	for {
		line, err := s.next(ctx)
		if err != nil {
			return fmt.Errorf("%s: await %s: %w", name, want, err)
		}
		if strings.HasPrefix(line, want) {
			return nil
		}
	}
}

// next returns the next output line. Lines queued before the process exited
// are still delivered.
func (s *Session) next(ctx context.Context) (string, error) {
	select {
	case line := <-s.out:
		return line, nil
	default:
	}
	select {
	case line := <-s.out:
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	case <-s.exited:
		select {
		case line := <-s.out:
			return line, nil
		default:
			return "", ErrEngineExited
		}
	}
}
