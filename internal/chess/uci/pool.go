package uci

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/park285/cheese-board/internal/obslog"
)

var ErrPoolClosed = errors.New("uci pool closed")

type PoolConfig struct {
	BinaryPath string
	// Args are passed to every engine process.
	Args []string
	// PerOptionsCapacity caps live processes per distinct Options value.
	// Zero picks a value from the CPU count.
	PerOptionsCapacity int
}

// Pool keeps engine processes warm. Processes are grouped by the Options they
// were configured with, so a difficulty tier never inherits another's settings.
type Pool struct {
	bin      string
	args     []string
	capacity int

	mu      sync.Mutex
	closed  bool
	buckets map[Options]*bucket
	lent    map[*Session]*bucket
}

// bucket holds the processes for one Options value. A token in slots stands
// for each live process, idle or lent.
type bucket struct {
	opt   Options
	slots chan struct{}
	idle  chan *Session
}

func NewPool(cfg PoolConfig) (*Pool, error) {
	if cfg.BinaryPath == "" {
		return nil, fmt.Errorf("engine binary path is empty")
	}
	if _, err := os.Stat(cfg.BinaryPath); err != nil {
		return nil, fmt.Errorf("engine binary: %w", err)
	}
	capacity := cfg.PerOptionsCapacity
	if capacity <= 0 {
		capacity = min(max(runtime.NumCPU(), 2), 4)
	}
	return &Pool{
		bin:      cfg.BinaryPath,
		args:     append([]string(nil), cfg.Args...),
		capacity: capacity,
		buckets:  make(map[Options]*bucket),
		lent:     make(map[*Session]*bucket),
	}, nil
}

func (p *Pool) BinaryPath() string { return p.bin }

// Acquire hands out a ready session configured with opt. Idle sessions are
// preferred; otherwise a process is started if the bucket has a free slot, and
// failing both Acquire waits for a Release or for ctx to end.
func (p *Pool) Acquire(ctx context.Context, opt Options) (*Session, error) {
	b, err := p.bucketFor(opt)
	if err != nil {
		return nil, err
	}
	for {
		select {
		case s := <-b.idle:
			if p.revive(ctx, b, s) {
				return s, nil
			}
			continue
		default:
		}

		select {
		case s := <-b.idle:
			if p.revive(ctx, b, s) {
				return s, nil
			}
		case b.slots <- struct{}{}:
			s, err := NewSession(ctx, p.bin, b.opt, p.args...)
			if err != nil {
				<-b.slots
				return nil, err
			}
			p.lend(s, b)
			return s, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// revive checks an idle session before lending it out and retires it when the
// engine no longer answers.
func (p *Pool) revive(ctx context.Context, b *bucket, s *Session) bool {
	if err := s.EnsureReady(ctx); err != nil {
		obslog.L().Warn("uci_idle_session_dead", zap.Int("skill", b.opt.SkillLevel), zap.Error(err))
		b.retire(s)
		return false
	}
	p.lend(s, b)
	return true
}

func (p *Pool) lend(s *Session, b *bucket) {
	p.mu.Lock()
	p.lent[s] = b
	p.mu.Unlock()
}

// Release gives a session back. A non-nil err means the session is suspect and
// its process is stopped instead of being reused.
func (p *Pool) Release(s *Session, err error) {
	if s == nil {
		return
	}
	p.mu.Lock()
	b, ok := p.lent[s]
	delete(p.lent, s)
	kept := false
	if ok && err == nil && !p.closed {
		select {
		case b.idle <- s:
			kept = true
		default:
		}
	}
	p.mu.Unlock()

	switch {
	case kept:
	case ok:
		b.retire(s)
	default:
		_ = s.Close()
	}
}

// Close stops idle processes. Sessions still lent out are stopped on Release.
func (p *Pool) Close() error {
	p.mu.Lock()
	p.closed = true
	buckets := make([]*bucket, 0, len(p.buckets))
	for _, b := range p.buckets {
		buckets = append(buckets, b)
	}
	p.mu.Unlock()

	var errs []error
	for _, b := range buckets {
		errs = append(errs, b.drain()...)
	}
	return errors.Join(errs...)
}

func (p *Pool) bucketFor(opt Options) (*bucket, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrPoolClosed
	}
	b, ok := p.buckets[opt]
	if !ok {
		b = &bucket{
			opt:   opt,
			slots: make(chan struct{}, p.capacity),
			idle:  make(chan *Session, p.capacity),
		}
		p.buckets[opt] = b
	}
	return b, nil
}

func (b *bucket) retire(s *Session) {
	_ = s.Close()
	<-b.slots
}

func (b *bucket) drain() []error {
	var errs []error
	for {
		select {
		case s := <-b.idle:
			if err := s.Close(); err != nil {
				errs = append(errs, err)
			}
			<-b.slots
		default:
			return errs
		}
	}
}

func (b *bucket) live() int { return len(b.slots) }
