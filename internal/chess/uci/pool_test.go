package uci

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/park285/cheese-board/internal/chess/ucitest"
)

func TestPoolReusesReleasedSession(t *testing.T) {
	bin := ucitest.Enable(t)
	p, err := NewPool(PoolConfig{BinaryPath: bin, PerOptionsCapacity: 1})
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer p.Close()
	ctx := context.Background()

	s1, err := p.Acquire(ctx, testOptions())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	p.Release(s1, nil)
	s2, err := p.Acquire(ctx, testOptions())
	if err != nil {
		t.Fatalf("Acquire#2: %v", err)
	}
	if s1 != s2 {
		t.Fatalf("expected the idle session to be reused")
	}

	// capacity 1: a second acquire waits until the context ends
	waitCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	if _, err := p.Acquire(waitCtx, testOptions()); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	p.Release(s2, errors.New("broken"))
	if n := p.buckets[testOptions()].live(); n != 0 {
		t.Fatalf("discarded session still counted: %d", n)
	}
}

func TestPoolBucketsByOptions(t *testing.T) {
	bin := ucitest.Enable(t)
	p, err := NewPool(PoolConfig{BinaryPath: bin, PerOptionsCapacity: 1})
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	ctx := context.Background()
	a, err := p.Acquire(ctx, testOptions())
	if err != nil {
		t.Fatalf("Acquire a: %v", err)
	}
	other := testOptions()
	other.SkillLevel = 15
	b, err := p.Acquire(ctx, other)
	if err != nil {
		t.Fatalf("Acquire b: %v", err)
	}
	if a == b || len(p.buckets) != 2 {
		t.Fatalf("expected separate buckets")
	}
	p.Release(a, nil)
	p.Release(b, nil)
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := p.Acquire(ctx, testOptions()); !errors.Is(err, ErrPoolClosed) {
		t.Fatalf("expected ErrPoolClosed, got %v", err)
	}
}

func TestNewPoolChecksBinary(t *testing.T) {
	if _, err := NewPool(PoolConfig{}); err == nil {
		t.Fatalf("expected error for empty path")
	}
	if _, err := NewPool(PoolConfig{BinaryPath: "/definitely/not/here"}); err == nil {
		t.Fatalf("expected error for missing binary")
	}
}
