package chess

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/park285/cheese-board/internal/chess/ucitest"
)

func TestMain(m *testing.M) {
	ucitest.MaybeServe()
	os.Exit(m.Run())
}

func newTestProvider(t *testing.T, bestmoves ...string) *Provider {
	t.Helper()
	return newTestProviderWith(t, bestmoves)
}

func newTestProviderWith(t *testing.T, bestmoves []string, opts ...ProviderOption) *Provider {
	t.Helper()
	bin := ucitest.Enable(t, bestmoves...)
	p, err := NewProvider(bin, DefaultTable(), append([]ProviderOption{WithCapacity(1)}, opts...)...)
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestOracleBestMove(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	p := newTestProviderWith(t, []string{"e7e5", "b8c6"},
		WithEngineArgs("--bench-off"),
		WithLogger(zap.New(core)),
	)
	read := ucitest.Transcript(t)
	ctx := context.Background()

	o, err := p.Open(ctx, "easy")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer o.Close()

	if err := o.ApplyMove(ctx, "e2e4"); err != nil {
		t.Fatalf("ApplyMove: %v", err)
	}
	mv, ok, err := o.BestMove(ctx, []string{"e2e4"})
	if err != nil || !ok || mv != "e7e5" {
		t.Fatalf("BestMove = %q %v %v", mv, ok, err)
	}
	moves := logs.FilterMessage("oracle_move").All()
	if len(moves) != 1 || moves[0].ContextMap()["eval_cp"] != int64(13) || moves[0].ContextMap()["move"] != "e7e5" {
		t.Fatalf("oracle_move log %+v", moves)
	}
	mv, ok, err = o.BestMove(ctx, []string{"e2e4", "e7e5", "g1f3"})
	if err != nil || !ok || mv != "b8c6" {
		t.Fatalf("second BestMove = %q %v %v", mv, ok, err)
	}

	log := strings.Join(read(), "\n")
	for _, want := range []string{
		"args --bench-off",
		"setoption name Skill Level value 2",
		"position startpos moves e2e4 e7e5 g1f3",
		"go depth 3",
	} {
		if !strings.Contains(log, want) {
			t.Fatalf("transcript missing %q:\n%s", want, log)
		}
	}
}

func TestOracleNoMove(t *testing.T) {
	p := newTestProvider(t, "(none)")
	o, err := p.Open(context.Background(), "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer o.Close()
	if o.Difficulty().Name != DefaultDifficultyName {
		t.Fatalf("empty name should select the default tier, got %s", o.Difficulty().Name)
	}
	mv, ok, err := o.BestMove(context.Background(), []string{"e2e4"})
	if err != nil || ok || mv != "" {
		t.Fatalf("expected no move, got %q %v %v", mv, ok, err)
	}
}

func TestOracleResetAndClose(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()
	o, err := p.Open(ctx, "hard")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_ = o.ApplyMove(ctx, "d2d4")
	if err := o.ResetPosition(ctx); err != nil {
		t.Fatalf("ResetPosition: %v", err)
	}
	if err := o.ApplyMove(ctx, "bad"); err == nil {
		t.Fatalf("expected error for malformed move")
	}
	if err := o.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, _, err := o.BestMove(ctx, nil); !errors.Is(err, errOracleClosed) {
		t.Fatalf("expected errOracleClosed, got %v", err)
	}

	// the released engine is handed to the next match
	o2, err := p.Open(ctx, "hard")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	_ = o2.Close()
}

func TestOpenUnknownDifficulty(t *testing.T) {
	p := newTestProvider(t)
	if _, err := p.Open(context.Background(), "grandmaster"); !errors.Is(err, ErrUnknownDifficulty) {
		t.Fatalf("expected ErrUnknownDifficulty, got %v", err)
	}
}

func TestNewProviderMissingBinary(t *testing.T) {
	if _, err := NewProvider("/no/such/engine", nil); !errors.Is(err, ErrOracleNotFound) {
		t.Fatalf("expected ErrOracleNotFound, got %v", err)
	}
}
