package httpapi

import (
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/park285/cheese-board/internal/chess"
	"github.com/park285/cheese-board/internal/chess/ucitest"
	"github.com/park285/cheese-board/internal/game"
	"github.com/park285/cheese-board/internal/match"
	"github.com/park285/cheese-board/internal/render"
	"github.com/park285/cheese-board/pkg/sessiondto"
)

func TestMain(m *testing.M) {
	ucitest.MaybeServe()
	os.Exit(m.Run())
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	mgr    *match.Manager
	client *Client
	clk    *fakeClock
}

func newTestEnv(t *testing.T, src match.OracleSource, srcErr error) *testEnv {
	t.Helper()
	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	mgr := match.New(game.DefaultConfig(), time.Millisecond,
		match.WithOracleSource(src, srcErr),
		match.WithClock(clk.Now),
		match.WithSessionOptions(game.WithSleeper(clk.Advance)),
	)
	srv := NewServer(mgr, render.New(render.DefaultGeometry()), WithOracleReady(src != nil), WithHistoryLimit(5))
	ln := fasthttputil.NewInmemoryListener()
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		mgr.Shutdown(context.Background())
	})
	client := NewClient("http://board.test",
		WithDial(func(string) (net.Conn, error) { return ln.Dial() }),
		WithBackoff(time.Millisecond),
	)
	return &testEnv{mgr: mgr, client: client, clk: clk}
}

func domainCode(t *testing.T, err error) sessiondto.DomainError {
	t.Helper()
	var derr sessiondto.DomainError
	if !errors.As(err, &derr) {
		t.Fatalf("expected a DomainError, got %v", err)
	}
	return derr
}

func TestHealthAndRouting(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()

	h, err := env.client.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if h.Status != "ok" || h.Matches != 0 || h.Oracle {
		t.Fatalf("health %+v", h)
	}

	err = env.client.doJSON(ctx, "GET", "/nowhere", nil, nil, false)
	if d := domainCode(t, err); d.Code != sessiondto.CodeNotFound {
		t.Fatalf("unknown route code %q", d.Code)
	}
	err = env.client.doJSON(ctx, "PUT", "/healthz", nil, nil, false)
	if d := domainCode(t, err); d.Code != sessiondto.CodeInvalidRequest || !strings.Contains(err.Error(), "status=405") {
		t.Fatalf("method not allowed: %v", err)
	}
	err = env.client.doJSON(ctx, "POST", "/matches", nil, nil, false)
	if d := domainCode(t, err); d.Code != sessiondto.CodeInvalidRequest {
		t.Fatalf("empty body code %q", d.Code)
	}
}

func TestHumanMatchOverHTTP(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()
	c := env.client

	m, err := c.CreateMatch(ctx, "pvp", "")
	if err != nil {
		t.Fatalf("CreateMatch: %v", err)
	}
	if m.State != "awaiting_selection" || len(m.Board) != 8 || m.Board[6][4] != "white_pawn" || m.WhiteClockMs != 600_000 {
		t.Fatalf("new match %+v", m)
	}

	m, err = c.Click(ctx, m.ID, "e2")
	if err != nil {
		t.Fatalf("Click e2: %v", err)
	}
	if m.Click.Outcome != "selected" || m.Selected != "e2" || !slices.Contains(m.Highlights, "e3") || !slices.Contains(m.Highlights, "e4") {
		t.Fatalf("after selecting e2 %+v", m)
	}
	m, err = c.Click(ctx, m.ID, "E4")
	if err != nil {
		t.Fatalf("Click e4: %v", err)
	}
	if m.Click.Outcome != "moved" || m.Turn != "black" || m.LastMove != "e2e4" {
		t.Fatalf("after e2e4 %+v", m)
	}

	// e7 then e5 by pixel: squares are 100px below a 60px header
	if m, err = c.ClickAt(ctx, m.ID, 450, 210); err != nil || m.Click.Square != "e7" {
		t.Fatalf("ClickAt e7: %+v %v", m, err)
	}
	if m, err = c.ClickAt(ctx, m.ID, 450, 410); err != nil || m.Click.Outcome != "moved" {
		t.Fatalf("ClickAt e5: %+v %v", m, err)
	}
	if strings.Join(m.History, " ") != "e2e4 e7e5" {
		t.Fatalf("history %v", m.History)
	}

	_, err = c.ClickAt(ctx, m.ID, 100, 10)
	if d := domainCode(t, err); d.Code != sessiondto.CodeOutOfBounds {
		t.Fatalf("header click code %q", d.Code)
	}
	_, err = c.Click(ctx, m.ID, "z9")
	if d := domainCode(t, err); d.Code != sessiondto.CodeInvalidRequest || !strings.HasPrefix(d.Message, "Invalid request:") {
		t.Fatalf("bad square: %+v", d)
	}

	img, err := c.BoardPNG(ctx, m.ID)
	if err != nil {
		t.Fatalf("BoardPNG: %v", err)
	}
	if !bytes.HasPrefix(img, []byte("\x89PNG\r\n\x1a\n")) {
		t.Fatal("board image is not a PNG")
	}

	if m, err = c.Reset(ctx, m.ID); err != nil || len(m.History) != 0 || m.Turn != "white" {
		t.Fatalf("Reset: %+v %v", m, err)
	}
	if h, _ := c.Health(ctx); h.Matches != 1 {
		t.Fatalf("health matches %d", h.Matches)
	}

	if err := c.CloseMatch(ctx, m.ID); err != nil {
		t.Fatalf("CloseMatch: %v", err)
	}
	_, err = c.GetMatch(ctx, m.ID)
	if d := domainCode(t, err); d.Code != sessiondto.CodeMatchNotFound || !strings.Contains(d.Message, m.ID) {
		t.Fatalf("closed match: %+v", d)
	}
}

func TestComputerUnavailableOverHTTP(t *testing.T) {
	env := newTestEnv(t, nil, chess.ErrOracleNotFound)
	ctx := context.Background()

	_, err := env.client.CreateMatch(ctx, "pvc", "easy")
	d := domainCode(t, err)
	if d.Code != sessiondto.CodeOracleUnavailable || d.Retryable || !strings.Contains(err.Error(), "status=503") {
		t.Fatalf("pvc without engine: %v", err)
	}
	_, err = env.client.CreateMatch(ctx, "chess960", "")
	if d := domainCode(t, err); d.Code != sessiondto.CodeInvalidRequest {
		t.Fatalf("unknown mode code %q", d.Code)
	}
}

func TestComputerMatchOverHTTP(t *testing.T) {
	bin := ucitest.Enable(t, "e7e5")
	p, err := chess.NewProvider(bin, nil, chess.WithCapacity(1))
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	defer p.Close()

	env := newTestEnv(t, match.FromProvider(p), nil)
	ctx := context.Background()
	c := env.client

	_, err = c.CreateMatch(ctx, "pvc", "grandmaster")
	if d := domainCode(t, err); d.Code != sessiondto.CodeInvalidRequest {
		t.Fatalf("unknown difficulty code %q", d.Code)
	}

	m, err := c.CreateMatch(ctx, "pvc", "easy")
	if err != nil {
		t.Fatalf("CreateMatch: %v", err)
	}
	if m.Difficulty != "easy" || m.Mode != "pvc" {
		t.Fatalf("computer match %+v", m)
	}
	if _, err := c.Click(ctx, m.ID, "e2"); err != nil {
		t.Fatal(err)
	}
	if m, err = c.Click(ctx, m.ID, "e4"); err != nil || m.State != "cpu_pending" {
		t.Fatalf("after human move: %+v %v", m, err)
	}
	_, err = c.Click(ctx, m.ID, "d2")
	if d := domainCode(t, err); d.Code != sessiondto.CodeComputerThinking || !d.Retryable {
		t.Fatalf("click while thinking: %+v", d)
	}

	env.clk.Advance(time.Second)
	env.mgr.TickAll(ctx)
	m, err = c.GetMatch(ctx, m.ID)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(m.History, " ") != "e2e4 e7e5" || m.Turn != "white" || m.Board[3][4] != "black_pawn" {
		t.Fatalf("after computer reply %+v", m)
	}
}

func TestRecentGamesOverHTTP(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()
	c := env.client

	m, err := c.CreateMatch(ctx, "pvp", "")
	if err != nil {
		t.Fatal(err)
	}
	env.clk.Advance(11 * time.Minute)
	env.mgr.TickAll(ctx)

	games, err := c.RecentGames(ctx, 3)
	if err != nil {
		t.Fatalf("RecentGames: %v", err)
	}
	if len(games) != 1 {
		t.Fatalf("games %d", len(games))
	}
	g := games[0]
	if g.MatchID != m.ID || g.Winner != "black" || g.Result != "0-1" || g.Method != "timeout" || g.WhiteClockMs != 0 {
		t.Fatalf("recorded game %+v", g)
	}

	_, err = c.Click(ctx, m.ID, "e2")
	if d := domainCode(t, err); d.Code != sessiondto.CodeGameFinished {
		t.Fatalf("click after timeout code %q", d.Code)
	}
	err = c.doJSON(ctx, "GET", "/games?limit=abc", nil, nil, true)
	if d := domainCode(t, err); d.Code != sessiondto.CodeInvalidRequest {
		t.Fatalf("bad limit code %q", d.Code)
	}
}
