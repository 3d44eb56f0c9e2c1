package httpapi

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/park285/cheese-board/pkg/sessiondto"
)

// flakyServer answers 503 for the first failures requests, then 200.
func flakyServer(t *testing.T, failures int32) (*Client, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := &fasthttp.Server{Handler: func(ctx *fasthttp.RequestCtx) {
		n := calls.Add(1)
		if n <= failures {
			writeJSON(ctx, fasthttp.StatusServiceUnavailable, sessiondto.ErrorResponse{Error: sessiondto.DomainError{
				Code: sessiondto.CodeInternal, Message: "warming up", Retryable: true,
			}})
			return
		}
		if string(ctx.Path()) == "/matches" {
			writeJSON(ctx, fasthttp.StatusCreated, sessiondto.MatchResponse{Match: &sessiondto.MatchState{ID: "m-1"}})
			return
		}
		writeJSON(ctx, fasthttp.StatusOK, sessiondto.HealthResponse{Status: "ok"})
	}}
	ln := fasthttputil.NewInmemoryListener()
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = srv.Shutdown() })
	c := NewClient("http://flaky.test/",
		WithDial(func(string) (net.Conn, error) { return ln.Dial() }),
		WithBackoff(time.Millisecond),
		WithRetry(3),
	)
	return c, &calls
}

func TestClientRetriesReads(t *testing.T) {
	c, calls := flakyServer(t, 2)
	h, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if h.Status != "ok" || calls.Load() != 3 {
		t.Fatalf("status %q after %d calls", h.Status, calls.Load())
	}
}

func TestClientGivesUpAfterRetries(t *testing.T) {
	c, calls := flakyServer(t, 10)
	_, err := c.Health(context.Background())
	var derr sessiondto.DomainError
	if !errors.As(err, &derr) || derr.Message != "warming up" || !derr.Retryable {
		t.Fatalf("expected the server's DomainError, got %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}
}

func TestClientSendsWritesOnce(t *testing.T) {
	c, calls := flakyServer(t, 1)
	if _, err := c.CreateMatch(context.Background(), "pvp", ""); err == nil {
		t.Fatal("expected the first 503 to surface")
	}
	if calls.Load() != 1 {
		t.Fatalf("create retried: %d calls", calls.Load())
	}
	m, err := c.CreateMatch(context.Background(), "pvp", "")
	if err != nil || m.ID != "m-1" {
		t.Fatalf("second create: %+v %v", m, err)
	}
}

func TestClientStopsOnContext(t *testing.T) {
	c, _ := flakyServer(t, 10)
	c.backoff = time.Hour
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	if _, err := c.Health(ctx); err == nil {
		t.Fatal("expected an error")
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("backoff ignored the context")
	}
}

func TestBackoffDoubles(t *testing.T) {
	c := NewClient("http://x", WithBackoff(10*time.Millisecond))
	want := []time.Duration{10, 20, 40, 80, 160, 320, 320}
	for i, w := range want {
		if got := c.backoffDuration(i + 1); got != w*time.Millisecond {
			t.Fatalf("attempt %d: %v, want %v", i+1, got, w*time.Millisecond)
		}
	}
	if matchPath("a b", "click") != "/matches/a%20b/click" {
		t.Fatalf("matchPath = %q", matchPath("a b", "click"))
	}
}
