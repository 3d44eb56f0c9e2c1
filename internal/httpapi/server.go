// Package httpapi exposes live matches over HTTP: a fasthttp server in front of
// match.Manager and a client for it.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/cheese-board/internal/board"
	"github.com/park285/cheese-board/internal/chess"
	"github.com/park285/cheese-board/internal/game"
	"github.com/park285/cheese-board/internal/match"
	"github.com/park285/cheese-board/internal/movegen"
	"github.com/park285/cheese-board/internal/msgcat"
	"github.com/park285/cheese-board/internal/render"
	"github.com/park285/cheese-board/pkg/sessiondto"
)

var errBadRequest = errors.New("bad request")

const maxHistoryLimit = 100

type Server struct {
	mgr          *match.Manager
	renderer     *render.Renderer
	catalog      *msgcat.Catalog
	logger       *zap.Logger
	historyLimit int
	oracleReady  bool
	srv          *fasthttp.Server

	// handed to the manager; a RequestCtx must not escape its handler
	base context.Context
}

type ServerOption func(*Server)

func WithLogger(l *zap.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithCatalog(c *msgcat.Catalog) ServerOption {
	return func(s *Server) {
		if c != nil {
			s.catalog = c
		}
	}
}

// WithHistoryLimit is the default page size of GET /games.
func WithHistoryLimit(n int) ServerOption { return func(s *Server) { s.historyLimit = n } }

// WithOracleReady reports engine availability on /healthz.
func WithOracleReady(ok bool) ServerOption { return func(s *Server) { s.oracleReady = ok } }

func NewServer(mgr *match.Manager, renderer *render.Renderer, opts ...ServerOption) *Server {
	s := &Server{
		mgr:          mgr,
		renderer:     renderer,
		logger:       zap.NewNop(),
		historyLimit: 10,
		base:         context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.catalog == nil {
		s.catalog = msgcat.MustDefault()
	}
	if s.renderer == nil {
		s.renderer = render.New(render.DefaultGeometry())
	}
	s.srv = &fasthttp.Server{
		Handler:            s.Handler(),
		Name:               "cheese-board",
		ReadTimeout:        10 * time.Second,
		WriteTimeout:       10 * time.Second,
		MaxRequestBodySize: 64 << 10,
	}
	return s
}

func (s *Server) ListenAndServe(addr string) error { return s.srv.ListenAndServe(addr) }
func (s *Server) Serve(ln net.Listener) error      { return s.srv.Serve(ln) }

func (s *Server) Shutdown(ctx context.Context) error { return s.srv.ShutdownWithContext(ctx) }

// Handler routes requests without the listener, for embedding and tests.
func (s *Server) Handler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()
		s.route(ctx)
		s.logger.Debug("http_request",
			zap.ByteString("method", ctx.Method()),
			zap.ByteString("path", ctx.Path()),
			zap.Int("status", ctx.Response.StatusCode()),
			zap.Duration("took", time.Since(start)),
		)
	}
}

func (s *Server) route(ctx *fasthttp.RequestCtx) {
	parts := strings.Split(strings.Trim(string(ctx.Path()), "/"), "/")
	method := string(ctx.Method())

	switch {
	case len(parts) == 1 && parts[0] == "healthz":
		if allow(ctx, method, fasthttp.MethodGet) {
			s.health(ctx)
		}
	case len(parts) == 1 && parts[0] == "games":
		if allow(ctx, method, fasthttp.MethodGet) {
			s.games(ctx)
		}
	case len(parts) == 1 && parts[0] == "matches":
		if allow(ctx, method, fasthttp.MethodPost) {
			s.create(ctx)
		}
	case len(parts) == 2 && parts[0] == "matches":
		switch method {
		case fasthttp.MethodGet:
			s.get(ctx, parts[1])
		case fasthttp.MethodDelete:
			s.close(ctx, parts[1])
		default:
			allow(ctx, method, fasthttp.MethodGet, fasthttp.MethodDelete)
		}
	case len(parts) == 3 && parts[0] == "matches":
		id := parts[1]
		switch parts[2] {
		case "click":
			if allow(ctx, method, fasthttp.MethodPost) {
				s.click(ctx, id)
			}
		case "reset":
			if allow(ctx, method, fasthttp.MethodPost) {
				s.reset(ctx, id)
			}
		case "resume":
			if allow(ctx, method, fasthttp.MethodPost) {
				s.resume(ctx, id)
			}
		case "board.png":
			if allow(ctx, method, fasthttp.MethodGet) {
				s.boardPNG(ctx, id)
			}
		default:
			s.notFound(ctx)
		}
	default:
		s.notFound(ctx)
	}
}

func allow(ctx *fasthttp.RequestCtx, method string, allowed ...string) bool {
	for _, m := range allowed {
		if m == method {
			return true
		}
	}
	ctx.Response.Header.Set("Allow", strings.Join(allowed, ", "))
	writeJSON(ctx, fasthttp.StatusMethodNotAllowed, sessiondto.ErrorResponse{Error: sessiondto.DomainError{
		Code:    sessiondto.CodeInvalidRequest,
		Message: fmt.Sprintf("method %s not allowed", method),
	}})
	return false
}

func (s *Server) notFound(ctx *fasthttp.RequestCtx) {
	writeJSON(ctx, fasthttp.StatusNotFound, sessiondto.ErrorResponse{Error: sessiondto.DomainError{
		Code:    sessiondto.CodeNotFound,
		Message: "no route for " + string(ctx.Path()),
	}})
}

func (s *Server) health(ctx *fasthttp.RequestCtx) {
	writeJSON(ctx, fasthttp.StatusOK, sessiondto.HealthResponse{
		Status:  "ok",
		Matches: len(s.mgr.IDs()),
		Oracle:  s.oracleReady,
	})
}

func (s *Server) create(ctx *fasthttp.RequestCtx) {
	var req sessiondto.CreateMatchRequest
	if err := decodeBody(ctx, &req); err != nil {
		s.fail(ctx, err, "")
		return
	}
	mode, err := movegen.ParseMode(req.Mode)
	if err != nil {
		s.fail(ctx, fmt.Errorf("%w: %w", errBadRequest, err), "")
		return
	}
	v, err := s.mgr.Create(s.base, mode, req.Difficulty)
	if err != nil {
		s.fail(ctx, err, "")
		return
	}
	writeJSON(ctx, fasthttp.StatusCreated, sessiondto.MatchResponse{Match: MatchState(v)})
}

func (s *Server) get(ctx *fasthttp.RequestCtx, id string) {
	v, err := s.mgr.Get(id)
	if err != nil {
		s.fail(ctx, err, id)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, sessiondto.MatchResponse{Match: MatchState(v)})
}

func (s *Server) close(ctx *fasthttp.RequestCtx, id string) {
	if err := s.mgr.Close(s.base, id); err != nil {
		s.fail(ctx, err, id)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

func (s *Server) reset(ctx *fasthttp.RequestCtx, id string) {
	v, err := s.mgr.Reset(s.base, id)
	if err != nil {
		s.fail(ctx, err, id)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, sessiondto.MatchResponse{Match: MatchState(v)})
}

func (s *Server) resume(ctx *fasthttp.RequestCtx, id string) {
	v, err := s.mgr.Resume(s.base, id)
	if err != nil {
		s.fail(ctx, err, id)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, sessiondto.MatchResponse{Match: MatchState(v)})
}

func (s *Server) click(ctx *fasthttp.RequestCtx, id string) {
	var req sessiondto.ClickRequest
	if err := decodeBody(ctx, &req); err != nil {
		s.fail(ctx, err, id)
		return
	}
	sq, err := s.clickSquare(req)
	if err != nil {
		s.fail(ctx, err, id)
		return
	}
	out, v, err := s.mgr.Click(s.base, id, sq)
	if err != nil {
		s.fail(ctx, err, id)
		return
	}
	state := MatchState(v)
	state.Click = &sessiondto.ClickResult{Square: sq.String(), Outcome: out.String()}
	writeJSON(ctx, fasthttp.StatusOK, sessiondto.MatchResponse{Match: state})
}

// clickSquare resolves a click given as a square name or as pixel
// coordinates on the rendered board.
func (s *Server) clickSquare(req sessiondto.ClickRequest) (board.Square, error) {
	if name := strings.TrimSpace(req.Square); name != "" {
		sq, err := board.ParseSquare(strings.ToLower(name))
		if err != nil {
			return board.Square{}, fmt.Errorf("%w: %w", errBadRequest, err)
		}
		return sq, nil
	}
	if req.X == nil || req.Y == nil {
		return board.Square{}, fmt.Errorf("%w: square or x/y required", errBadRequest)
	}
	sq, ok := s.renderer.Geometry().SquareAt(*req.X, *req.Y)
	if !ok {
		return board.Square{}, fmt.Errorf("pixel (%d,%d): %w", *req.X, *req.Y, game.ErrOutOfBounds)
	}
	return sq, nil
}

func (s *Server) boardPNG(ctx *fasthttp.RequestCtx, id string) {
	frame, err := s.mgr.Frame(id)
	if err != nil {
		s.fail(ctx, err, id)
		return
	}
	img, err := s.renderer.RenderPNG(s.base, frame)
	if err != nil {
		s.fail(ctx, err, id)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("image/png")
	ctx.Response.Header.Set(fasthttp.HeaderCacheControl, "no-store")
	ctx.SetBody(img)
}

func (s *Server) games(ctx *fasthttp.RequestCtx) {
	limit := s.historyLimit
	if ctx.QueryArgs().Has("limit") {
		n, err := ctx.QueryArgs().GetUint("limit")
		if err != nil || n == 0 {
			s.fail(ctx, fmt.Errorf("%w: limit must be a positive integer", errBadRequest), "")
			return
		}
		limit = min(n, maxHistoryLimit)
	}
	games, err := s.mgr.RecentGames(s.base, limit)
	if err != nil {
		s.fail(ctx, err, "")
		return
	}
	resp := sessiondto.HistoryResponse{Games: make([]*sessiondto.GameRecord, 0, len(games))}
	for _, g := range games {
		resp.Games = append(resp.Games, GameRecord(g))
	}
	writeJSON(ctx, fasthttp.StatusOK, resp)
}

func decodeBody(ctx *fasthttp.RequestCtx, v any) error {
	body := ctx.PostBody()
	if len(body) == 0 {
		return fmt.Errorf("%w: empty body", errBadRequest)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return nil
}

// fail writes err as a DomainError with the matching status.
func (s *Server) fail(ctx *fasthttp.RequestCtx, err error, id string) {
	status, derr := s.classify(err, id)
	if status >= fasthttp.StatusInternalServerError {
		s.logger.Warn("http_request_failed", zap.ByteString("path", ctx.Path()), zap.Int("status", status), zap.Error(err))
	}
	writeJSON(ctx, status, sessiondto.ErrorResponse{Error: derr})
}

func (s *Server) classify(err error, id string) (int, sessiondto.DomainError) {
	derr := sessiondto.DomainError{Message: s.mgr.Describe(err, id)}
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, chess.ErrUnknownDifficulty),
		errors.Is(err, game.ErrEmptySource), errors.Is(err, game.ErrNotCandidate):
		derr.Code = sessiondto.CodeInvalidRequest
		derr.Message = s.catalog.RenderOr("errors.invalid_request", map[string]any{"Reason": reason(err)}, err.Error())
		return fasthttp.StatusBadRequest, derr
	case errors.Is(err, match.ErrMatchNotFound):
		derr.Code = sessiondto.CodeMatchNotFound
		return fasthttp.StatusNotFound, derr
	case errors.Is(err, match.ErrOracleUnavailable):
		derr.Code = sessiondto.CodeOracleUnavailable
		return fasthttp.StatusServiceUnavailable, derr
	case errors.Is(err, game.ErrOutOfBounds):
		derr.Code = sessiondto.CodeOutOfBounds
		return fasthttp.StatusBadRequest, derr
	case errors.Is(err, game.ErrGameFinished):
		derr.Code = sessiondto.CodeGameFinished
		return fasthttp.StatusConflict, derr
	case errors.Is(err, game.ErrComputerThinking):
		derr.Code = sessiondto.CodeComputerThinking
		derr.Retryable = true
		return fasthttp.StatusConflict, derr
	default:
		derr.Code = sessiondto.CodeInternal
		derr.Retryable = true
		return fasthttp.StatusInternalServerError, derr
	}
}

// reason strips the sentinel prefix from a bad request error.
func reason(err error) string {
	msg := err.Error()
	if rest, ok := strings.CutPrefix(msg, errBadRequest.Error()+": "); ok {
		return rest
	}
	return msg
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		ctx.Error(`{"error":{"code":"internal","message":"encode response"}}`, fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(payload)
}
