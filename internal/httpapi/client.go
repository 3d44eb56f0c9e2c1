package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/park285/cheese-board/pkg/sessiondto"
)

// Client talks to a board server. Reads are retried on 5xx and transport
// errors; state-changing calls are sent once.
type Client struct {
	baseURL string
	http    *fasthttp.Client

	defaultTimeout time.Duration
	retryMax       int
	backoff        time.Duration
}

type ClientOption func(*Client)

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithRetry(max int) ClientOption {
	return func(c *Client) { c.retryMax = max }
}

// WithBackoff sets the first retry delay; later delays double.
func WithBackoff(d time.Duration) ClientOption {
	return func(c *Client) { c.backoff = d }
}

// WithDial replaces the network dialer, e.g. with an in-memory listener.
func WithDial(dial fasthttp.DialFunc) ClientOption {
	return func(c *Client) { c.http.Dial = dial }
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 16},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
		backoff:        100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Health(ctx context.Context) (*sessiondto.HealthResponse, error) {
	var resp sessiondto.HealthResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/healthz", nil, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) CreateMatch(ctx context.Context, mode, difficulty string) (*sessiondto.MatchState, error) {
	req := sessiondto.CreateMatchRequest{Mode: mode, Difficulty: difficulty}
	return c.matchCall(ctx, fasthttp.MethodPost, "/matches", req, false)
}

func (c *Client) GetMatch(ctx context.Context, id string) (*sessiondto.MatchState, error) {
	return c.matchCall(ctx, fasthttp.MethodGet, matchPath(id, ""), nil, true)
}

// Click clicks a named square such as "e2".
func (c *Client) Click(ctx context.Context, id, square string) (*sessiondto.MatchState, error) {
	return c.matchCall(ctx, fasthttp.MethodPost, matchPath(id, "click"), sessiondto.ClickRequest{Square: square}, false)
}

// ClickAt clicks the board image at pixel (x, y).
func (c *Client) ClickAt(ctx context.Context, id string, x, y int) (*sessiondto.MatchState, error) {
	return c.matchCall(ctx, fasthttp.MethodPost, matchPath(id, "click"), sessiondto.ClickRequest{X: &x, Y: &y}, false)
}

func (c *Client) Reset(ctx context.Context, id string) (*sessiondto.MatchState, error) {
	return c.matchCall(ctx, fasthttp.MethodPost, matchPath(id, "reset"), nil, false)
}

func (c *Client) Resume(ctx context.Context, id string) (*sessiondto.MatchState, error) {
	return c.matchCall(ctx, fasthttp.MethodPost, matchPath(id, "resume"), nil, false)
}

func (c *Client) CloseMatch(ctx context.Context, id string) error {
	return c.doJSON(ctx, fasthttp.MethodDelete, matchPath(id, ""), nil, nil, false)
}

// BoardPNG downloads the rendered board.
func (c *Client) BoardPNG(ctx context.Context, id string) ([]byte, error) {
	return c.do(ctx, fasthttp.MethodGet, matchPath(id, "board.png"), nil, true)
}

func (c *Client) RecentGames(ctx context.Context, limit int) ([]*sessiondto.GameRecord, error) {
	path := "/games"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var resp sessiondto.HistoryResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, path, nil, &resp, true); err != nil {
		return nil, err
	}
	return resp.Games, nil
}

func matchPath(id, action string) string {
	p := "/matches/" + url.PathEscape(id)
	if action != "" {
		p += "/" + action
	}
	return p
}

func (c *Client) matchCall(ctx context.Context, method, path string, in any, retry bool) (*sessiondto.MatchState, error) {
	var resp sessiondto.MatchResponse
	if err := c.doJSON(ctx, method, path, in, &resp, retry); err != nil {
		return nil, err
	}
	if resp.Match == nil {
		return nil, errors.New("board api: response without match")
	}
	return resp.Match, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any, retry bool) error {
	var payload []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		payload = b
	}
	body, err := c.do(ctx, method, path, payload, retry)
	if err != nil {
		return err
	}
	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, retry bool) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	if payload != nil {
		req.Header.SetContentType("application/json")
		req.SetBody(payload)
	}

	attempts := 1
	if retry {
		attempts = max(c.retryMax, 1)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			if attempt == attempts {
				return nil, lastErr
			}
			if sleepErr := c.sleepWithContext(ctx, c.backoffDuration(attempt)); sleepErr != nil {
				return nil, lastErr
			}
			continue
		}

		status := resp.StatusCode()
		if status < 200 || status >= 300 {
			lastErr = statusError(status, resp.Body())
			if attempt == attempts || !shouldRetryStatus(status) {
				return nil, lastErr
			}
			if sleepErr := c.sleepWithContext(ctx, c.backoffDuration(attempt)); sleepErr != nil {
				return nil, lastErr
			}
			continue
		}
		return append([]byte(nil), resp.Body()...), nil
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return nil, lastErr
}

// statusError decodes the server's DomainError so callers can errors.As it.
func statusError(status int, body []byte) error {
	var er sessiondto.ErrorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Error.Code != "" {
		return fmt.Errorf("board api error: status=%d: %w", status, er.Error)
	}
	return fmt.Errorf("board api error: status=%d body=%s", status, truncate(string(body), 512))
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func (c *Client) sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (c *Client) backoffDuration(attempt int) time.Duration {
	attempt = min(max(attempt, 1), 6)
	return time.Duration(1<<uint(attempt-1)) * c.backoff
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
