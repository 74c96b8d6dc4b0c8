// Package apiclient is a Go client for the chess2 server: REST calls over
// fasthttp plus a reconnecting room websocket. The probe command uses it,
// and it doubles as the reference consumer of the wire protocol.
package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/Mkharboutley/chess2/pkg/gamedto"
)

// HeaderProvider injects per-request headers, e.g. auth tokens.
type HeaderProvider func() map[string]string

type Client struct {
	baseURL string
	http    *fasthttp.Client
	headers HeaderProvider

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *Client) { c.headers = h }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 64},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Health(ctx context.Context) (*gamedto.HealthResponse, error) {
	var out gamedto.HealthResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/api/health", nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateRoom(ctx context.Context) (*gamedto.CreateRoomResponse, error) {
	var out gamedto.CreateRoomResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/rooms", nil, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Room(ctx context.Context, roomID string) (*gamedto.RoomState, error) {
	var out gamedto.RoomState
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/api/rooms/"+roomID, nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteRoom(ctx context.Context, roomID string) error {
	return c.doJSON(ctx, fasthttp.MethodDelete, "/api/rooms/"+roomID, nil, nil, false)
}

func (c *Client) Join(ctx context.Context, roomID, playerID, name string) (*gamedto.JoinResult, error) {
	req := gamedto.JoinRequest{PlayerID: playerID, Name: name}
	var out gamedto.JoinResult
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/rooms/"+roomID+"/join", req, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Board(ctx context.Context, roomID string) (*gamedto.BoardState, error) {
	var out gamedto.BoardState
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/api/rooms/"+roomID+"/board", nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Resign(ctx context.Context, roomID, playerID string) (*gamedto.ActionResponse, error) {
	var out gamedto.ActionResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/rooms/"+roomID+"/resign/"+playerID, nil, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RequestUndo(ctx context.Context, roomID, playerID string) (*gamedto.ActionResponse, error) {
	var out gamedto.ActionResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/rooms/"+roomID+"/undo/"+playerID, nil, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RequestRematch(ctx context.Context, roomID, playerID string) (*gamedto.ActionResponse, error) {
	var out gamedto.ActionResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/rooms/"+roomID+"/rematch/"+playerID, nil, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RecentGames(ctx context.Context, playerID string, limit int) ([]gamedto.GameSummary, error) {
	path := "/api/players/" + playerID + "/games"
	if limit > 0 {
		path = fmt.Sprintf("%s?limit=%d", path, limit)
	}
	var out []gamedto.GameSummary
	if err := c.doJSON(ctx, fasthttp.MethodGet, path, nil, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any, retry bool) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType("application/json")

	if c.headers != nil {
		for k, v := range c.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.SetBody(payload)
	}

	attempts := 1
	if retry {
		attempts = c.retryMax
		if attempts <= 0 {
			attempts = 1
		}
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err != nil {
			if attempt == attempts || !retry {
				return fmt.Errorf("request failed: %w", err)
			}
			lastErr = err
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		status := resp.StatusCode()
		if status < 200 || status >= 300 {
			err := apiError(status, resp.Body())
			if attempt == attempts || !retry || !shouldRetryStatus(status) {
				return err
			}
			lastErr = err
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		if out != nil {
			if err := json.Unmarshal(resp.Body(), out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

// APIError carries a non-2xx answer with its decoded body when possible.
type APIError struct {
	Status int
	Detail string
	Reason string
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("chess2 api error: status=%d reason=%s detail=%s", e.Status, e.Reason, e.Detail)
	}
	return fmt.Sprintf("chess2 api error: status=%d detail=%s", e.Status, e.Detail)
}

func apiError(status int, body []byte) error {
	var er gamedto.ErrorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Detail != "" {
		return &APIError{Status: status, Detail: er.Detail, Reason: er.Reason}
	}
	return &APIError{Status: status, Detail: truncate(string(body), 512)}
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
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
