package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/park285/cheese-duel/pkg/chessdto"
	"github.com/valyala/fasthttp"
)

var ErrNotFound = errors.New("not found")

// API calls the server's admin routes.
type API struct {
	baseURL string
	http    *fasthttp.Client

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*API)

func WithTimeout(d time.Duration) Option {
	return func(a *API) { a.defaultTimeout = d }
}

func WithRetry(max int) Option {
	return func(a *API) { a.retryMax = max }
}

func NewAPI(baseURL string, opts ...Option) *API {
	a := &API{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 8},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *API) Health(ctx context.Context) (*chessdto.Health, error) {
	var h chessdto.Health
	if err := a.get(ctx, "/health", &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (a *API) Lobby(ctx context.Context) ([]chessdto.LobbyEntry, error) {
	var entries []chessdto.LobbyEntry
	if err := a.get(ctx, "/lobby", &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Session returns ErrNotFound for unknown ids.
func (a *API) Session(ctx context.Context, id string) (*chessdto.SessionSummary, error) {
	var sum chessdto.SessionSummary
	if err := a.get(ctx, "/sessions/"+url.PathEscape(id), &sum); err != nil {
		return nil, err
	}
	return &sum, nil
}

// BoardPNG fetches the rendered board image.
func (a *API) BoardPNG(ctx context.Context, id string) ([]byte, error) {
	return a.do(ctx, "/sessions/"+url.PathEscape(id)+"/board.png")
}

func (a *API) get(ctx context.Context, path string, out any) error {
	body, err := a.do(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// do issues a GET with retries on transport errors and 5xx.
func (a *API) do(ctx context.Context, path string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodGet)
	req.SetRequestURI(a.baseURL + path)

	attempts := a.retryMax
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		err := a.http.DoDeadline(req, resp, a.computeDeadline(ctx))
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
		} else {
			status := resp.StatusCode()
			switch {
			case status == fasthttp.StatusNotFound:
				return nil, ErrNotFound
			case status >= 200 && status < 300:
				return append([]byte(nil), resp.Body()...), nil
			default:
				lastErr = fmt.Errorf("chess api error: status=%d body=%s", status, truncate(string(resp.Body()), 512))
				if !shouldRetryStatus(status) {
					return nil, lastErr
				}
			}
		}
		if attempt == attempts {
			break
		}
		if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

func (a *API) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(a.defaultTimeout)
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
	base := 100 * time.Millisecond
	return time.Duration(1<<uint(attempt-1)) * base
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
