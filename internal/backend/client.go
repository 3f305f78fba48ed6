// Package backend is the typed client of the REST service that owns
// providers, stores, users, roles and permissions.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/EnmanuelOvalles37/consumo-admin/internal/platform/httpx"
	"github.com/EnmanuelOvalles37/consumo-admin/internal/shared"
)

const maxErrorBody = 64 << 10

// Observer receives timing for every backend call.
type Observer interface {
	ObserveBackendCall(operation, outcome string, elapsed time.Duration)
}

// Client talks to the REST backend under a single base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
	observer   Observer
	token      func(context.Context) string
	reads      singleflight.Group
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithObserver registers a call observer, typically the metrics collector.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithTokenSource overrides how the bearer token is resolved for a call.
func WithTokenSource(fn func(context.Context) string) Option {
	return func(c *Client) { c.token = fn }
}

// NewClient constructs a client for baseURL.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		token:      principalToken,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func principalToken(ctx context.Context) string {
	if p := shared.PrincipalFromContext(ctx); p != nil {
		return p.Token
	}
	return ""
}

// get performs a GET and decodes the body into out. Identical concurrent reads
// issued with the same credentials share one round trip.
func (c *Client) get(ctx context.Context, op, path string, out any) error {
	token := c.token(ctx)
	key := token + " " + path
	ch := c.reads.DoChan(key, func() (any, error) {
		var raw json.RawMessage
		if err := c.do(context.WithoutCancel(ctx), op, http.MethodGet, path, token, nil, &raw); err != nil {
			return nil, err
		}
		return raw, nil
	})
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", shared.ErrNetwork, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return res.Err
		}
		raw, _ := res.Val.(json.RawMessage)
		if out == nil || len(raw) == 0 {
			return nil
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("%w: decode %s: %v", shared.ErrBackend, op, err)
		}
		return nil
	}
}

// send performs a mutating call.
func (c *Client) send(ctx context.Context, op, method, path string, body, out any) error {
	return c.do(ctx, op, method, path, c.token(ctx), body, out)
}

func (c *Client) do(ctx context.Context, op, method, path, token string, body, out any) (err error) {
	start := time.Now()
	defer func() {
		if c.observer != nil {
			c.observer.ObserveBackendCall(op, outcome(err), time.Since(start))
		}
	}()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("backend: encode %s: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("backend: build %s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", shared.ErrNetwork, op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		return statusError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %s: read body: %v", shared.ErrNetwork, op, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], data...)
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", shared.ErrBackend, op, err)
	}
	return nil
}

type messageBody struct {
	httpx.ProblemDetail
	Mensaje string `json:"mensaje"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func statusError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body messageBody
	jsonErr := json.Unmarshal(data, &body)
	detail := firstNonEmpty(body.Mensaje, body.Detail, body.Message, body.Error)
	if detail == "" && jsonErr != nil {
		detail = strings.TrimSpace(string(data))
		if len(detail) > 200 || strings.HasPrefix(detail, "<") {
			detail = ""
		}
	}

	var kind error
	switch {
	case resp.StatusCode == http.StatusNotFound:
		kind = shared.ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		kind = shared.ErrForbidden
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity || resp.StatusCode == http.StatusConflict:
		kind = shared.ErrValidation
	case resp.StatusCode >= 500:
		kind = shared.ErrBackend
		detail = ""
	default:
		kind = shared.ErrBackend
	}
	return &shared.DetailError{Kind: kind, Detail: detail}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, shared.ErrNetwork):
		return "network"
	case errors.Is(err, shared.ErrNotFound):
		return "not_found"
	case errors.Is(err, shared.ErrForbidden):
		return "forbidden"
	case errors.Is(err, shared.ErrValidation):
		return "validation"
	default:
		return "error"
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
