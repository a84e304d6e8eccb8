// Package apiclient talks JSON to the hostel backend.
package apiclient

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
)

// DefaultBaseURL is used when no backend origin is configured.
const DefaultBaseURL = "http://localhost:8080"

// Error is returned for any non-2xx response.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Message }

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// Request describes a single call. An empty Method means GET.
type Request struct {
	Method  string
	Body    any
	Headers map[string]string
}

// Observer is notified after every round trip. Status is 0 when the
// request never produced a response.
type Observer func(method, path string, status int, elapsed time.Duration)

// Client issues requests against a fixed base origin.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Observer   Observer
}

// New returns a client for baseURL with the given per-request timeout.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL:    NormalizeBaseURL(baseURL),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// NormalizeBaseURL trims trailing slashes and applies the default origin.
func NormalizeBaseURL(raw string) string {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	if raw == "" {
		return DefaultBaseURL
	}
	return raw
}

type tokenKey struct{}

// WithToken attaches a bearer token to ctx. Calls made with the returned
// context send it as an Authorization header.
func WithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFrom returns the bearer token carried by ctx.
func TokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// Do performs the request and decodes a successful payload into out.
// Empty or malformed bodies decode as null, leaving out untouched.
func (c *Client) Do(ctx context.Context, path string, req Request, out any) error {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if req.Body != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(req.Body); err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = &buf
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if token := TokenFrom(ctx); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	hc := c.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}

	start := time.Now()
	resp, err := hc.Do(httpReq)
	if err != nil {
		c.observe(method, path, 0, start)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	c.observe(method, path, resp.StatusCode, start)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s %s: %w", method, path, err)
	}
	payload := parsePayload(raw)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{Status: resp.StatusCode, Message: errorMessage(payload, resp.StatusCode)}
	}

	if out == nil || payload == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) observe(method, path string, status int, start time.Time) {
	if c.Observer != nil {
		c.Observer(method, path, status, time.Since(start))
	}
}

// parsePayload returns nil for bodies that are empty, not JSON, or null.
func parsePayload(raw []byte) json.RawMessage {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || !json.Valid(raw) || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	return raw
}

func errorMessage(payload json.RawMessage, status int) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if payload != nil {
		_ = json.Unmarshal(payload, &body)
	}
	switch {
	case body.Message != "":
		return body.Message
	case body.Error != "":
		return body.Error
	default:
		return fmt.Sprintf("HTTP %d", status)
	}
}
