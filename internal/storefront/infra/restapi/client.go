// Package restapi implements the core/ports interfaces against the remote
// commerce backend's REST contract. Every request and response shape the
// backend exposes is declared here as an explicit typed DTO and validated
// at this boundary; nothing untyped leaks past this package.
package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ErrUnauthorized is returned when the backend rejects the bearer token.
// Callers react by clearing the session and forcing re-authentication.
var ErrUnauthorized = errors.New("restapi: authentication rejected")

// BackendError is a well-formed request the backend refused on business
// grounds: invalid coupon, undeliverable address, insufficient stock. The
// Message is the backend's own wording and is surfaced to the customer
// verbatim.
type BackendError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *BackendError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("backend rejected request (%d %s)", e.StatusCode, e.Code)
}

// TokenSource supplies the bearer token for outgoing requests. The session
// store provides the production implementation.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// errorEnvelope is the backend's error body: {"error": "...", "message": "..."}.
type errorEnvelope struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Client is the shared HTTP core the per-service adapters are built on:
// base URL, timeout, bearer auth, JSON codec and error envelope decoding.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
}

// New builds a client for the backend at baseURL. Outgoing requests are
// traced via otelhttp so backend latency shows up in the same trace as the
// checkout transition that caused it.
func New(baseURL string, tokens TokenSource) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		tokens: tokens,
	}
}

// do issues one JSON request. in may be nil for bodyless methods; out may
// be nil when the response body is irrelevant.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("restapi: encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("restapi: build %s %s: %w", method, path, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("restapi: bearer token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("restapi: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("restapi: decode %s %s: %w", method, path, err)
	}
	return nil
}

// decodeError turns a non-2xx response into a *BackendError, preserving the
// backend's message when the body carries one.
func decodeError(resp *http.Response) error {
	var env errorEnvelope
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err := json.Unmarshal(raw, &env); err != nil || (env.Error == "" && env.Message == "") {
		// Not the JSON envelope; keep whatever text came back.
		env.Message = string(bytes.TrimSpace(raw))
	}
	return &BackendError{
		StatusCode: resp.StatusCode,
		Code:       env.Error,
		Message:    env.Message,
	}
}
