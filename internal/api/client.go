// Package api implements the relay client for the task-tracker backend.
// It forwards a method/path/body/headers tuple to the versioned API,
// unwraps success payloads into typed values, and maps every failure to a
// uniform *Error carrying a numeric status code and message.
//
// The client holds no session state: authenticated calls receive their
// Authorization header from the caller on every request.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// basePath is the versioned prefix every backend route lives under.
const basePath = "/api/v1"

// Client is the HTTP relay to the task-tracker backend. Safe for
// concurrent use.
type Client struct {
	baseURL string       // backend origin, e.g. "http://localhost:8080"
	http    *http.Client // transport with the configured timeout
}

// Request describes one backend call. Route is the path template used as
// the metrics label ("/goals/{goalId}"); Path is the concrete path
// ("/goals/12"). Body is JSON-encoded when non-nil. Header entries are
// added verbatim, which is how callers attach the bearer Authorization
// header.
type Request struct {
	Method string
	Route  string
	Path   string
	Body   any
	Header map[string]string
}

// NewClient creates a relay client for the backend at baseURL. The timeout
// bounds each round trip; there is no retry.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Do executes one backend call and decodes a 2xx response body into out
// (skipped when out is nil or the body is empty).
//
// Failures are always a *Error: non-2xx responses keep the backend's
// status code and its envelope message when present, transport failures
// are surfaced with status 500. Cached state held by callers is never
// touched here; the caller applies its mutation only after Do returns nil.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	var bodyReader io.Reader
	if req.Body != nil {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return &Error{StatusCode: http.StatusInternalServerError, Message: "failed to encode request body", err: err}
		}
		bodyReader = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.baseURL+basePath+req.Path, bodyReader)
	if err != nil {
		return &Error{StatusCode: http.StatusInternalServerError, Message: "failed to build request", err: err}
	}

	requestID := uuid.New().String()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for key, value := range req.Header {
		httpReq.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		observeRequest(req.Method, req.Route, 0, time.Since(start))
		log.Warn().
			Err(err).
			Str("method", req.Method).
			Str("path", req.Path).
			Str("request_id", requestID).
			Msg("Backend unreachable")
		return &Error{StatusCode: http.StatusInternalServerError, Message: "backend request failed", err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	observeRequest(req.Method, req.Route, resp.StatusCode, time.Since(start))
	if err != nil {
		return &Error{StatusCode: http.StatusInternalServerError, Message: "failed to read response body", err: err}
	}

	log.Debug().
		Str("method", req.Method).
		Str("path", req.Path).
		Int("status", resp.StatusCode).
		Str("request_id", requestID).
		Dur("elapsed", time.Since(start)).
		Msg("Backend call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{
			StatusCode: resp.StatusCode,
			Message:    backendMessage(payload),
		}
	}

	if out == nil || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return &Error{
			StatusCode: http.StatusInternalServerError,
			Message:    fmt.Sprintf("unexpected response shape from %s %s", req.Method, req.Path),
			err:        err,
		}
	}
	return nil
}

// backendMessage extracts the failure message from a backend error
// envelope, preferring the "error" key, then "message", else a generic
// fallback.
func backendMessage(payload []byte) string {
	var envelope errorEnvelope
	if err := json.Unmarshal(payload, &envelope); err == nil {
		if envelope.Error != "" {
			return envelope.Error
		}
		if envelope.Message != "" {
			return envelope.Message
		}
	}
	return "backend request failed"
}
