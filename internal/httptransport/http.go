// Package httptransport provides the logging http.RoundTripper used by the
// billing API client.
package httptransport

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// LoggedTransport adds request slog logging.
//
// Responses with status code below 400 are logged with INFO level, all others
// with WARN. When DEBUG logging is enabled request and response headers and
// bodies are logged too. Authorization headers are always redacted.
type LoggedTransport struct {
	// Base is the underlying transport. http.DefaultTransport when nil.
	Base http.RoundTripper
}

func (t LoggedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	isDebug := logRequest(req)
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	start := time.Now()
	resp, err := base.RoundTrip(req)
	if err != nil {
		slog.Warn("HTTP request failed", "method", req.Method, "url", req.URL, "error", err)
		return resp, err
	}
	logResponse(isDebug, resp, req, time.Since(start))
	return resp, nil
}

func logRequest(req *http.Request) bool {
	isDebug := slog.Default().Enabled(context.Background(), slog.LevelDebug)
	if isDebug {
		reqBody := ""
		if req.Body != nil {
			body, err := io.ReadAll(req.Body)
			if err == nil {
				reqBody = string(body)
				req.Body = io.NopCloser(bytes.NewBuffer(body))
			}
		}
		slog.Debug("HTTP request", "method", req.Method, "url", req.URL, "header", redact(req.Header), "body", reqBody)
	}
	return isDebug
}

func logResponse(isDebug bool, resp *http.Response, req *http.Request, elapsed time.Duration) {
	if isDebug {
		var respBody string
		if resp.Body != nil {
			body, err := io.ReadAll(resp.Body)
			if err == nil {
				respBody = string(body)
				resp.Body = io.NopCloser(bytes.NewBuffer(body))
			}
		}
		slog.Debug(
			"HTTP response",
			"method", req.Method,
			"url", req.URL,
			"status", resp.StatusCode,
			"header", resp.Header,
			"body", respBody,
		)
	}
	level := slog.LevelInfo
	if resp.StatusCode >= 400 {
		level = slog.LevelWarn
	}
	slog.Log(
		context.Background(),
		level,
		"HTTP response",
		"method", req.Method,
		"url", req.URL,
		"status", resp.StatusCode,
		"duration_ms", elapsed.Milliseconds(),
	)
}

func redact(h http.Header) http.Header {
	h = h.Clone()
	if h.Get("Authorization") != "" {
		h.Set("Authorization", "REDACTED") // never log this header
	}
	return h
}
