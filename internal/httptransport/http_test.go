package httptransport_test

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"

	"boletos/internal/httptransport"
)

func captureLogs(t *testing.T, level slog.Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: level})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestLoggedTransport(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	myClient := &http.Client{
		Transport: httptransport.LoggedTransport{},
	}
	t.Run("can log GET request with 200", func(t *testing.T) {
		// given
		buf := captureLogs(t, slog.LevelInfo)
		httpmock.Reset()
		httpmock.RegisterResponder(
			"GET",
			"https://www.example.com/",
			httpmock.NewStringResponder(http.StatusOK, "Test"))
		// when
		r, err := myClient.Get("https://www.example.com/")
		// then
		if assert.NoError(t, err) {
			assert.Equal(t, http.StatusOK, r.StatusCode)
			assert.Contains(t, buf.String(), `level=INFO msg="HTTP response" method=GET url=https://www.example.com/ status=200`)
		}
	})
	t.Run("can log GET request with 500 as warning", func(t *testing.T) {
		// given
		buf := captureLogs(t, slog.LevelInfo)
		httpmock.Reset()
		httpmock.RegisterResponder(
			"GET",
			"https://www.example.com/",
			httpmock.NewStringResponder(http.StatusInternalServerError, "Boom"))
		// when
		r, err := myClient.Get("https://www.example.com/")
		// then
		if assert.NoError(t, err) {
			assert.Equal(t, http.StatusInternalServerError, r.StatusCode)
			assert.Contains(t, buf.String(), `level=WARN msg="HTTP response" method=GET url=https://www.example.com/ status=500`)
		}
	})
	t.Run("should never log authorization headers", func(t *testing.T) {
		// given
		buf := captureLogs(t, slog.LevelDebug)
		httpmock.Reset()
		httpmock.RegisterResponder(
			"GET",
			"https://www.example.com/",
			httpmock.NewStringResponder(http.StatusOK, "Test"))
		req, err := http.NewRequest("GET", "https://www.example.com/", nil)
		if err != nil {
			t.Fatal(err)
		}
		req.Header.Set("Authorization", "Bearer secret-token")
		// when
		r, err := myClient.Do(req)
		// then
		if assert.NoError(t, err) {
			assert.Equal(t, http.StatusOK, r.StatusCode)
			assert.Contains(t, buf.String(), "REDACTED")
			assert.NotContains(t, buf.String(), "secret-token")
			assert.Equal(t, "Bearer secret-token", req.Header.Get("Authorization"))
		}
	})
	t.Run("keeps response body readable after debug logging", func(t *testing.T) {
		// given
		buf := captureLogs(t, slog.LevelDebug)
		httpmock.Reset()
		httpmock.RegisterResponder(
			"GET",
			"https://www.example.com/",
			httpmock.NewStringResponder(http.StatusOK, "Answer"))
		// when
		r, err := myClient.Get("https://www.example.com/")
		// then
		if assert.NoError(t, err) {
			var body bytes.Buffer
			_, _ = body.ReadFrom(r.Body)
			assert.Equal(t, "Answer", body.String())
			assert.Contains(t, buf.String(), "body=Answer")
		}
	})
	t.Run("returns transport errors", func(t *testing.T) {
		// given
		buf := captureLogs(t, slog.LevelInfo)
		httpmock.Reset()
		httpmock.RegisterResponder(
			"GET",
			"https://www.example.com/",
			httpmock.NewErrorResponder(errors.New("connection refused")))
		// when
		_, err := myClient.Get("https://www.example.com/")
		// then
		assert.Error(t, err)
		assert.Contains(t, buf.String(), `msg="HTTP request failed"`)
	})
}
