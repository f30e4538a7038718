package shared

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/charmbracelet/log"
)

func TestParseLogLevel(t *testing.T) {
	tc := []struct {
		name  string
		input string
		want  log.Level
	}{
		{name: "debug", input: "debug", want: log.DebugLevel},
		{name: "mixed case with spaces", input: "  WARN ", want: log.WarnLevel},
		{name: "error", input: "error", want: log.ErrorLevel},
		{name: "unknown falls back to info", input: "chatty", want: log.InfoLevel},
		{name: "empty falls back to info", input: "", want: log.InfoLevel},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseLogLevel(tt.input); got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestGenerateState(t *testing.T) {
	a, err := GenerateState()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	b, err := GenerateState()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if a == "" || b == "" {
		t.Fatal("expected non-empty state tokens")
	}
	if a == b {
		t.Error("expected two state tokens to differ")
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf)
	WithLogger(logger, "component", "test").Info("hello")

	if !bytes.Contains(buf.Bytes(), []byte("component=test")) {
		t.Errorf("expected child logger fields in output, got %q", buf.String())
	}
}

func TestIsAuthError(t *testing.T) {
	tc := []struct {
		name string
		err  error
		want bool
	}{
		{name: "not authenticated", err: ErrNotAuthenticated, want: true},
		{name: "wrapped refresh failure", err: fmt.Errorf("refresh: %w", ErrRefreshFailed), want: true},
		{name: "missing refresh token", err: ErrNoRefreshToken, want: true},
		{name: "exchange rejected", err: fmt.Errorf("%w: bad code", ErrAuthFailed), want: true},
		{name: "upstream failure", err: &UpstreamError{StatusCode: 500}, want: false},
		{name: "nil", err: nil, want: false},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAuthError(tt.err); got != tt.want {
				t.Errorf("IsAuthError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestUpstreamError(t *testing.T) {
	err := &UpstreamError{Method: "GET", Endpoint: "/users/me/history/tracks", StatusCode: 503, Body: "down"}

	if !errors.Is(err, ErrAPIRequest) {
		t.Error("expected UpstreamError to unwrap to ErrAPIRequest")
	}
	if !bytes.Contains([]byte(err.Error()), []byte("503")) {
		t.Errorf("expected status in message, got %q", err.Error())
	}
}
