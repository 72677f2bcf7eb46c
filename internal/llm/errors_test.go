package llm

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/iconidentify/chalkboard/internal/domain"
)

func TestRetryDelay(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		pad    time.Duration
		want   time.Duration
		wantOK bool
	}{
		{
			name:   "message hint",
			err:    &StatusError{Provider: "openai", StatusCode: 429, Body: "Rate limit reached. Please retry after 20 seconds."},
			pad:    time.Second,
			want:   21 * time.Second,
			wantOK: true,
		},
		{
			name:   "fractional retry in",
			err:    errors.New("Error 429, Message: Resource exhausted. Please retry in 7.5s., Status: RESOURCE_EXHAUSTED"),
			want:   7500 * time.Millisecond,
			wantOK: true,
		},
		{
			name:   "retry-after header",
			err:    &StatusError{Provider: "grok", StatusCode: 429, Body: "slow down", RetryAfter: "4"},
			pad:    time.Second,
			want:   5 * time.Second,
			wantOK: true,
		},
		{
			name:   "message wins over header",
			err:    &StatusError{Provider: "grok", StatusCode: 429, Body: "retry after 2 seconds", RetryAfter: "9"},
			want:   2 * time.Second,
			wantOK: true,
		},
		{
			name: "no hint",
			err:  &StatusError{Provider: "openai", StatusCode: 429, Body: "too many requests"},
		},
		{
			name: "nil",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := RetryDelay(tt.err, tt.pad)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("RetryDelay() = %v, %v, want %v, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	if d, ok := parseRetryAfter("3", now); !ok || d != 3*time.Second {
		t.Errorf("parseRetryAfter(3) = %v, %v", d, ok)
	}
	if d, ok := parseRetryAfter("Wed, 01 Jan 2025 12:00:10 GMT", now); !ok || d != 10*time.Second {
		t.Errorf("parseRetryAfter(date) = %v, %v", d, ok)
	}
	if d, ok := parseRetryAfter("Wed, 01 Jan 2025 11:00:00 GMT", now); !ok || d != 0 {
		t.Errorf("parseRetryAfter(past date) = %v, %v, want 0, true", d, ok)
	}
	for _, v := range []string{"", "-1", "soon"} {
		if _, ok := parseRetryAfter(v, now); ok {
			t.Errorf("parseRetryAfter(%q) should fail", v)
		}
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"429", &StatusError{StatusCode: 429}, true},
		{"408", &StatusError{StatusCode: 408}, true},
		{"503", &StatusError{StatusCode: 503}, true},
		{"wrapped 500", fmt.Errorf("call: %w", &StatusError{StatusCode: 500}), true},
		{"400", &StatusError{StatusCode: 400}, false},
		{"401", &StatusError{StatusCode: 401}, false},
		{"transport", &url.Error{Op: "Post", URL: "https://api", Err: errors.New("connection refused")}, true},
		{"canceled", context.Canceled, false},
		{"deadline", fmt.Errorf("x: %w", context.DeadlineExceeded), false},
		{"plain", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestStatusFromMessage(t *testing.T) {
	err := statusFromMessage("gemini", errors.New("Error 429, Message: quota exceeded, Status: RESOURCE_EXHAUSTED"))

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %T", err)
	}
	if se.StatusCode != 429 || se.Provider != "gemini" {
		t.Errorf("StatusError = %+v", se)
	}
	if !IsRateLimited(err) {
		t.Error("IsRateLimited should be true")
	}
	if !errors.Is(fmt.Errorf("describe: %w", err), domain.ErrRateLimited) {
		t.Error("wrapped 429 should match domain.ErrRateLimited")
	}
	if errors.Is(&StatusError{StatusCode: 503}, domain.ErrRateLimited) {
		t.Error("503 should not match domain.ErrRateLimited")
	}

	plain := statusFromMessage("gemini", errors.New("dial tcp: refused"))
	if errors.As(plain, &se) {
		t.Error("plain errors should not become StatusError")
	}
	if statusFromMessage("gemini", nil) != nil {
		t.Error("nil should stay nil")
	}
}

func TestCleanOutput(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  plain  ", "plain"},
		{"```\nfenced\n```", "fenced"},
		{"```text\nlabelled fence\n```", "labelled fence"},
	}
	for _, tt := range tests {
		if got := cleanOutput(tt.in); got != tt.want {
			t.Errorf("cleanOutput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
