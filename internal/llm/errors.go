package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/iconidentify/chalkboard/internal/domain"
)

// StatusError is a non-success HTTP answer from a provider.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
	RetryAfter string // raw Retry-After header, if the provider exposed it
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: http %d: %s", e.Provider, e.StatusCode, strings.TrimSpace(e.Body))
}

// Retryable reports whether a status is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusRequestTimeout ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= http.StatusInternalServerError
}

// Is makes a 429 match domain.ErrRateLimited.
func (e *StatusError) Is(target error) bool {
	return target == domain.ErrRateLimited && e.StatusCode == http.StatusTooManyRequests
}

// IsRateLimited reports whether err is a provider 429.
func IsRateLimited(err error) bool {
	return errors.Is(err, domain.ErrRateLimited)
}

// IsRetryable reports whether err is a transient provider or transport failure.
// Context cancellation is never retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

var retryHintPattern = regexp.MustCompile(`(?i)retry (?:after|in) (\d+(?:\.\d+)?)\s*(?:s\b|sec|second)`)

// RetryDelay extracts the wait a provider asked for. A "retry after N
// seconds" (or "retry in Ns") phrase in the error text wins, then the
// Retry-After header. pad is added to either. The boolean is false when the
// error carries no hint.
func RetryDelay(err error, pad time.Duration) (time.Duration, bool) {
	if err == nil {
		return 0, false
	}

	if m := retryHintPattern.FindStringSubmatch(err.Error()); m != nil {
		if secs, perr := strconv.ParseFloat(m[1], 64); perr == nil {
			return time.Duration(secs*float64(time.Second)) + pad, true
		}
	}

	var se *StatusError
	if errors.As(err, &se) && se.RetryAfter != "" {
		if d, ok := parseRetryAfter(se.RetryAfter, time.Now()); ok {
			return d + pad, true
		}
	}
	return 0, false
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	if at, err := http.ParseTime(value); err == nil {
		d := at.Sub(now)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}

var statusInMessage = regexp.MustCompile(`Error (\d{3})`)

// statusFromMessage turns an SDK error whose text starts "Error NNN" into a
// StatusError, keeping the original message as the body.
func statusFromMessage(provider string, err error) error {
	if err == nil {
		return nil
	}
	if m := statusInMessage.FindStringSubmatch(err.Error()); m != nil {
		code, _ := strconv.Atoi(m[1])
		return &StatusError{Provider: provider, StatusCode: code, Body: err.Error()}
	}
	return fmt.Errorf("%s: %w", provider, err)
}
