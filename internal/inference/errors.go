package inference

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrNoBackend is returned for a candidate whose provider has no configured backend.
var ErrNoBackend = errors.New("no backend configured for model candidate")

// RateLimitError indicates a provider returned HTTP 429.
type RateLimitError struct {
	Err        error
	RetryAfter time.Duration
	Provider   string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limited (retry after %s): %v", e.Provider, e.RetryAfter, e.Err)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// NewRateLimitError creates a RateLimitError. If retryAfterSecs is 0, defaults to 60s.
func NewRateLimitError(provider string, err error, retryAfterSecs int) *RateLimitError {
	if retryAfterSecs <= 0 {
		retryAfterSecs = 60
	}
	return &RateLimitError{
		Err:        err,
		RetryAfter: time.Duration(retryAfterSecs) * time.Second,
		Provider:   provider,
	}
}

// ParseRetryAfterHeader parses a Retry-After header value into seconds.
// Returns 0 if the value is empty or not a valid integer.
func ParseRetryAfterHeader(val string) int {
	if val == "" {
		return 0
	}
	secs, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return secs
}

// Attempt records one failed model candidate.
type Attempt struct {
	Candidate string
	Err       error
}

// InferenceError is returned when every model candidate failed.
type InferenceError struct {
	Attempts []Attempt
}

func (e *InferenceError) Error() string {
	if len(e.Attempts) == 0 {
		return "inference failed: no model candidates given"
	}
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = fmt.Sprintf("%s: %v", a.Candidate, a.Err)
	}
	return fmt.Sprintf("inference failed after %d candidate(s): %s", len(e.Attempts), strings.Join(parts, "; "))
}

// Unwrap exposes every attempt error so errors.As can find a RateLimitError.
func (e *InferenceError) Unwrap() []error {
	errs := make([]error, len(e.Attempts))
	for i, a := range e.Attempts {
		errs[i] = a.Err
	}
	return errs
}

// RateLimited reports whether every attempt failed on a rate limit.
func (e *InferenceError) RateLimited() bool {
	if len(e.Attempts) == 0 {
		return false
	}
	for _, a := range e.Attempts {
		var rlErr *RateLimitError
		if !errors.As(a.Err, &rlErr) {
			return false
		}
	}
	return true
}
