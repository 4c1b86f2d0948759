package google

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/distill/internal/core/ports/driven"
)

// ErrUnauthorized indicates a missing, invalid or expired access token.
var ErrUnauthorized = errors.New("google: unauthorised (invalid credentials)")

// IsUnauthorized returns true if the error indicates invalid credentials.
func IsUnauthorized(err error) bool {
	if errors.Is(err, ErrUnauthorized) {
		return true
	}
	return statusOf(err) == http.StatusUnauthorized
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return statusOf(err) == http.StatusNotFound
}

// IsRateLimited returns true if the error indicates rate limiting.
// Drive reports per-user rate limits as 403 with a rateLimitExceeded reason.
func IsRateLimited(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	if gerr.Code == http.StatusTooManyRequests {
		return true
	}
	if gerr.Code != http.StatusForbidden {
		return false
	}
	for _, item := range gerr.Errors {
		if item.Reason == "rateLimitExceeded" || item.Reason == "userRateLimitExceeded" {
			return true
		}
	}
	return false
}

// RetryAfter returns the Retry-After hint of a Google API error in seconds,
// or 0 when none was sent.
func RetryAfter(err error) int {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) || gerr.Header == nil {
		return 0
	}
	secs, convErr := strconv.Atoi(strings.TrimSpace(gerr.Header.Get("Retry-After")))
	if convErr != nil || secs < 0 {
		return 0
	}
	return secs
}

// WrapError converts a Google API error into a driven.StatusError the
// resilience layer can classify. Rate-limit 403s are reported as 429.
// Transport errors are wrapped with the operation name only.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return fmt.Errorf("%s: %w", op, err)
	}
	code := gerr.Code
	if IsRateLimited(err) {
		code = http.StatusTooManyRequests
	}
	return &driven.StatusError{Code: code, Op: op, Err: err}
}

func statusOf(err error) int {
	var se *driven.StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	return 0
}
