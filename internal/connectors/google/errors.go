package google

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/scoresync/internal/core/domain"
)

// Common Google API errors. Each wraps the matching domain error so the
// core can classify them without knowing about Google.
var (
	// ErrUnauthorized indicates invalid or expired credentials.
	ErrUnauthorized = fmt.Errorf("google: unauthorised (invalid credentials): %w", domain.ErrAuthRequired)

	// ErrForbidden indicates insufficient permissions.
	ErrForbidden = errors.New("google: forbidden (insufficient permissions)")

	// ErrNotFound indicates the requested resource was not found.
	ErrNotFound = fmt.Errorf("google: resource not found: %w", domain.ErrNotFound)

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("google: rate limit exceeded")

	// ErrSyncTokenExpired indicates the change page token has expired (410 GONE).
	// The feed must restart from a fresh start token.
	ErrSyncTokenExpired = fmt.Errorf("google: page token expired: %w", domain.ErrCursorExpired)
)

// IsUnauthorized returns true if the error indicates invalid credentials.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized) || hasCode(err, http.StatusUnauthorized)
}

// IsForbidden returns true if the error indicates insufficient permissions.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden) || hasCode(err, http.StatusForbidden)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || hasCode(err, http.StatusNotFound)
}

// IsRateLimited returns true if the error indicates rate limiting.
// Drive also reports per-user rate limits as 403 with a rateLimitExceeded reason.
func IsRateLimited(err error) bool {
	if errors.Is(err, ErrRateLimited) || hasCode(err, http.StatusTooManyRequests) {
		return true
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusForbidden {
		for _, item := range gerr.Errors {
			if item.Reason == "rateLimitExceeded" || item.Reason == "userRateLimitExceeded" {
				return true
			}
		}
	}
	return false
}

// IsSyncTokenExpired returns true if the error indicates an expired page token (410 GONE).
func IsSyncTokenExpired(err error) bool {
	return errors.Is(err, ErrSyncTokenExpired) || hasCode(err, http.StatusGone)
}

// IsRetryable reports whether a request that failed with err may succeed if repeated:
// rate limiting, server errors and network failures.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if IsRateLimited(err) {
		return true
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code >= http.StatusInternalServerError
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// RetryAfter returns the Retry-After header of a rate limit response in seconds, or 0.
func RetryAfter(err error) int {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) || gerr.Header == nil {
		return 0
	}
	seconds, convErr := strconv.Atoi(gerr.Header.Get("Retry-After"))
	if convErr != nil || seconds < 0 {
		return 0
	}
	return seconds
}

// WrapError converts a Google API error to a more specific error type.
func WrapError(err error) error {
	if err == nil {
		return nil
	}

	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}

	switch {
	case gerr.Code == http.StatusUnauthorized:
		return ErrUnauthorized
	case IsRateLimited(gerr):
		return fmt.Errorf("%w: %v", ErrRateLimited, gerr)
	case gerr.Code == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrForbidden, gerr.Message)
	case gerr.Code == http.StatusNotFound:
		return ErrNotFound
	case gerr.Code == http.StatusGone:
		return ErrSyncTokenExpired
	default:
		return err
	}
}

func hasCode(err error, code int) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == code
}
