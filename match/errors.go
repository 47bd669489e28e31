package match

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrorClass represents whether an import error should be retried or not.
type ErrorClass int

const (
	// ErrorClassRetryable indicates the fetch should be retried (transient errors).
	ErrorClassRetryable ErrorClass = iota
	// ErrorClassFatal indicates the fetch should not be retried (permanent errors).
	ErrorClassFatal
)

// String returns a human-readable name for the error class.
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorClassRetryable:
		return "retryable"
	case ErrorClassFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// StatusError is an unexpected HTTP status from the match source.
type StatusError struct {
	MatchID int64
	Code    int
	Body    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch match %d: status %d: %s", e.MatchID, e.Code, e.Body)
}

// ClassifyFetchError classifies fetch errors into retryable vs fatal.
//
// Fatal: missing or unparsed matches, 4xx other than 429, cancellation.
// Retryable: 429 and 5xx, network errors and timeouts.
// Errors that match no known class are treated as retryable.
func ClassifyFetchError(err error) ErrorClass {
	if err == nil {
		return ErrorClassFatal
	}
	if errors.Is(err, ErrMatchNotFound) || errors.Is(err, ErrNoChat) || errors.Is(err, context.Canceled) {
		return ErrorClassFatal
	}

	var se *StatusError
	if errors.As(err, &se) {
		switch {
		case se.Code == http.StatusTooManyRequests, se.Code >= 500:
			return ErrorClassRetryable
		case se.Code >= 400:
			return ErrorClassFatal
		}
	}
	// network errors, timeouts and anything unrecognized
	return ErrorClassRetryable
}

// IsRetryableError checks if an error should trigger another fetch attempt.
func IsRetryableError(err error) bool {
	return ClassifyFetchError(err) == ErrorClassRetryable
}
