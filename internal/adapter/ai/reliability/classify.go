// Package reliability provides error classification and rate limiting shared
// by the AI provider adapters.
package reliability

import (
	"context"
	"errors"
	"strings"

	"github.com/testgenius/backend/internal/domain/testgen"
)

// Classify maps a raw provider SDK error onto the domain error taxonomy by
// inspecting its message. Providers do not share error types, so pattern
// matching on the message is the only uniform signal available.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	msg := strings.ToLower(err.Error())

	switch {
	case containsAny(msg, "api key not valid", "invalid api key", "unauthorized", "authentication", "permission denied", "401", "403"):
		return wrap(testgen.ErrAuth, err)
	case containsAny(msg, "rate limit", "quota exceeded", "too many requests", "resource exhausted", "429"):
		return wrap(testgen.ErrRateLimited, err)
	case containsAny(msg, "safety", "blocked", "content policy", "prohibited content", "recitation"):
		return wrap(testgen.ErrContentPolicy, err)
	case containsAny(msg, "model not found", "not found for api version", "is not supported", "model is unavailable", "404"):
		return wrap(testgen.ErrModelUnavailable, err)
	default:
		return err
	}
}

func containsAny(msg string, patterns ...string) bool {
	for _, pattern := range patterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

func wrap(sentinel, cause error) error {
	return &classifiedError{sentinel: sentinel, cause: cause}
}

// classifiedError pairs a taxonomy sentinel with the original provider error
// so both errors.Is checks and the raw message survive.
type classifiedError struct {
	sentinel error
	cause    error
}

func (e *classifiedError) Error() string {
	return e.sentinel.Error() + ": " + e.cause.Error()
}

func (e *classifiedError) Is(target error) bool {
	return errors.Is(e.sentinel, target)
}

func (e *classifiedError) Unwrap() error {
	return e.cause
}
