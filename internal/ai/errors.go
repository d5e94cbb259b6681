package ai

import (
	"errors"
	"fmt"
	"strings"
)

// ErrFatalAPI marks provider errors that no retry will fix: billing, quota
// and credential problems. Callers stop the whole run instead of burning
// retries item by item.
var ErrFatalAPI = errors.New("fatal AI provider error")

// ErrContentTooLong rejects input past the per-operation character ceiling
// before it reaches the provider. The same content will never fit on a
// retry, so the job queue treats it as final.
var ErrContentTooLong = errors.New("content too long")

var fatalPatterns = []string{
	"credit balance",
	"insufficient credit",
	"rate limit",
	"quota",
	"billing",
	"invalid api key",
	"authentication",
	"unauthorized",
	"401",
	"403",
}

// isFatalAPIError reports whether the error message indicates a
// non-retryable provider failure.
func isFatalAPIError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range fatalPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// wrapFatalError wraps fatal provider errors with ErrFatalAPI so callers can
// errors.Is them. Non-fatal errors pass through unchanged.
func wrapFatalError(err error) error {
	if isFatalAPIError(err) {
		return fmt.Errorf("%w: %v", ErrFatalAPI, err)
	}
	return err
}
