package helpers

import (
	"context"
	"fmt"
	"time"

	"binance-observer/src/logger"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type ObserverError struct {
	Message string
	Cause   error
}

func (e *ObserverError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ObserverError) Unwrap() error {
	return e.Cause
}

// Distinct error types for type assertions where callers care
type ConfigurationError struct{ ObserverError }
type ConnectionError struct{ ObserverError }
type DatabaseError struct{ ObserverError }

// -----------------------------------------------------------------------------

func NewConfigurationError(message string, cause error) *ConfigurationError {
	return &ConfigurationError{ObserverError{Message: message, Cause: cause}}
}

func NewConnectionError(message string, cause error) *ConnectionError {
	return &ConnectionError{ObserverError{Message: message, Cause: cause}}
}

func NewDatabaseError(message string, cause error) *DatabaseError {
	return &DatabaseError{ObserverError{Message: message, Cause: cause}}
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryWithBackoff attempts the operation up to maxRetries times with
// exponential backoff, honoring context cancellation between attempts.
// Retry policy lives here, with the connection owners - never inside the
// wire codec.
func RetryWithBackoff(ctx context.Context, log *logger.Logger, operation string, maxRetries int, baseDelay time.Duration, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
		}

		if attempt == maxRetries-1 {
			break
		}

		delay := baseDelay * (1 << attempt)
		log.Warning("%s failed (attempt %d/%d): %v. Retrying in %v", operation, attempt+1, maxRetries, lastErr, delay)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operation, maxRetries, lastErr)
}
