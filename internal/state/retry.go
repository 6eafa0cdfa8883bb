package state

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	maxRetries = 5
	baseDelay  = 50 * time.Millisecond
	maxJitter  = 25 * time.Millisecond
)

// withRetry runs fn, retrying with exponential backoff while another
// process holds the database lock. Other errors fail fast.
func withRetry(ctx context.Context, op string, fn func() error) error {
	var lastErr error

	for attempt := range maxRetries {
		err := fn()
		if err == nil {
			if attempt > 0 {
				slog.Debug("state write succeeded after retry", "op", op, "attempt", attempt+1)
			}
			return nil
		}
		if !isRetryable(err) {
			return err
		}

		lastErr = err
		delay := backoffDelay(attempt)
		slog.Warn("state database busy, retrying",
			"op", op,
			"attempt", attempt+1,
			"error", err,
			"retry_in", delay)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return lastErr
}

// isRetryable reports whether err is a lock conflict with another
// connection.
func isRetryable(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		// extended codes keep the primary code in the low byte
		switch sqliteErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
		return false
	}

	// some paths wrap the driver error as text only
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY")
}

// backoffDelay returns exponential backoff with jitter.
func backoffDelay(attempt int) time.Duration {
	delay := baseDelay << uint(attempt) // 50ms, 100ms, 200ms, ...
	jitter := time.Duration(rand.Int64N(int64(maxJitter)))
	return delay + jitter
}
