package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// isConnectionError returns true if the error looks like a transient connection
// problem rather than a SQL syntax or constraint error. Only connection errors
// are retried; SQL errors are returned immediately.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	connPatterns := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"no such host",
		"i/o timeout",
		"connect: connection",
		"dial tcp",
		"EOF",
		"connection timed out",
		"server closed the connection unexpectedly",
		"could not connect",
	}
	for _, p := range connPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// WithRetry runs fn and retries it on transient connection errors using the
// same backoff schedule as pool creation. Any other error is returned as is.
func WithRetry(ctx context.Context, logger *slog.Logger, operation string, fn func(ctx context.Context) error) error {
	err := fn(ctx)
	for attempt := 0; err != nil && isConnectionError(err) && attempt < defaultRetryAttempts-1; attempt++ {
		wait := retryBackoff(attempt)
		logger.Warn("database operation failed due to connection error, retrying",
			slog.String("operation", operation),
			slog.Int("attempt", attempt+2),
			slog.Int("max_attempts", defaultRetryAttempts),
			slog.Duration("backoff", wait),
			slog.String("error", err.Error()),
		)
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: context cancelled during retry: %w", operation, ctx.Err())
		case <-time.After(wait):
		}
		err = fn(ctx)
	}
	if err != nil && isConnectionError(err) {
		return fmt.Errorf("%s after %d attempts: %w", operation, defaultRetryAttempts, err)
	}
	return err
}

// Statement is a named, idempotent DDL statement.
type Statement struct {
	Name string
	SQL  string
}

// ExecStatements executes each statement in order. Statements must be
// idempotent (IF NOT EXISTS and friends) since every start re-runs them.
func ExecStatements(ctx context.Context, db DBTX, stmts []Statement, logger *slog.Logger) error {
	for _, stmt := range stmts {
		if _, err := db.Exec(ctx, stmt.SQL); err != nil {
			return fmt.Errorf("execute %s: %w", stmt.Name, err)
		}
		logger.Debug("schema statement applied", slog.String("statement", stmt.Name))
	}
	return nil
}
