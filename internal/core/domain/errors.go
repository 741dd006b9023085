package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrSyncInProgress indicates a sync is already running. A start
	// request while non-idle is rejected, not queued.
	ErrSyncInProgress = errors.New("sync in progress")

	// ErrInvalidConfig indicates the sync configuration is incomplete.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnsupportedDatabase indicates an unknown destination database type.
	ErrUnsupportedDatabase = errors.New("unsupported database type")
)

// AuthenticationError means the token exchange exhausted its retries or
// the credentials were rejected outright.
type AuthenticationError struct {
	Err error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed: %v", e.Err)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// FetchError means the paginated read failed after retries or a page
// response was malformed. Data from earlier pages is discarded.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("list fetch failed: %v", e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// SchemaError means destination table introspection or creation failed.
// Never retried: a DDL permission problem does not heal on retry.
type SchemaError struct {
	Table string
	Err   error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema reconciliation failed for table %q: %v", e.Table, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// WriteError means a batch insert failed. Batches committed before the
// failure remain in the table; the sync_id column identifies them.
type WriteError struct {
	Table string
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write to table %q failed: %v", e.Table, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// CancelledError means a cooperative stop was honoured. It records the
// phase in which the cancellation was observed.
type CancelledError struct {
	Phase Phase
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("sync cancelled during %s", e.Phase)
}

// IsCancelled reports whether an error is a honoured cancellation.
func IsCancelled(err error) bool {
	var c *CancelledError
	return errors.As(err, &c)
}
