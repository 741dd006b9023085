package driven

import (
	"context"

	"github.com/spsync/spsync/internal/core/domain"
)

// ListSource fetches list items from the remote source.
type ListSource interface {
	// Validate checks that the source is reachable with the configured
	// credentials. Makes a lightweight authenticated call; returns nil
	// when ready to fetch.
	Validate(ctx context.Context) error

	// FetchList retrieves every item of the named list, walking
	// pagination internally until the final page. The returned result
	// has metadata fields dropped and nested field names flattened.
	// Partial data is never returned: a mid-walk failure discards
	// earlier pages.
	FetchList(ctx context.Context, listName string) (*domain.TabularResult, error)

	// Close releases the underlying transport.
	Close() error
}
