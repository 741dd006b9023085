package driven

import (
	"context"

	"github.com/spsync/spsync/internal/core/domain"
)

// TableSink provisions and writes to one destination database. One sink
// wraps one database handle; the connection cache hands out sinks keyed
// by connection parameters.
//
// Implementations must apply domain.CleanColumnName consistently: the
// same cleaned names used at creation time are used in the insert
// column list.
type TableSink interface {
	// Ping verifies the database connection is usable.
	Ping(ctx context.Context) error

	// TableExists reports whether the named table exists.
	TableExists(ctx context.Context, table string) (bool, error)

	// EnsureTable creates the table with the given columns plus the
	// system columns if it does not exist. An existing table is left
	// untouched, whatever its shape.
	EnsureTable(ctx context.Context, table string, columns []domain.ColumnDef) error

	// Columns returns the existing table's column names, already in
	// destination form.
	Columns(ctx context.Context, table string) ([]string, error)

	// Truncate deletes all rows from the table.
	Truncate(ctx context.Context, table string) error

	// WriteRows inserts the records in batches of batchSize rows, each
	// batch in its own transaction, tagging every row with the run's
	// system column values. Returns the number of rows inserted; on a
	// batch failure earlier committed batches remain.
	WriteRows(ctx context.Context, table string, columns []domain.ColumnDef, result *domain.TabularResult, run *domain.SyncRun, batchSize int) (int, error)

	// Close releases the database handle.
	Close() error
}
