// Package sqlite writes sync output to an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/spsync/spsync/internal/core/domain"
	"github.com/spsync/spsync/internal/core/ports/driven"
)

// Ensure Sink implements the port.
var _ driven.TableSink = (*Sink)(nil)

// Sink is a SQLite-backed destination.
type Sink struct {
	db   *sql.DB
	path string
}

// New opens (creating if needed) the SQLite file. WAL mode keeps
// concurrent readers usable while a sync writes.
func New(cfg domain.DatabaseConfig) (*Sink, error) {
	db, err := sql.Open("sqlite", cfg.File+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return &Sink{db: db, path: cfg.File}, nil
}

// Ping verifies the database file is usable.
func (s *Sink) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// TableExists reports whether the table exists.
func (s *Sink) TableExists(ctx context.Context, table string) (bool, error) {
	var name string
	err := s.db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table,
	).Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking table %q: %w", table, err)
	}
	return true, nil
}

// EnsureTable creates the table with the data columns plus the system
// columns. An existing table is left untouched.
func (s *Sink) EnsureTable(ctx context.Context, table string, columns []domain.ColumnDef) error {
	defs := make([]string, 0, len(columns)+3)
	defs = append(defs, `"id" INTEGER PRIMARY KEY AUTOINCREMENT`)
	for _, col := range columns {
		defs = append(defs, fmt.Sprintf("%s %s", quote(col.Name), sqliteType(col.Type)))
	}
	defs = append(defs,
		quote(domain.ColumnSyncTimestamp)+" TEXT",
		quote(domain.ColumnSyncID)+" TEXT",
	)

	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quote(table), strings.Join(defs, ", "))
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("creating table %q: %w", table, err)
	}
	return nil
}

// Columns returns the table's column names in declaration order.
func (s *Sink) Columns(ctx context.Context, table string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM pragma_table_info(?) ORDER BY cid", table)
	if err != nil {
		return nil, fmt.Errorf("reading columns of %q: %w", table, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Truncate deletes all rows. SQLite has no TRUNCATE statement; an
// unqualified DELETE takes its fast path.
func (s *Sink) Truncate(ctx context.Context, table string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM "+quote(table)); err != nil {
		return fmt.Errorf("truncating %q: %w", table, err)
	}
	return nil
}

// maxHostParams is SQLite's default SQLITE_MAX_VARIABLE_NUMBER. One
// statement can bind at most this many values, so wide tables insert
// fewer rows per statement.
const maxHostParams = 32766

// WriteRows inserts the records in batches, one transaction per batch.
// Committed batches survive a later batch's failure; the sync_id column
// identifies every row this run wrote. Within a batch the rows are
// split over as many INSERT statements as the host-parameter limit
// requires, all inside the same transaction.
func (s *Sink) WriteRows(ctx context.Context, table string, columns []domain.ColumnDef, result *domain.TabularResult, run *domain.SyncRun, batchSize int) (int, error) {
	names := make([]string, 0, len(columns)+2)
	for _, col := range columns {
		names = append(names, quote(col.Name))
	}
	names = append(names, quote(domain.ColumnSyncTimestamp), quote(domain.ColumnSyncID))

	rowWidth := len(columns) + 2
	placeholder := "(" + strings.TrimRight(strings.Repeat("?, ", rowWidth), ", ") + ")"
	timestamp := time.Now().UTC().Format(time.RFC3339)

	rowsPerStmt := maxHostParams / rowWidth
	if rowsPerStmt < 1 {
		rowsPerStmt = 1
	}

	written := 0
	for _, batch := range domain.BatchRanges(result.Len(), batchSize) {
		start, end := batch[0], batch[1]

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return written, &domain.WriteError{Table: table, Err: err}
		}
		for _, chunk := range domain.BatchRanges(end-start, rowsPerStmt) {
			from, to := start+chunk[0], start+chunk[1]

			values := make([]string, 0, to-from)
			args := make([]any, 0, (to-from)*rowWidth)
			for _, rec := range result.Records[from:to] {
				values = append(values, placeholder)
				for _, col := range columns {
					args = append(args, domain.RecordValue(rec, col.Name).Arg())
				}
				args = append(args, timestamp, run.ID)
			}

			query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
				quote(table), strings.Join(names, ", "), strings.Join(values, ", "))
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				tx.Rollback()
				return written, &domain.WriteError{Table: table, Err: err}
			}
		}
		if err := tx.Commit(); err != nil {
			return written, &domain.WriteError{Table: table, Err: err}
		}
		written += end - start
	}
	return written, nil
}

// Close closes the database handle.
func (s *Sink) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Sink) Path() string {
	return s.path
}

func sqliteType(t domain.ColumnType) string {
	if t == domain.ColumnInteger {
		return "INTEGER"
	}
	return "TEXT"
}

// quote wraps an identifier in double quotes. Cleaned column names
// cannot contain quotes; table names from config get theirs doubled.
func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
