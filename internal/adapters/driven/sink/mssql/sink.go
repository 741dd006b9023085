// Package mssql writes sync output to a SQL Server database.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	mssql "github.com/microsoft/go-mssqldb"

	"github.com/spsync/spsync/internal/core/domain"
	"github.com/spsync/spsync/internal/core/ports/driven"
)

// Ensure Sink implements the port.
var _ driven.TableSink = (*Sink)(nil)

// Sink is a SQL Server-backed destination. Batch inserts go through
// the driver's bulk copy path rather than multi-row INSERT statements.
type Sink struct {
	db *sql.DB
}

// New opens a connection pool to the configured server.
func New(cfg domain.DatabaseConfig) (*Sink, error) {
	query := url.Values{"database": {cfg.Database}}
	if cfg.ConnectTimeout > 0 {
		query.Set("connection timeout", strconv.Itoa(int(cfg.ConnectTimeout.Seconds())))
	}
	dsn := url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(cfg.Username, cfg.Password),
		Host:     cfg.Server,
		RawQuery: query.Encode(),
	}

	db, err := sql.Open("sqlserver", dsn.String())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return &Sink{db: db}, nil
}

// Ping verifies the server connection is usable.
func (s *Sink) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// TableExists reports whether the table exists in the current database.
func (s *Sink) TableExists(ctx context.Context, table string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_NAME = @p1", table,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking table %q: %w", table, err)
	}
	return count > 0, nil
}

// EnsureTable creates the table with the data columns plus the system
// columns. An existing table is left untouched.
func (s *Sink) EnsureTable(ctx context.Context, table string, columns []domain.ColumnDef) error {
	exists, err := s.TableExists(ctx, table)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	defs := make([]string, 0, len(columns)+3)
	defs = append(defs, "[id] BIGINT IDENTITY(1,1) PRIMARY KEY")
	for _, col := range columns {
		defs = append(defs, fmt.Sprintf("%s %s NULL", bracket(col.Name), sqlServerType(col.Type)))
	}
	defs = append(defs,
		bracket(domain.ColumnSyncTimestamp)+" DATETIME2 NULL",
		bracket(domain.ColumnSyncID)+" NVARCHAR(255) NULL",
	)

	ddl := fmt.Sprintf("CREATE TABLE %s (%s)", bracket(table), strings.Join(defs, ", "))
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("creating table %q: %w", table, err)
	}
	return nil
}

// Columns returns the table's column names in ordinal order.
func (s *Sink) Columns(ctx context.Context, table string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT COLUMN_NAME FROM INFORMATION_SCHEMA.COLUMNS WHERE TABLE_NAME = @p1 ORDER BY ORDINAL_POSITION", table)
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

// Truncate deletes all rows. DELETE rather than TRUNCATE TABLE keeps
// the required permission down to DML.
func (s *Sink) Truncate(ctx context.Context, table string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM "+bracket(table)); err != nil {
		return fmt.Errorf("truncating %q: %w", table, err)
	}
	return nil
}

// WriteRows bulk-copies the records in batches, one transaction per
// batch. Committed batches survive a later batch's failure; the
// sync_id column identifies every row this run wrote.
func (s *Sink) WriteRows(ctx context.Context, table string, columns []domain.ColumnDef, result *domain.TabularResult, run *domain.SyncRun, batchSize int) (int, error) {
	names := make([]string, 0, len(columns)+2)
	for _, col := range columns {
		names = append(names, col.Name)
	}
	names = append(names, domain.ColumnSyncTimestamp, domain.ColumnSyncID)

	timestamp := time.Now().UTC()

	written := 0
	for _, batch := range domain.BatchRanges(result.Len(), batchSize) {
		start, end := batch[0], batch[1]
		if err := s.writeBatch(ctx, table, names, columns, result.Records[start:end], run.ID, timestamp); err != nil {
			return written, &domain.WriteError{Table: table, Err: err}
		}
		written += end - start
	}
	return written, nil
}

// writeBatch copies one batch inside its own transaction.
func (s *Sink) writeBatch(ctx context.Context, table string, names []string, columns []domain.ColumnDef, records []domain.ListRecord, syncID string, timestamp time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, mssql.CopyIn(table, mssql.BulkOptions{}, names...))
	if err != nil {
		return fmt.Errorf("preparing bulk copy: %w", err)
	}

	for _, rec := range records {
		args := make([]any, 0, len(names))
		for _, col := range columns {
			args = append(args, domain.RecordValue(rec, col.Name).Arg())
		}
		args = append(args, timestamp, syncID)
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			stmt.Close()
			return fmt.Errorf("buffering row: %w", err)
		}
	}

	// The final argument-free exec flushes the bulk copy.
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return fmt.Errorf("flushing bulk copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return err
	}
	return tx.Commit()
}

// Close closes the connection pool.
func (s *Sink) Close() error {
	return s.db.Close()
}

func sqlServerType(t domain.ColumnType) string {
	if t == domain.ColumnInteger {
		return "BIGINT"
	}
	return "NVARCHAR(4000)"
}

// bracket wraps an identifier in square brackets, doubling any closing
// bracket inside it.
func bracket(ident string) string {
	return "[" + strings.ReplaceAll(ident, "]", "]]") + "]"
}
