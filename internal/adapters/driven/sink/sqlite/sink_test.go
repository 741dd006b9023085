package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spsync/spsync/internal/core/domain"
)

func newTestSink(t *testing.T) *Sink {
	t.Helper()
	sink, err := New(domain.DatabaseConfig{
		Type: domain.DatabaseSQLite,
		File: filepath.Join(t.TempDir(), "sync.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { sink.Close() })
	return sink
}

func taskColumns() []domain.ColumnDef {
	return []domain.ColumnDef{
		{Name: "task_id", Type: domain.ColumnInteger},
		{Name: "title", Type: domain.ColumnText},
	}
}

func taskResult(n int) *domain.TabularResult {
	result := domain.NewTabularResult()
	for i := 0; i < n; i++ {
		result.Append(domain.ListRecord{
			"task_id": domain.Int(int64(i + 1)),
			"title":   domain.Text(fmt.Sprintf("task %d", i+1)),
		})
	}
	return result
}

func TestSink_Ping(t *testing.T) {
	sink := newTestSink(t)
	assert.NoError(t, sink.Ping(context.Background()))
}

func TestSink_EnsureTable(t *testing.T) {
	sink := newTestSink(t)
	ctx := context.Background()

	exists, err := sink.TableExists(ctx, "tasks")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, sink.EnsureTable(ctx, "tasks", taskColumns()))

	exists, err = sink.TableExists(ctx, "tasks")
	require.NoError(t, err)
	assert.True(t, exists)

	// Data columns plus the surrogate key and system columns.
	cols, err := sink.Columns(ctx, "tasks")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "task_id", "title", "sync_timestamp", "sync_id"}, cols)
}

func TestSink_EnsureTableIdempotent(t *testing.T) {
	sink := newTestSink(t)
	ctx := context.Background()

	require.NoError(t, sink.EnsureTable(ctx, "tasks", taskColumns()))
	// A second ensure with different columns leaves the table alone.
	require.NoError(t, sink.EnsureTable(ctx, "tasks", []domain.ColumnDef{{Name: "other", Type: domain.ColumnText}}))

	cols, err := sink.Columns(ctx, "tasks")
	require.NoError(t, err)
	assert.Contains(t, cols, "task_id")
	assert.NotContains(t, cols, "other")
}

func TestSink_WriteRowsInBatches(t *testing.T) {
	sink := newTestSink(t)
	ctx := context.Background()
	columns := taskColumns()
	require.NoError(t, sink.EnsureTable(ctx, "tasks", columns))

	run := domain.NewSyncRun(time.Now())
	written, err := sink.WriteRows(ctx, "tasks", columns, taskResult(120), run, 50)
	require.NoError(t, err)
	assert.Equal(t, 120, written)

	var count int
	require.NoError(t, sink.db.QueryRow(`SELECT COUNT(*) FROM "tasks"`).Scan(&count))
	assert.Equal(t, 120, count)

	// Every row carries this run's id and a timestamp.
	var tagged int
	require.NoError(t, sink.db.QueryRow(
		`SELECT COUNT(*) FROM "tasks" WHERE sync_id = ? AND sync_timestamp IS NOT NULL`, run.ID,
	).Scan(&tagged))
	assert.Equal(t, 120, tagged)

	// Values survive the round trip with their types.
	var taskID int64
	var title string
	require.NoError(t, sink.db.QueryRow(
		`SELECT task_id, title FROM "tasks" ORDER BY id LIMIT 1`,
	).Scan(&taskID, &title))
	assert.Equal(t, int64(1), taskID)
	assert.Equal(t, "task 1", title)
}

func TestSink_WriteRowsWideTable(t *testing.T) {
	sink := newTestSink(t)
	ctx := context.Background()

	// 70 data columns at the default batch size would need more host
	// parameters than one SQLite statement allows; the write must split
	// the batch over several statements instead of failing.
	columns := make([]domain.ColumnDef, 70)
	for i := range columns {
		columns[i] = domain.ColumnDef{Name: fmt.Sprintf("field_%02d", i), Type: domain.ColumnText}
	}
	require.NoError(t, sink.EnsureTable(ctx, "wide", columns))

	result := domain.NewTabularResult()
	for i := 0; i < 500; i++ {
		rec := make(domain.ListRecord, len(columns))
		for _, col := range columns {
			rec[col.Name] = domain.Text(fmt.Sprintf("%s/%d", col.Name, i))
		}
		result.Append(rec)
	}

	run := domain.NewSyncRun(time.Now())
	written, err := sink.WriteRows(ctx, "wide", columns, result, run, domain.DefaultBatchSize)
	require.NoError(t, err)
	assert.Equal(t, 500, written)

	var count int
	require.NoError(t, sink.db.QueryRow(`SELECT COUNT(*) FROM "wide"`).Scan(&count))
	assert.Equal(t, 500, count)

	// First and last rows arrive intact.
	var first, last string
	require.NoError(t, sink.db.QueryRow(`SELECT field_69 FROM "wide" ORDER BY id LIMIT 1`).Scan(&first))
	require.NoError(t, sink.db.QueryRow(`SELECT field_00 FROM "wide" ORDER BY id DESC LIMIT 1`).Scan(&last))
	assert.Equal(t, "field_69/0", first)
	assert.Equal(t, "field_00/499", last)
}

func TestSink_WriteRowsNullsStayNull(t *testing.T) {
	sink := newTestSink(t)
	ctx := context.Background()
	columns := taskColumns()
	require.NoError(t, sink.EnsureTable(ctx, "tasks", columns))

	result := domain.NewTabularResult()
	result.Append(domain.ListRecord{"task_id": domain.Int(1), "title": domain.Null()})
	// A record can miss a column entirely; that is NULL too.
	result.Append(domain.ListRecord{"task_id": domain.Int(2)})

	run := domain.NewSyncRun(time.Now())
	written, err := sink.WriteRows(ctx, "tasks", columns, result, run, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, written)

	var nulls int
	require.NoError(t, sink.db.QueryRow(`SELECT COUNT(*) FROM "tasks" WHERE title IS NULL`).Scan(&nulls))
	assert.Equal(t, 2, nulls)
}

func TestSink_WriteRowsMatchesUncleanedFieldNames(t *testing.T) {
	sink := newTestSink(t)
	ctx := context.Background()

	columns := []domain.ColumnDef{{Name: "author_email", Type: domain.ColumnText}}
	require.NoError(t, sink.EnsureTable(ctx, "mail", columns))

	// The record still keys by the fetched field name.
	result := domain.NewTabularResult()
	result.Append(domain.ListRecord{"Author_Email": domain.Text("a@example.com")})

	run := domain.NewSyncRun(time.Now())
	_, err := sink.WriteRows(ctx, "mail", columns, result, run, 10)
	require.NoError(t, err)

	var email string
	require.NoError(t, sink.db.QueryRow(`SELECT author_email FROM "mail"`).Scan(&email))
	assert.Equal(t, "a@example.com", email)
}

func TestSink_Truncate(t *testing.T) {
	sink := newTestSink(t)
	ctx := context.Background()
	columns := taskColumns()
	require.NoError(t, sink.EnsureTable(ctx, "tasks", columns))

	run := domain.NewSyncRun(time.Now())
	_, err := sink.WriteRows(ctx, "tasks", columns, taskResult(10), run, 50)
	require.NoError(t, err)

	require.NoError(t, sink.Truncate(ctx, "tasks"))

	var count int
	require.NoError(t, sink.db.QueryRow(`SELECT COUNT(*) FROM "tasks"`).Scan(&count))
	assert.Equal(t, 0, count)
}

func TestSink_AppendAcrossRuns(t *testing.T) {
	sink := newTestSink(t)
	ctx := context.Background()
	columns := taskColumns()
	require.NoError(t, sink.EnsureTable(ctx, "tasks", columns))

	first := domain.NewSyncRun(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	second := domain.NewSyncRun(time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC))

	_, err := sink.WriteRows(ctx, "tasks", columns, taskResult(5), first, 50)
	require.NoError(t, err)
	_, err = sink.WriteRows(ctx, "tasks", columns, taskResult(5), second, 50)
	require.NoError(t, err)

	// Appends accumulate; each run is distinguishable by sync_id.
	var total, fromFirst int
	require.NoError(t, sink.db.QueryRow(`SELECT COUNT(*) FROM "tasks"`).Scan(&total))
	require.NoError(t, sink.db.QueryRow(`SELECT COUNT(*) FROM "tasks" WHERE sync_id = ?`, first.ID).Scan(&fromFirst))
	assert.Equal(t, 10, total)
	assert.Equal(t, 5, fromFirst)
}
