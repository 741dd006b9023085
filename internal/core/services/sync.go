package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/spsync/spsync/internal/core/domain"
	"github.com/spsync/spsync/internal/core/ports/driven"
	"github.com/spsync/spsync/internal/core/ports/driving"
	"github.com/spsync/spsync/internal/logger"
)

// Ensure SyncOrchestrator implements the interface.
var _ driving.SyncOrchestrator = (*SyncOrchestrator)(nil)

// ListSourceFactory builds a list source for a run's credentials.
// The orchestrator owns the returned source and closes it when the
// run ends.
type ListSourceFactory func(cfg domain.SyncConfig) (driven.ListSource, error)

// SinkProvider hands out destination sinks. The connection cache
// implements this; sinks it returns are shared, so the orchestrator
// must not close them.
type SinkProvider interface {
	Get(ctx context.Context, cfg domain.DatabaseConfig) (driven.TableSink, error)
}

// Progress checkpoints emitted during a run. The paginated source API
// does not expose a total count up front, so progress is coarse.
const (
	progressStarted       = 5
	progressAuthenticated = 15
	progressFetching      = 30
	progressFetched       = 50
	progressConnected     = 60
	progressSchemaReady   = 70
	progressWritten       = 85
	progressDone          = 100
)

// SyncOrchestrator coordinates one list-to-table synchronisation at a
// time. A second start while a run is active is rejected, not queued.
type SyncOrchestrator struct {
	sources ListSourceFactory
	sinks   SinkProvider
	now     func() time.Time

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// NewSyncOrchestrator creates a sync orchestrator.
func NewSyncOrchestrator(sources ListSourceFactory, sinks SinkProvider) *SyncOrchestrator {
	return &SyncOrchestrator{
		sources: sources,
		sinks:   sinks,
		now:     time.Now,
	}
}

// Start runs a sync to completion. It blocks for the duration of the
// run; hosts that need a responsive foreground call it in a goroutine.
// Exactly one Completed event reaches the sink per accepted run.
func (o *SyncOrchestrator) Start(ctx context.Context, cfg domain.SyncConfig, sink driving.EventSink) error {
	cfg.Normalise()
	if err := cfg.Validate(); err != nil {
		return err
	}

	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		logger.Warn("sync requested while another run is in progress")
		return domain.ErrSyncInProgress
	}
	runCtx, cancel := context.WithCancel(ctx)
	o.running = true
	o.cancel = cancel
	o.mu.Unlock()

	defer func() {
		cancel()
		o.mu.Lock()
		o.running = false
		o.cancel = nil
		o.mu.Unlock()
	}()

	run := domain.NewSyncRun(o.now())
	logger.Info("sync %s starting: list %q -> table %q", run.ID, cfg.ListName, cfg.Table)

	err := o.execute(runCtx, cfg, run, events{sink})
	run.Duration = o.now().Sub(run.StartedAt)
	return err
}

// Stop requests cooperative cancellation of the current run, if any.
func (o *SyncOrchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		logger.Info("sync cancellation requested")
		o.cancel()
	}
}

// Running reports whether a run is in progress.
func (o *SyncOrchestrator) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// execute walks the run through its phases. Every return path emits
// exactly one Completed event via fail or complete.
func (o *SyncOrchestrator) execute(ctx context.Context, cfg domain.SyncConfig, run *domain.SyncRun, ev events) error {
	ev.progress(progressStarted, "Starting synchronisation", domain.LevelInfo)

	// Phase 1: authenticate and validate the source.
	run.Phase = domain.PhaseAuthenticating
	ev.status(domain.ServiceSharePoint, domain.StateConnecting)

	// A factory failure is a configuration problem (bad site URL,
	// unsupported source), not a credential rejection.
	source, err := o.sources(cfg)
	if err != nil {
		ev.status(domain.ServiceSharePoint, domain.StateError)
		return o.fail(run, ev, fmt.Errorf("creating list source: %w", err))
	}
	defer source.Close()

	if err := source.Validate(ctx); err != nil {
		if cancelled := o.cancelledErr(ctx, run); cancelled != nil {
			return o.fail(run, ev, cancelled)
		}
		ev.status(domain.ServiceSharePoint, domain.StateError)
		return o.fail(run, ev, &domain.AuthenticationError{Err: err})
	}
	ev.status(domain.ServiceSharePoint, domain.StateConnected)
	ev.progress(progressAuthenticated, "Authenticated with SharePoint", domain.LevelInfo)

	// Phase 2: fetch every page of the list.
	run.Phase = domain.PhaseFetching
	ev.progress(progressFetching, fmt.Sprintf("Fetching list %q", cfg.ListName), domain.LevelInfo)

	result, err := source.FetchList(ctx, cfg.ListName)
	if err != nil {
		if cancelled := o.cancelledErr(ctx, run); cancelled != nil {
			return o.fail(run, ev, cancelled)
		}
		return o.fail(run, ev, err)
	}
	run.RecordsFetched = result.Len()
	ev.progress(progressFetched, fmt.Sprintf("Fetched %d records", result.Len()), domain.LevelInfo)

	// An empty list is a successful no-op, not an error.
	if result.Empty() {
		ev.log("List is empty, nothing to synchronise", domain.LevelWarning)
		return o.complete(run, ev, "No records to synchronise")
	}

	if cancelled := o.cancelledErr(ctx, run); cancelled != nil {
		return o.fail(run, ev, cancelled)
	}

	// Phase 3: connect and reconcile the destination schema.
	run.Phase = domain.PhaseReconcilingSchema
	ev.status(domain.ServiceDatabase, domain.StateConnecting)

	sink, err := o.sinks.Get(ctx, cfg.Database)
	if err != nil {
		ev.status(domain.ServiceDatabase, domain.StateError)
		return o.fail(run, ev, &domain.SchemaError{Table: cfg.Table, Err: err})
	}
	if err := sink.Ping(ctx); err != nil {
		ev.status(domain.ServiceDatabase, domain.StateError)
		return o.fail(run, ev, &domain.SchemaError{Table: cfg.Table, Err: err})
	}
	ev.status(domain.ServiceDatabase, domain.StateConnected)
	ev.progress(progressConnected, "Connected to database", domain.LevelInfo)

	columns, err := o.reconcileSchema(ctx, cfg, sink, result, ev)
	if err != nil {
		if cancelled := o.cancelledErr(ctx, run); cancelled != nil {
			return o.fail(run, ev, cancelled)
		}
		return o.fail(run, ev, err)
	}
	ev.progress(progressSchemaReady, fmt.Sprintf("Table %q ready with %d columns", cfg.Table, len(columns)), domain.LevelInfo)

	if cancelled := o.cancelledErr(ctx, run); cancelled != nil {
		return o.fail(run, ev, cancelled)
	}

	// Phase 4: write in batches.
	run.Phase = domain.PhaseWriting
	if cfg.TruncateBeforeInsert {
		if err := sink.Truncate(ctx, cfg.Table); err != nil {
			return o.fail(run, ev, &domain.WriteError{Table: cfg.Table, Err: err})
		}
		ev.log(fmt.Sprintf("Truncated table %q", cfg.Table), domain.LevelInfo)
	}

	written, err := sink.WriteRows(ctx, cfg.Table, columns, result, run, cfg.BatchSize)
	run.RecordsWritten = written
	if err != nil {
		if cancelled := o.cancelledErr(ctx, run); cancelled != nil {
			return o.fail(run, ev, cancelled)
		}
		return o.fail(run, ev, err)
	}
	ev.progress(progressWritten, fmt.Sprintf("Wrote %d rows", written), domain.LevelInfo)

	return o.complete(run, ev, fmt.Sprintf("Synchronised %d records to %q", written, cfg.Table))
}

// reconcileSchema derives the destination columns from the fetched data
// and makes sure the table can take them. When the table already exists
// with a narrower shape, extra fetched columns are dropped with one
// warning rather than altering the table.
func (o *SyncOrchestrator) reconcileSchema(ctx context.Context, cfg domain.SyncConfig, sink driven.TableSink, result *domain.TabularResult, ev events) ([]domain.ColumnDef, error) {
	derived := domain.DeriveColumns(result)

	exists, err := sink.TableExists(ctx, cfg.Table)
	if err != nil {
		return nil, &domain.SchemaError{Table: cfg.Table, Err: err}
	}

	if !exists {
		if !cfg.CreateTable {
			return nil, &domain.SchemaError{Table: cfg.Table, Err: fmt.Errorf("table does not exist and table creation is disabled")}
		}
		if err := sink.EnsureTable(ctx, cfg.Table, derived); err != nil {
			return nil, &domain.SchemaError{Table: cfg.Table, Err: err}
		}
		ev.log(fmt.Sprintf("Created table %q", cfg.Table), domain.LevelInfo)
		return derived, nil
	}

	existing, err := sink.Columns(ctx, cfg.Table)
	if err != nil {
		return nil, &domain.SchemaError{Table: cfg.Table, Err: err}
	}
	present := make(map[string]struct{}, len(existing))
	for _, name := range existing {
		present[name] = struct{}{}
	}

	kept := make([]domain.ColumnDef, 0, len(derived))
	var dropped []string
	for _, def := range derived {
		if _, ok := present[def.Name]; ok {
			kept = append(kept, def)
		} else {
			dropped = append(dropped, def.Name)
		}
	}
	if len(dropped) > 0 {
		ev.log(fmt.Sprintf("Dropping %d fields missing from table %q: %v", len(dropped), cfg.Table, dropped), domain.LevelWarning)
	}
	if len(kept) == 0 {
		return nil, &domain.SchemaError{Table: cfg.Table, Err: fmt.Errorf("no fetched columns match the existing table")}
	}
	return kept, nil
}

// cancelledErr converts a cancelled context into the run's cancellation
// error, recording the phase it interrupted, and moves the run to
// cancelling until fail settles it. Nil when the context is still live.
func (o *SyncOrchestrator) cancelledErr(ctx context.Context, run *domain.SyncRun) error {
	if ctx.Err() == nil {
		return nil
	}
	err := &domain.CancelledError{Phase: run.Phase}
	run.Phase = domain.PhaseCancelling
	return err
}

// fail moves the run to its failure terminal phase and emits the single
// Completed event. Cancellation is a distinct terminal phase but still
// an unsuccessful completion.
func (o *SyncOrchestrator) fail(run *domain.SyncRun, ev events, err error) error {
	run.Err = err
	if domain.IsCancelled(err) {
		run.Phase = domain.PhaseCancelled
		logger.Info("sync %s cancelled: %v", run.ID, err)
		ev.log("Synchronisation cancelled", domain.LevelWarning)
	} else {
		run.Phase = domain.PhaseFailed
		logger.Error("sync %s failed: %v", run.ID, err)
		ev.log(err.Error(), domain.LevelError)
	}
	ev.completed(domain.Completion{
		Success: false,
		Message: err.Error(),
		Stats:   run.Stats(o.now()),
	})
	return err
}

// complete moves the run to the success terminal phase and emits the
// single Completed event.
func (o *SyncOrchestrator) complete(run *domain.SyncRun, ev events, message string) error {
	run.Phase = domain.PhaseCompleted
	logger.Info("sync %s completed: %s", run.ID, message)
	ev.progress(progressDone, message, domain.LevelSuccess)
	ev.completed(domain.Completion{
		Success: true,
		Message: message,
		Stats:   run.Stats(o.now()),
	})
	return nil
}

// events wraps an EventSink so a nil sink discards notifications.
type events struct {
	sink driving.EventSink
}

func (e events) progress(percent int, message string, level domain.Level) {
	if e.sink == nil {
		return
	}
	e.sink.Progress(domain.ProgressEvent{Message: message, Percent: percent, Level: level})
}

func (e events) log(message string, level domain.Level) {
	if e.sink == nil {
		return
	}
	e.sink.Log(domain.LogEvent{Message: message, Level: level})
}

func (e events) status(service domain.Service, state domain.ConnState) {
	if e.sink == nil {
		return
	}
	e.sink.Status(domain.StatusEvent{Service: service, State: state})
}

func (e events) completed(c domain.Completion) {
	if e.sink == nil {
		return
	}
	e.sink.Completed(c)
}
