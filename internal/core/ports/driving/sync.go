package driving

import (
	"context"

	"github.com/spsync/spsync/internal/core/domain"
)

// SyncOrchestrator coordinates one list-to-table synchronisation at a
// time: authenticate, fetch, reconcile schema, write.
type SyncOrchestrator interface {
	// Start runs a sync to completion. A run already in progress is
	// rejected with domain.ErrSyncInProgress, not queued. Exactly one
	// Completed event reaches the sink per accepted run.
	Start(ctx context.Context, cfg domain.SyncConfig, sink EventSink) error

	// Stop requests cooperative cancellation of the current run, if any.
	// Returns without waiting; the run ends at its next checkpoint.
	Stop()

	// Running reports whether a run is in progress.
	Running() bool
}

// EventSink receives a run's notifications. The orchestrator calls it
// from the run's goroutine; implementations marshal to their own
// display or log as needed. A nil sink is valid and discards events.
type EventSink interface {
	// Progress delivers a coarse checkpoint update.
	Progress(e domain.ProgressEvent)

	// Log delivers a free-form message.
	Log(e domain.LogEvent)

	// Status delivers a service connection-state change.
	Status(e domain.StatusEvent)

	// Completed delivers the run's single terminal event.
	Completed(e domain.Completion)
}

// ConnectionTester checks reachability of the two external services
// without starting a sync.
type ConnectionTester interface {
	// TestSharePoint performs a token exchange and an authenticated
	// site call.
	TestSharePoint(ctx context.Context, cfg domain.SyncConfig) error

	// TestDatabase opens a destination connection and pings it.
	TestDatabase(ctx context.Context, cfg domain.SyncConfig) error
}

// Scheduler triggers periodic sync runs.
type Scheduler interface {
	// Start begins the periodic loop. An immediate first run is
	// performed before the interval wait. Blocks until the context ends.
	Start(ctx context.Context, cfg domain.SyncConfig, sink EventSink) error

	// History returns the most recent run results, newest first.
	History() []domain.ScheduledRun
}
