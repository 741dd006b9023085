package domain

import (
	"fmt"
	"time"
)

// Phase is a sync run's position in the fetch-then-write pipeline.
type Phase int

const (
	// PhaseIdle means no run is in progress.
	PhaseIdle Phase = iota

	// PhaseAuthenticating covers token exchange and the source reachability check.
	PhaseAuthenticating

	// PhaseFetching covers the paginated list walk.
	PhaseFetching

	// PhaseReconcilingSchema covers the destination table check/creation.
	PhaseReconcilingSchema

	// PhaseWriting covers the batched insert.
	PhaseWriting

	// PhaseCompleted is the successful terminal state.
	PhaseCompleted

	// PhaseFailed is the error terminal state.
	PhaseFailed

	// PhaseCancelling means a stop was requested and is being honoured.
	PhaseCancelling

	// PhaseCancelled is the cooperative-stop terminal state.
	PhaseCancelled
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAuthenticating:
		return "authenticating"
	case PhaseFetching:
		return "fetching"
	case PhaseReconcilingSchema:
		return "reconciling_schema"
	case PhaseWriting:
		return "writing"
	case PhaseCompleted:
		return "completed"
	case PhaseFailed:
		return "failed"
	case PhaseCancelling:
		return "cancelling"
	case PhaseCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Terminal reports whether the phase ends a run. A terminal run is
// never reused; the next sync starts a fresh SyncRun.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseFailed || p == PhaseCancelled
}

// SyncRun tracks one end-to-end fetch-then-write execution.
type SyncRun struct {
	// ID identifies the run. Derived from the start timestamp so the
	// sync_id column sorts chronologically.
	ID string

	// StartedAt is when the run began.
	StartedAt time.Time

	// Phase is the run's current position in the pipeline.
	Phase Phase

	// RecordsFetched is the number of records retrieved from the source.
	RecordsFetched int

	// RecordsWritten is the number of rows inserted at the destination.
	RecordsWritten int

	// Err holds the failure cause once the run is failed.
	Err error

	// Duration is wall-clock time from start to the terminal phase.
	Duration time.Duration
}

// NewSyncRun creates a run in the authenticating phase with a
// timestamp-derived id.
func NewSyncRun(now time.Time) *SyncRun {
	return &SyncRun{
		ID:        fmt.Sprintf("sync_%d", now.Unix()),
		StartedAt: now,
		Phase:     PhaseAuthenticating,
	}
}

// SyncStats is the summary attached to a run's completion event.
type SyncStats struct {
	RecordsProcessed int
	RecordsInserted  int
	Errors           int
	Duration         time.Duration
	StartTime        time.Time
	EndTime          time.Time
}

// ScheduledRun is one entry in the scheduler's run history.
type ScheduledRun struct {
	// ID identifies the scheduled trigger, distinct from the sync run id.
	ID string

	// StartedAt is when the trigger fired.
	StartedAt time.Time

	// Success mirrors the run's completion outcome. A trigger skipped
	// because a run was still in progress is recorded as unsuccessful.
	Success bool

	// Message is the completion message or skip reason.
	Message string

	Stats SyncStats
}

// Stats snapshots the run into completion statistics.
func (r *SyncRun) Stats(now time.Time) SyncStats {
	errs := 0
	if r.Err != nil {
		errs = 1
	}
	return SyncStats{
		RecordsProcessed: r.RecordsFetched,
		RecordsInserted:  r.RecordsWritten,
		Errors:           errs,
		Duration:         now.Sub(r.StartedAt),
		StartTime:        r.StartedAt,
		EndTime:          now,
	}
}
