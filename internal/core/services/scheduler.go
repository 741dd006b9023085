package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spsync/spsync/internal/core/domain"
	"github.com/spsync/spsync/internal/core/ports/driving"
	"github.com/spsync/spsync/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// maxHistory bounds the scheduler's in-memory run history.
const maxHistory = 100

// Scheduler triggers sync runs on a fixed interval. It is a thin loop
// over the orchestrator: the orchestrator still enforces single-flight,
// and a trigger that lands while a run is active is recorded as skipped
// rather than queued.
type Scheduler struct {
	orch  driving.SyncOrchestrator
	now   func() time.Time
	newID func() string

	mu      sync.Mutex
	history []domain.ScheduledRun
}

// NewScheduler creates a scheduler over an orchestrator.
func NewScheduler(orch driving.SyncOrchestrator) *Scheduler {
	return &Scheduler{
		orch:  orch,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Start begins the periodic loop: one immediate run, then one per
// interval. Blocks until the context ends.
func (s *Scheduler) Start(ctx context.Context, cfg domain.SyncConfig, sink driving.EventSink) error {
	cfg.Normalise()
	logger.Info("scheduler started, interval %s", cfg.Interval)

	s.trigger(ctx, cfg, sink)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.trigger(ctx, cfg, sink)
		}
	}
}

// History returns the recorded runs, newest first.
func (s *Scheduler) History() []domain.ScheduledRun {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.ScheduledRun, len(s.history))
	for i, r := range s.history {
		out[len(s.history)-1-i] = r
	}
	return out
}

// trigger performs one scheduled run and records the outcome.
func (s *Scheduler) trigger(ctx context.Context, cfg domain.SyncConfig, sink driving.EventSink) {
	entry := domain.ScheduledRun{
		ID:        s.newID(),
		StartedAt: s.now(),
	}

	rec := &completionRecorder{next: sink}
	err := s.orch.Start(ctx, cfg, rec)
	switch {
	case errors.Is(err, domain.ErrSyncInProgress):
		entry.Message = "skipped: previous run still in progress"
		logger.Warn("scheduled sync skipped, previous run still in progress")
	case rec.done:
		entry.Success = rec.completion.Success
		entry.Message = rec.completion.Message
		entry.Stats = rec.completion.Stats
	case err != nil:
		entry.Message = err.Error()
	}

	s.record(entry)
}

func (s *Scheduler) record(entry domain.ScheduledRun) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, entry)
	if len(s.history) > maxHistory {
		s.history = s.history[len(s.history)-maxHistory:]
	}
}

// completionRecorder captures the run's terminal event while passing
// everything through to the host's sink.
type completionRecorder struct {
	next driving.EventSink

	done       bool
	completion domain.Completion
}

func (r *completionRecorder) Progress(e domain.ProgressEvent) {
	if r.next != nil {
		r.next.Progress(e)
	}
}

func (r *completionRecorder) Log(e domain.LogEvent) {
	if r.next != nil {
		r.next.Log(e)
	}
}

func (r *completionRecorder) Status(e domain.StatusEvent) {
	if r.next != nil {
		r.next.Status(e)
	}
}

func (r *completionRecorder) Completed(e domain.Completion) {
	r.done = true
	r.completion = e
	if r.next != nil {
		r.next.Completed(e)
	}
}
