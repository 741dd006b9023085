package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spsync/spsync/internal/core/domain"
	"github.com/spsync/spsync/internal/core/ports/driving"
)

// fakeOrchestrator implements driving.SyncOrchestrator with canned
// outcomes per call.
type fakeOrchestrator struct {
	outcomes []error // per call; nil means success
	calls    int
	written  int
}

func (f *fakeOrchestrator) Start(_ context.Context, _ domain.SyncConfig, sink driving.EventSink) error {
	var err error
	if f.calls < len(f.outcomes) {
		err = f.outcomes[f.calls]
	}
	f.calls++

	if err != nil {
		return err
	}
	if sink != nil {
		sink.Completed(domain.Completion{
			Success: true,
			Message: "done",
			Stats:   domain.SyncStats{RecordsInserted: f.written},
		})
	}
	return nil
}

func (f *fakeOrchestrator) Stop() {}

func (f *fakeOrchestrator) Running() bool { return false }

func newTestScheduler(orch driving.SyncOrchestrator) *Scheduler {
	s := NewScheduler(orch)
	ids := 0
	s.newID = func() string {
		ids++
		return fmt.Sprintf("trigger-%d", ids)
	}
	return s
}

func TestScheduler_RecordsSuccessfulRun(t *testing.T) {
	orch := &fakeOrchestrator{written: 42}
	s := newTestScheduler(orch)
	events := &captureSink{}

	s.trigger(context.Background(), testConfig(), events)

	history := s.History()
	require.Len(t, history, 1)
	assert.True(t, history[0].Success)
	assert.Equal(t, "done", history[0].Message)
	assert.Equal(t, 42, history[0].Stats.RecordsInserted)
	assert.Equal(t, "trigger-1", history[0].ID)

	// The host's sink still saw the completion.
	require.Len(t, events.completions, 1)
}

func TestScheduler_RecordsSkipWhenBusy(t *testing.T) {
	orch := &fakeOrchestrator{outcomes: []error{domain.ErrSyncInProgress}}
	s := newTestScheduler(orch)

	s.trigger(context.Background(), testConfig(), nil)

	history := s.History()
	require.Len(t, history, 1)
	assert.False(t, history[0].Success)
	assert.Contains(t, history[0].Message, "skipped")
}

func TestScheduler_HistoryNewestFirst(t *testing.T) {
	orch := &fakeOrchestrator{}
	s := newTestScheduler(orch)

	s.trigger(context.Background(), testConfig(), nil)
	s.trigger(context.Background(), testConfig(), nil)
	s.trigger(context.Background(), testConfig(), nil)

	history := s.History()
	require.Len(t, history, 3)
	assert.Equal(t, "trigger-3", history[0].ID)
	assert.Equal(t, "trigger-1", history[2].ID)
}

func TestScheduler_HistoryBounded(t *testing.T) {
	orch := &fakeOrchestrator{}
	s := newTestScheduler(orch)

	for i := 0; i < maxHistory+20; i++ {
		s.trigger(context.Background(), testConfig(), nil)
	}

	history := s.History()
	assert.Len(t, history, maxHistory)
	// The oldest entries were dropped.
	assert.Equal(t, fmt.Sprintf("trigger-%d", maxHistory+20), history[0].ID)
}

func TestScheduler_StartRunsImmediatelyAndStopsWithContext(t *testing.T) {
	orch := &fakeOrchestrator{}
	s := newTestScheduler(orch)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		cfg := testConfig()
		cfg.Interval = time.Hour
		done <- s.Start(ctx, cfg, nil)
	}()

	// The first run happens before any interval elapses.
	require.Eventually(t, func() bool {
		return len(s.History()) == 1
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	err := <-done
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, orch.calls)
}
