package cli

import (
	"context"
	"errors"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/spsync/spsync/internal/core/domain"
	"github.com/spsync/spsync/internal/core/ports/driven"
	"github.com/spsync/spsync/internal/logger"
)

var scheduleInterval time.Duration

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run synchronisation on an interval until interrupted",
	Long: `Runs one sync immediately, then repeats on the configured interval.
Edits to the config file take effect on the next cycle without a
restart. Ctrl-C stops the loop, letting an in-flight run finish its
current phase.`,
	RunE: runSchedule,
}

func init() {
	scheduleCmd.Flags().DurationVar(&scheduleInterval, "interval", 0, "override the configured interval (e.g. 30m)")
	rootCmd.AddCommand(scheduleCmd)
}

// runConfigWatch feeds config reloads into the scheduler loop. A watch
// that dies for any reason other than shutdown is surfaced; otherwise
// config edits silently stop taking effect.
func runConfigWatch(ctx context.Context, store driven.ConfigStore, reload chan<- domain.SyncConfig) {
	err := watchConfig(ctx, store, func(next domain.SyncConfig) {
		select {
		case reload <- next:
		default:
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("config watch stopped, edits will not be picked up: %v", err)
	}
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	if syncScheduler == nil || openConfig == nil {
		return errors.New("scheduler not configured")
	}

	store, err := openConfig(configPath)
	if err != nil {
		return err
	}
	cfg, err := store.Load()
	if err != nil {
		return err
	}
	if scheduleInterval > 0 {
		cfg.Interval = scheduleInterval
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Config edits restart the scheduler loop with the fresh settings.
	reload := make(chan domain.SyncConfig, 1)
	var watchWG sync.WaitGroup
	if watchConfig != nil {
		watchWG.Add(1)
		go func() {
			defer watchWG.Done()
			runConfigWatch(ctx, store, reload)
		}()
	}
	defer watchWG.Wait()

	sink := newConsoleSink(cmd)
	cmd.Printf("Scheduling sync of list %q every %s. Press Ctrl-C to stop.\n", cfg.ListName, cfg.Interval)

	for {
		runCtx, cancelRun := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() {
			done <- syncScheduler.Start(runCtx, cfg, sink)
		}()

		select {
		case <-ctx.Done():
			cancelRun()
			<-done
			cmd.Println("Scheduler stopped.")
			return nil
		case next := <-reload:
			cancelRun()
			<-done
			if scheduleInterval > 0 {
				next.Interval = scheduleInterval
			}
			cfg = next
			cmd.Printf("Configuration reloaded; next runs use list %q every %s.\n", cfg.ListName, cfg.Interval)
		case err := <-done:
			// The scheduler only returns when its context ends; anything
			// else is a wiring fault worth surfacing.
			cancelRun()
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		}
	}
}
