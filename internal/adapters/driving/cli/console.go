package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/spsync/spsync/internal/core/domain"
	"github.com/spsync/spsync/internal/core/ports/driving"
	"github.com/spsync/spsync/internal/logger"
)

// Ensure consoleSink implements the port.
var _ driving.EventSink = (*consoleSink)(nil)

// consoleSink renders run events on the command's output streams.
type consoleSink struct {
	cmd *cobra.Command
}

func newConsoleSink(cmd *cobra.Command) *consoleSink {
	return &consoleSink{cmd: cmd}
}

func (c *consoleSink) Progress(e domain.ProgressEvent) {
	c.cmd.Printf("[%3d%%] %s\n", e.Percent, e.Message)
}

func (c *consoleSink) Log(e domain.LogEvent) {
	switch e.Level {
	case domain.LevelWarning:
		c.cmd.Printf("warning: %s\n", e.Message)
	case domain.LevelError:
		c.cmd.PrintErrf("error: %s\n", e.Message)
	default:
		c.cmd.Println(e.Message)
	}
}

func (c *consoleSink) Status(e domain.StatusEvent) {
	logger.Debug("%s: %s", e.Service, e.State)
}

func (c *consoleSink) Completed(e domain.Completion) {
	if e.Success {
		c.cmd.Printf("Done: %s (%d records in %s)\n",
			e.Message, e.Stats.RecordsInserted, e.Stats.Duration.Round(time.Millisecond))
		return
	}
	c.cmd.PrintErrf("Sync did not complete: %s\n", e.Message)
}
