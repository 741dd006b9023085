package domain

// Level classifies a progress or log event for the host's display.
type Level string

const (
	// LevelInfo is routine progress information.
	LevelInfo Level = "info"

	// LevelWarning flags a recoverable oddity (empty list, dropped fields).
	LevelWarning Level = "warning"

	// LevelError flags a failure.
	LevelError Level = "error"

	// LevelSuccess flags a completed milestone.
	LevelSuccess Level = "success"
)

// Service names an external dependency for status events.
type Service string

const (
	// ServiceSharePoint is the remote list source.
	ServiceSharePoint Service = "sharepoint"

	// ServiceDatabase is the destination database.
	ServiceDatabase Service = "database"
)

// ConnState is a service's connection state.
type ConnState string

const (
	// StateDisconnected means no connection has been attempted.
	StateDisconnected ConnState = "disconnected"

	// StateConnecting means a connection attempt is in flight.
	StateConnecting ConnState = "connecting"

	// StateConnected means the service answered a health check.
	StateConnected ConnState = "connected"

	// StateError means the last connection attempt failed.
	StateError ConnState = "error"
)

// ProgressEvent is a coarse checkpoint notification. Percent is 0-100
// at fixed checkpoints; the paginated API does not reliably expose a
// total row count up front, so progress is never per-row.
type ProgressEvent struct {
	Message string
	Percent int
	Level   Level
}

// LogEvent is a free-form message for the host's log view.
type LogEvent struct {
	Message string
	Level   Level
}

// StatusEvent reports a service's connection state change.
type StatusEvent struct {
	Service Service
	State   ConnState
}

// Completion is the single terminal event of a sync run. Exactly one
// Completion is emitted per run, whether it completed, failed or was
// cancelled.
type Completion struct {
	Success bool
	Message string
	Stats   SyncStats
}
