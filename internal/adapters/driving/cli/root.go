// Package cli implements the spsync command line interface.
//
// Commands receive their services through Wire; main constructs the
// concrete adapters and injects them before Execute runs.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/spsync/spsync/internal/core/domain"
	"github.com/spsync/spsync/internal/core/ports/driven"
	"github.com/spsync/spsync/internal/core/ports/driving"
	"github.com/spsync/spsync/internal/logger"
)

// version is set by Execute.
var version = "dev"

// Flags shared by all commands.
var (
	configPath string
	verbose    bool
)

// Injected services. Nil checks in each command keep a partially wired
// binary from panicking.
var (
	syncOrchestrator driving.SyncOrchestrator
	connectionTester driving.ConnectionTester
	syncScheduler    driving.Scheduler
	openConfig       func(path string) (driven.ConfigStore, error)
	watchConfig      func(ctx context.Context, store driven.ConfigStore, onChange func(domain.SyncConfig)) error
)

// Services bundles everything the CLI needs.
type Services struct {
	Orchestrator driving.SyncOrchestrator
	Tester       driving.ConnectionTester
	Scheduler    driving.Scheduler

	// OpenConfig opens the config store for a file path; an empty path
	// selects the default location.
	OpenConfig func(path string) (driven.ConfigStore, error)

	// WatchConfig blocks watching the store's file, calling onChange on
	// each successful reload. Optional; nil disables live reload.
	WatchConfig func(ctx context.Context, store driven.ConfigStore, onChange func(domain.SyncConfig)) error
}

// Wire injects the services the commands run against.
func Wire(s Services) {
	syncOrchestrator = s.Orchestrator
	connectionTester = s.Tester
	syncScheduler = s.Scheduler
	openConfig = s.OpenConfig
	watchConfig = s.WatchConfig
}

var rootCmd = &cobra.Command{
	Use:   "spsync",
	Short: "Synchronise SharePoint lists into a relational database",
	Long: `spsync reads a SharePoint list through the REST API and appends its
items to a SQL Server or SQLite table, creating the table from the
list's shape when needed.

Credentials and destination settings live in a TOML config file
(default ~/.spsync/config.toml); run 'spsync configure' to create one.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default ~/.spsync/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// Execute runs the root command.
func Execute(v string) error {
	if v != "" {
		version = v
	}
	return rootCmd.Execute()
}
