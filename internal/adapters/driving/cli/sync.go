package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	syncTruncate bool
	syncList     string
	syncTable    string
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one synchronisation now",
	Long: `Fetches the configured SharePoint list and appends its items to the
destination table. Ctrl-C requests a clean stop; the run ends at the
next phase boundary and rows already committed stay in place.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncTruncate, "truncate", false, "delete existing rows before inserting")
	syncCmd.Flags().StringVar(&syncList, "list", "", "override the configured list name")
	syncCmd.Flags().StringVar(&syncTable, "table", "", "override the configured table name")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	if syncOrchestrator == nil || openConfig == nil {
		return errors.New("sync service not configured")
	}

	store, err := openConfig(configPath)
	if err != nil {
		return err
	}
	cfg, err := store.Load()
	if err != nil {
		return err
	}
	if syncTruncate {
		cfg.TruncateBeforeInsert = true
	}
	if syncList != "" {
		cfg.ListName = syncList
	}
	if syncTable != "" {
		cfg.Table = syncTable
	}

	// Ctrl-C cancels the run cooperatively instead of killing it.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return syncOrchestrator.Start(ctx, cfg, newConsoleSink(cmd))
}
