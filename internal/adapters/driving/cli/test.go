package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
)

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Test the SharePoint and database connections",
	Long: `Checks both ends of the pipeline without moving any data: a token
exchange plus an authenticated site call on the SharePoint side, and a
connection ping on the database side.`,
	RunE: runTest,
}

func init() {
	rootCmd.AddCommand(testCmd)
}

func runTest(cmd *cobra.Command, _ []string) error {
	if connectionTester == nil || openConfig == nil {
		return errors.New("connection tester not configured")
	}

	store, err := openConfig(configPath)
	if err != nil {
		return err
	}
	cfg, err := store.Load()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	failed := false
	if err := connectionTester.TestSharePoint(ctx, cfg); err != nil {
		cmd.PrintErrf("SharePoint: FAILED (%v)\n", err)
		failed = true
	} else {
		cmd.Println("SharePoint: OK")
	}

	if err := connectionTester.TestDatabase(ctx, cfg); err != nil {
		cmd.PrintErrf("Database:   FAILED (%v)\n", err)
		failed = true
	} else {
		cmd.Println("Database:   OK")
	}

	if failed {
		return errors.New("connection test failed")
	}
	return nil
}
