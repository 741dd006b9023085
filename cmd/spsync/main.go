// Command spsync synchronises SharePoint lists into a relational database.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/spsync/spsync/internal/adapters/driven/config/file"
	"github.com/spsync/spsync/internal/adapters/driven/sink"
	"github.com/spsync/spsync/internal/adapters/driving/cli"
	"github.com/spsync/spsync/internal/connectors/sharepoint"
	"github.com/spsync/spsync/internal/core/domain"
	"github.com/spsync/spsync/internal/core/ports/driven"
	"github.com/spsync/spsync/internal/core/services"
)

// version is injected at build time via -ldflags.
var version = "dev"

func main() {
	cli.Wire(buildServices())
	if err := cli.Execute(version); err != nil {
		os.Exit(1)
	}
}

func buildServices() cli.Services {
	sources := func(cfg domain.SyncConfig) (driven.ListSource, error) {
		auth := sharepoint.NewAuthClient(cfg, &http.Client{Timeout: cfg.ConnectionTimeout})
		return sharepoint.NewListFetcher(cfg, auth), nil
	}
	sinks := services.NewSinkCache(sink.New, services.DefaultSinkTTL)

	orchestrator := services.NewSyncOrchestrator(sources, sinks)

	return cli.Services{
		Orchestrator: orchestrator,
		Tester:       services.NewTester(sources, sinks),
		Scheduler:    services.NewScheduler(orchestrator),
		OpenConfig: func(path string) (driven.ConfigStore, error) {
			return file.NewConfigStore(path)
		},
		WatchConfig: func(ctx context.Context, store driven.ConfigStore, onChange func(domain.SyncConfig)) error {
			fs, ok := store.(*file.ConfigStore)
			if !ok {
				return fmt.Errorf("config store %T does not support watching", store)
			}
			return file.NewWatcher(fs, onChange).Run(ctx)
		},
	}
}
