package services

import (
	"context"

	"github.com/spsync/spsync/internal/core/domain"
	"github.com/spsync/spsync/internal/core/ports/driving"
)

// Ensure Tester implements the interface.
var _ driving.ConnectionTester = (*Tester)(nil)

// Tester checks reachability of both external services without moving
// any data. Backs the `spsync test` command.
type Tester struct {
	sources ListSourceFactory
	sinks   SinkProvider
}

// NewTester creates a connection tester.
func NewTester(sources ListSourceFactory, sinks SinkProvider) *Tester {
	return &Tester{sources: sources, sinks: sinks}
}

// TestSharePoint performs a token exchange and an authenticated site
// call with the configured credentials.
func (t *Tester) TestSharePoint(ctx context.Context, cfg domain.SyncConfig) error {
	cfg.Normalise()
	if err := cfg.Credentials.Validate(); err != nil {
		return err
	}
	source, err := t.sources(cfg)
	if err != nil {
		return err
	}
	defer source.Close()
	return source.Validate(ctx)
}

// TestDatabase opens a destination connection and pings it.
func (t *Tester) TestDatabase(ctx context.Context, cfg domain.SyncConfig) error {
	cfg.Normalise()
	if err := cfg.Database.Validate(); err != nil {
		return err
	}
	sink, err := t.sinks.Get(ctx, cfg.Database)
	if err != nil {
		return err
	}
	return sink.Ping(ctx)
}
