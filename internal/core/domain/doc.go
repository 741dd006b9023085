// Package domain defines the core business entities for spsync.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - ListRecord / TabularResult: rows fetched from a remote list
//   - ColumnDef: destination column derived from fetched values
//   - SyncRun: one end-to-end fetch-then-write execution
//   - SyncConfig: everything a sync run needs to know
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
