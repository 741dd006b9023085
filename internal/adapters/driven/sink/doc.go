// Package sink selects and constructs destination database adapters.
// The concrete implementations live in the sqlite and mssql
// subpackages; this package is the single place that knows which
// backend serves which DatabaseType.
package sink
