package sink

import (
	"fmt"

	"github.com/spsync/spsync/internal/adapters/driven/sink/mssql"
	"github.com/spsync/spsync/internal/adapters/driven/sink/sqlite"
	"github.com/spsync/spsync/internal/core/domain"
	"github.com/spsync/spsync/internal/core/ports/driven"
)

// New opens a sink for the configured backend. The caller owns the
// returned sink; in practice that caller is the connection cache.
func New(cfg domain.DatabaseConfig) (driven.TableSink, error) {
	switch cfg.Type {
	case domain.DatabaseSQLite:
		return sqlite.New(cfg)
	case domain.DatabaseSQLServer:
		return mssql.New(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedDatabase, cfg.Type)
	}
}
