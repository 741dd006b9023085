package sink

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spsync/spsync/internal/core/domain"
)

func TestNew_SQLite(t *testing.T) {
	s, err := New(domain.DatabaseConfig{
		Type: domain.DatabaseSQLite,
		File: filepath.Join(t.TempDir(), "sync.db"),
	})
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestNew_SQLServer(t *testing.T) {
	s, err := New(domain.DatabaseConfig{
		Type:     domain.DatabaseSQLServer,
		Server:   "db.example.com",
		Database: "sync",
		Username: "sa",
		Password: "pw",
	})
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestNew_Unsupported(t *testing.T) {
	_, err := New(domain.DatabaseConfig{Type: "postgres"})
	assert.ErrorIs(t, err, domain.ErrUnsupportedDatabase)
}
