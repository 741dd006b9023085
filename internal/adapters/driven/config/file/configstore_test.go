package file

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spsync/spsync/internal/core/domain"
)

func newTestStore(t *testing.T) *ConfigStore {
	t.Helper()
	store, err := NewConfigStore(filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, err)
	return store
}

func fullConfig() domain.SyncConfig {
	cfg := domain.SyncConfig{
		Credentials: domain.Credentials{
			TenantID:     "tenant-guid",
			ClientID:     "client-guid",
			ClientSecret: "s3cret",
			SiteURL:      "https://contoso.sharepoint.com/sites/team",
		},
		ListName:             "Tasks",
		PageSize:             200,
		Table:                "tasks",
		CreateTable:          true,
		TruncateBeforeInsert: true,
		BatchSize:            250,
		ConnectionTimeout:    20 * time.Second,
		MaxAuthRetries:       5,
		Interval:             30 * time.Minute,
		Database: domain.DatabaseConfig{
			Type:     domain.DatabaseSQLServer,
			Server:   "db.local:1433",
			Database: "sync",
			Username: "sa",
			Password: "pw",
		},
	}
	cfg.Normalise()
	return cfg
}

func TestConfigStore_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	want := fullConfig()

	require.NoError(t, store.Save(want))
	got, err := store.Load()
	require.NoError(t, err)

	assert.Equal(t, want, got)
}

func TestConfigStore_LoadMissingFile(t *testing.T) {
	store := newTestStore(t)

	cfg, err := store.Load()
	require.NoError(t, err)

	// A missing file yields a normalised empty config.
	assert.Empty(t, cfg.Credentials.TenantID)
	assert.Equal(t, domain.DefaultBatchSize, cfg.BatchSize)
	assert.Error(t, cfg.Validate())
}

func TestConfigStore_FilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions only")
	}
	store := newTestStore(t)
	require.NoError(t, store.Save(fullConfig()))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_Set(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(fullConfig()))

	require.NoError(t, store.Set("sharepoint.list_name", "Invoices"))
	require.NoError(t, store.Set("sync.batch_size", "100"))
	require.NoError(t, store.Set("sync.create_table", "false"))
	require.NoError(t, store.Set("sync.interval_minutes", "15"))
	require.NoError(t, store.Set("database.type", "sqlite"))
	require.NoError(t, store.Set("database.file", "out.db"))

	cfg, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "Invoices", cfg.ListName)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.False(t, cfg.CreateTable)
	assert.Equal(t, 15*time.Minute, cfg.Interval)
	assert.Equal(t, domain.DatabaseSQLite, cfg.Database.Type)
	assert.Equal(t, "out.db", cfg.Database.File)
}

func TestConfigStore_SetRejectsBadInput(t *testing.T) {
	store := newTestStore(t)

	assert.Error(t, store.Set("nonsense.key", "x"))
	assert.Error(t, store.Set("sync.batch_size", "lots"))
	assert.Error(t, store.Set("sync.create_table", "maybe"))
}

func TestConfigStore_SecretSurvivesUnrelatedSet(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(fullConfig()))

	require.NoError(t, store.Set("sync.table", "other"))

	cfg, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Credentials.ClientSecret)
	assert.Equal(t, "other", cfg.Table)
}
