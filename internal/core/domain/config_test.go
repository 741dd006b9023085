package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSyncConfig() SyncConfig {
	return SyncConfig{
		Credentials: Credentials{
			TenantID:     "tenant-guid",
			ClientID:     "client-guid",
			ClientSecret: "secret",
			SiteURL:      "https://contoso.sharepoint.com/sites/team",
		},
		ListName: "Tasks",
		Table:    "tasks",
		Database: DatabaseConfig{Type: DatabaseSQLite, File: "sync.db"},
	}
}

func TestCredentials_Validate(t *testing.T) {
	creds := Credentials{ClientID: "id", SiteURL: "https://x"}
	err := creds.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "tenant_id")
	assert.Contains(t, err.Error(), "client_secret")
	assert.NotContains(t, err.Error(), "client_id")
}

func TestCredentials_SiteDomain(t *testing.T) {
	creds := Credentials{SiteURL: "https://contoso.sharepoint.com/sites/team"}
	domain, err := creds.SiteDomain()
	require.NoError(t, err)
	assert.Equal(t, "contoso.sharepoint.com", domain)

	creds.SiteURL = "not a url at all"
	_, err = creds.SiteDomain()
	assert.Error(t, err)
}

func TestDatabaseConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     DatabaseConfig
		wantErr error
	}{
		{
			"valid sqlserver",
			DatabaseConfig{Type: DatabaseSQLServer, Server: "db.local", Database: "sync", Username: "sa"},
			nil,
		},
		{
			"sqlserver missing fields",
			DatabaseConfig{Type: DatabaseSQLServer},
			ErrInvalidConfig,
		},
		{
			"valid sqlite",
			DatabaseConfig{Type: DatabaseSQLite, File: "sync.db"},
			nil,
		},
		{
			"sqlite missing file",
			DatabaseConfig{Type: DatabaseSQLite},
			ErrInvalidConfig,
		},
		{
			"unknown backend",
			DatabaseConfig{Type: "oracle"},
			ErrUnsupportedDatabase,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestSyncConfig_Normalise(t *testing.T) {
	cfg := validSyncConfig()
	cfg.Normalise()

	assert.Equal(t, DefaultBatchSize, cfg.BatchSize)
	assert.Equal(t, DefaultConnectionTimeout, cfg.ConnectionTimeout)
	assert.Equal(t, DefaultMaxAuthRetries, cfg.MaxAuthRetries)
	assert.Equal(t, DefaultSyncInterval, cfg.Interval)
	assert.Equal(t, cfg.ConnectionTimeout, cfg.Database.ConnectTimeout)
}

func TestSyncConfig_NormaliseKeepsExplicitValues(t *testing.T) {
	cfg := validSyncConfig()
	cfg.BatchSize = 100
	cfg.ConnectionTimeout = 5 * time.Second
	cfg.Database.ConnectTimeout = 2 * time.Second
	cfg.Normalise()

	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 5*time.Second, cfg.ConnectionTimeout)
	assert.Equal(t, 2*time.Second, cfg.Database.ConnectTimeout)
}

func TestSyncConfig_Validate(t *testing.T) {
	cfg := validSyncConfig()
	assert.NoError(t, cfg.Validate())
}

func TestSyncConfig_ValidateAggregates(t *testing.T) {
	cfg := validSyncConfig()
	cfg.ListName = ""
	cfg.Table = ""
	cfg.Database.File = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list_name")
	assert.Contains(t, err.Error(), "table name")
	assert.Contains(t, err.Error(), "sqlite")
}
