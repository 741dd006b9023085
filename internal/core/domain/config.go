package domain

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Credentials identify the SharePoint tenant and app registration for a
// sync run. Immutable once a run starts. The client secret must never
// appear in logs or events.
type Credentials struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	SiteURL      string
}

// Validate checks that all fields required for a token exchange are set.
func (c Credentials) Validate() error {
	var missing []string
	if c.TenantID == "" {
		missing = append(missing, "tenant_id")
	}
	if c.ClientID == "" {
		missing = append(missing, "client_id")
	}
	if c.ClientSecret == "" {
		missing = append(missing, "client_secret")
	}
	if c.SiteURL == "" {
		missing = append(missing, "site_url")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidConfig, strings.Join(missing, ", "))
	}
	return nil
}

// SiteDomain extracts the host from the site URL. The token exchange
// scopes its resource identifier to this domain.
func (c Credentials) SiteDomain() (string, error) {
	u, err := url.Parse(c.SiteURL)
	if err != nil {
		return "", fmt.Errorf("parse site url: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: site_url %q has no host", ErrInvalidConfig, c.SiteURL)
	}
	return u.Host, nil
}

// DatabaseType selects the destination backend.
type DatabaseType string

const (
	// DatabaseSQLServer targets a SQL Server instance.
	DatabaseSQLServer DatabaseType = "sqlserver"

	// DatabaseSQLite targets an embedded SQLite file.
	DatabaseSQLite DatabaseType = "sqlite"
)

// DatabaseConfig holds per-backend connection parameters.
type DatabaseConfig struct {
	Type DatabaseType

	// SQL Server parameters.
	Server   string
	Database string
	Username string
	Password string

	// SQLite parameter.
	File string

	// ConnectTimeout bounds connection establishment. Hard run timeouts
	// live at the transport layer, not in the orchestrator.
	ConnectTimeout time.Duration
}

// Validate checks the parameters needed for the selected backend.
func (c DatabaseConfig) Validate() error {
	switch c.Type {
	case DatabaseSQLServer:
		var missing []string
		if c.Server == "" {
			missing = append(missing, "server")
		}
		if c.Database == "" {
			missing = append(missing, "database")
		}
		if c.Username == "" {
			missing = append(missing, "username")
		}
		if len(missing) > 0 {
			return fmt.Errorf("%w: sqlserver needs %s", ErrInvalidConfig, strings.Join(missing, ", "))
		}
		return nil
	case DatabaseSQLite:
		if c.File == "" {
			return fmt.Errorf("%w: sqlite needs a file path", ErrInvalidConfig)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedDatabase, c.Type)
	}
}

// SyncConfig is everything one sync run needs to know. It is assembled
// by the configuration adapter and handed to the orchestrator whole.
type SyncConfig struct {
	Credentials Credentials

	// ListName is the SharePoint list title to read.
	ListName string

	// PageSize is an optional page-size hint for the items request.
	// Zero lets the server choose.
	PageSize int

	Database DatabaseConfig

	// Table is the destination table name.
	Table string

	// CreateTable enables creating the table when it is absent.
	CreateTable bool

	// TruncateBeforeInsert deletes all existing rows before writing.
	// Opt-in full-refresh mode; off by default.
	TruncateBeforeInsert bool

	// BatchSize is the number of rows per insert batch.
	BatchSize int

	// ConnectionTimeout bounds individual HTTP requests.
	ConnectionTimeout time.Duration

	// MaxAuthRetries caps token exchange attempts.
	MaxAuthRetries int

	// Interval is the wait between scheduled runs.
	Interval time.Duration
}

// Default tuning values applied by Normalise.
const (
	DefaultBatchSize         = 500
	DefaultConnectionTimeout = 30 * time.Second
	DefaultMaxAuthRetries    = 3
	DefaultSyncInterval      = time.Hour
)

// Normalise fills unset tuning fields with defaults.
func (c *SyncConfig) Normalise() {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.ConnectionTimeout <= 0 {
		c.ConnectionTimeout = DefaultConnectionTimeout
	}
	if c.MaxAuthRetries <= 0 {
		c.MaxAuthRetries = DefaultMaxAuthRetries
	}
	if c.Interval <= 0 {
		c.Interval = DefaultSyncInterval
	}
	if c.Database.ConnectTimeout <= 0 {
		c.Database.ConnectTimeout = c.ConnectionTimeout
	}
}

// Validate aggregates every configuration problem rather than stopping
// at the first, so the host can show them all at once.
func (c SyncConfig) Validate() error {
	var errs []error
	if err := c.Credentials.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.ListName == "" {
		errs = append(errs, fmt.Errorf("%w: missing list_name", ErrInvalidConfig))
	}
	if c.Table == "" {
		errs = append(errs, fmt.Errorf("%w: missing table name", ErrInvalidConfig))
	}
	if err := c.Database.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
