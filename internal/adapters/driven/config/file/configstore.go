package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/spsync/spsync/internal/core/domain"
	"github.com/spsync/spsync/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore persists the sync configuration as a TOML file.
type ConfigStore struct {
	mu       sync.Mutex
	filePath string
}

// NewConfigStore creates a store at the given file path. An empty path
// defaults to ~/.spsync/config.toml. The parent directory is created
// with owner-only permissions.
func NewConfigStore(path string) (*ConfigStore, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(home, ".spsync", "config.toml")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}

	return &ConfigStore{filePath: path}, nil
}

// fileConfig is the TOML shape of the configuration file.
type fileConfig struct {
	SharePoint struct {
		TenantID     string `toml:"tenant_id"`
		ClientID     string `toml:"client_id"`
		ClientSecret string `toml:"client_secret"`
		SiteURL      string `toml:"site_url"`
		ListName     string `toml:"list_name"`
		PageSize     int    `toml:"page_size,omitempty"`
	} `toml:"sharepoint"`

	Database struct {
		Type     string `toml:"type"`
		Server   string `toml:"server,omitempty"`
		Database string `toml:"database,omitempty"`
		Username string `toml:"username,omitempty"`
		Password string `toml:"password,omitempty"`
		File     string `toml:"file,omitempty"`
	} `toml:"database"`

	Sync struct {
		Table                 string `toml:"table"`
		CreateTable           bool   `toml:"create_table"`
		TruncateBeforeInsert  bool   `toml:"truncate_before_insert"`
		BatchSize             int    `toml:"batch_size,omitempty"`
		ConnectionTimeoutSecs int    `toml:"connection_timeout_seconds,omitempty"`
		MaxAuthRetries        int    `toml:"max_auth_retries,omitempty"`
		IntervalMinutes       int    `toml:"interval_minutes,omitempty"`
	} `toml:"sync"`
}

func (f *fileConfig) toDomain() domain.SyncConfig {
	cfg := domain.SyncConfig{
		Credentials: domain.Credentials{
			TenantID:     f.SharePoint.TenantID,
			ClientID:     f.SharePoint.ClientID,
			ClientSecret: f.SharePoint.ClientSecret,
			SiteURL:      f.SharePoint.SiteURL,
		},
		ListName: f.SharePoint.ListName,
		PageSize: f.SharePoint.PageSize,
		Database: domain.DatabaseConfig{
			Type:     domain.DatabaseType(f.Database.Type),
			Server:   f.Database.Server,
			Database: f.Database.Database,
			Username: f.Database.Username,
			Password: f.Database.Password,
			File:     f.Database.File,
		},
		Table:                f.Sync.Table,
		CreateTable:          f.Sync.CreateTable,
		TruncateBeforeInsert: f.Sync.TruncateBeforeInsert,
		BatchSize:            f.Sync.BatchSize,
		ConnectionTimeout:    time.Duration(f.Sync.ConnectionTimeoutSecs) * time.Second,
		MaxAuthRetries:       f.Sync.MaxAuthRetries,
		Interval:             time.Duration(f.Sync.IntervalMinutes) * time.Minute,
	}
	cfg.Normalise()
	return cfg
}

func fromDomain(cfg domain.SyncConfig) fileConfig {
	var f fileConfig
	f.SharePoint.TenantID = cfg.Credentials.TenantID
	f.SharePoint.ClientID = cfg.Credentials.ClientID
	f.SharePoint.ClientSecret = cfg.Credentials.ClientSecret
	f.SharePoint.SiteURL = cfg.Credentials.SiteURL
	f.SharePoint.ListName = cfg.ListName
	f.SharePoint.PageSize = cfg.PageSize
	f.Database.Type = string(cfg.Database.Type)
	f.Database.Server = cfg.Database.Server
	f.Database.Database = cfg.Database.Database
	f.Database.Username = cfg.Database.Username
	f.Database.Password = cfg.Database.Password
	f.Database.File = cfg.Database.File
	f.Sync.Table = cfg.Table
	f.Sync.CreateTable = cfg.CreateTable
	f.Sync.TruncateBeforeInsert = cfg.TruncateBeforeInsert
	f.Sync.BatchSize = cfg.BatchSize
	f.Sync.ConnectionTimeoutSecs = int(cfg.ConnectionTimeout.Seconds())
	f.Sync.MaxAuthRetries = cfg.MaxAuthRetries
	f.Sync.IntervalMinutes = int(cfg.Interval.Minutes())
	return f
}

// Load reads and normalises the configuration. A missing file yields a
// normalised zero config, so `spsync configure` can start from scratch.
func (s *ConfigStore) Load() (domain.SyncConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *ConfigStore) load() (domain.SyncConfig, error) {
	var f fileConfig
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return f.toDomain(), nil
		}
		return domain.SyncConfig{}, err
	}
	if err := toml.Unmarshal(data, &f); err != nil {
		return domain.SyncConfig{}, fmt.Errorf("parsing %s: %w", s.filePath, err)
	}
	return f.toDomain(), nil
}

// Save writes the configuration with owner-only permissions.
func (s *ConfigStore) Save(cfg domain.SyncConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(cfg)
}

func (s *ConfigStore) save(cfg domain.SyncConfig) error {
	f := fromDomain(cfg)
	data, err := toml.Marshal(f)
	if err != nil {
		return err
	}
	return os.WriteFile(s.filePath, data, 0600)
}

// Set updates one dotted key and persists immediately.
func (s *ConfigStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.load()
	if err != nil {
		return err
	}
	if err := apply(&cfg, key, value); err != nil {
		return err
	}
	return s.save(cfg)
}

// Path returns the configuration file path.
func (s *ConfigStore) Path() string {
	return s.filePath
}

// apply maps a dotted key onto a config field.
func apply(cfg *domain.SyncConfig, key, value string) error {
	switch key {
	case "sharepoint.tenant_id":
		cfg.Credentials.TenantID = value
	case "sharepoint.client_id":
		cfg.Credentials.ClientID = value
	case "sharepoint.client_secret":
		cfg.Credentials.ClientSecret = value
	case "sharepoint.site_url":
		cfg.Credentials.SiteURL = value
	case "sharepoint.list_name":
		cfg.ListName = value
	case "sharepoint.page_size":
		return setInt(&cfg.PageSize, key, value)
	case "database.type":
		cfg.Database.Type = domain.DatabaseType(value)
	case "database.server":
		cfg.Database.Server = value
	case "database.database":
		cfg.Database.Database = value
	case "database.username":
		cfg.Database.Username = value
	case "database.password":
		cfg.Database.Password = value
	case "database.file":
		cfg.Database.File = value
	case "sync.table":
		cfg.Table = value
	case "sync.create_table":
		return setBool(&cfg.CreateTable, key, value)
	case "sync.truncate_before_insert":
		return setBool(&cfg.TruncateBeforeInsert, key, value)
	case "sync.batch_size":
		return setInt(&cfg.BatchSize, key, value)
	case "sync.connection_timeout_seconds":
		return setDuration(&cfg.ConnectionTimeout, key, value, time.Second)
	case "sync.max_auth_retries":
		return setInt(&cfg.MaxAuthRetries, key, value)
	case "sync.interval_minutes":
		return setDuration(&cfg.Interval, key, value, time.Minute)
	default:
		return fmt.Errorf("unknown configuration key %q", key)
	}
	return nil
}

func setInt(dst *int, key, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%s must be an integer: %w", key, err)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key, value string) error {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	*dst = b
	return nil
}

func setDuration(dst *time.Duration, key, value string, unit time.Duration) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%s must be an integer: %w", key, err)
	}
	*dst = time.Duration(n) * unit
	return nil
}
