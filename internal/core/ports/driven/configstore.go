package driven

import "github.com/spsync/spsync/internal/core/domain"

// ConfigStore persists the sync configuration.
// Implementations handle storage (e.g. TOML files) and key mapping.
type ConfigStore interface {
	// Load reads, normalises and returns the configuration.
	Load() (domain.SyncConfig, error)

	// Save writes the configuration back to storage. Secrets are stored
	// as provided; the file permissions are the confidentiality boundary.
	Save(cfg domain.SyncConfig) error

	// Set updates a single dotted key (e.g. "database.server") and
	// persists immediately.
	Set(key, value string) error

	// Path returns the configuration file path.
	Path() string
}
