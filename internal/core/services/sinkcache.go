package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/spsync/spsync/internal/core/domain"
	"github.com/spsync/spsync/internal/core/ports/driven"
	"github.com/spsync/spsync/internal/logger"
)

// Ensure SinkCache satisfies the orchestrator's provider contract.
var _ SinkProvider = (*SinkCache)(nil)

// SinkFactory opens a destination sink for the given parameters.
type SinkFactory func(cfg domain.DatabaseConfig) (driven.TableSink, error)

// DefaultSinkTTL is how long an unused cached connection survives.
const DefaultSinkTTL = 10 * time.Minute

// SinkCache reuses destination connections across runs. Entries are
// keyed by a fingerprint of the connection parameters, health-checked
// before reuse, and closed once unused past the TTL. Scheduled syncs
// against the same database therefore reconnect only when the
// connection actually died.
type SinkCache struct {
	factory SinkFactory
	ttl     time.Duration
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]*sinkEntry
}

type sinkEntry struct {
	sink     driven.TableSink
	lastUsed time.Time
}

// NewSinkCache creates a cache. A non-positive ttl uses DefaultSinkTTL.
func NewSinkCache(factory SinkFactory, ttl time.Duration) *SinkCache {
	if ttl <= 0 {
		ttl = DefaultSinkTTL
	}
	return &SinkCache{
		factory: factory,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]*sinkEntry),
	}
}

// Get returns a healthy sink for the parameters, reusing a cached
// connection when its ping still succeeds. Callers must not close the
// returned sink; the cache owns it.
func (c *SinkCache) Get(ctx context.Context, cfg domain.DatabaseConfig) (driven.TableSink, error) {
	key := fingerprint(cfg)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.evictStale()

	if entry, ok := c.entries[key]; ok {
		if err := entry.sink.Ping(ctx); err == nil {
			entry.lastUsed = c.now()
			return entry.sink, nil
		}
		// Dead connection: drop it and open fresh.
		logger.Debug("cached connection failed health check, reopening")
		entry.sink.Close()
		delete(c.entries, key)
	}

	sink, err := c.factory(cfg)
	if err != nil {
		return nil, err
	}
	c.entries[key] = &sinkEntry{sink: sink, lastUsed: c.now()}
	return sink, nil
}

// Close closes every cached connection.
func (c *SinkCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	for key, entry := range c.entries {
		if err := entry.sink.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(c.entries, key)
	}
	return firstErr
}

// evictStale closes entries unused past the TTL. Caller holds the lock.
func (c *SinkCache) evictStale() {
	cutoff := c.now().Add(-c.ttl)
	for key, entry := range c.entries {
		if entry.lastUsed.Before(cutoff) {
			entry.sink.Close()
			delete(c.entries, key)
		}
	}
}

// fingerprint derives the cache key from every connection parameter, so
// two configs differing only by credentials never share a connection.
// Hashing keeps the password out of any key that might get logged.
func fingerprint(cfg domain.DatabaseConfig) string {
	h := sha256.New()
	h.Write([]byte(strings.Join([]string{
		string(cfg.Type),
		cfg.Server,
		cfg.Database,
		cfg.Username,
		cfg.Password,
		cfg.File,
	}, "\x00")))
	return hex.EncodeToString(h.Sum(nil))
}
