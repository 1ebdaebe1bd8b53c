package backup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/infusion-core/internal/infrastructure/database"
)

// Cache stores fetched project files in SQLite, keyed by controller
// hostname. One row per host; a refetch replaces the row.
type Cache struct {
	db *database.DB
}

// NewCache creates a cache backed by db. The project_cache table is
// created by migrations.
func NewCache(db *database.DB) *Cache {
	return &Cache{db: db}
}

// Load returns the cached project file for host, or ErrCacheMiss.
func (c *Cache) Load(ctx context.Context, host string) ([]byte, error) {
	var xmlData []byte
	err := c.db.QueryRowContext(ctx,
		`SELECT xml FROM project_cache WHERE host = ?`, host,
	).Scan(&xmlData)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("reading project cache: %w", err)
	}
	return xmlData, nil
}

// Store writes the project file for host, replacing any previous copy.
func (c *Cache) Store(ctx context.Context, host string, xmlData []byte) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO project_cache (host, xml, fetched_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (host) DO UPDATE SET xml = excluded.xml,
		                                  fetched_at = excluded.fetched_at`,
		host, xmlData, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("writing project cache: %w", err)
	}
	return nil
}

// Get returns the project file for the fetcher's host: from cache
// unless disabled or missing, otherwise via a live fetch written
// through to the cache. A nil cache always fetches live. Cache read
// and write failures degrade to a fetch and a warning; only fetch
// failure is returned.
func Get(ctx context.Context, f *Fetcher, c *Cache, disableCache bool, logger Logger) ([]byte, error) {
	if logger == nil {
		logger = noopLogger{}
	}
	host := f.cfg.Host

	if c != nil && !disableCache {
		xmlData, err := c.Load(ctx, host)
		if err == nil {
			logger.Info("using cached project file",
				"host", host, "bytes", len(xmlData))
			return xmlData, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			logger.Warn("project cache read failed", "host", host, "error", err)
		}
	}

	xmlData, err := f.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	if c != nil {
		if err := c.Store(ctx, host, xmlData); err != nil {
			logger.Warn("project cache write failed", "host", host, "error", err)
		}
	}
	return xmlData, nil
}
