package fs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/fwojciec/promptscore"
	"golang.org/x/sync/singleflight"
)

// Compile-time interface verification.
var _ promptscore.ModelCatalog = (*Catalog)(nil)

// DefaultCatalogTTL is how long a cached model list stays fresh.
const DefaultCatalogTTL = 24 * time.Hour

// Catalog wraps a ModelCatalog with file-based caching. Concurrent misses
// share one upstream fetch. When the upstream fails, a stale cache entry is
// served instead.
type Catalog struct {
	inner    promptscore.ModelCatalog
	cacheDir string
	name     string
	ttl      time.Duration
	now      func() time.Time
	group    singleflight.Group
}

// CatalogOption configures a Catalog.
type CatalogOption func(*Catalog)

// WithTTL sets how long cached entries stay fresh.
func WithTTL(ttl time.Duration) CatalogOption {
	return func(c *Catalog) {
		c.ttl = ttl
	}
}

// WithClock sets the time source used for freshness checks.
func WithClock(now func() time.Time) CatalogOption {
	return func(c *Catalog) {
		c.now = now
	}
}

// NewCatalog creates a caching catalog. name keys the cache file, so
// catalogs of different providers can share a directory.
func NewCatalog(inner promptscore.ModelCatalog, cacheDir, name string, opts ...CatalogOption) *Catalog {
	c := &Catalog{
		inner:    inner,
		cacheDir: cacheDir,
		name:     name,
		ttl:      DefaultCatalogTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// cacheEntry is the on-disk form of a cached model list.
type cacheEntry struct {
	FetchedAt time.Time           `json:"fetchedAt"`
	Models    []promptscore.Model `json:"models"`
}

// Models returns a fresh cached list or delegates to the inner catalog.
func (c *Catalog) Models(ctx context.Context) ([]promptscore.Model, error) {
	cached, cacheErr := c.loadFromCache()
	if cacheErr == nil && c.now().Sub(cached.FetchedAt) < c.ttl {
		return cached.Models, nil
	}

	v, err, _ := c.group.Do(c.name, func() (any, error) {
		return c.inner.Models(ctx)
	})
	if err != nil {
		if cacheErr == nil {
			clog.FromContext(ctx).Warn("Model catalog fetch failed, serving stale cache",
				"catalog", c.name,
				"fetched_at", cached.FetchedAt,
				"error", err)
			return cached.Models, nil
		}
		return nil, err
	}
	models := v.([]promptscore.Model)

	// Store in cache (best-effort)
	if err := c.saveToCache(cacheEntry{FetchedAt: c.now().UTC(), Models: models}); err != nil {
		clog.FromContext(ctx).Debug("Failed to write model cache", "catalog", c.name, "error", err)
	}

	return models, nil
}

func (c *Catalog) cachePath() string {
	return filepath.Join(c.cacheDir, c.name+"-models.json")
}

func (c *Catalog) loadFromCache() (*cacheEntry, error) {
	data, err := os.ReadFile(c.cachePath())
	if err != nil {
		return nil, err
	}

	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}

	return &entry, nil
}

func (c *Catalog) saveToCache(entry cacheEntry) error {
	if err := os.MkdirAll(c.cacheDir, 0755); err != nil {
		return err
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	// Write through a temp file so concurrent readers never see a partial entry.
	tmp, err := os.CreateTemp(c.cacheDir, c.name+"-*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), c.cachePath())
}
