package artifact

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/GriffinCanCode/shadowbox/internal/infrastructure/logging"
	"github.com/GriffinCanCode/shadowbox/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/shadowbox/internal/shared/platform"
)

// DefaultTTL is how long a cached artifact is trusted without refetching
const DefaultTTL = 24 * time.Hour

const indexFile = "index.json"

type indexEntry struct {
	Path      string    `json:"path"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Cached remembers where an inner resolver put each artifact. Entries older
// than the TTL are refreshed, and a refresh failure is returned exactly as a
// cold cache would return it unless WithStaleFallback is set.
// Concurrent misses for one coordinate share a single inner call.
type Cached struct {
	inner   Resolver
	dir     string
	ttl     time.Duration
	stale   bool
	now     func() time.Time
	metrics *monitoring.Metrics
	logger  *logging.Logger

	group singleflight.Group

	mu     sync.Mutex
	index  map[string]indexEntry
	loaded bool
}

// CacheOption configures a Cached resolver
type CacheOption func(*Cached)

// WithTTL sets the staleness window
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cached) { c.ttl = ttl }
}

// WithStaleFallback serves an expired entry when its refresh fails
func WithStaleFallback() CacheOption {
	return func(c *Cached) { c.stale = true }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cached) { c.now = now }
}

// WithCacheMetrics records cache hits as fetches from "cache"
func WithCacheMetrics(m *monitoring.Metrics) CacheOption {
	return func(c *Cached) { c.metrics = m }
}

// WithCacheLogger sets the logger
func WithCacheLogger(l *logging.Logger) CacheOption {
	return func(c *Cached) { c.logger = l }
}

// NewCached puts a TTL index stored in dir in front of inner
func NewCached(inner Resolver, dir string, opts ...CacheOption) *Cached {
	c := &Cached{
		inner: inner,
		dir:   dir,
		ttl:   DefaultTTL,
		now:   time.Now,
		index: make(map[string]indexEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.OrNop(c.logger).Named("artifact-cache")
	return c
}

// Resolve implements Resolver
func (c *Cached) Resolve(ctx context.Context, dep platform.DependencyID) (platform.Artifact, error) {
	key := dep.String()

	entry, ok := c.lookup(key)
	if ok && c.now().Sub(entry.FetchedAt) < c.ttl {
		c.metrics.RecordArtifactFetch("cache", nil)
		return platform.Artifact{Dependency: dep, Path: entry.Path}, nil
	}

	// the shared fetch outlives any single caller's cancellation
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		art, err := c.inner.Resolve(fetchCtx, dep)
		if err != nil {
			return nil, err
		}
		if err := c.store(key, art.Path); err != nil {
			c.logger.Warn("Failed to persist artifact index", zap.Error(err))
		}
		return art, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return platform.Artifact{}, ctx.Err()
	}

	v, err := res.Val, res.Err
	if err != nil {
		if ok && c.stale && !errors.Is(err, context.Canceled) {
			c.logger.Warn("Refresh failed, using stale artifact",
				zap.String("dependency", key),
				zap.Time("fetched_at", entry.FetchedAt),
				zap.Error(err))
			return platform.Artifact{Dependency: dep, Path: entry.Path}, nil
		}
		return platform.Artifact{}, err
	}
	return v.(platform.Artifact), nil
}

// Entries returns the number of indexed artifacts
func (c *Cached) Entries() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadLocked()
	return len(c.index)
}

func (c *Cached) lookup(key string) (indexEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadLocked()

	e, ok := c.index[key]
	if !ok {
		return indexEntry{}, false
	}
	if _, err := os.Stat(e.Path); err != nil {
		delete(c.index, key)
		return indexEntry{}, false
	}
	return e, true
}

func (c *Cached) store(key, path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadLocked()

	c.index[key] = indexEntry{Path: path, FetchedAt: c.now()}

	data, err := sonic.MarshalIndent(c.index, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	tmp := filepath.Join(c.dir, indexFile+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(c.dir, indexFile))
}

// loadLocked reads the index once; a missing or corrupt index starts empty
func (c *Cached) loadLocked() {
	if c.loaded {
		return
	}
	c.loaded = true

	data, err := os.ReadFile(filepath.Join(c.dir, indexFile))
	if err != nil {
		return
	}
	var index map[string]indexEntry
	if err := sonic.Unmarshal(data, &index); err != nil {
		c.logger.Warn("Ignoring corrupt artifact index", zap.Error(fmt.Errorf("%s: %w", c.dir, err)))
		return
	}
	if index != nil {
		c.index = index
	}
}
