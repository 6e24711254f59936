// Package envcache creates and memoizes isolated environments.
//
// Environments are keyed by (interception config fingerprint, version) and
// kept in an LRU list bounded at SizeFactor times the number of known
// versions, so a full matrix run with one config never thrashes. An
// environment handed out through a Lease is never evicted; when the cache is
// full and every entry is leased, GetOrCreate waits for a Release.
package envcache

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/shadowbox/internal/domain/dispatch"
	"github.com/GriffinCanCode/shadowbox/internal/domain/intercept"
	"github.com/GriffinCanCode/shadowbox/internal/domain/sandbox"
	"github.com/GriffinCanCode/shadowbox/internal/infrastructure/logging"
	"github.com/GriffinCanCode/shadowbox/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/shadowbox/internal/shared/platform"
	"github.com/GriffinCanCode/shadowbox/internal/shared/types"
)

// DefaultSizeFactor is the number of cached environments per known version
const DefaultSizeFactor = 3

// ArtifactResolver locates a local copy of a framework artifact
type ArtifactResolver interface {
	Resolve(ctx context.Context, dep platform.DependencyID) (platform.Artifact, error)
}

// Key identifies a cached environment. Equal configs built independently
// produce equal keys.
type Key struct {
	Config  string // intercept.Config fingerprint
	Version platform.Version
}

// KeyFor builds the key for cfg at version
func KeyFor(cfg intercept.Config, version platform.Version) Key {
	return Key{Config: cfg.Fingerprint(), Version: version}
}

// String returns a short form for logs
func (k Key) String() string {
	fp := k.Config
	if len(fp) > 12 {
		fp = fp[:12]
	}
	return fmt.Sprintf("%s@%s", fp, k.Version)
}

type entry struct {
	key    Key
	env    *sandbox.Environment
	leases int
}

// Cache is an LRU of environments guarded by a single mutex
type Cache struct {
	catalog      *platform.Catalog
	resolver     ArtifactResolver
	capacity     int
	base         *intercept.Table
	versionClass string
	programs     *sandbox.Programs
	metrics      *monitoring.Metrics
	logger       *logging.Logger

	mu    sync.Mutex
	cond  *sync.Cond
	ll    *list.List // front is most recently used
	items map[Key]*list.Element
}

// Option configures a Cache
type Option func(*Cache)

// WithCapacity sets an explicit capacity
func WithCapacity(n int) Option {
	return func(c *Cache) { c.capacity = n }
}

// WithSizeFactor sets capacity to factor times the number of catalog versions
func WithSizeFactor(factor int) Option {
	return func(c *Cache) { c.capacity = factor * c.catalog.Len() }
}

// WithBaseTable sets the shadows every environment starts with
func WithBaseTable(t *intercept.Table) Option {
	return func(c *Cache) { c.base = t }
}

// WithVersionClass overrides the class receiving version identity
func WithVersionClass(name string) Option {
	return func(c *Cache) { c.versionClass = name }
}

// WithMetrics records cache metrics
func WithMetrics(m *monitoring.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// WithLogger sets the logger
func WithLogger(l *logging.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// New creates a cache for the versions in catalog
func New(catalog *platform.Catalog, resolver ArtifactResolver, opts ...Option) *Cache {
	c := &Cache{
		catalog:  catalog,
		resolver: resolver,
		capacity: DefaultSizeFactor * catalog.Len(),
		base:     intercept.Empty(),
		programs: sandbox.NewPrograms(),
		ll:       list.New(),
		items:    make(map[Key]*list.Element),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.capacity < 1 {
		c.capacity = 1
	}
	c.cond = sync.NewCond(&c.mu)
	c.logger = logging.OrNop(c.logger).Named("envcache")
	return c
}

// Lease is a claim on a cached environment. The environment cannot be
// evicted until the lease is released.
type Lease struct {
	cache *Cache
	entry *entry
	once  sync.Once
}

// Env returns the leased environment
func (l *Lease) Env() *sandbox.Environment {
	return l.entry.env
}

// Key returns the cache key of the leased environment
func (l *Lease) Key() Key {
	return l.entry.key
}

// Release gives the lease back. Extra calls are no-ops.
func (l *Lease) Release() {
	l.once.Do(func() {
		l.cache.mu.Lock()
		l.entry.leases--
		l.cache.mu.Unlock()
		l.cache.cond.Broadcast()
	})
}

// GetOrCreate returns a lease on the environment for (cfg, version),
// building it on a miss. Construction happens inside the critical section so
// a key is never built twice.
func (c *Cache) GetOrCreate(ctx context.Context, cfg intercept.Config, version platform.Version) (*Lease, error) {
	key := KeyFor(cfg, version)

	c.mu.Lock()
	defer c.mu.Unlock()

	release, ok := c.catalog.Get(version)
	if !ok {
		return nil, types.Wrap(types.ErrConfiguration, fmt.Errorf("unsupported platform version %s", version))
	}

	stopWake := context.AfterFunc(ctx, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.cond.Broadcast()
	})
	defer stopWake()

	for {
		if el, ok := c.items[key]; ok {
			c.ll.MoveToFront(el)
			e := el.Value.(*entry)
			e.leases++
			c.metrics.RecordCacheHit()
			return &Lease{cache: c, entry: e}, nil
		}
		if c.ll.Len() < c.capacity || c.idleTail() != nil {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c.metrics.RecordCacheWait()
		c.logger.Debug("Cache full of leased environments, waiting", zap.Stringer("key", key))
		c.cond.Wait()
	}

	start := time.Now()
	env, err := c.build(ctx, release, cfg)
	if err != nil {
		c.logger.Warn("Environment build failed", zap.Stringer("key", key), zap.Error(err))
		return nil, err
	}
	c.metrics.RecordCacheMiss(version.String(), time.Since(start))

	for c.ll.Len() >= c.capacity {
		c.evict(c.idleTail())
	}

	e := &entry{key: key, env: env, leases: 1}
	c.items[key] = c.ll.PushFront(e)
	c.metrics.SetCacheSize(c.ll.Len())

	c.logger.Info("Environment created",
		zap.Stringer("key", key),
		zap.String("env", string(env.ID())),
		zap.Duration("took", time.Since(start)))
	return &Lease{cache: c, entry: e}, nil
}

func (c *Cache) build(ctx context.Context, release platform.Release, cfg intercept.Config) (*sandbox.Environment, error) {
	dep := release.Dependency()
	artifact, err := c.resolver.Resolve(ctx, dep)
	if err != nil {
		return nil, types.Wrap(types.ErrResolution, fmt.Errorf("resolve %s: %w", dep, err))
	}

	rt := dispatch.New(release.Version,
		dispatch.WithMetrics(c.metrics),
		dispatch.WithLogger(c.logger.Named("dispatch")))

	opts := []sandbox.Option{
		sandbox.WithBaseTable(c.base),
		sandbox.WithPrograms(c.programs),
		sandbox.WithLogger(c.logger.Named("sandbox")),
	}
	if c.versionClass != "" {
		opts = append(opts, sandbox.WithVersionClass(c.versionClass))
	}

	env, err := sandbox.New(ctx, release, artifact, cfg, rt, opts...)
	if err != nil {
		if errors.Is(err, types.ErrConfiguration) {
			return nil, err
		}
		return nil, types.Wrap(types.ErrResolution, fmt.Errorf("boot %s: %w", dep, err))
	}
	return env, nil
}

// idleTail returns the least recently used entry without leases
func (c *Cache) idleTail() *list.Element {
	for el := c.ll.Back(); el != nil; el = el.Prev() {
		if el.Value.(*entry).leases == 0 {
			return el
		}
	}
	return nil
}

func (c *Cache) evict(el *list.Element) {
	e := el.Value.(*entry)
	c.ll.Remove(el)
	delete(c.items, e.key)
	_ = e.env.Close()

	c.metrics.RecordEviction()
	c.metrics.SetCacheSize(c.ll.Len())
	c.logger.Debug("Environment evicted", zap.Stringer("key", e.key))
}

// Len returns the number of cached environments
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Catalog returns the versions the cache can build
func (c *Cache) Catalog() *platform.Catalog {
	return c.catalog
}

// Capacity returns the maximum number of cached environments
func (c *Cache) Capacity() int {
	return c.capacity
}

// Contains reports whether key is cached without touching its recency
func (c *Cache) Contains(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	return ok
}

// Keys returns the cached keys from least to most recently used
func (c *Cache) Keys() []Key {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]Key, 0, c.ll.Len())
	for el := c.ll.Back(); el != nil; el = el.Prev() {
		keys = append(keys, el.Value.(*entry).key)
	}
	return keys
}

// Purge evicts every environment without an active lease and returns how many were removed
func (c *Cache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for el := c.idleTail(); el != nil; el = c.idleTail() {
		c.evict(el)
		n++
	}
	return n
}
