// Package manifest loads application manifests referenced by test configuration.
package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-yaml"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/shadowbox/internal/infrastructure/logging"
	"github.com/GriffinCanCode/shadowbox/internal/shared/types"
)

// DefaultFile is looked up when a test does not name a manifest
const DefaultFile = "shadowbox-manifest.yaml"

// Loader reads YAML manifests and caches them per absolute path
type Loader struct {
	defaultPath string
	logger      *logging.Logger

	mu    sync.Mutex
	cache map[string]*types.Manifest
}

// Option configures a Loader
type Option func(*Loader)

// WithDefaultPath changes the manifest used when none is configured
func WithDefaultPath(path string) Option {
	return func(l *Loader) { l.defaultPath = path }
}

// WithLogger sets the logger
func WithLogger(logger *logging.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// NewLoader creates a loader
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		defaultPath: DefaultFile,
		cache:       make(map[string]*types.Manifest),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = logging.OrNop(l.logger).Named("manifest")
	return l
}

// Load returns the manifest for cfg with cfg's package, application and
// resource overrides applied. The cached manifest is never modified.
func (l *Loader) Load(cfg types.Config) (*types.Manifest, error) {
	var (
		base *types.Manifest
		err  error
	)
	switch cfg.Manifest {
	case types.ManifestNone:
		base = types.DefaultManifest()
	case "":
		base, err = l.load(l.defaultPath, true)
	default:
		base, err = l.load(cfg.Manifest, false)
	}
	if err != nil {
		return nil, err
	}

	out := *base
	if cfg.PackageName != "" {
		out.PackageName = cfg.PackageName
	}
	if cfg.Application != "" {
		out.Application = cfg.Application
	}
	if cfg.ResourceDir != "" {
		out.ResourceDir = cfg.ResourceDir
	}
	return &out, nil
}

// Len returns the number of cached manifests
func (l *Loader) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.cache)
}

func (l *Loader) load(path string, optional bool) (*types.Manifest, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, types.Wrap(types.ErrResolution, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if m, ok := l.cache[abs]; ok {
		return m, nil
	}

	m, err := Parse(abs)
	if errors.Is(err, fs.ErrNotExist) && optional {
		l.logger.Debug("No manifest found, using defaults", zap.String("path", abs))
		m = types.DefaultManifest()
	} else if err != nil {
		return nil, types.Wrap(types.ErrResolution, err)
	}

	l.cache[abs] = m
	return m, nil
}

// Parse reads one manifest file. A relative resource_dir is resolved against
// the manifest's directory.
func Parse(path string) (*types.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	m := &types.Manifest{}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if m.PackageName == "" {
		return nil, fmt.Errorf("manifest %s: package is required", path)
	}
	if m.MinVersion != 0 && m.MaxVersion != 0 && m.MinVersion > m.MaxVersion {
		return nil, fmt.Errorf("manifest %s: min_version %s is greater than max_version %s", path, m.MinVersion, m.MaxVersion)
	}

	if m.Application == "" {
		m.Application = types.DefaultApplicationClass
	}
	m.Path = path
	if m.ResourceDir != "" && !filepath.IsAbs(m.ResourceDir) {
		m.ResourceDir = filepath.Join(filepath.Dir(path), m.ResourceDir)
	}
	return m, nil
}
