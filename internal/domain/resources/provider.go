package resources

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"
	"github.com/goccy/go-yaml"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/shadowbox/internal/infrastructure/logging"
	"github.com/GriffinCanCode/shadowbox/internal/shared/types"
)

// Provider loads application resource tables and caches them per manifest
type Provider struct {
	mu     sync.Mutex
	tables map[string]*Table
	logger *logging.Logger
}

// NewProvider creates a provider
func NewProvider(logger *logging.Logger) *Provider {
	return &Provider{
		tables: make(map[string]*Table),
		logger: logging.OrNop(logger),
	}
}

// Views builds the layered views for manifest over the framework table
func (p *Provider) Views(manifest *types.Manifest, framework *Table) (Views, error) {
	app, err := p.AppTable(manifest)
	if err != nil {
		return Views{}, err
	}
	return Build(app, framework), nil
}

// AppTable returns the application table for manifest, loading it once
func (p *Provider) AppTable(manifest *types.Manifest) (*Table, error) {
	if manifest == nil {
		manifest = types.DefaultManifest()
	}
	key := manifest.Identity()

	p.mu.Lock()
	defer p.mu.Unlock()

	if t, ok := p.tables[key]; ok {
		return t, nil
	}

	t, err := LoadDir(manifest.ResourceDir)
	if err != nil {
		return nil, types.Wrap(types.ErrResolution, fmt.Errorf("resources for %s: %w", manifest.PackageName, err))
	}
	p.tables[key] = t
	p.logger.Debug("Loaded application resources",
		zap.String("package", manifest.PackageName),
		zap.String("dir", manifest.ResourceDir),
		zap.Int("values", t.Len()))
	return t, nil
}

// LoadDir reads every YAML file under dir into one table.
//
// Each file maps a resource type to name/value pairs:
//
//	string:
//	  app_name: Demo
//	integer:
//	  max_items: 10
//
// An empty dir yields an empty table.
func LoadDir(dir string) (*Table, error) {
	if dir == "" {
		return EmptyTable(LayerApplication), nil
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, err
	}

	var (
		mu    sync.Mutex
		files []string
	)
	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, dir, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(p)) {
		case ".yaml", ".yml":
			mu.Lock()
			files = append(files, p)
			mu.Unlock()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// walk order is nondeterministic; later files win on duplicate keys
	slices.Sort(files)

	values := map[string]any{}
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, err
		}
		var parsed map[string]map[string]any
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return nil, fmt.Errorf("parse %s: %w", f, err)
		}
		for kind, entries := range parsed {
			for name, v := range entries {
				values[kind+"/"+name] = v
			}
		}
	}
	return NewTable(LayerApplication, values), nil
}
