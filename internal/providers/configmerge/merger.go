// Package configmerge resolves the effective configuration of a test method.
//
// Layers apply in order: global defaults, the project file, the test class,
// then the method. Scalars set by a later layer override earlier ones; shadow
// names and instrumented packages accumulate without duplicates; qualifiers
// merge key by key.
package configmerge

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/GriffinCanCode/shadowbox/internal/shared/types"
)

// ProjectFile is the conventional project configuration file name
const ProjectFile = "shadowbox.toml"

// Merger merges configuration layers. It is safe for concurrent use.
type Merger struct {
	defaults types.Config
	project  types.Config
}

// New creates a merger with global defaults and an optional project layer
func New(defaults, project types.Config) *Merger {
	return &Merger{defaults: defaults.Clone(), project: project.Clone()}
}

// FromProjectFile creates a merger whose project layer is read from path.
// A missing file is an empty layer.
func FromProjectFile(defaults types.Config, path string) (*Merger, error) {
	project, err := LoadProjectFile(path)
	if err != nil {
		return nil, err
	}
	return New(defaults, project), nil
}

// LoadProjectFile parses a TOML project file
func LoadProjectFile(path string) (types.Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return types.Config{}, nil
	}
	if err != nil {
		return types.Config{}, types.Wrap(types.ErrConfiguration, fmt.Errorf("read %s: %w", path, err))
	}

	var cfg types.Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return types.Config{}, types.Wrap(types.ErrConfiguration, fmt.Errorf("%s:%d:%d: %w", path, row, col, err))
		}
		return types.Config{}, types.Wrap(types.ErrConfiguration, fmt.Errorf("%s: %w", path, err))
	}
	return cfg, nil
}

// Resolve merges every layer for one method. The result is a pure function of
// the merger's layers and target.
func (m *Merger) Resolve(target types.ConfigTarget) (types.Config, error) {
	// layers are checked before merging; Merge drops empty list entries
	layers := []struct {
		name string
		cfg  types.Config
	}{
		{"defaults", m.defaults},
		{"project", m.project},
		{"class", target.ClassConfig},
		{"method", target.MethodConfig},
	}

	var out types.Config
	for _, l := range layers {
		if err := validate(l.cfg); err != nil {
			return types.Config{}, types.Wrap(types.ErrConfiguration,
				fmt.Errorf("%s.%s: %s layer: %w", target.Class, target.Method, l.name, err))
		}
		out = out.Merge(l.cfg)
	}
	return out, nil
}

// Defaults returns the merged global and project layers
func (m *Merger) Defaults() types.Config {
	return m.defaults.Merge(m.project)
}

func validate(cfg types.Config) error {
	for _, v := range cfg.Versions {
		if v.IsSentinel() && v < -4 {
			return fmt.Errorf("unknown version sentinel %d", v)
		}
	}
	if cfg.MinVersion.IsSentinel() || cfg.MaxVersion.IsSentinel() {
		return fmt.Errorf("min/max versions must be concrete")
	}
	for _, s := range cfg.Shadows {
		if s == "" {
			return fmt.Errorf("empty shadow name")
		}
	}
	return nil
}
