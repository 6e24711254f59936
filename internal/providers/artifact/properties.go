package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/GriffinCanCode/shadowbox/internal/shared/platform"
)

// Properties maps coordinates to local files and defers everything else
// to a fallback resolver.
//
// The file is TOML with one key per coordinate:
//
//	"org.shadowbox:framework-all:6.0.1_r3-shadowbox-0" = "/opt/android-23.js"
//
// Relative paths are resolved against the file's directory.
type Properties struct {
	paths    map[string]string
	fallback Resolver
}

// LoadProperties reads an override file
func LoadProperties(path string, fallback Resolver) (*Properties, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact properties: %w", err)
	}

	var raw map[string]string
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse artifact properties %s: %w", path, err)
	}

	base := filepath.Dir(path)
	paths := make(map[string]string, len(raw))
	for coord, p := range raw {
		if !filepath.IsAbs(p) {
			p = filepath.Join(base, p)
		}
		paths[coord] = p
	}
	return NewProperties(paths, fallback), nil
}

// NewProperties creates an override resolver from a coordinate to path map
func NewProperties(paths map[string]string, fallback Resolver) *Properties {
	return &Properties{paths: paths, fallback: fallback}
}

// Resolve implements Resolver
func (p *Properties) Resolve(ctx context.Context, dep platform.DependencyID) (platform.Artifact, error) {
	if path, ok := p.paths[dep.String()]; ok {
		if _, err := os.Stat(path); err != nil {
			return platform.Artifact{}, fmt.Errorf("override for %s: %w", dep, err)
		}
		return platform.Artifact{Dependency: dep, Path: path}, nil
	}
	if p.fallback == nil {
		return platform.Artifact{}, fmt.Errorf("%w: no override for %s", ErrNotFound, dep)
	}
	return p.fallback.Resolve(ctx, dep)
}
