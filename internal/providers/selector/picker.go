// Package selector chooses the platform versions a test runs against.
package selector

import (
	"fmt"
	"slices"

	"github.com/GriffinCanCode/shadowbox/internal/shared/platform"
	"github.com/GriffinCanCode/shadowbox/internal/shared/types"
)

// Picker expands configured versions and sentinels against a catalog
type Picker struct {
	catalog *platform.Catalog
	enabled []platform.Version
}

// Option configures a Picker
type Option func(*Picker)

// WithEnabled restricts selection to the given versions. Versions outside
// the set are silently dropped, so a method can select zero versions.
func WithEnabled(versions ...platform.Version) Option {
	return func(p *Picker) { p.enabled = append(p.enabled, versions...) }
}

// New creates a picker over catalog
func New(catalog *platform.Catalog, opts ...Option) *Picker {
	p := &Picker{catalog: catalog}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Select returns the ordered versions for cfg. Explicit versions keep their
// configured order; ranges and All are ascending.
func (p *Picker) Select(cfg types.Config, manifest *types.Manifest) ([]platform.Version, error) {
	if manifest == nil {
		manifest = types.DefaultManifest()
	}

	if len(cfg.Versions) > 0 && (cfg.MinVersion != 0 || cfg.MaxVersion != 0) {
		return nil, configError("versions and min/max versions may not be specified together (versions=%v, min=%s, max=%s)",
			cfg.Versions, cfg.MinVersion, cfg.MaxVersion)
	}

	var (
		selected []platform.Version
		err      error
	)
	switch {
	case len(cfg.Versions) > 0:
		selected, err = p.explicit(cfg.Versions, manifest)
	case cfg.MinVersion != 0 || cfg.MaxVersion != 0:
		selected, err = p.between(cfg.MinVersion, cfg.MaxVersion)
	default:
		var v platform.Version
		v, err = p.target(manifest)
		selected = []platform.Version{v}
	}
	if err != nil {
		return nil, err
	}

	return p.filter(selected), nil
}

func (p *Picker) explicit(versions []platform.Version, manifest *types.Manifest) ([]platform.Version, error) {
	out := make([]platform.Version, 0, len(versions))
	for _, v := range versions {
		switch v {
		case platform.All:
			out = append(out, p.catalog.Versions()...)
		case platform.Target:
			t, err := p.target(manifest)
			if err != nil {
				return nil, err
			}
			out = append(out, t)
		case platform.Oldest:
			o, err := p.bound(manifest.MinVersion, p.catalog.Oldest)
			if err != nil {
				return nil, err
			}
			out = append(out, o)
		case platform.Newest:
			n, err := p.bound(manifest.MaxVersion, p.catalog.Newest)
			if err != nil {
				return nil, err
			}
			out = append(out, n)
		default:
			if !p.catalog.Contains(v) {
				return nil, configError("unsupported platform version %s (supported: %v)", v, p.catalog.Versions())
			}
			out = append(out, v)
		}
	}
	return out, nil
}

func (p *Picker) between(lo, hi platform.Version) ([]platform.Version, error) {
	if hi == 0 {
		hi = platform.MaxVersion
	}
	if lo.IsSentinel() || hi.IsSentinel() {
		return nil, configError("min/max versions must be concrete, got min=%s max=%s", lo, hi)
	}
	if lo > hi {
		return nil, configError("min version %s is greater than max version %s", lo, hi)
	}

	var out []platform.Version
	for _, v := range p.catalog.Versions() {
		if v >= lo && v <= hi {
			out = append(out, v)
		}
	}
	return out, nil
}

// target is the manifest's target version, or the newest supported one
func (p *Picker) target(manifest *types.Manifest) (platform.Version, error) {
	if manifest.TargetVersion == 0 {
		return p.bound(0, p.catalog.Newest)
	}
	if !p.catalog.Contains(manifest.TargetVersion) {
		return 0, configError("target version %s of %s is not supported", manifest.TargetVersion, manifest.PackageName)
	}
	return manifest.TargetVersion, nil
}

func (p *Picker) bound(declared platform.Version, fallback func() (platform.Version, bool)) (platform.Version, error) {
	if declared != 0 {
		if !p.catalog.Contains(declared) {
			return 0, configError("manifest version %s is not supported", declared)
		}
		return declared, nil
	}
	v, ok := fallback()
	if !ok {
		return 0, configError("no platform versions are available")
	}
	return v, nil
}

// filter drops disabled versions and duplicates, keeping first occurrence
func (p *Picker) filter(versions []platform.Version) []platform.Version {
	out := make([]platform.Version, 0, len(versions))
	for _, v := range versions {
		if len(p.enabled) > 0 && !slices.Contains(p.enabled, v) {
			continue
		}
		if slices.Contains(out, v) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func configError(format string, args ...any) error {
	return types.Wrap(types.ErrConfiguration, fmt.Errorf(format, args...))
}
