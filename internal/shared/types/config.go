package types

import (
	"maps"
	"slices"

	"github.com/GriffinCanCode/shadowbox/internal/shared/platform"
)

// ManifestNone disables manifest loading for a test
const ManifestNone = "none"

// Config is the merged configuration of one test method.
//
// Zero values mean "not set" so that layers can be merged: a later layer only
// overrides the scalars it sets, while list fields accumulate.
type Config struct {
	// Versions lists explicit versions or selection sentinels
	Versions   []platform.Version `toml:"versions" yaml:"versions"`
	MinVersion platform.Version   `toml:"min_version" yaml:"min_version"`
	MaxVersion platform.Version   `toml:"max_version" yaml:"max_version"`

	// Manifest is a manifest path, ManifestNone, or empty for the default
	Manifest    string `toml:"manifest" yaml:"manifest"`
	Application string `toml:"application" yaml:"application"`
	PackageName string `toml:"package_name" yaml:"package_name"`
	ResourceDir string `toml:"resource_dir" yaml:"resource_dir"`

	// Shadows names registered shadows to layer over the base table
	Shadows []string `toml:"shadows" yaml:"shadows"`

	// InstrumentedPackages adds packages to the interception config
	InstrumentedPackages []string `toml:"instrumented_packages" yaml:"instrumented_packages"`

	Qualifiers map[string]string `toml:"qualifiers" yaml:"qualifiers"`
}

// Merge returns c overlaid with over. Neither input is modified.
func (c Config) Merge(over Config) Config {
	out := c.Clone()

	if len(over.Versions) > 0 {
		out.Versions = slices.Clone(over.Versions)
	}
	if over.MinVersion != 0 {
		out.MinVersion = over.MinVersion
	}
	if over.MaxVersion != 0 {
		out.MaxVersion = over.MaxVersion
	}
	if over.Manifest != "" {
		out.Manifest = over.Manifest
	}
	if over.Application != "" {
		out.Application = over.Application
	}
	if over.PackageName != "" {
		out.PackageName = over.PackageName
	}
	if over.ResourceDir != "" {
		out.ResourceDir = over.ResourceDir
	}

	out.Shadows = appendUnique(out.Shadows, over.Shadows...)
	out.InstrumentedPackages = appendUnique(out.InstrumentedPackages, over.InstrumentedPackages...)

	if len(over.Qualifiers) > 0 {
		if out.Qualifiers == nil {
			out.Qualifiers = make(map[string]string, len(over.Qualifiers))
		}
		maps.Copy(out.Qualifiers, over.Qualifiers)
	}

	return out
}

// Clone returns a deep copy
func (c Config) Clone() Config {
	out := c
	out.Versions = slices.Clone(c.Versions)
	out.Shadows = slices.Clone(c.Shadows)
	out.InstrumentedPackages = slices.Clone(c.InstrumentedPackages)
	if c.Qualifiers != nil {
		out.Qualifiers = maps.Clone(c.Qualifiers)
	}
	return out
}

// ConfigTarget is what a config resolver merges for a single test method
type ConfigTarget struct {
	Class        string
	ClassConfig  Config
	Method       string
	MethodConfig Config
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		if v == "" || slices.Contains(dst, v) {
			continue
		}
		dst = append(dst, v)
	}
	return dst
}
