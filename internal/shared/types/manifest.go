package types

import "github.com/GriffinCanCode/shadowbox/internal/shared/platform"

// Defaults used when a test runs without a manifest
const (
	DefaultApplicationClass = "android.app.Application"
	DefaultPackageName      = "org.shadowbox.default"
)

// Manifest describes the application under test
type Manifest struct {
	// Path is the file the manifest was loaded from; empty for the default
	Path string `yaml:"-"`

	PackageName   string           `yaml:"package"`
	Application   string           `yaml:"application"`
	MinVersion    platform.Version `yaml:"min_version"`
	TargetVersion platform.Version `yaml:"target_version"`
	MaxVersion    platform.Version `yaml:"max_version"`
	ResourceDir   string           `yaml:"resource_dir"`
}

// DefaultManifest returns the manifest used when none is configured
func DefaultManifest() *Manifest {
	return &Manifest{
		PackageName: DefaultPackageName,
		Application: DefaultApplicationClass,
	}
}

// Identity returns a key that is equal for manifests describing the same app
func (m *Manifest) Identity() string {
	if m.Path != "" {
		return m.Path + "|" + m.PackageName + "|" + m.ResourceDir
	}
	return "default|" + m.PackageName + "|" + m.ResourceDir
}

// ApplicationClass returns the application class, falling back to the default
func (m *Manifest) ApplicationClass() string {
	if m.Application == "" {
		return DefaultApplicationClass
	}
	return m.Application
}
