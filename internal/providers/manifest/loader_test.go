package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/shadowbox/internal/infrastructure/logging"
	"github.com/GriffinCanCode/shadowbox/internal/shared/platform"
	"github.com/GriffinCanCode/shadowbox/internal/shared/types"
)

const demo = `
package: org.example.demo
application: org.example.DemoApp
min_version: 19
target_version: 23
resource_dir: res
`

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadParsesAndCaches(t *testing.T) {
	dir := t.TempDir()
	path := write(t, dir, "manifest.yaml", demo)
	l := NewLoader(WithLogger(logging.NewTest(t)))

	m, err := l.Load(types.Config{Manifest: path})
	require.NoError(t, err)
	assert.Equal(t, "org.example.demo", m.PackageName)
	assert.Equal(t, "org.example.DemoApp", m.ApplicationClass())
	assert.Equal(t, platform.Version(23), m.TargetVersion)
	assert.Equal(t, filepath.Join(dir, "res"), m.ResourceDir)
	assert.Equal(t, path, m.Path)

	again, err := l.Load(types.Config{Manifest: path, PackageName: "org.example.other"})
	require.NoError(t, err)
	assert.Equal(t, "org.example.other", again.PackageName)
	assert.Equal(t, 1, l.Len())

	third, err := l.Load(types.Config{Manifest: path})
	require.NoError(t, err)
	assert.Equal(t, "org.example.demo", third.PackageName, "overrides must not leak into the cache")
}

func TestLoadNoneAndDefault(t *testing.T) {
	l := NewLoader(WithDefaultPath(filepath.Join(t.TempDir(), "absent.yaml")))

	m, err := l.Load(types.Config{Manifest: types.ManifestNone, Application: "org.example.App"})
	require.NoError(t, err)
	assert.Equal(t, types.DefaultPackageName, m.PackageName)
	assert.Equal(t, "org.example.App", m.Application)
	assert.Empty(t, m.Path)

	m, err = l.Load(types.Config{})
	require.NoError(t, err)
	assert.Equal(t, types.DefaultPackageName, m.PackageName)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	l := NewLoader()

	_, err := l.Load(types.Config{Manifest: filepath.Join(dir, "missing.yaml")})
	assert.ErrorIs(t, err, types.ErrResolution)

	broken := write(t, dir, "broken.yaml", "application: x\n")
	_, err = l.Load(types.Config{Manifest: broken})
	assert.ErrorIs(t, err, types.ErrResolution)

	_, err = Parse(broken)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "package is required")

	inverted := write(t, dir, "inverted.yaml", "package: a\nmin_version: 25\nmax_version: 21\n")
	_, err = l.Load(types.Config{Manifest: inverted})
	assert.ErrorIs(t, err, types.ErrResolution)
}

func TestParseFillsDefaultApplication(t *testing.T) {
	path := write(t, t.TempDir(), "app.yaml", "package: org.example\n")

	m, err := Parse(path)
	require.NoError(t, err)
	assert.Equal(t, "org.example", m.PackageName)
	assert.Equal(t, types.DefaultApplicationClass, m.Application)
	assert.Equal(t, path, m.Path)
}
