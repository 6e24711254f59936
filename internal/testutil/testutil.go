// Package testutil provides testing utilities shared by package tests.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/shadowbox/internal/shared/platform"
)

// Framework is a small bundle covering what the engine itself touches:
// a shadowable class with statics, the version class and the application class.
const Framework = `
defineClass("android.os.Build", {
  statics: { RADIO: "baseband", calls: 0 },
  methods: {
    "getRadioVersion()": function () {
      var s = statics("android.os.Build");
      s.calls = s.calls + 1;
      return s.RADIO;
    },
    "setRadio(String)": function (v) { statics("android.os.Build").RADIO = v; },
  },
});
defineClass("android.os.Build$VERSION", {
  methods: { "sdk()": function () { return statics("android.os.Build$VERSION").SDK_INT; } },
});
defineClass("android.app.Application", {
  statics: { created: 0, terminated: 0 },
  methods: {
    "onCreate()": function () { statics("android.app.Application").created++; },
    "onTerminate()": function () { statics("android.app.Application").terminated++; },
  },
});
defineResources({ "string/ok": "Okay", "string/app_name": "Framework" });
`

// MockArtifactResolver is a mock artifact resolver for testing.
type MockArtifactResolver struct {
	mock.Mock
}

// Resolve mocks the Resolve method.
func (m *MockArtifactResolver) Resolve(ctx context.Context, dep platform.DependencyID) (platform.Artifact, error) {
	args := m.Called(ctx, dep)
	return args.Get(0).(platform.Artifact), args.Error(1)
}

// NewMockArtifactResolver creates a resolver that answers every dependency with path.
func NewMockArtifactResolver(t *testing.T, path string) *MockArtifactResolver {
	t.Helper()
	m := new(MockArtifactResolver)

	m.On("Resolve", mock.Anything, mock.Anything).
		Return(platform.Artifact{Path: path}, nil).
		Maybe()

	return m
}

// WriteFramework writes a bundle to a temp file and returns its path.
func WriteFramework(t testing.TB, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "framework.js")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

// WriteFrameworkDir writes one bundle per release into a flat directory,
// named the way an offline dependency directory names them.
func WriteFrameworkDir(t testing.TB, catalog *platform.Catalog, src string) string {
	t.Helper()
	dir := t.TempDir()
	for _, r := range catalog.Releases() {
		path := filepath.Join(dir, r.Dependency().FileName())
		require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	}
	return dir
}

// Catalog creates a catalog of the given versions with synthetic release names.
func Catalog(t testing.TB, versions ...platform.Version) *platform.Catalog {
	t.Helper()
	releases := make([]platform.Release, 0, len(versions))
	for _, v := range versions {
		releases = append(releases, platform.Release{Version: v, Name: "test-" + v.String(), Revision: 1})
	}
	catalog, err := platform.NewCatalog(releases...)
	require.NoError(t, err)
	return catalog
}
