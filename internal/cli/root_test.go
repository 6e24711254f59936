package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/shadowbox/internal/report"
	"github.com/GriffinCanCode/shadowbox/internal/shared/platform"
	"github.com/GriffinCanCode/shadowbox/internal/shared/types"
	"github.com/GriffinCanCode/shadowbox/internal/testutil"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	base := []string{
		"--log-level", "error",
		"--project", filepath.Join(t.TempDir(), "shadowbox.toml"),
	}
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(append(base, args...))
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func offlineDir(t *testing.T, bundle string) string {
	t.Helper()
	return testutil.WriteFrameworkDir(t, platform.DefaultCatalog(), bundle)
}

func TestVersionsCommand(t *testing.T) {
	out, err := execute(t, "versions", "--versions", "21,23")
	require.NoError(t, err)

	assert.Contains(t, out, "5.0.2_r3")
	assert.Contains(t, out, "org.shadowbox:framework-all:6.0.1_r3-shadowbox-0")
	assert.Contains(t, out, "(9 versions, 2 enabled)")
}

func TestUnsupportedVersionFlag(t *testing.T) {
	_, err := execute(t, "versions", "--versions", "20")
	assert.ErrorIs(t, err, types.ErrConfiguration)
}

func TestFetchCommand(t *testing.T) {
	dir := offlineDir(t, testutil.Framework)

	out, err := execute(t, "fetch", "--offline-dir", dir, "--versions", "21,22")
	require.NoError(t, err)
	assert.Contains(t, out, dir)

	_, err = execute(t, "fetch", "--offline-dir", t.TempDir(), "--versions", "21,22")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 of 2 artifacts")
}

func TestDoctorCommand(t *testing.T) {
	dir := offlineDir(t, testutil.Framework)

	out, err := execute(t, "doctor", "--offline-dir", dir, "--versions", "21,23", "--format", "json")
	require.NoError(t, err, out)

	var rep report.Report
	require.NoError(t, sonic.UnmarshalString(out, &rep))
	assert.Equal(t, 2, rep.Total)
	assert.Equal(t, 2, rep.Passed)
	require.Len(t, rep.Versions, 2)
	assert.Equal(t, platform.Version(21), rep.Versions[0].Version)
}

func TestDoctorReportsBrokenFramework(t *testing.T) {
	dir := offlineDir(t, `defineClass("android.app.Application", {
  methods: { "onCreate()": function () { throw new Error("boom"); } },
});`)

	out, err := execute(t, "doctor", "--offline-dir", dir, "--versions", "22")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 versions failed")
	assert.Contains(t, out, "probe")
}
