package sandbox

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/shadowbox/internal/domain/dispatch"
	"github.com/GriffinCanCode/shadowbox/internal/domain/intercept"
	"github.com/GriffinCanCode/shadowbox/internal/infrastructure/logging"
	"github.com/GriffinCanCode/shadowbox/internal/shared/id"
	"github.com/GriffinCanCode/shadowbox/internal/shared/platform"
	"github.com/GriffinCanCode/shadowbox/internal/shared/types"
)

const bundle = `
defineClass("android.os.Build", {
  statics: { RADIO: "baseband", calls: 0, tags: { region: "eu" } },
  methods: {
    "getRadioVersion()": function () {
      var s = statics("android.os.Build");
      s.calls = s.calls + 1;
      return s.RADIO;
    },
    "setRadio(String)": function (v) { statics("android.os.Build").RADIO = v; },
    "getSdk()": function () { return invoke("android.os.Build$VERSION", "sdk()"); },
    "describe()": function () { return "radio=" + framework["android.os.Build"]["getRadioVersion()"](); },
  },
});
defineClass("android.os.Build$VERSION", {
  methods: { "sdk()": function () { return statics("android.os.Build$VERSION").SDK_INT; } },
});
defineClass("com.example.Util", {
  methods: { "twice(int)": function (n) { return n * 2; } },
});
defineClass("android.app.Application", {
  statics: { created: 0, terminated: 0 },
  methods: {
    "onCreate()": function () { statics("android.app.Application").created++; },
    "onTerminate()": function () { statics("android.app.Application").terminated++; },
  },
});
defineResources({ "string/ok": "Okay" });
console.log("framework loaded");
`

var (
	radio    = intercept.Symbol("android.os.Build", "getRadioVersion()")
	describe = intercept.Symbol("android.os.Build", "describe()")
	setRadio = intercept.Symbol("android.os.Build", "setRadio(String)")
	getSdk   = intercept.Symbol("android.os.Build", "getSdk()")
	twice    = intercept.Symbol("com.example.Util", "twice(int)")
)

func writeBundle(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "framework.js")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func boot(t *testing.T, version platform.Version, path string) *Environment {
	t.Helper()
	cfg, err := intercept.NewConfig(intercept.WithPackages("android"))
	require.NoError(t, err)

	release := platform.Release{Version: version, Name: "test-" + version.String()}
	env, err := New(context.Background(), release, platform.Artifact{Path: path}, cfg,
		dispatch.New(version), WithLogger(logging.NewTest(t)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = env.Close() })
	return env
}

func shadowReturning(sym intercept.SymbolID, v any) *intercept.Table {
	return intercept.MustTable(intercept.ShadowDescriptor{
		Target: sym,
		Shadow: "test",
		Range:  intercept.AllVersions,
		Impl:   func(*intercept.Invocation) (any, error) { return v, nil },
	})
}

func TestInvokeOriginal(t *testing.T) {
	env := boot(t, 23, writeBundle(t, bundle))

	out, err := env.Invoke(id.NewThreadID(), radio, nil)
	require.NoError(t, err)
	assert.Equal(t, "baseband", out)

	out, err = env.Invoke(id.NewThreadID(), twice, nil, 21)
	require.NoError(t, err)
	assert.EqualValues(t, 42, out)
}

func TestInvokeShadowed(t *testing.T) {
	env := boot(t, 23, writeBundle(t, bundle))
	require.NoError(t, env.Install(shadowReturning(radio, "shadowed")))

	out, err := env.Invoke(id.NewThreadID(), radio, nil)
	require.NoError(t, err)
	assert.Equal(t, "shadowed", out)

	// framework-to-framework calls are intercepted too
	out, err = env.Invoke(id.NewThreadID(), describe, nil)
	require.NoError(t, err)
	assert.Equal(t, "radio=shadowed", out)

	stats := env.Runtime().Stats()
	assert.Equal(t, int64(2), stats.Shadowed)
	assert.Equal(t, int64(1), stats.Original)
}

func TestUninstrumentedClassIgnoresShadows(t *testing.T) {
	env := boot(t, 23, writeBundle(t, bundle))
	require.NoError(t, env.Install(shadowReturning(twice, -1)))

	out, err := env.Invoke(id.NewThreadID(), twice, nil, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 4, out)
	assert.False(t, env.Instrumented("com.example.Util"))
}

func TestShadowCallThroughAndErrors(t *testing.T) {
	env := boot(t, 23, writeBundle(t, bundle))
	boom := errors.New("boom")

	require.NoError(t, env.Install(intercept.MustTable(
		intercept.ShadowDescriptor{Target: radio, Range: intercept.AllVersions, Impl: func(inv *intercept.Invocation) (any, error) {
			out, err := inv.CallOriginal()
			if err != nil {
				return nil, err
			}
			return "[" + out.(string) + "]", nil
		}},
		intercept.ShadowDescriptor{Target: setRadio, Range: intercept.AllVersions, Impl: func(*intercept.Invocation) (any, error) {
			return nil, boom
		}},
	)))

	out, err := env.Invoke(id.NewThreadID(), describe, nil)
	require.NoError(t, err)
	assert.Equal(t, "radio=[baseband]", out)

	_, err = env.Invoke(id.NewThreadID(), setRadio, nil, "x")
	assert.ErrorIs(t, err, boom)
}

func TestShadowPanicBecomesError(t *testing.T) {
	env := boot(t, 23, writeBundle(t, bundle))
	require.NoError(t, env.Install(intercept.MustTable(intercept.ShadowDescriptor{
		Target: radio, Range: intercept.AllVersions,
		Impl: func(*intercept.Invocation) (any, error) { panic("shadow exploded") },
	})))

	_, err := env.Invoke(id.NewThreadID(), radio, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shadow exploded")

	// VM remains usable
	out, err := env.Invoke(id.NewThreadID(), twice, nil, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, out)
}

func TestMissingMember(t *testing.T) {
	env := boot(t, 23, writeBundle(t, bundle))

	_, err := env.Invoke(id.NewThreadID(), intercept.Symbol("com.example.Util", "missing()"), nil)
	assert.ErrorIs(t, err, dispatch.ErrNoImplementation)

	_, err = env.Invoke(id.NewThreadID(), intercept.Symbol("android.os.Build", "missing()"), nil)
	assert.ErrorIs(t, err, dispatch.ErrNoImplementation)
}

func TestVersionIdentity(t *testing.T) {
	env := boot(t, 23, writeBundle(t, bundle))

	out, err := env.Invoke(id.NewThreadID(), getSdk, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 23, out)

	statics, ok := env.Statics(DefaultVersionClass)
	require.True(t, ok)
	assert.Equal(t, "test-23", statics[FieldRelease])
}

func TestResetRestoresChecklist(t *testing.T) {
	env := boot(t, 23, writeBundle(t, bundle))
	fresh := env.Snapshot()

	caller := id.NewThreadID()
	_, err := env.Invoke(caller, setRadio, nil, "changed")
	require.NoError(t, err)
	_, err = env.Invoke(caller, radio, nil)
	require.NoError(t, err)
	env.Runtime().State().Set("looper", "paused")
	env.SetApplication(env.NewApplication(nil))

	dirty := env.Snapshot()
	assert.NotEqual(t, fresh, dirty)
	assert.Equal(t, "changed", dirty.Statics["android.os.Build"]["RADIO"])

	require.NoError(t, env.ResetStaticState())
	assert.Equal(t, fresh, env.Snapshot())
}

func TestResetKeepsStaticsReferences(t *testing.T) {
	src := bundle + `
var cached = statics("android.os.Build");
defineClass("org.shadowbox.Probe", {
  methods: { "radio()": function () { return cached.RADIO; } },
});
`
	env := boot(t, 21, writeBundle(t, src))
	probe := intercept.Symbol("org.shadowbox.Probe", "radio()")

	_, err := env.Invoke(id.NewThreadID(), setRadio, nil, "changed")
	require.NoError(t, err)
	require.NoError(t, env.ResetStaticState())

	out, err := env.Invoke(id.NewThreadID(), probe, nil)
	require.NoError(t, err)
	assert.Equal(t, "baseband", out)
}

func TestEnvironmentsAreIsolated(t *testing.T) {
	path := writeBundle(t, bundle)
	a := boot(t, 23, path)
	b := boot(t, 23, path)

	_, err := a.Invoke(id.NewThreadID(), setRadio, nil, "only-a")
	require.NoError(t, err)
	require.NoError(t, a.Install(shadowReturning(twice, 0)))

	out, err := b.Invoke(id.NewThreadID(), radio, nil)
	require.NoError(t, err)
	assert.Equal(t, "baseband", out)
	assert.Equal(t, 0, b.Runtime().Table().Len())
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestGzipBundle(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(bundle))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	path := filepath.Join(t.TempDir(), "framework.js.gz")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	env := boot(t, 22, path)
	out, err := env.Invoke(id.NewThreadID(), radio, nil)
	require.NoError(t, err)
	assert.Equal(t, "baseband", out)
}

func TestProgramsAreShared(t *testing.T) {
	path := writeBundle(t, bundle)
	programs := NewPrograms()
	cfg := intercept.DefaultConfig()

	for _, v := range []platform.Version{21, 22} {
		env, err := New(context.Background(), platform.Release{Version: v, Name: v.String()},
			platform.Artifact{Path: path}, cfg, dispatch.New(v), WithPrograms(programs))
		require.NoError(t, err)
		require.NoError(t, env.Close())
	}
	assert.Equal(t, 1, programs.Len())
}

func TestBootFailures(t *testing.T) {
	cfg := intercept.DefaultConfig()
	release := platform.Release{Version: 21, Name: "x"}

	_, err := New(context.Background(), release, platform.Artifact{Path: writeBundle(t, "this is not js(")}, cfg, dispatch.New(21))
	assert.Error(t, err)

	dup := `defineClass("a.A", {}); defineClass("a.A", {});`
	_, err = New(context.Background(), release, platform.Artifact{Path: writeBundle(t, dup)}, cfg, dispatch.New(21))
	assert.Error(t, err)

	_, err = New(context.Background(), release, platform.Artifact{Path: writeBundle(t, bundle)}, cfg, dispatch.New(22))
	assert.Error(t, err, "runtime version must match the release")

	_, err = New(context.Background(), release, platform.Artifact{Path: filepath.Join(t.TempDir(), "missing.js")}, cfg, dispatch.New(21))
	assert.Error(t, err)
}

func TestHasAndSymbols(t *testing.T) {
	env := boot(t, 23, writeBundle(t, bundle))
	virtual := intercept.Symbol("android.os.Build", "getSerial()")

	assert.True(t, env.Has(radio))
	assert.False(t, env.Has(virtual))

	require.NoError(t, env.Install(shadowReturning(virtual, "serial")))
	assert.True(t, env.Has(virtual))

	out, err := env.Invoke(id.NewThreadID(), virtual, nil)
	require.NoError(t, err)
	assert.Equal(t, "serial", out)

	assert.Contains(t, env.Symbols(), twice)
}

func TestSystemResources(t *testing.T) {
	env := boot(t, 23, writeBundle(t, bundle))
	v, ok := env.SystemResources().Get("string/ok")
	require.True(t, ok)
	assert.Equal(t, "Okay", v)
}

func TestClose(t *testing.T) {
	env := boot(t, 23, writeBundle(t, bundle))
	require.NoError(t, env.Close())
	require.NoError(t, env.Close())
	assert.True(t, env.Closed())

	_, err := env.Invoke(id.NewThreadID(), radio, nil)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, env.ResetStaticState(), ErrClosed)
}

func TestChecklist(t *testing.T) {
	assert.Equal(t, []string{
		StepClassStatics, StepVersionIdentity, StepShadowState, StepDispatchStats, StepApplication,
	}, Checklist())
}

func TestApplicationLifecycle(t *testing.T) {
	env := boot(t, 23, writeBundle(t, bundle))
	caller := id.NewThreadID()

	app := env.NewApplication(&types.Manifest{PackageName: "com.example"})
	assert.Equal(t, types.DefaultApplicationClass, app.Class)

	require.NoError(t, app.Terminate(caller), "terminate before create is a no-op")
	require.NoError(t, app.Create(caller))
	assert.Error(t, app.Create(caller))
	require.NoError(t, app.Terminate(caller))
	require.NoError(t, app.Terminate(caller))

	statics, _ := env.Statics(types.DefaultApplicationClass)
	assert.EqualValues(t, 1, statics["created"])
	assert.EqualValues(t, 1, statics["terminated"])
}

func TestApplicationWithoutLifecycleMembers(t *testing.T) {
	env := boot(t, 23, writeBundle(t, `defineClass("a.A", {});`))
	app := env.NewApplication(&types.Manifest{Application: "com.example.App"})

	require.NoError(t, app.Create(id.NewThreadID()))
	require.NoError(t, app.Terminate(id.NewThreadID()))
	assert.True(t, app.Terminated())
}

func TestMainThread(t *testing.T) {
	env := boot(t, 23, writeBundle(t, bundle))
	main := id.NewThreadID()

	var onMain bool
	require.NoError(t, env.Install(intercept.MustTable(intercept.ShadowDescriptor{
		Target: radio, Range: intercept.AllVersions,
		Impl: func(inv *intercept.Invocation) (any, error) { onMain = inv.OnMainThread(); return nil, nil },
	})))

	prev := env.SetMainThread(main)
	assert.Empty(t, prev)

	_, err := env.Invoke(main, describe, nil)
	require.NoError(t, err)
	assert.True(t, onMain, "nested calls keep the outer caller")

	_, err = env.Invoke(id.NewThreadID(), radio, nil)
	require.NoError(t, err)
	assert.False(t, onMain)
}

func TestShadowErrorThroughFrameworkCode(t *testing.T) {
	env := boot(t, 23, writeBundle(t, bundle))
	boom := errors.New("boom")
	require.NoError(t, env.Install(intercept.MustTable(intercept.ShadowDescriptor{
		Target: radio, Range: intercept.AllVersions,
		Impl: func(*intercept.Invocation) (any, error) { return nil, boom },
	})))

	// describe() runs framework code which calls the shadowed member
	_, err := env.Invoke(id.NewThreadID(), describe, nil)
	assert.ErrorIs(t, err, boom)
}

func TestBootCancelled(t *testing.T) {
	cfg := intercept.DefaultConfig()
	release := platform.Release{Version: 21, Name: "x"}
	path := writeBundle(t, bundle)
	programs := NewPrograms()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for range 200 {
		env, err := New(ctx, release, platform.Artifact{Path: path}, cfg, dispatch.New(21), WithPrograms(programs))
		require.ErrorIs(t, err, context.Canceled)
		assert.Nil(t, env)
	}
}

func TestCancelAfterBootLeavesEnvironmentUsable(t *testing.T) {
	cfg, err := intercept.NewConfig(intercept.WithPackages("android"))
	require.NoError(t, err)
	release := platform.Release{Version: 21, Name: "x"}

	ctx, cancel := context.WithCancel(context.Background())
	env, err := New(ctx, release, platform.Artifact{Path: writeBundle(t, bundle)}, cfg, dispatch.New(21))
	require.NoError(t, err)
	cancel()

	out, err := env.Invoke(id.NewThreadID(), twice, nil, 4)
	require.NoError(t, err)
	assert.EqualValues(t, 8, out)

	require.NoError(t, env.Close())
	require.NoError(t, env.Close())
}

func TestOwnership(t *testing.T) {
	env := boot(t, 21, writeBundle(t, bundle))
	assert.Equal(t, platform.Version(21), env.Release().Version)

	env.Own()
	assert.False(t, env.TryOwn(), "owned by another run")
	env.Disown()

	require.True(t, env.TryOwn())
	env.Disown()
}

func TestMissingVersionClassIsCreated(t *testing.T) {
	env := boot(t, 22, writeBundle(t, `defineClass("a.A", {});`))

	statics, ok := env.Statics(DefaultVersionClass)
	require.True(t, ok)
	assert.EqualValues(t, 22, statics[FieldSDKInt])
	require.NoError(t, env.ResetStaticState())
}
