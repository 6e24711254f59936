package intercept

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/shadowbox/internal/shared/id"
	"github.com/GriffinCanCode/shadowbox/internal/shared/types"
)

func TestRegistryTable(t *testing.T) {
	reg := NewRegistry().MustRegister(
		Shadow{Name: "ShadowBuild", Class: "android.os.Build", Range: AllVersions, Methods: map[string]ShadowFunc{
			"getRadioVersion()": returns("radio"),
			"getSerial()":       returns("serial"),
		}},
		Shadow{Name: "ShadowLooper", Class: "android.os.Looper", Range: From(21), Methods: map[string]ShadowFunc{
			"prepare()": returns(nil),
		}},
	)

	table, err := reg.Table("ShadowBuild")
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())
	assert.True(t, table.Has(radio))
	assert.False(t, table.Has(Symbol("android.os.Looper", "prepare()")))

	all, err := reg.Table()
	require.NoError(t, err)
	assert.Equal(t, 3, all.Len())

	classes, err := reg.Classes("ShadowLooper", "ShadowBuild")
	require.NoError(t, err)
	assert.Equal(t, []string{"android.os.Build", "android.os.Looper"}, classes)

	assert.Equal(t, []string{"ShadowBuild", "ShadowLooper"}, reg.Names())
}

func TestRegistryRepeatedNames(t *testing.T) {
	reg := NewRegistry().MustRegister(
		Shadow{Name: "ShadowBuild", Class: "android.os.Build", Range: AllVersions, Methods: map[string]ShadowFunc{
			"getRadioVersion()": returns("radio"),
		}},
	)

	table, err := reg.Table("ShadowBuild", "ShadowBuild")
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())

	classes, err := reg.Classes("ShadowBuild", "ShadowBuild")
	require.NoError(t, err)
	assert.Equal(t, []string{"android.os.Build"}, classes)
}

func TestRegistryErrors(t *testing.T) {
	reg := NewRegistry()
	methods := map[string]ShadowFunc{"m()": returns(1)}

	require.NoError(t, reg.Register(Shadow{Name: "A", Class: "a.A", Methods: methods}))
	assert.ErrorIs(t, reg.Register(Shadow{Name: "A", Class: "a.A", Methods: methods}), types.ErrConfiguration)
	assert.ErrorIs(t, reg.Register(Shadow{Class: "a.A", Methods: methods}), types.ErrConfiguration)
	assert.ErrorIs(t, reg.Register(Shadow{Name: "B", Methods: methods}), types.ErrConfiguration)
	assert.ErrorIs(t, reg.Register(Shadow{Name: "C", Class: "c.C"}), types.ErrConfiguration)

	_, err := reg.Table("missing")
	assert.ErrorIs(t, err, types.ErrConfiguration)
}

func TestRegistryOverlapRejected(t *testing.T) {
	reg := NewRegistry().MustRegister(
		Shadow{Name: "old", Class: "android.os.Build", Range: Between(20, 24), Methods: map[string]ShadowFunc{"getRadioVersion()": returns(1)}},
		Shadow{Name: "new", Class: "android.os.Build", Range: Between(22, 26), Methods: map[string]ShadowFunc{"getRadioVersion()": returns(2)}},
	)

	_, err := reg.Table("old", "new")
	assert.ErrorIs(t, err, types.ErrConfiguration)

	_, err = reg.Table("new")
	assert.NoError(t, err)
}

func TestInvocationCallOriginal(t *testing.T) {
	inv := NewInvocation(radio, 23, "this", []any{1, 2}, func(this any, args []any) (any, error) {
		return []any{this, len(args)}, nil
	})

	out, err := inv.CallOriginal()
	require.NoError(t, err)
	assert.Equal(t, []any{"this", 2}, out)

	out, err = inv.CallOriginalWith(1)
	require.NoError(t, err)
	assert.Equal(t, []any{"this", 1}, out)

	assert.Equal(t, 2, inv.Arg(1))
	assert.Nil(t, inv.Arg(5))

	bare := NewInvocation(radio, 23, nil, nil, nil)
	_, err = bare.CallOriginal()
	assert.ErrorIs(t, err, ErrNoOriginal)
}

func TestInvocationOnMainThread(t *testing.T) {
	main := id.NewThreadID()
	inv := NewInvocation(radio, 23, nil, nil, nil)
	assert.False(t, inv.OnMainThread())

	inv.Caller, inv.MainThread = main, main
	assert.True(t, inv.OnMainThread())

	inv.Caller = id.NewThreadID()
	assert.False(t, inv.OnMainThread())
}

func TestShadowState(t *testing.T) {
	s := NewShadowState()
	s.Set("b", 2)
	s.Set("a", 1)

	v, ok := s.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, []string{"a", "b"}, s.Keys())

	s.Delete("a")
	assert.Equal(t, 1, s.Len())

	s.Reset()
	assert.Equal(t, 0, s.Len())
}

func TestParseSymbol(t *testing.T) {
	sym, err := ParseSymbol("android.os.Build#getRadioVersion()")
	require.NoError(t, err)
	assert.Equal(t, radio, sym)
	assert.Equal(t, "android.os.Build#getRadioVersion()", sym.String())

	_, err = ParseSymbol("android.os.Build")
	assert.Error(t, err)
	_, err = ParseSymbol("#m()")
	assert.Error(t, err)
}
