package intercept

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/shadowbox/internal/shared/platform"
	"github.com/GriffinCanCode/shadowbox/internal/shared/types"
)

var radio = Symbol("android.os.Build", "getRadioVersion()")

func returns(v any) ShadowFunc {
	return func(*Invocation) (any, error) { return v, nil }
}

func call(t *testing.T, d ShadowDescriptor) any {
	t.Helper()
	out, err := d.Impl(NewInvocation(d.Target, 0, nil, nil, nil))
	require.NoError(t, err)
	return out
}

func TestResolveDisjointRanges(t *testing.T) {
	table, err := NewTable(
		ShadowDescriptor{Target: radio, Shadow: "legacy", Range: Between(21, 22), Impl: returns("legacy")},
		ShadowDescriptor{Target: radio, Shadow: "modern", Range: Between(23, 25), Impl: returns("modern")},
	)
	require.NoError(t, err)

	d, ok := table.Resolve(radio, 23)
	require.True(t, ok)
	assert.Equal(t, "modern", d.Shadow)
	assert.Equal(t, "modern", call(t, d))

	d, ok = table.Resolve(radio, 21)
	require.True(t, ok)
	assert.Equal(t, "legacy", d.Shadow)

	_, ok = table.Resolve(radio, 26)
	assert.False(t, ok, "26 is outside every range and must pass through")

	_, ok = table.Resolve(Symbol("android.os.Build", "other()"), 23)
	assert.False(t, ok)
}

func TestOverlappingRangesRejected(t *testing.T) {
	_, err := NewTable(
		ShadowDescriptor{Target: radio, Shadow: "a", Range: Between(20, 24), Impl: returns(1)},
		ShadowDescriptor{Target: radio, Shadow: "b", Range: Between(22, 26), Impl: returns(2)},
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrConfiguration)

	var amb *AmbiguityError
	require.True(t, errors.As(err, &amb))
	assert.Equal(t, radio, amb.Symbol)
}

func TestOverlapOnDifferentSymbolsAllowed(t *testing.T) {
	_, err := NewTable(
		ShadowDescriptor{Target: radio, Shadow: "a", Range: Between(20, 24), Impl: returns(1)},
		ShadowDescriptor{Target: Symbol("android.os.Build", "getSerial()"), Shadow: "b", Range: Between(22, 26), Impl: returns(2)},
	)
	assert.NoError(t, err)
}

func TestNewTableRejectsInvalidDescriptors(t *testing.T) {
	tests := []struct {
		name string
		desc ShadowDescriptor
	}{
		{"nil impl", ShadowDescriptor{Target: radio, Range: AllVersions}},
		{"empty target", ShadowDescriptor{Target: Symbol("android.os.Build", ""), Impl: returns(1)}},
		{"inverted range", ShadowDescriptor{Target: radio, Range: Between(25, 21), Impl: returns(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTable(tt.desc)
			assert.ErrorIs(t, err, types.ErrConfiguration)
		})
	}
}

func TestZeroMaxIsOpenEnded(t *testing.T) {
	table := MustTable(ShadowDescriptor{Target: radio, Range: Range{Min: 21}, Impl: returns(1)})

	_, ok := table.Resolve(radio, 1000)
	assert.True(t, ok)
	_, ok = table.Resolve(radio, 20)
	assert.False(t, ok)
}

func TestResolveIsDeterministic(t *testing.T) {
	table := MustTable(
		ShadowDescriptor{Target: radio, Shadow: "a", Range: Between(16, 20), Impl: returns(1)},
		ShadowDescriptor{Target: radio, Shadow: "b", Range: Between(21, 21), Impl: returns(2)},
		ShadowDescriptor{Target: radio, Shadow: "c", Range: From(22), Impl: returns(3)},
	)

	for v := platform.Version(0); v < 40; v++ {
		first, ok1 := table.Resolve(radio, v)
		second, ok2 := table.Resolve(radio, v)
		assert.Equal(t, ok1, ok2)
		assert.Equal(t, first.Shadow, second.Shadow)
	}
}

func TestNarrowerRangeWins(t *testing.T) {
	wide := ShadowDescriptor{Target: radio, Shadow: "wide", Range: Between(16, 30), Impl: returns("wide")}
	narrow := ShadowDescriptor{Target: radio, Shadow: "narrow", Range: Between(21, 22), Impl: returns("narrow")}

	// Not constructible through NewTable; exercise the tie-break directly
	table := &Table{entries: map[SymbolID][]ShadowDescriptor{radio: {wide, narrow}}, size: 2}

	d, ok := table.Resolve(radio, 21)
	require.True(t, ok)
	assert.Equal(t, "narrow", d.Shadow)

	d, ok = table.Resolve(radio, 25)
	require.True(t, ok)
	assert.Equal(t, "wide", d.Shadow)

	assert.Error(t, table.Validate())
}

func TestLayerAdditionsOverrideBase(t *testing.T) {
	serial := Symbol("android.os.Build", "getSerial()")
	base := MustTable(
		ShadowDescriptor{Target: radio, Shadow: "base", Range: Between(16, 22), Impl: returns("base")},
		ShadowDescriptor{Target: radio, Shadow: "base", Range: From(23), Impl: returns("base-new")},
		ShadowDescriptor{Target: serial, Shadow: "base", Range: AllVersions, Impl: returns("serial")},
	)
	additions := MustTable(
		ShadowDescriptor{Target: radio, Shadow: "test", Range: AllVersions, Impl: returns("test")},
	)

	layered := Layer(base, additions)

	d, ok := layered.Resolve(radio, 18)
	require.True(t, ok)
	assert.Equal(t, "test", d.Shadow)

	d, ok = layered.Resolve(serial, 18)
	require.True(t, ok)
	assert.Equal(t, "base", d.Shadow)

	assert.Equal(t, 2, layered.Len())
	assert.NoError(t, layered.Validate())

	// base is untouched
	d, ok = base.Resolve(radio, 18)
	require.True(t, ok)
	assert.Equal(t, "base", d.Shadow)
	assert.Equal(t, 3, base.Len())
}

func TestLayerAssociativity(t *testing.T) {
	a1 := Symbol("a.A", "m()")
	b1 := Symbol("b.B", "m()")
	c1 := Symbol("c.C", "m()")

	base := MustTable(ShadowDescriptor{Target: a1, Shadow: "base", Range: AllVersions, Impl: returns(0)})
	A := MustTable(ShadowDescriptor{Target: b1, Shadow: "A", Range: AllVersions, Impl: returns(1)})
	B := MustTable(ShadowDescriptor{Target: c1, Shadow: "B", Range: AllVersions, Impl: returns(2)})

	left := Layer(Layer(base, A), B)
	right := Layer(base, Layer(A, B))
	assert.Equal(t, shadowsOf(left), shadowsOf(right))

	// overlapping: the later layer wins either way
	over := MustTable(ShadowDescriptor{Target: a1, Shadow: "over", Range: AllVersions, Impl: returns(3)})
	left = Layer(Layer(base, A), over)
	right = Layer(base, Layer(A, over))

	for _, tbl := range []*Table{left, right} {
		d, ok := tbl.Resolve(a1, 21)
		require.True(t, ok)
		assert.Equal(t, "over", d.Shadow)
	}
}

func TestLayerNilTables(t *testing.T) {
	assert.Equal(t, 0, Layer(nil, nil).Len())

	base := MustTable(ShadowDescriptor{Target: radio, Range: AllVersions, Impl: returns(1)})
	assert.Equal(t, 1, Layer(base, nil).Len())
	assert.Equal(t, 1, Layer(nil, base).Len())
}

func shadowsOf(t *Table) map[SymbolID]string {
	out := map[SymbolID]string{}
	for _, d := range t.Descriptors() {
		out[d.Target] = d.Shadow
	}
	return out
}
