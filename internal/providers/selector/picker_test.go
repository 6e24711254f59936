package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/shadowbox/internal/shared/platform"
	"github.com/GriffinCanCode/shadowbox/internal/shared/types"
)

func catalog(versions ...platform.Version) *platform.Catalog {
	releases := make([]platform.Release, 0, len(versions))
	for _, v := range versions {
		releases = append(releases, platform.Release{Version: v, Name: "r" + v.String()})
	}
	return platform.MustCatalog(releases...)
}

func TestSelect(t *testing.T) {
	p := New(catalog(19, 21, 22, 23, 25))
	manifest := &types.Manifest{PackageName: "org.example", TargetVersion: 22, MinVersion: 21}

	tests := []struct {
		name string
		cfg  types.Config
		want []platform.Version
	}{
		{"explicit keeps order", types.Config{Versions: []platform.Version{23, 21}}, []platform.Version{23, 21}},
		{"duplicates dropped", types.Config{Versions: []platform.Version{21, 21, platform.Target, 22}}, []platform.Version{21, 22}},
		{"default is target", types.Config{}, []platform.Version{22}},
		{"all", types.Config{Versions: []platform.Version{platform.All}}, []platform.Version{19, 21, 22, 23, 25}},
		{"oldest uses manifest min", types.Config{Versions: []platform.Version{platform.Oldest}}, []platform.Version{21}},
		{"newest falls back to catalog", types.Config{Versions: []platform.Version{platform.Newest}}, []platform.Version{25}},
		{"range", types.Config{MinVersion: 21, MaxVersion: 23}, []platform.Version{21, 22, 23}},
		{"open range", types.Config{MinVersion: 23}, []platform.Version{23, 25}},
		{"empty range", types.Config{MinVersion: 26}, []platform.Version{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Select(tt.cfg, manifest)
			require.NoError(t, err)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelectMalformed(t *testing.T) {
	p := New(catalog(21, 23))

	tests := []struct {
		name     string
		cfg      types.Config
		manifest *types.Manifest
	}{
		{"unsupported", types.Config{Versions: []platform.Version{22}}, nil},
		{"versions with range", types.Config{Versions: []platform.Version{21}, MinVersion: 21}, nil},
		{"inverted range", types.Config{MinVersion: 23, MaxVersion: 21}, nil},
		{"unsupported target", types.Config{}, &types.Manifest{TargetVersion: 30}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Select(tt.cfg, tt.manifest)
			assert.ErrorIs(t, err, types.ErrConfiguration)
		})
	}
}

func TestSelectWithoutManifestUsesNewest(t *testing.T) {
	got, err := New(catalog(21, 23)).Select(types.Config{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []platform.Version{23}, got)
}

func TestEnabledFilter(t *testing.T) {
	p := New(catalog(21, 22, 23), WithEnabled(21, 23))

	got, err := p.Select(types.Config{Versions: []platform.Version{platform.All}}, nil)
	require.NoError(t, err)
	assert.Equal(t, []platform.Version{21, 23}, got)

	got, err = p.Select(types.Config{Versions: []platform.Version{22}}, nil)
	require.NoError(t, err)
	assert.Empty(t, got, "a disabled version selects nothing")
}
