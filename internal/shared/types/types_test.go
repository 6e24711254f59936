package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/GriffinCanCode/shadowbox/internal/shared/platform"
)

func TestWrapKeepsBothReachable(t *testing.T) {
	cause := errors.New("no such file")
	err := Wrap(ErrResolution, cause)

	assert.ErrorIs(t, err, ErrResolution)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ErrResolution, KindOf(err))

	assert.Same(t, err, Wrap(ErrResolution, err), "already tagged")
	assert.NoError(t, Wrap(ErrExecution, nil))
	assert.Nil(t, KindOf(cause))
}

func TestKindOr(t *testing.T) {
	tagged := fmt.Errorf("prime: %w", Wrap(ErrConfiguration, errors.New("bad")))
	assert.Same(t, tagged, KindOr(tagged, ErrExecution))

	plain := errors.New("hook failed")
	got := KindOr(plain, ErrExecution)
	assert.ErrorIs(t, got, ErrExecution)
	assert.ErrorIs(t, got, plain)

	assert.NoError(t, KindOr(nil, ErrExecution))
}

func TestConfigMerge(t *testing.T) {
	base := Config{
		Versions:   []platform.Version{21},
		MinVersion: 19,
		Manifest:   "base.yaml",
		Shadows:    []string{"A"},
		Qualifiers: map[string]string{"locale": "en"},
	}
	over := Config{
		Versions:   []platform.Version{23, platform.Newest},
		Manifest:   ManifestNone,
		Shadows:    []string{"B", "A", ""},
		Qualifiers: map[string]string{"density": "xhdpi"},
	}

	got := base.Merge(over)

	assert.Equal(t, []platform.Version{23, platform.Newest}, got.Versions)
	assert.Equal(t, platform.Version(19), got.MinVersion, "unset scalar keeps lower layer")
	assert.Equal(t, ManifestNone, got.Manifest)
	assert.Equal(t, []string{"A", "B"}, got.Shadows)
	assert.Equal(t, map[string]string{"locale": "en", "density": "xhdpi"}, got.Qualifiers)

	// inputs untouched
	assert.Equal(t, []string{"A"}, base.Shadows)
	assert.Len(t, base.Qualifiers, 1)
	assert.Equal(t, []platform.Version{21}, base.Versions)
}

func TestConfigClone(t *testing.T) {
	c := Config{Shadows: []string{"A"}, Qualifiers: map[string]string{"k": "v"}}
	cp := c.Clone()
	cp.Shadows[0] = "B"
	cp.Qualifiers["k"] = "w"

	assert.Equal(t, "A", c.Shadows[0])
	assert.Equal(t, "v", c.Qualifiers["k"])
	assert.Nil(t, Config{}.Clone().Qualifiers)
}

func TestManifest(t *testing.T) {
	m := DefaultManifest()
	assert.Equal(t, DefaultApplicationClass, m.ApplicationClass())
	assert.Equal(t, "default|"+DefaultPackageName+"|", m.Identity())

	loaded := &Manifest{Path: "/p/m.yaml", PackageName: "com.example", Application: "com.example.App"}
	assert.Equal(t, "com.example.App", loaded.ApplicationClass())
	assert.NotEqual(t, m.Identity(), loaded.Identity())

	withRes := *loaded
	withRes.ResourceDir = "/p/res"
	assert.NotEqual(t, loaded.Identity(), withRes.Identity())
}
