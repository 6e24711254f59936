package lifecycle

import (
	"github.com/GriffinCanCode/shadowbox/internal/domain/resources"
	"github.com/GriffinCanCode/shadowbox/internal/shared/platform"
	"github.com/GriffinCanCode/shadowbox/internal/shared/types"
)

// VersionSelector picks the versions a method runs on. An empty result skips
// the method.
type VersionSelector interface {
	Select(cfg types.Config, manifest *types.Manifest) ([]platform.Version, error)
}

// ConfigResolver merges global, class and method configuration
type ConfigResolver interface {
	Resolve(target types.ConfigTarget) (types.Config, error)
}

// ManifestLoader loads the manifest a configuration refers to
type ManifestLoader interface {
	Load(cfg types.Config) (*types.Manifest, error)
}

// ResourceTableProvider builds the layered resource views for a manifest
type ResourceTableProvider interface {
	Views(manifest *types.Manifest, framework *resources.Table) (resources.Views, error)
}

// ApplicationLifecycleHook is called around each test body, separately from
// the environment level prime and teardown
type ApplicationLifecycleHook interface {
	BeforeTest(u *Unit) error
	PrepareTest(tc *Context) error
	AfterTest(u *Unit) error
}

// DefaultHooks does nothing
type DefaultHooks struct{}

func (DefaultHooks) BeforeTest(*Unit) error     { return nil }
func (DefaultHooks) PrepareTest(*Context) error { return nil }
func (DefaultHooks) AfterTest(*Unit) error      { return nil }

// HookFuncs adapts optional functions to ApplicationLifecycleHook
type HookFuncs struct {
	Before  func(u *Unit) error
	Prepare func(tc *Context) error
	After   func(u *Unit) error
}

func (h HookFuncs) BeforeTest(u *Unit) error {
	if h.Before == nil {
		return nil
	}
	return h.Before(u)
}

func (h HookFuncs) PrepareTest(tc *Context) error {
	if h.Prepare == nil {
		return nil
	}
	return h.Prepare(tc)
}

func (h HookFuncs) AfterTest(u *Unit) error {
	if h.After == nil {
		return nil
	}
	return h.After(u)
}
