package lifecycle

import (
	"context"

	"github.com/GriffinCanCode/shadowbox/internal/domain/intercept"
	"github.com/GriffinCanCode/shadowbox/internal/domain/resources"
	"github.com/GriffinCanCode/shadowbox/internal/domain/sandbox"
	"github.com/GriffinCanCode/shadowbox/internal/shared/id"
	"github.com/GriffinCanCode/shadowbox/internal/shared/platform"
	"github.com/GriffinCanCode/shadowbox/internal/shared/types"
)

// Context is what a test body sees. It is only valid during the run that
// created it.
type Context struct {
	ctx    context.Context
	unit   *Unit
	env    *sandbox.Environment
	app    *sandbox.Application
	views  resources.Views
	thread id.ThreadID

	// Instance is the test instance created for this run, if any
	Instance any
}

// Context returns the run's context
func (c *Context) Context() context.Context { return c.ctx }

// Unit returns the unit being run
func (c *Context) Unit() *Unit { return c.unit }

// Version returns the simulated platform version
func (c *Context) Version() platform.Version { return c.unit.Version }

// Config returns the merged test configuration
func (c *Context) Config() types.Config { return c.unit.Config }

// Manifest returns the application manifest
func (c *Context) Manifest() *types.Manifest { return c.unit.Manifest }

// Env returns the environment the run owns
func (c *Context) Env() *sandbox.Environment { return c.env }

// Application returns the simulated application
func (c *Context) Application() *sandbox.Application { return c.app }

// Resources returns the application resource view
func (c *Context) Resources() *resources.View { return c.views.Application }

// SystemResources returns the framework resource view
func (c *Context) SystemResources() *resources.View { return c.views.System }

// Thread returns the main thread identity of this run
func (c *Context) Thread() id.ThreadID { return c.thread }

// State returns the shadow state of the environment
func (c *Context) State() *intercept.ShadowState { return c.env.Runtime().State() }

// Invoke calls a static framework member on the main thread
func (c *Context) Invoke(class, member string, args ...any) (any, error) {
	return c.env.Invoke(c.thread, intercept.Symbol(class, member), nil, args...)
}

// InvokeOn calls a framework member with a receiver on the main thread
func (c *Context) InvokeOn(this any, class, member string, args ...any) (any, error) {
	return c.env.Invoke(c.thread, intercept.Symbol(class, member), this, args...)
}

// InvokeFrom calls a framework member from another thread identity
func (c *Context) InvokeFrom(caller id.ThreadID, class, member string, args ...any) (any, error) {
	return c.env.Invoke(caller, intercept.Symbol(class, member), nil, args...)
}
