package sandbox

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/shadowbox/internal/domain/intercept"
	"github.com/GriffinCanCode/shadowbox/internal/shared/id"
	"github.com/GriffinCanCode/shadowbox/internal/shared/types"
)

// Application lifecycle members
const (
	MemberOnCreate    = "onCreate()"
	MemberOnTerminate = "onTerminate()"
)

// Application is the simulated application object of one run
type Application struct {
	ID          uuid.UUID
	Class       string
	PackageName string

	env        *Environment
	created    bool
	terminated bool
}

// NewApplication creates the application described by manifest. It is not
// attached to the environment until the caller does so.
func (e *Environment) NewApplication(manifest *types.Manifest) *Application {
	if manifest == nil {
		manifest = types.DefaultManifest()
	}
	return &Application{
		ID:          uuid.New(),
		Class:       manifest.ApplicationClass(),
		PackageName: manifest.PackageName,
		env:         e,
	}
}

// Create runs the application's onCreate when the framework or a shadow provides one
func (a *Application) Create(caller id.ThreadID) error {
	if a.created {
		return fmt.Errorf("application %s already created", a.ID)
	}
	a.created = true
	return a.lifecycle(caller, MemberOnCreate)
}

// Terminate runs onTerminate once; it is a no-op if Create never ran
func (a *Application) Terminate(caller id.ThreadID) error {
	if !a.created || a.terminated {
		return nil
	}
	a.terminated = true
	return a.lifecycle(caller, MemberOnTerminate)
}

// Created reports whether Create ran
func (a *Application) Created() bool { return a.created }

// Terminated reports whether Terminate ran
func (a *Application) Terminated() bool { return a.terminated }

func (a *Application) lifecycle(caller id.ThreadID, member string) error {
	sym := intercept.Symbol(a.Class, member)
	if !a.env.Has(sym) {
		return nil
	}
	if _, err := a.env.Invoke(caller, sym, a); err != nil {
		return fmt.Errorf("%s: %w", sym, err)
	}
	a.env.logger.Debug("Application lifecycle",
		zap.String("member", member),
		zap.String("app", a.ID.String()))
	return nil
}
