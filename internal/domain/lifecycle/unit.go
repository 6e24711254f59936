package lifecycle

import (
	"fmt"

	"github.com/GriffinCanCode/shadowbox/internal/shared/id"
	"github.com/GriffinCanCode/shadowbox/internal/shared/platform"
	"github.com/GriffinCanCode/shadowbox/internal/shared/types"
)

// Body is a test method's code
type Body func(tc *Context) error

// TestClass groups test methods sharing class level configuration
type TestClass struct {
	Name    string
	Config  types.Config
	Methods []TestMethod

	// NewInstance creates the per-run test instance handed to PrepareTest
	NewInstance func() any
}

// TestMethod is one test method before version expansion
type TestMethod struct {
	Name   string
	Config types.Config
	Body   Body
	Ignore bool
}

// Unit is one method bound to one platform version. It is consumed by a
// single Run.
type Unit struct {
	ID       id.RunID
	Class    string
	Method   string
	Name     string
	Version  platform.Version
	Config   types.Config
	Manifest *types.Manifest
	Body     Body
	Skip     bool

	newInstance func() any
}

// FullName returns Class.Name
func (u *Unit) FullName() string {
	return u.Class + "." + u.Name
}

// unitName disambiguates by version only when a method runs on several
func unitName(method string, v platform.Version, total int) string {
	if total <= 1 {
		return method
	}
	return fmt.Sprintf("%s[%s]", method, v)
}

func (c TestClass) validate() error {
	if c.Name == "" {
		return fmt.Errorf("test class has no name")
	}
	seen := make(map[string]bool, len(c.Methods))
	for _, m := range c.Methods {
		if m.Name == "" {
			return fmt.Errorf("%s: method has no name", c.Name)
		}
		if seen[m.Name] {
			return fmt.Errorf("%s: duplicate method %s", c.Name, m.Name)
		}
		seen[m.Name] = true
		if m.Body == nil && !m.Ignore {
			return fmt.Errorf("%s.%s: no body", c.Name, m.Name)
		}
	}
	return nil
}
