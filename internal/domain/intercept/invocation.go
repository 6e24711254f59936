package intercept

import (
	"errors"
	"maps"
	"slices"
	"sync"

	"github.com/GriffinCanCode/shadowbox/internal/shared/id"
	"github.com/GriffinCanCode/shadowbox/internal/shared/platform"
)

// ErrNoOriginal is returned by CallOriginal when the symbol has no framework body
var ErrNoOriginal = errors.New("no original implementation")

// ShadowFunc replaces a framework member
type ShadowFunc func(inv *Invocation) (any, error)

// Original runs the real framework code for a call
type Original func(this any, args []any) (any, error)

// Invocation is a single intercepted framework call as seen by a shadow
type Invocation struct {
	Symbol     SymbolID
	Version    platform.Version
	This       any
	Args       []any
	Caller     id.ThreadID
	MainThread id.ThreadID
	State      *ShadowState

	original Original
}

// NewInvocation creates an invocation with a call-through to original
func NewInvocation(sym SymbolID, version platform.Version, this any, args []any, original Original) *Invocation {
	return &Invocation{
		Symbol:   sym,
		Version:  version,
		This:     this,
		Args:     args,
		original: original,
	}
}

// HasOriginal reports whether CallOriginal can succeed
func (i *Invocation) HasOriginal() bool {
	return i.original != nil
}

// CallOriginal runs the real framework code with the invocation's arguments
func (i *Invocation) CallOriginal() (any, error) {
	return i.CallOriginalWith(i.Args...)
}

// CallOriginalWith runs the real framework code with substituted arguments
func (i *Invocation) CallOriginalWith(args ...any) (any, error) {
	if i.original == nil {
		return nil, ErrNoOriginal
	}
	return i.original(i.This, args)
}

// OnMainThread reports whether the caller is the environment's main thread
func (i *Invocation) OnMainThread() bool {
	return i.Caller != "" && i.Caller == i.MainThread
}

// Arg returns the n-th argument or nil
func (i *Invocation) Arg(n int) any {
	if n < 0 || n >= len(i.Args) {
		return nil
	}
	return i.Args[n]
}

// ShadowState is scratch storage shadows share within one environment.
// It is cleared by every static-state reset.
type ShadowState struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewShadowState creates empty shadow state
func NewShadowState() *ShadowState {
	return &ShadowState{values: make(map[string]any)}
}

// Get returns a stored value
func (s *ShadowState) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores a value
func (s *ShadowState) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Delete removes a value
func (s *ShadowState) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

// Len returns the number of stored values
func (s *ShadowState) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// Keys returns the stored keys in sorted order
func (s *ShadowState) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.values))
}

// Reset drops every value
func (s *ShadowState) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.values)
}
