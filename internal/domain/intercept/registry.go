package intercept

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/GriffinCanCode/shadowbox/internal/shared/types"
)

// Shadow is a named group of member replacements for one framework class
type Shadow struct {
	Name    string
	Class   string
	Range   Range
	Methods map[string]ShadowFunc // keyed by member signature
}

// Descriptors expands the shadow into one descriptor per member
func (s Shadow) Descriptors() []ShadowDescriptor {
	members := slices.Sorted(maps.Keys(s.Methods))
	out := make([]ShadowDescriptor, 0, len(members))
	for _, m := range members {
		out = append(out, ShadowDescriptor{
			Target: Symbol(s.Class, m),
			Shadow: s.Name,
			Range:  s.Range,
			Impl:   s.Methods[m],
		})
	}
	return out
}

// Registry holds declared shadows by name
type Registry struct {
	mu      sync.RWMutex
	shadows map[string]Shadow
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{shadows: make(map[string]Shadow)}
}

// Register adds a shadow. Names are unique.
func (r *Registry) Register(s Shadow) error {
	if s.Name == "" {
		return types.Wrap(types.ErrConfiguration, fmt.Errorf("shadow name is required"))
	}
	if s.Class == "" {
		return types.Wrap(types.ErrConfiguration, fmt.Errorf("shadow %q: class is required", s.Name))
	}
	if len(s.Methods) == 0 {
		return types.Wrap(types.ErrConfiguration, fmt.Errorf("shadow %q: no methods", s.Name))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.shadows[s.Name]; exists {
		return types.Wrap(types.ErrConfiguration, fmt.Errorf("shadow %q already registered", s.Name))
	}
	s.Methods = maps.Clone(s.Methods)
	r.shadows[s.Name] = s
	return nil
}

// MustRegister is Register that panics on error
func (r *Registry) MustRegister(shadows ...Shadow) *Registry {
	for _, s := range shadows {
		if err := r.Register(s); err != nil {
			panic(err)
		}
	}
	return r
}

// Get returns a shadow by name
func (r *Registry) Get(name string) (Shadow, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.shadows[name]
	return s, ok
}

// Names returns every registered name in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.shadows))
}

// Table builds a validated table from the named shadows.
// With no names, every registered shadow is included.
func (r *Registry) Table(names ...string) (*Table, error) {
	selected, err := r.selectShadows(names)
	if err != nil {
		return nil, err
	}

	var descs []ShadowDescriptor
	for _, s := range selected {
		descs = append(descs, s.Descriptors()...)
	}
	return NewTable(descs...)
}

// Classes returns the distinct classes targeted by the named shadows
func (r *Registry) Classes(names ...string) ([]string, error) {
	selected, err := r.selectShadows(names)
	if err != nil {
		return nil, err
	}

	var classes []string
	for _, s := range selected {
		if !slices.Contains(classes, s.Class) {
			classes = append(classes, s.Class)
		}
	}
	slices.Sort(classes)
	return classes, nil
}

func (r *Registry) selectShadows(names []string) ([]Shadow, error) {
	if r == nil {
		if len(names) > 0 {
			return nil, types.Wrap(types.ErrConfiguration, fmt.Errorf("unknown shadow %q", names[0]))
		}
		return nil, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(names) == 0 {
		names = slices.Sorted(maps.Keys(r.shadows))
	}

	out := make([]Shadow, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		s, ok := r.shadows[name]
		if !ok {
			return nil, types.Wrap(types.ErrConfiguration, fmt.Errorf("unknown shadow %q", name))
		}
		out = append(out, s)
	}
	return out, nil
}
