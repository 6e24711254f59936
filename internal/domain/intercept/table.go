package intercept

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/GriffinCanCode/shadowbox/internal/shared/platform"
	"github.com/GriffinCanCode/shadowbox/internal/shared/types"
)

// ShadowDescriptor binds a symbol to a replacement for a version range
type ShadowDescriptor struct {
	Target SymbolID
	Shadow string // name of the shadow group that declared it
	Range  Range
	Impl   ShadowFunc
}

// String returns a short human-readable form
func (d ShadowDescriptor) String() string {
	return fmt.Sprintf("%s %s via %s", d.Target, d.Range, d.Shadow)
}

// AmbiguityError reports two descriptors that could both answer one call
type AmbiguityError struct {
	Symbol SymbolID
	First  ShadowDescriptor
	Second ShadowDescriptor
}

func (e *AmbiguityError) Error() string {
	return fmt.Sprintf("ambiguous shadows for %s: %s (%s) overlaps %s (%s)",
		e.Symbol, e.First.Range, e.First.Shadow, e.Second.Range, e.Second.Shadow)
}

// Unwrap classifies the ambiguity as a configuration error
func (e *AmbiguityError) Unwrap() error {
	return types.ErrConfiguration
}

// Table is an immutable set of shadow descriptors
type Table struct {
	entries map[SymbolID][]ShadowDescriptor
	size    int
}

// Empty returns a table with no descriptors
func Empty() *Table {
	return &Table{entries: map[SymbolID][]ShadowDescriptor{}}
}

// NewTable builds and validates a table
func NewTable(descs ...ShadowDescriptor) (*Table, error) {
	t := Empty()
	for _, d := range descs {
		if d.Target.IsZero() {
			return nil, types.Wrap(types.ErrConfiguration, fmt.Errorf("shadow %q: empty target symbol", d.Shadow))
		}
		if d.Impl == nil {
			return nil, types.Wrap(types.ErrConfiguration, fmt.Errorf("shadow %q: nil implementation for %s", d.Shadow, d.Target))
		}
		d.Range = d.Range.normalize()
		if err := d.Range.Validate(); err != nil {
			return nil, types.Wrap(types.ErrConfiguration, fmt.Errorf("shadow %q for %s: %w", d.Shadow, d.Target, err))
		}
		t.entries[d.Target] = append(t.entries[d.Target], d)
		t.size++
	}

	for sym := range t.entries {
		sortDescriptors(t.entries[sym])
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// MustTable is NewTable that panics on error
func MustTable(descs ...ShadowDescriptor) *Table {
	t, err := NewTable(descs...)
	if err != nil {
		panic(err)
	}
	return t
}

// Validate reports the first pair of overlapping descriptors for one symbol
func (t *Table) Validate() error {
	if t == nil {
		return nil
	}
	for _, sym := range t.Symbols() {
		descs := t.entries[sym]
		for i := 0; i < len(descs); i++ {
			for j := i + 1; j < len(descs); j++ {
				if descs[i].Range.Overlaps(descs[j].Range) {
					return &AmbiguityError{Symbol: sym, First: descs[i], Second: descs[j]}
				}
			}
		}
	}
	return nil
}

// Resolve returns the descriptor handling sym at version, if any.
// The narrowest containing range wins; equal widths prefer the higher lower bound.
func (t *Table) Resolve(sym SymbolID, version platform.Version) (ShadowDescriptor, bool) {
	if t == nil {
		return ShadowDescriptor{}, false
	}

	var (
		best  ShadowDescriptor
		found bool
	)
	for _, d := range t.entries[sym] {
		if !d.Range.Contains(version) {
			continue
		}
		if !found || narrower(d.Range, best.Range) {
			best, found = d, true
		}
	}
	return best, found
}

// Has reports whether any descriptor targets sym
func (t *Table) Has(sym SymbolID) bool {
	return t != nil && len(t.entries[sym]) > 0
}

// Len returns the number of descriptors
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return t.size
}

// Symbols returns the targeted symbols in sorted order
func (t *Table) Symbols() []SymbolID {
	if t == nil {
		return nil
	}
	return slices.SortedFunc(maps.Keys(t.entries), compareSymbols)
}

// Descriptors returns every descriptor, grouped by symbol
func (t *Table) Descriptors() []ShadowDescriptor {
	var out []ShadowDescriptor
	for _, sym := range t.Symbols() {
		out = append(out, t.entries[sym]...)
	}
	return out
}

// Layer returns a table where additions replace every base descriptor for the
// symbols they target. Neither input is modified; nil tables count as empty.
func Layer(base, additions *Table) *Table {
	out := Empty()
	if base != nil {
		for sym, descs := range base.entries {
			out.entries[sym] = descs
			out.size += len(descs)
		}
	}
	if additions != nil {
		for sym, descs := range additions.entries {
			out.size -= len(out.entries[sym])
			out.entries[sym] = descs
			out.size += len(descs)
		}
	}
	return out
}

func narrower(a, b Range) bool {
	if a.Width() != b.Width() {
		return a.Width() < b.Width()
	}
	return a.Min > b.Min
}

func sortDescriptors(descs []ShadowDescriptor) {
	slices.SortStableFunc(descs, func(a, b ShadowDescriptor) int {
		if c := cmp.Compare(a.Range.Min, b.Range.Min); c != 0 {
			return c
		}
		return cmp.Compare(a.Range.Max, b.Range.Max)
	})
}

func compareSymbols(a, b SymbolID) int {
	if c := strings.Compare(a.Class, b.Class); c != 0 {
		return c
	}
	return strings.Compare(a.Member, b.Member)
}
