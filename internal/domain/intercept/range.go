package intercept

import (
	"fmt"

	"github.com/GriffinCanCode/shadowbox/internal/shared/platform"
)

// Range is an inclusive version interval
type Range struct {
	Min platform.Version
	Max platform.Version
}

// AllVersions applies to every version
var AllVersions = Range{Min: platform.MinVersion, Max: platform.MaxVersion}

// Between returns the inclusive range [min, max]
func Between(min, max platform.Version) Range {
	return Range{Min: min, Max: max}
}

// From returns the open-ended range [min, ∞)
func From(min platform.Version) Range {
	return Range{Min: min, Max: platform.MaxVersion}
}

// normalize maps an unset Max to the open upper bound
func (r Range) normalize() Range {
	if r.Max == 0 {
		r.Max = platform.MaxVersion
	}
	return r
}

// Validate checks the bounds
func (r Range) Validate() error {
	if r.Min < 0 {
		return fmt.Errorf("range %s: negative lower bound", r)
	}
	if r.Min > r.Max {
		return fmt.Errorf("range %s: lower bound above upper bound", r)
	}
	return nil
}

// Contains reports whether v lies within the range
func (r Range) Contains(v platform.Version) bool {
	return v >= r.Min && v <= r.Max
}

// Overlaps reports whether the two ranges share at least one version
func (r Range) Overlaps(o Range) bool {
	return r.Min <= o.Max && o.Min <= r.Max
}

// Width returns the number of versions covered
func (r Range) Width() int64 {
	return int64(r.Max) - int64(r.Min) + 1
}

// String returns [min,max]
func (r Range) String() string {
	return fmt.Sprintf("[%s,%s]", r.Min, r.Max)
}
