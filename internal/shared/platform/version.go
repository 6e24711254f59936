// Package platform describes the simulated framework revisions a test can run against.
//
// A Version is a totally ordered integer level. Each supported Version maps to
// a Release, which names the framework artifact that must be loaded to build
// an isolated environment for it.
//
// Selection sentinels (All, Target, Oldest, Newest) are negative so they can
// never collide with a real level; they only appear in test configuration and
// are expanded by a version selector before reaching the core.
package platform

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Version identifies a simulated framework revision
type Version int

const (
	// MinVersion is the lowest representable level
	MinVersion Version = 0
	// MaxVersion is the open upper bound used by unbounded ranges
	MaxVersion Version = math.MaxInt32
)

// Selection sentinels accepted in test configuration
const (
	All    Version = -1
	Target Version = -2
	Oldest Version = -3
	Newest Version = -4
)

// IsSentinel reports whether v is a selection placeholder rather than a level
func (v Version) IsSentinel() bool {
	return v < 0
}

// String returns the level, or the sentinel name
func (v Version) String() string {
	switch v {
	case All:
		return "all"
	case Target:
		return "target"
	case Oldest:
		return "oldest"
	case Newest:
		return "newest"
	case MaxVersion:
		return "max"
	}
	return strconv.Itoa(int(v))
}

// ParseVersion parses a level or a sentinel name
func ParseVersion(s string) (Version, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "all":
		return All, nil
	case "target":
		return Target, nil
	case "oldest":
		return Oldest, nil
	case "newest":
		return Newest, nil
	case "max":
		return MaxVersion, nil
	}

	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid platform version %q: %w", s, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid platform version %q: must not be negative", s)
	}
	return Version(n), nil
}

// UnmarshalText accepts the same forms as ParseVersion, so configuration
// files can mix levels and sentinel names
func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := ParseVersion(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// UnmarshalJSON accepts a plain number or a quoted level or sentinel name
func (v *Version) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		s, err := strconv.Unquote(string(data))
		if err != nil {
			return err
		}
		return v.UnmarshalText([]byte(s))
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return fmt.Errorf("invalid platform version %s: %w", data, err)
	}
	*v = Version(n)
	return nil
}
