package intercept

import (
	"fmt"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/GriffinCanCode/shadowbox/internal/shared/types"
	"github.com/GriffinCanCode/shadowbox/internal/shared/utils"
)

// Default instrumentation rules
var (
	DefaultInstrumentedPackages = []string{"android", "com.android", "dalvik", "libcore"}
	DefaultExcludedPackages     = []string{"java", "javax"}
)

// Config decides which framework classes are instrumented.
//
// It is immutable once built. Two configs with the same fingerprint produce
// identical instrumented environments, so the fingerprint is safe to use as a
// cache key.
type Config struct {
	packages         []string
	classes          []string
	excludedPackages []string
	excludedClasses  []string
	patterns         []string
	excludePatterns  []string
	fingerprint      string
}

// ConfigOption configures a Config
type ConfigOption func(*Config)

// WithPackages instruments every class under the given packages
func WithPackages(pkgs ...string) ConfigOption {
	return func(c *Config) { c.packages = append(c.packages, pkgs...) }
}

// WithClasses instruments individual classes
func WithClasses(classes ...string) ConfigOption {
	return func(c *Config) { c.classes = append(c.classes, classes...) }
}

// WithExcludedPackages never instruments classes under the given packages
func WithExcludedPackages(pkgs ...string) ConfigOption {
	return func(c *Config) { c.excludedPackages = append(c.excludedPackages, pkgs...) }
}

// WithExcludedClasses never instruments the given classes
func WithExcludedClasses(classes ...string) ConfigOption {
	return func(c *Config) { c.excludedClasses = append(c.excludedClasses, classes...) }
}

// WithPatterns instruments classes matching glob patterns over dotted names,
// e.g. "android.**.Build*"
func WithPatterns(patterns ...string) ConfigOption {
	return func(c *Config) { c.patterns = append(c.patterns, patterns...) }
}

// WithExcludePatterns never instruments classes matching glob patterns
func WithExcludePatterns(patterns ...string) ConfigOption {
	return func(c *Config) { c.excludePatterns = append(c.excludePatterns, patterns...) }
}

// NewConfig builds a canonical config
func NewConfig(opts ...ConfigOption) (Config, error) {
	var c Config
	for _, opt := range opts {
		opt(&c)
	}
	return c.seal()
}

// DefaultConfig instruments the framework packages and leaves the language runtime alone
func DefaultConfig() Config {
	c, err := NewConfig(
		WithPackages(DefaultInstrumentedPackages...),
		WithExcludedPackages(DefaultExcludedPackages...),
	)
	if err != nil {
		panic(err)
	}
	return c
}

// With returns a new config extended by opts
func (c Config) With(opts ...ConfigOption) (Config, error) {
	next := Config{
		packages:         slices.Clone(c.packages),
		classes:          slices.Clone(c.classes),
		excludedPackages: slices.Clone(c.excludedPackages),
		excludedClasses:  slices.Clone(c.excludedClasses),
		patterns:         slices.Clone(c.patterns),
		excludePatterns:  slices.Clone(c.excludePatterns),
	}
	for _, opt := range opts {
		opt(&next)
	}
	return next.seal()
}

func (c Config) seal() (Config, error) {
	c.packages = canonical(c.packages, trimPackage)
	c.classes = canonical(c.classes, strings.TrimSpace)
	c.excludedPackages = canonical(c.excludedPackages, trimPackage)
	c.excludedClasses = canonical(c.excludedClasses, strings.TrimSpace)
	c.patterns = canonical(c.patterns, globPath)
	c.excludePatterns = canonical(c.excludePatterns, globPath)

	for _, p := range slices.Concat(c.patterns, c.excludePatterns) {
		if !doublestar.ValidatePattern(p) {
			return Config{}, types.Wrap(types.ErrConfiguration, fmt.Errorf("invalid instrumentation pattern %q", p))
		}
	}

	c.fingerprint = utils.DefaultHasher().HashSections(
		utils.Section{Name: "packages", Values: c.packages},
		utils.Section{Name: "classes", Values: c.classes},
		utils.Section{Name: "excluded-packages", Values: c.excludedPackages},
		utils.Section{Name: "excluded-classes", Values: c.excludedClasses},
		utils.Section{Name: "patterns", Values: c.patterns},
		utils.Section{Name: "exclude-patterns", Values: c.excludePatterns},
	)
	return c, nil
}

// Fingerprint is a stable digest of the canonical rules
func (c Config) Fingerprint() string {
	if c.fingerprint == "" {
		sealed, _ := c.seal()
		return sealed.fingerprint
	}
	return c.fingerprint
}

// Equal reports whether both configs produce the same instrumentation
func (c Config) Equal(o Config) bool {
	return c.Fingerprint() == o.Fingerprint()
}

// Packages returns the instrumented packages
func (c Config) Packages() []string { return slices.Clone(c.packages) }

// Classes returns the individually instrumented classes
func (c Config) Classes() []string { return slices.Clone(c.classes) }

// ShouldInstrument reports whether calls into class are routed through dispatch.
// Exclusions win over inclusions.
func (c Config) ShouldInstrument(class string) bool {
	if class == "" {
		return false
	}
	if slices.Contains(c.excludedClasses, class) || inPackages(class, c.excludedPackages) || matchAny(class, c.excludePatterns) {
		return false
	}
	return slices.Contains(c.classes, class) || inPackages(class, c.packages) || matchAny(class, c.patterns)
}

// String returns a compact description for logs
func (c Config) String() string {
	fp := c.Fingerprint()
	return fmt.Sprintf("intercept(%d pkgs, %d classes, %s)", len(c.packages), len(c.classes), fp[:12])
}

// ConfigFor derives the config for one test: the base rules plus the packages
// the test asks for and every class its shadows target.
func ConfigFor(base Config, test types.Config, shadowClasses []string) (Config, error) {
	return base.With(
		WithPackages(test.InstrumentedPackages...),
		WithClasses(shadowClasses...),
	)
}

func inPackages(class string, pkgs []string) bool {
	for _, p := range pkgs {
		if strings.HasPrefix(class, p+".") {
			return true
		}
	}
	return false
}

func matchAny(class string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}
	name := strings.ReplaceAll(class, ".", "/")
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}

func trimPackage(p string) string {
	return strings.TrimSuffix(strings.TrimSpace(p), ".")
}

func globPath(p string) string {
	return strings.ReplaceAll(strings.TrimSpace(p), ".", "/")
}

func canonical(values []string, norm func(string) string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = norm(v); v != "" {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
