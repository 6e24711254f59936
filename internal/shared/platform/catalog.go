package platform

import (
	"fmt"
	"sort"
)

// Catalog is the immutable set of supported releases
type Catalog struct {
	releases map[Version]Release
	ordered  []Version
}

// NewCatalog creates a catalog from the given releases
func NewCatalog(releases ...Release) (*Catalog, error) {
	c := &Catalog{
		releases: make(map[Version]Release, len(releases)),
		ordered:  make([]Version, 0, len(releases)),
	}

	for _, r := range releases {
		if r.Version.IsSentinel() || r.Version == MaxVersion {
			return nil, fmt.Errorf("release %q: %s is not a concrete version", r.Name, r.Version)
		}
		if r.Name == "" {
			return nil, fmt.Errorf("release for version %d has no name", r.Version)
		}
		if _, exists := c.releases[r.Version]; exists {
			return nil, fmt.Errorf("duplicate release for version %d", r.Version)
		}
		c.releases[r.Version] = r
		c.ordered = append(c.ordered, r.Version)
	}

	sort.Slice(c.ordered, func(i, j int) bool { return c.ordered[i] < c.ordered[j] })
	return c, nil
}

// MustCatalog is like NewCatalog but panics on error
func MustCatalog(releases ...Release) *Catalog {
	c, err := NewCatalog(releases...)
	if err != nil {
		panic(err)
	}
	return c
}

// DefaultCatalog returns the releases shipped with shadowbox
func DefaultCatalog() *Catalog {
	return MustCatalog(
		Release{Version: 16, Name: "4.1.2_r1", Revision: 0},
		Release{Version: 17, Name: "4.2.2_r1.2", Revision: 0},
		Release{Version: 18, Name: "4.3_r2", Revision: 0},
		Release{Version: 19, Name: "4.4_r1", Revision: 1},
		Release{Version: 21, Name: "5.0.2_r3", Revision: 0},
		Release{Version: 22, Name: "5.1.1_r9", Revision: 1},
		Release{Version: 23, Name: "6.0.1_r3", Revision: 0},
		Release{Version: 24, Name: "7.0.0_r1", Revision: 0},
		Release{Version: 25, Name: "7.1.0_r7", Revision: 0},
	)
}

// Get returns the release for v
func (c *Catalog) Get(v Version) (Release, bool) {
	r, ok := c.releases[v]
	return r, ok
}

// Contains reports whether v is supported
func (c *Catalog) Contains(v Version) bool {
	_, ok := c.releases[v]
	return ok
}

// Versions returns the supported versions in ascending order
func (c *Catalog) Versions() []Version {
	out := make([]Version, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// Releases returns the supported releases in ascending version order
func (c *Catalog) Releases() []Release {
	out := make([]Release, 0, len(c.ordered))
	for _, v := range c.ordered {
		out = append(out, c.releases[v])
	}
	return out
}

// Len returns the number of supported versions
func (c *Catalog) Len() int {
	return len(c.ordered)
}

// Oldest returns the lowest supported version
func (c *Catalog) Oldest() (Version, bool) {
	if len(c.ordered) == 0 {
		return 0, false
	}
	return c.ordered[0], true
}

// Newest returns the highest supported version
func (c *Catalog) Newest() (Version, bool) {
	if len(c.ordered) == 0 {
		return 0, false
	}
	return c.ordered[len(c.ordered)-1], true
}
