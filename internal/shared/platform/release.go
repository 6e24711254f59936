package platform

import (
	"fmt"
	"path"
	"strings"
)

// Default coordinates of the framework artifacts
const (
	DefaultGroup    = "org.shadowbox"
	DefaultArtifact = "framework-all"
	DefaultType     = "js"
)

// DependencyID identifies a versioned artifact in a repository
type DependencyID struct {
	Group    string
	Artifact string
	Version  string
	Type     string
}

// String returns the group:artifact:version coordinate
func (d DependencyID) String() string {
	return fmt.Sprintf("%s:%s:%s", d.Group, d.Artifact, d.Version)
}

// FileName returns the artifact's file name
func (d DependencyID) FileName() string {
	ext := d.Type
	if ext == "" {
		ext = DefaultType
	}
	return fmt.Sprintf("%s-%s.%s", d.Artifact, d.Version, ext)
}

// RepositoryPath returns the slash-separated path of the artifact inside a
// maven-layout repository
func (d DependencyID) RepositoryPath() string {
	return path.Join(strings.ReplaceAll(d.Group, ".", "/"), d.Artifact, d.Version, d.FileName())
}

// Validate checks that all mandatory coordinates are present
func (d DependencyID) Validate() error {
	if d.Group == "" || d.Artifact == "" || d.Version == "" {
		return fmt.Errorf("incomplete dependency coordinates %q", d.String())
	}
	return nil
}

// Artifact is a locally available copy of a dependency
type Artifact struct {
	Dependency DependencyID
	Path       string
}

// Release binds a Version to the framework revision that implements it
type Release struct {
	Version  Version
	Name     string // upstream release name, exposed to framework code as RELEASE
	Revision int    // packaging revision of the artifact
}

// Dependency returns the artifact coordinates for this release
func (r Release) Dependency() DependencyID {
	return DependencyID{
		Group:    DefaultGroup,
		Artifact: DefaultArtifact,
		Version:  fmt.Sprintf("%s-shadowbox-%d", r.Name, r.Revision),
		Type:     DefaultType,
	}
}

// String returns a human readable description
func (r Release) String() string {
	return fmt.Sprintf("%d (%s)", r.Version, r.Name)
}
