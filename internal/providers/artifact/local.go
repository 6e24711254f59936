// Package artifact locates framework artifacts for the environment cache.
//
// Resolvers compose: Properties overrides individual coordinates, Cached puts
// a TTL index in front of Remote, and Local serves an offline directory.
// NewDefault assembles the chain from configuration.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/GriffinCanCode/shadowbox/internal/shared/platform"
)

// ErrNotFound reports that a resolver has no copy of the artifact
var ErrNotFound = errors.New("artifact not found")

// Resolver locates a local copy of a dependency. Implementations must be
// safe for concurrent use.
type Resolver interface {
	Resolve(ctx context.Context, dep platform.DependencyID) (platform.Artifact, error)
}

// Local serves artifacts from a directory, either flat or in repository layout
type Local struct {
	Dir string
}

// NewLocal creates a resolver over dir
func NewLocal(dir string) *Local {
	return &Local{Dir: dir}
}

// Resolve implements Resolver
func (l *Local) Resolve(ctx context.Context, dep platform.DependencyID) (platform.Artifact, error) {
	if err := dep.Validate(); err != nil {
		return platform.Artifact{}, err
	}
	candidates := []string{
		filepath.Join(l.Dir, dep.FileName()),
		filepath.Join(l.Dir, filepath.FromSlash(dep.RepositoryPath())),
	}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return platform.Artifact{Dependency: dep, Path: p}, nil
		}
	}
	return platform.Artifact{}, fmt.Errorf("%w: %s in %s", ErrNotFound, dep, l.Dir)
}
