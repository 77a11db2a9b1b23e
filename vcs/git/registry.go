package git

import (
	"fmt"
	"path/filepath"

	"github.com/byte4ever/lyra/registry"
)

// Registry hands out one Repo per absolute clone path so
// every caller shares the same lock.
type Registry struct {
	repos *registry.Registry[*Repo]
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{repos: registry.New[*Repo]()}
}

// Get returns the handle for spec.Dir, creating it on
// first access. Later calls for the same path return the
// first handle whatever their spec.
func (r *Registry) Get(spec RepoSpec) (*Repo, error) {
	const errCtx = "getting repository handle"

	abs, err := filepath.Abs(spec.Dir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	spec.Dir = abs

	repo, err := r.repos.Get(abs, func() (*Repo, error) {
		return newRepo(spec), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return repo, nil
}
