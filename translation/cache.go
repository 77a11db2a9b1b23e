package translation

import (
	"context"
	"fmt"

	"github.com/byte4ever/lyra/registry"
)

// Cache hands out one Store per project. The first access
// for a project opens its backend namespace; concurrent
// first accesses share that single construction.
type Cache struct {
	backend Backend
	stores  *registry.Registry[*Store]
}

// NewCache returns a Cache whose stores persist edits in
// backend.
func NewCache(backend Backend) *Cache {
	return &Cache{
		backend: backend,
		stores:  registry.New[*Store](),
	}
}

// Store returns the store of cfg.Project, applying cfg to
// an existing store.
func (c *Cache) Store(
	ctx context.Context,
	cfg StoreConfig,
) (*Store, error) {
	const errCtx = "getting translation store"

	created := false

	st, err := c.stores.Get(cfg.Project, func() (*Store, error) {
		created = true

		return NewStore(ctx, cfg, c.backend)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	if !created {
		if err := st.Configure(cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}
	}

	return st, nil
}
