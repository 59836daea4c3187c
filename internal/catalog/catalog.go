// Package catalog holds the static model registry: a read-only projection of
// the models the backend can serve, with deterministic ordering.
package catalog

import (
	"sort"

	"chatgate/pkg/types"
)

// Catalog is an immutable, id-sorted set of model descriptors.
type Catalog struct {
	models []types.ModelDescriptor
}

// New builds a catalog from descriptors, sorted by ascending id.
func New(models []types.ModelDescriptor) *Catalog {
	out := make([]types.ModelDescriptor, len(models))
	copy(out, models)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return &Catalog{models: out}
}

// List returns the descriptors in ascending id order. The returned slice is
// a copy; callers may mutate it freely.
func (c *Catalog) List() []types.ModelDescriptor {
	out := make([]types.ModelDescriptor, len(c.models))
	copy(out, c.models)
	return out
}

// Get returns the descriptor for id.
func (c *Catalog) Get(id string) (types.ModelDescriptor, bool) {
	i := sort.Search(len(c.models), func(i int) bool { return c.models[i].ID >= id })
	if i < len(c.models) && c.models[i].ID == id {
		return c.models[i], true
	}
	return types.ModelDescriptor{}, false
}

// ResolvePath returns the on-disk weights path for id, when known.
func (c *Catalog) ResolvePath(id string) (string, bool) {
	d, ok := c.Get(id)
	if !ok || d.Path == "" {
		return "", false
	}
	return d.Path, true
}

// Len reports the number of models in the catalog.
func (c *Catalog) Len() int { return len(c.models) }
