// Package adapter holds one Source implementation per listing portal
// (spec.md §4.2). Adapters self-register in init(), a direct
// generalization of the teacher's internal/module.Register /
// internal/component.Register name->handler registries: a map guarded by
// sync.RWMutex, filled at package-init time, read by the aggregator at
// fetch_all time.
package adapter

import (
	"context"
	"sync"

	"github.com/yanizio/flatradar/internal/listing"
)

// Params is the filter set an adapter translates into portal query
// parameters (spec.md §4.2).
type Params struct {
	CitySlug string
	MinRooms int
	MaxRooms int
	MinPrice int
	MaxPrice int
}

// Source is the one operation every adapter exposes: a pure function over
// portal state plus Params, with no persistence of its own.
type Source interface {
	// Name is the SourceTag this adapter produces listings under.
	Name() listing.SourceTag
	// FetchListings returns every listing the portal reports matching p,
	// already paginated and early-stopped per §4.3. Never panics; a
	// terminal fetch failure is returned as a non-nil error and the
	// aggregator treats it as an empty result.
	FetchListings(ctx context.Context, p Params) ([]listing.Listing, error)
}

var (
	mu       sync.RWMutex
	registry = map[listing.SourceTag]Source{}
)

// Register is called from each adapter's init() function.
func Register(src Source) {
	mu.Lock()
	defer mu.Unlock()
	registry[src.Name()] = src
}

// All returns every registered adapter, in no particular order.
func All() []Source {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Source, 0, len(registry))
	for _, s := range registry {
		out = append(out, s)
	}
	return out
}

// Lookup returns the adapter registered for a source tag, or nil.
func Lookup(source listing.SourceTag) Source {
	mu.RLock()
	defer mu.RUnlock()
	return registry[source]
}
