package cache

import (
	"context"

	"github.com/quangtm/stashsync/internal/core/domain"
)

// Store is a keyed store of cache regions. The mutation coordinator is the
// only writer during mutations; read-refetch completions are the only other
// writer. Implementations must return regions by value, never aliasing
// internal state.
type Store interface {
	// Region returns the region for key and whether it exists.
	Region(ctx context.Context, key domain.RegionKey) (Region, bool, error)
	// PutRegion stores a region under its key, replacing any prior state.
	PutRegion(ctx context.Context, r Region) error
	// DeleteRegion removes a region.
	DeleteRegion(ctx context.Context, key domain.RegionKey) error
	// Invalidate marks a region stale so the refresher refetches it.
	Invalidate(ctx context.Context, key domain.RegionKey) error
	// TakeInvalidated drains and returns the set of stale region keys.
	TakeInvalidated(ctx context.Context) ([]domain.RegionKey, error)
}
