package control

import (
	"context"
	"log/slog"
	"time"

	"github.com/quangtm/stashsync/internal/cache"
	"github.com/quangtm/stashsync/internal/core/domain"
)

// Refresher periodically drains invalidated region keys and brings those
// regions back in line with the service. Item-list regions are refetched
// from their first page; anything else is dropped so the next read refetches.
type Refresher struct {
	agent    *Agent
	interval time.Duration
}

// NewRefresher creates a Refresher polling at the given interval.
func NewRefresher(agent *Agent, interval time.Duration) *Refresher {
	return &Refresher{agent: agent, interval: interval}
}

// Start runs the refresh loop until the context is canceled.
func (r *Refresher) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

func (r *Refresher) refresh(ctx context.Context) {
	keys, err := r.agent.store.TakeInvalidated(ctx)
	if err != nil {
		slog.Warn("Failed to drain invalidated regions", "error", err)
		return
	}

	for _, key := range keys {
		if err := r.refreshRegion(ctx, key); err != nil {
			slog.Warn("Failed to refresh region", "region", key, "error", err)
			// Re-mark so the next cycle retries.
			if ierr := r.agent.store.Invalidate(ctx, key); ierr != nil {
				slog.Error("Failed to re-invalidate region", "region", key, "error", ierr)
			}
		}
	}
}

func (r *Refresher) refreshRegion(ctx context.Context, key domain.RegionKey) error {
	collectionID, ok := key.ItemsCollection()
	if !ok {
		// No refetch recipe for this region; drop it and let the next read
		// repopulate from the source of truth.
		return r.agent.store.DeleteRegion(ctx, key)
	}

	page, err := r.agent.fetchItemsPage(ctx, collectionID, "")
	if err != nil {
		return err
	}
	return r.agent.store.PutRegion(ctx, cache.Region{
		Key:   key,
		Pages: []cache.Page{page},
	})
}
