package control

import (
	"context"
	"fmt"
	"net/url"

	"github.com/quangtm/stashsync/internal/cache"
	"github.com/quangtm/stashsync/internal/core/domain"
	"github.com/quangtm/stashsync/internal/intent"
	"github.com/quangtm/stashsync/internal/mutation"
)

type itemsPage struct {
	Items      []domain.ItemSummary `json:"items"`
	NextCursor string               `json:"next_cursor"`
}

// ListItems returns a collection's cached items, fetching the first page on
// a cache miss.
func (a *Agent) ListItems(ctx context.Context, collectionID domain.CollectionID) ([]domain.ItemSummary, error) {
	key := domain.ItemsRegion(collectionID)
	region, ok, err := a.store.Region(ctx, key)
	if err != nil {
		return nil, err
	}
	if ok && len(region.Pages) > 0 {
		return region.Items(), nil
	}

	page, err := a.fetchItemsPage(ctx, collectionID, "")
	if err != nil {
		return nil, err
	}
	region = cache.Region{Key: key, Pages: []cache.Page{page}}
	if err := a.store.PutRegion(ctx, region); err != nil {
		return nil, err
	}
	return region.Items(), nil
}

// LoadMore fetches the next page of a collection using the region's cursor
// and appends it. Returns the newly fetched items and whether more remain.
func (a *Agent) LoadMore(ctx context.Context, collectionID domain.CollectionID) ([]domain.ItemSummary, bool, error) {
	key := domain.ItemsRegion(collectionID)
	region, ok, err := a.store.Region(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		// Cold cache: the first page doubles as the "next" page. Report the
		// cursor state it came back with, not a guess.
		items, err := a.ListItems(ctx, collectionID)
		if err != nil {
			return nil, false, err
		}
		region, _, err = a.store.Region(ctx, key)
		if err != nil {
			return nil, false, err
		}
		return items, region.NextCursor() != "", nil
	}

	cursor := region.NextCursor()
	if cursor == "" {
		return nil, false, nil
	}

	page, err := a.fetchItemsPage(ctx, collectionID, cursor)
	if err != nil {
		return nil, false, err
	}
	region = cache.AppendPage(region, page)
	if err := a.store.PutRegion(ctx, region); err != nil {
		return nil, false, err
	}
	return page.Items, page.NextCursor != "", nil
}

// DeleteItem removes an item optimistically: struck from the list and detail
// regions immediately, restored verbatim if the service call fails.
func (a *Agent) DeleteItem(ctx context.Context, collectionID domain.CollectionID, id domain.ItemID) error {
	return a.coord.Run(ctx, mutation.Mutation{
		Name: "delete_item",
		Affected: []domain.RegionKey{
			domain.ItemsRegion(collectionID),
			domain.ItemRegion(id),
		},
		Apply: func(_ domain.RegionKey, r cache.Region) cache.Region {
			return cache.RemoveItem(r, id)
		},
		Call: func(ctx context.Context) error {
			return a.client.Delete(ctx, "/v1/items/"+string(id), nil)
		},
		// The containing collection's item count is now stale.
		Invalidate: []domain.RegionKey{domain.CollectionsRegion()},
	})
}

// ArchiveItem marks an item archived optimistically.
func (a *Agent) ArchiveItem(ctx context.Context, collectionID domain.CollectionID, item domain.ItemSummary) error {
	archived := item
	archived.Archived = true
	return a.coord.Run(ctx, mutation.Mutation{
		Name: "archive_item",
		Affected: []domain.RegionKey{
			domain.ItemsRegion(collectionID),
			domain.ItemRegion(item.ID),
		},
		Apply: func(_ domain.RegionKey, r cache.Region) cache.Region {
			return cache.ReplaceItem(r, archived)
		},
		Call: func(ctx context.Context) error {
			return a.client.Put(ctx, "/v1/items/"+string(item.ID)+"/archive", nil, nil)
		},
	})
}

// UpdateItem replaces an item's summary optimistically.
func (a *Agent) UpdateItem(ctx context.Context, collectionID domain.CollectionID, item domain.ItemSummary) error {
	return a.coord.Run(ctx, mutation.Mutation{
		Name: "update_item",
		Affected: []domain.RegionKey{
			domain.ItemsRegion(collectionID),
			domain.ItemRegion(item.ID),
		},
		Apply: func(_ domain.RegionKey, r cache.Region) cache.Region {
			return cache.ReplaceItem(r, item)
		},
		Call: func(ctx context.Context) error {
			return a.client.Put(ctx, "/v1/items/"+string(item.ID), item, nil)
		},
	})
}

// RenameCollection renames a collection optimistically. The cached entry in
// the collections region is replaced with the renamed projection and restored
// if the service call fails.
func (a *Agent) RenameCollection(ctx context.Context, id domain.CollectionID, name string) error {
	renamed := domain.Collection{ID: id, Name: name}.Summary()
	return a.coord.Run(ctx, mutation.Mutation{
		Name:     "rename_collection",
		Affected: []domain.RegionKey{domain.CollectionsRegion()},
		Apply: func(_ domain.RegionKey, r cache.Region) cache.Region {
			return cache.ReplaceItem(r, renamed)
		},
		Call: func(ctx context.Context) error {
			return a.client.Put(ctx, "/v1/collections/"+string(id), map[string]string{"name": name}, nil)
		},
	})
}

// SaveURL queues a shared URL for import. Returns false when an import for
// the same normalized URL is already queued or in flight.
func (a *Agent) SaveURL(ctx context.Context, rawURL string) bool {
	return a.queue.Enqueue(ctx, intent.NormalizeURL(rawURL), rawURL)
}

// importEntry is the intent queue processor: one import per entry, each an
// independent call. Failures are reported by the queue and never block the
// next entry.
func (a *Agent) importEntry(ctx context.Context, e intent.Entry) error {
	var item domain.Item
	if err := a.client.Post(ctx, "/v1/items", map[string]string{"url": e.Key}, &item); err != nil {
		return err
	}

	// The item's collection list and the collection counts are stale now.
	if err := a.store.Invalidate(ctx, domain.ItemsRegion(item.CollectionID)); err != nil {
		return err
	}
	return a.store.Invalidate(ctx, domain.CollectionsRegion())
}

func (a *Agent) fetchItemsPage(ctx context.Context, collectionID domain.CollectionID, cursor string) (cache.Page, error) {
	q := url.Values{}
	q.Set("collection", string(collectionID))
	if cursor != "" {
		q.Set("cursor", cursor)
	}

	var page itemsPage
	if err := a.client.Get(ctx, "/v1/items?"+q.Encode(), &page); err != nil {
		return cache.Page{}, fmt.Errorf("fetch items page: %w", err)
	}
	return cache.Page{Items: page.Items, NextCursor: page.NextCursor}, nil
}
