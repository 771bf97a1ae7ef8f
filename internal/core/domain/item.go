package domain

import "time"

type ItemID string

type CollectionID string

// ItemSummary is the list-view projection of a saved item. Paginated list
// responses and cached regions carry summaries, not full items.
type ItemSummary struct {
	ID       ItemID    `json:"id"`
	URL      string    `json:"url"`
	Title    string    `json:"title"`
	Excerpt  string    `json:"excerpt,omitempty"`
	Archived bool      `json:"archived"`
	SavedAt  time.Time `json:"saved_at"`
}

// Item is the full detail of a saved item.
type Item struct {
	ItemSummary
	Content      string       `json:"content,omitempty"`
	Tags         []string     `json:"tags,omitempty"`
	CollectionID CollectionID `json:"collection_id"`
}

// Collection groups saved items. ItemCount is a server-maintained counter
// that goes stale after local mutations and is refreshed via invalidation.
type Collection struct {
	ID        CollectionID `json:"id"`
	Name      string       `json:"name"`
	ItemCount int          `json:"item_count"`
}

// Summary projects the collection into the shared region entry form: ID and
// Name land in the summary's ID and Title. The collections region caches
// these projections.
func (c Collection) Summary() ItemSummary {
	return ItemSummary{ID: ItemID(c.ID), Title: c.Name}
}
