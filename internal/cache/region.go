package cache

import "github.com/quangtm/stashsync/internal/core/domain"

// Page is one fetched page of a region: an ordered slice of entities plus
// the cursor for the page after it. An empty NextCursor means the region is
// fully loaded.
type Page struct {
	Items      []domain.ItemSummary `json:"items"`
	NextCursor string               `json:"next_cursor,omitempty"`
}

// Region is an addressable, paginated local copy of a remote collection.
// Item IDs are unique across all pages while the region is stable.
type Region struct {
	Key   domain.RegionKey `json:"key"`
	Pages []Page           `json:"pages"`
}

// Clone deep-copies the region so callers can never alias live pages.
func (r Region) Clone() Region {
	out := Region{Key: r.Key}
	if r.Pages == nil {
		return out
	}
	out.Pages = make([]Page, len(r.Pages))
	for i, p := range r.Pages {
		cp := Page{NextCursor: p.NextCursor}
		if p.Items != nil {
			cp.Items = make([]domain.ItemSummary, len(p.Items))
			copy(cp.Items, p.Items)
		}
		out.Pages[i] = cp
	}
	return out
}

// Contains reports whether an item with the given id is present on any page.
func (r Region) Contains(id domain.ItemID) bool {
	for _, p := range r.Pages {
		for _, it := range p.Items {
			if it.ID == id {
				return true
			}
		}
	}
	return false
}

// Items flattens all pages in order.
func (r Region) Items() []domain.ItemSummary {
	var out []domain.ItemSummary
	for _, p := range r.Pages {
		out = append(out, p.Items...)
	}
	return out
}

// NextCursor returns the cursor of the last page, the position pagination
// resumes from.
func (r Region) NextCursor() string {
	if len(r.Pages) == 0 {
		return ""
	}
	return r.Pages[len(r.Pages)-1].NextCursor
}

// RemoveItem returns a copy of the region with the item struck from every
// page. Pages left empty are kept so cursors stay valid.
func RemoveItem(r Region, id domain.ItemID) Region {
	out := r.Clone()
	for i := range out.Pages {
		items := out.Pages[i].Items[:0]
		for _, it := range out.Pages[i].Items {
			if it.ID != id {
				items = append(items, it)
			}
		}
		out.Pages[i].Items = items
	}
	return out
}

// ReplaceItem returns a copy of the region with every occurrence of the
// item's id replaced by the given summary.
func ReplaceItem(r Region, item domain.ItemSummary) Region {
	out := r.Clone()
	for i := range out.Pages {
		for j := range out.Pages[i].Items {
			if out.Pages[i].Items[j].ID == item.ID {
				out.Pages[i].Items[j] = item
			}
		}
	}
	return out
}

// AppendPage returns a copy of the region with the page added at the end.
func AppendPage(r Region, p Page) Region {
	out := r.Clone()
	out.Pages = append(out.Pages, p)
	return out
}
