package cache

import (
	"reflect"
	"testing"

	"github.com/quangtm/stashsync/internal/core/domain"
)

func twoPageRegion() Region {
	return Region{
		Key: domain.ItemsRegion("inbox"),
		Pages: []Page{
			{
				Items: []domain.ItemSummary{
					{ID: "a", Title: "first"},
					{ID: "b", Title: "second"},
				},
				NextCursor: "p2",
			},
			{
				Items: []domain.ItemSummary{
					{ID: "c", Title: "third"},
					{ID: "d", Title: "fourth"},
				},
			},
		},
	}
}

func TestRegion_Clone_NoAliasing(t *testing.T) {
	orig := twoPageRegion()
	clone := orig.Clone()

	clone.Pages[0].Items[0].Title = "mutated"
	clone.Pages[1].Items = append(clone.Pages[1].Items, domain.ItemSummary{ID: "e"})

	if orig.Pages[0].Items[0].Title != "first" {
		t.Error("clone mutation leaked into original page items")
	}
	if len(orig.Pages[1].Items) != 2 {
		t.Error("clone append leaked into original page")
	}
}

func TestRemoveItem_IsPure(t *testing.T) {
	orig := twoPageRegion()
	edited := RemoveItem(orig, "c")

	if edited.Contains("c") {
		t.Error("item still present after RemoveItem")
	}
	if !orig.Contains("c") {
		t.Error("RemoveItem mutated its input")
	}
	if len(edited.Pages) != 2 {
		t.Errorf("pages = %d, want cursors preserved across both pages", len(edited.Pages))
	}
	if edited.Pages[0].NextCursor != "p2" {
		t.Error("cursor lost during RemoveItem")
	}
}

func TestRemoveItem_StrikesEveryPage(t *testing.T) {
	r := twoPageRegion()
	// Duplicate an id across pages, as can happen transiently mid-refetch.
	r.Pages[1].Items = append(r.Pages[1].Items, domain.ItemSummary{ID: "a"})

	edited := RemoveItem(r, "a")
	if edited.Contains("a") {
		t.Error("RemoveItem left an occurrence behind")
	}
}

func TestReplaceItem(t *testing.T) {
	orig := twoPageRegion()
	edited := ReplaceItem(orig, domain.ItemSummary{ID: "b", Title: "renamed", Archived: true})

	got := edited.Pages[0].Items[1]
	if got.Title != "renamed" || !got.Archived {
		t.Errorf("replaced item = %+v, want renamed+archived", got)
	}
	if orig.Pages[0].Items[1].Title != "second" {
		t.Error("ReplaceItem mutated its input")
	}
}

func TestRegion_ItemsAndCursor(t *testing.T) {
	r := twoPageRegion()

	items := r.Items()
	ids := make([]domain.ItemID, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	want := []domain.ItemID{"a", "b", "c", "d"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("flattened ids = %v, want %v", ids, want)
	}

	if cursor := r.NextCursor(); cursor != "" {
		t.Errorf("NextCursor = %q, want last page cursor", cursor)
	}

	r = AppendPage(r, Page{Items: []domain.ItemSummary{{ID: "e"}}, NextCursor: "p4"})
	if cursor := r.NextCursor(); cursor != "p4" {
		t.Errorf("NextCursor = %q, want p4", cursor)
	}
}
