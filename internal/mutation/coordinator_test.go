package mutation

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/quangtm/stashsync/internal/cache"
	"github.com/quangtm/stashsync/internal/core/domain"
)

func seedRegion(t *testing.T, s cache.Store) cache.Region {
	t.Helper()
	r := cache.Region{
		Key: domain.ItemsRegion("inbox"),
		Pages: []cache.Page{
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
				},
			},
		},
	}
	if err := s.PutRegion(context.Background(), r); err != nil {
		t.Fatalf("seed region: %v", err)
	}
	return r
}

func deleteMutation(s cache.Store, id domain.ItemID, call func(ctx context.Context) error) Mutation {
	return Mutation{
		Name:     "delete_item",
		Affected: []domain.RegionKey{domain.ItemsRegion("inbox")},
		Apply: func(_ domain.RegionKey, r cache.Region) cache.Region {
			return cache.RemoveItem(r, id)
		},
		Call:       call,
		Invalidate: []domain.RegionKey{domain.CollectionsRegion()},
	}
}

func TestCoordinator_CommitKeepsOptimisticEdit(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	seedRegion(t, store)
	coord := New(store)

	var optimisticallyGone bool
	m := deleteMutation(store, "a", func(ctx context.Context) error {
		// The UI must see the edit before the network call resolves.
		r, _, _ := store.Region(ctx, domain.ItemsRegion("inbox"))
		optimisticallyGone = !r.Contains("a")
		return nil
	})

	if err := coord.Run(ctx, m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !optimisticallyGone {
		t.Error("edit not visible during the network call")
	}

	r, _, _ := store.Region(ctx, domain.ItemsRegion("inbox"))
	if r.Contains("a") {
		t.Error("item reappeared after commit")
	}

	keys, _ := store.TakeInvalidated(ctx)
	if len(keys) != 1 || keys[0] != domain.CollectionsRegion() {
		t.Errorf("invalidated = %v, want collections region", keys)
	}
}

func TestCoordinator_RollbackRestoresSnapshot(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	before := seedRegion(t, store)
	coord := New(store)

	callErr := errors.New("500 after retries")
	m := deleteMutation(store, "b", func(ctx context.Context) error {
		return callErr
	})

	err := coord.Run(ctx, m)
	if !errors.Is(err, callErr) {
		t.Fatalf("err = %v, want the call error propagated", err)
	}

	after, _, _ := store.Region(ctx, domain.ItemsRegion("inbox"))
	if !reflect.DeepEqual(after, before) {
		t.Errorf("region after rollback = %+v, want original order restored", after)
	}

	if keys, _ := store.TakeInvalidated(ctx); len(keys) != 0 {
		t.Errorf("invalidation fired on failure: %v", keys)
	}
}

func TestCoordinator_RollbackOverwritesBackgroundAdvance(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	before := seedRegion(t, store)
	coord := New(store)

	m := deleteMutation(store, "b", func(ctx context.Context) error {
		// A background refetch advances the region mid-flight. Rollback must
		// restore the literal pre-mutation snapshot, not merge with this.
		advanced := cache.Region{
			Key:   domain.ItemsRegion("inbox"),
			Pages: []cache.Page{{Items: []domain.ItemSummary{{ID: "z"}}}},
		}
		_ = store.PutRegion(ctx, advanced)
		return errors.New("boom")
	})

	if err := coord.Run(ctx, m); err == nil {
		t.Fatal("expected error")
	}

	after, _, _ := store.Region(ctx, domain.ItemsRegion("inbox"))
	if !reflect.DeepEqual(after, before) {
		t.Errorf("rollback did not restore the snapshot verbatim: %+v", after)
	}
}

func TestCoordinator_UnrelatedRegionUntouchedByRollback(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	seedRegion(t, store)
	other := cache.Region{
		Key:   domain.ItemsRegion("archive"),
		Pages: []cache.Page{{Items: []domain.ItemSummary{{ID: "x"}}}},
	}
	_ = store.PutRegion(ctx, other)
	coord := New(store)

	m := deleteMutation(store, "a", func(ctx context.Context) error {
		return errors.New("boom")
	})
	if err := coord.Run(ctx, m); err == nil {
		t.Fatal("expected error")
	}

	got, ok, _ := store.Region(ctx, domain.ItemsRegion("archive"))
	if !ok || !got.Contains("x") {
		t.Error("rollback touched an unrelated region")
	}
}

func TestCoordinator_MissingAffectedRegionIsNoop(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	coord := New(store)

	applied := false
	m := Mutation{
		Name:     "delete_item",
		Affected: []domain.RegionKey{domain.ItemsRegion("empty")},
		Apply: func(_ domain.RegionKey, r cache.Region) cache.Region {
			applied = true
			return r
		},
		Call: func(ctx context.Context) error { return nil },
	}

	if err := coord.Run(ctx, m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if applied {
		t.Error("Apply ran against a region that was never fetched")
	}
	if _, ok, _ := store.Region(ctx, domain.ItemsRegion("empty")); ok {
		t.Error("mutation materialized a region out of nothing")
	}
}
