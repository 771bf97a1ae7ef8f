package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/quangtm/stashsync/internal/cache"
	"github.com/quangtm/stashsync/internal/core/domain"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(context.Background(), Config{Path: filepath.Join(t.TempDir(), "stash.db")})
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRegionRepo_RoundTrip(t *testing.T) {
	repo := NewRegionRepo(newTestDB(t))
	ctx := context.Background()

	key := domain.ItemsRegion("inbox")
	region := cache.Region{Key: key, Pages: []cache.Page{{
		Items:      []domain.ItemSummary{{ID: "a", Title: "first", URL: "https://x.com/a"}},
		NextCursor: "p2",
	}}}
	if err := repo.PutRegion(ctx, region); err != nil {
		t.Fatalf("PutRegion: %v", err)
	}

	got, ok, err := repo.Region(ctx, key)
	if err != nil || !ok {
		t.Fatalf("Region = ok %v, err %v", ok, err)
	}
	if got.Key != key || got.NextCursor() != "p2" || len(got.Items()) != 1 {
		t.Errorf("round-tripped region = %+v", got)
	}
}

func TestRegionRepo_InvalidateDoesNotMaterializeRegion(t *testing.T) {
	repo := NewRegionRepo(newTestDB(t))
	ctx := context.Background()

	key := domain.ItemsRegion("never-cached")
	if err := repo.Invalidate(ctx, key); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}

	// The mark alone must not make the region readable.
	_, ok, err := repo.Region(ctx, key)
	if err != nil {
		t.Fatalf("Region: %v", err)
	}
	if ok {
		t.Error("invalidating an uncached key materialized a region")
	}

	keys, err := repo.TakeInvalidated(ctx)
	if err != nil {
		t.Fatalf("TakeInvalidated: %v", err)
	}
	if len(keys) != 1 || keys[0] != key {
		t.Errorf("TakeInvalidated = %v, want [%s]", keys, key)
	}

	// Drained: a second take is empty.
	keys, _ = repo.TakeInvalidated(ctx)
	if len(keys) != 0 {
		t.Errorf("second TakeInvalidated = %v, want empty", keys)
	}
}

func TestRegionRepo_DeleteClearsInvalidation(t *testing.T) {
	repo := NewRegionRepo(newTestDB(t))
	ctx := context.Background()

	key := domain.ItemsRegion("inbox")
	if err := repo.PutRegion(ctx, cache.Region{Key: key}); err != nil {
		t.Fatalf("PutRegion: %v", err)
	}
	if err := repo.Invalidate(ctx, key); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if err := repo.DeleteRegion(ctx, key); err != nil {
		t.Fatalf("DeleteRegion: %v", err)
	}

	keys, err := repo.TakeInvalidated(ctx)
	if err != nil {
		t.Fatalf("TakeInvalidated: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("TakeInvalidated after delete = %v, want empty", keys)
	}
}

func TestSessionRepo_PersistsAcrossLoads(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	repo, err := NewSessionRepo(ctx, db)
	if err != nil {
		t.Fatalf("NewSessionRepo: %v", err)
	}
	repo.Set("persisted-token")

	// A fresh repo over the same database sees the sign-in.
	reloaded, err := NewSessionRepo(ctx, db)
	if err != nil {
		t.Fatalf("NewSessionRepo (reload): %v", err)
	}
	if tok, ok := reloaded.Credential(); !ok || tok != "persisted-token" {
		t.Errorf("Credential = %q, %v after reload", tok, ok)
	}

	repo.Clear()
	reloaded, err = NewSessionRepo(ctx, db)
	if err != nil {
		t.Fatalf("NewSessionRepo (after clear): %v", err)
	}
	if _, ok := reloaded.Credential(); ok {
		t.Error("credential survived Clear")
	}
}

func TestSessionRepo_MemoryAndDiskAgreeUnderConcurrency(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	repo, err := NewSessionRepo(ctx, db)
	if err != nil {
		t.Fatalf("NewSessionRepo: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		token := fmt.Sprintf("token-%d", i)
		wg.Add(2)
		go func() {
			defer wg.Done()
			repo.Set(token)
		}()
		go func() {
			defer wg.Done()
			repo.Clear()
		}()
	}
	wg.Wait()

	// Whatever write landed last, the memory copy and the row must match.
	mem, ok := repo.Credential()
	var disk string
	err = db.Get(&disk, `SELECT token FROM session WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		disk = ""
	} else if err != nil {
		t.Fatalf("read session row: %v", err)
	}
	if mem != disk || ok != (disk != "") {
		t.Errorf("memory token %q (ok %v) diverged from persisted %q", mem, ok, disk)
	}
}
