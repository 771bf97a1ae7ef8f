package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/quangtm/stashsync/internal/cache"
	"github.com/quangtm/stashsync/internal/core/domain"
	"github.com/quangtm/stashsync/internal/metrics"
)

// RegionRepo implements cache.Store on SQLite so a single-device client
// keeps its cached regions across restarts.
type RegionRepo struct {
	db *DB
}

// NewRegionRepo creates a RegionRepo over the given database.
func NewRegionRepo(db *DB) *RegionRepo {
	return &RegionRepo{db: db}
}

func (r *RegionRepo) Region(ctx context.Context, key domain.RegionKey) (cache.Region, bool, error) {
	var body []byte
	err := r.db.GetContext(ctx, &body, `SELECT body FROM regions WHERE key = ?`, string(key))
	if errors.Is(err, sql.ErrNoRows) {
		return cache.Region{}, false, nil
	}
	if err != nil {
		return cache.Region{}, false, fmt.Errorf("get region: %w", err)
	}

	var region cache.Region
	if err := json.Unmarshal(body, &region); err != nil {
		return cache.Region{}, false, fmt.Errorf("decode region: %w", err)
	}
	return region, true, nil
}

func (r *RegionRepo) PutRegion(ctx context.Context, region cache.Region) error {
	body, err := json.Marshal(region)
	if err != nil {
		return fmt.Errorf("encode region: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO regions (key, body, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (key) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		string(region.Key), body, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("put region: %w", err)
	}
	r.setRegionGauge(ctx)
	return nil
}

func (r *RegionRepo) DeleteRegion(ctx context.Context, key domain.RegionKey) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM regions WHERE key = ?`, string(key)); err != nil {
		return fmt.Errorf("delete region: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM invalidated_keys WHERE key = ?`, string(key)); err != nil {
		return fmt.Errorf("delete invalidation mark: %w", err)
	}
	r.setRegionGauge(ctx)
	return nil
}

// Invalidate marks a key stale without materializing a region row for it.
func (r *RegionRepo) Invalidate(ctx context.Context, key domain.RegionKey) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO invalidated_keys (key) VALUES (?) ON CONFLICT (key) DO NOTHING`,
		string(key),
	)
	if err != nil {
		return fmt.Errorf("invalidate region: %w", err)
	}
	return nil
}

func (r *RegionRepo) TakeInvalidated(ctx context.Context) ([]domain.RegionKey, error) {
	var raw []string
	err := r.db.SelectContext(ctx, &raw, `SELECT key FROM invalidated_keys`)
	if err != nil {
		return nil, fmt.Errorf("take invalidated: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	// Only drop the keys we are handing out; marks added meanwhile survive
	// for the next drain.
	query, args, err := sqlx.In(`DELETE FROM invalidated_keys WHERE key IN (?)`, raw)
	if err != nil {
		return nil, fmt.Errorf("reset invalidated: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("reset invalidated: %w", err)
	}

	keys := make([]domain.RegionKey, len(raw))
	for i, k := range raw {
		keys[i] = domain.RegionKey(k)
	}
	return keys, nil
}

func (r *RegionRepo) setRegionGauge(ctx context.Context) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM regions`); err != nil {
		return
	}
	metrics.CacheRegions.Set(float64(n))
}
