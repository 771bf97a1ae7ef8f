package mutation

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/quangtm/stashsync/internal/cache"
	"github.com/quangtm/stashsync/internal/core/domain"
	"github.com/quangtm/stashsync/internal/metrics"
)

// State tracks where a mutation is in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateSnapshotting
	StateApplying
	StateCommitting
	StateRollingBack
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSnapshotting:
		return "snapshotting"
	case StateApplying:
		return "applying"
	case StateCommitting:
		return "committing"
	case StateRollingBack:
		return "rolling_back"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Mutation describes one optimistic edit: the regions it touches, a pure
// transform applied to each, the network call that confirms it, and the
// dependent regions to invalidate on success.
type Mutation struct {
	Name     string
	Affected []domain.RegionKey
	// Apply transforms a region's pre-state into its optimistic state. It
	// must be pure: no reads of current store state, no retained references.
	Apply func(key domain.RegionKey, r cache.Region) cache.Region
	// Call confirms the edit against the service.
	Call func(ctx context.Context) error
	// Invalidate lists dependent regions to refresh after a commit.
	Invalidate []domain.RegionKey
}

// Coordinator runs optimistic mutations against a cache store:
// snapshot, apply, call, then commit or roll back.
type Coordinator struct {
	store cache.Store
}

// New creates a Coordinator over the given store.
func New(store cache.Store) *Coordinator {
	return &Coordinator{store: store}
}

// snapshot is the captured pre-state of one region. Absent regions are
// remembered so rollback can delete what the mutation created.
type snapshot struct {
	region  cache.Region
	existed bool
}

// Run executes the mutation. The UI sees the optimistic state as soon as
// Apply lands; on failure every affected region is restored verbatim from its
// snapshot and the error propagates to the caller.
func (c *Coordinator) Run(ctx context.Context, m Mutation) error {
	id := uuid.NewString()
	logger := slog.With("mutation", m.Name, "id", id)

	state := StateSnapshotting
	logger.Debug("Mutation state", "state", state)
	snapshots := make(map[domain.RegionKey]snapshot, len(m.Affected))
	for _, key := range m.Affected {
		r, ok, err := c.store.Region(ctx, key)
		if err != nil {
			metrics.Mutations.WithLabelValues(m.Name, "snapshot_error").Inc()
			return err
		}
		snapshots[key] = snapshot{region: r, existed: ok}
	}

	state = StateApplying
	logger.Debug("Mutation state", "state", state)
	for _, key := range m.Affected {
		snap := snapshots[key]
		if !snap.existed {
			continue
		}
		edited := m.Apply(key, snap.region.Clone())
		edited.Key = key
		if err := c.store.PutRegion(ctx, edited); err != nil {
			c.rollback(ctx, logger, snapshots)
			metrics.Mutations.WithLabelValues(m.Name, "apply_error").Inc()
			return err
		}
	}

	if err := m.Call(ctx); err != nil {
		state = StateRollingBack
		logger.Debug("Mutation state", "state", state)
		c.rollback(ctx, logger, snapshots)
		metrics.Mutations.WithLabelValues(m.Name, "rolled_back").Inc()
		return err
	}

	state = StateCommitting
	logger.Debug("Mutation state", "state", state)
	for _, key := range m.Invalidate {
		if err := c.store.Invalidate(ctx, key); err != nil {
			logger.Warn("Failed to invalidate region", "region", key, "error", err)
		}
	}

	state = StateDone
	metrics.Mutations.WithLabelValues(m.Name, "committed").Inc()
	logger.Debug("Mutation state", "state", state)
	return nil
}

// rollback restores every affected region from its literal snapshot. It never
// reads current store state: background refetches may have advanced it, and
// the contract is to restore the pre-mutation capture.
func (c *Coordinator) rollback(ctx context.Context, logger *slog.Logger, snapshots map[domain.RegionKey]snapshot) {
	metrics.Rollbacks.Inc()
	for key, snap := range snapshots {
		var err error
		if snap.existed {
			err = c.store.PutRegion(ctx, snap.region)
		} else {
			err = c.store.DeleteRegion(ctx, key)
		}
		if err != nil {
			logger.Error("Failed to restore region from snapshot", "region", key, "error", err)
		}
	}
}
