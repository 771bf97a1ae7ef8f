package cache

import (
	"context"
	"sync"

	"github.com/quangtm/stashsync/internal/core/domain"
	"github.com/quangtm/stashsync/internal/metrics"
)

// MemoryStore is the in-process Store used by a single-device client.
type MemoryStore struct {
	mu          sync.RWMutex
	regions     map[domain.RegionKey]Region
	invalidated map[domain.RegionKey]struct{}
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		regions:     make(map[domain.RegionKey]Region),
		invalidated: make(map[domain.RegionKey]struct{}),
	}
}

func (s *MemoryStore) Region(_ context.Context, key domain.RegionKey) (Region, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.regions[key]
	if !ok {
		return Region{}, false, nil
	}
	return r.Clone(), true, nil
}

func (s *MemoryStore) PutRegion(_ context.Context, r Region) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regions[r.Key] = r.Clone()
	metrics.CacheRegions.Set(float64(len(s.regions)))
	return nil
}

func (s *MemoryStore) DeleteRegion(_ context.Context, key domain.RegionKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.regions, key)
	delete(s.invalidated, key)
	metrics.CacheRegions.Set(float64(len(s.regions)))
	return nil
}

func (s *MemoryStore) Invalidate(_ context.Context, key domain.RegionKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidated[key] = struct{}{}
	return nil
}

func (s *MemoryStore) TakeInvalidated(_ context.Context) ([]domain.RegionKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.invalidated) == 0 {
		return nil, nil
	}
	keys := make([]domain.RegionKey, 0, len(s.invalidated))
	for k := range s.invalidated {
		keys = append(keys, k)
	}
	s.invalidated = make(map[domain.RegionKey]struct{})
	return keys, nil
}
