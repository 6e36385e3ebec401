package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"simtrack/internal/shop/models"
	id "simtrack/pkg/domain"
	"simtrack/pkg/platform/sentinel"
)

// MemoryStore keeps shops in process memory behind a mutex, handing out deep
// copies.
type MemoryStore struct {
	mu    sync.RWMutex
	shops map[id.ShopID]*models.Shop
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{shops: make(map[id.ShopID]*models.Shop)}
}

func (s *MemoryStore) Create(_ context.Context, shop *models.Shop) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shops[shop.ID] = shop.Clone()
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, shopID id.ShopID) (*models.Shop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	shop, ok := s.shops[shopID]
	if !ok {
		return nil, fmt.Errorf("shop %s: %w", shopID, sentinel.ErrNotFound)
	}
	return shop.Clone(), nil
}

func (s *MemoryStore) List(_ context.Context) ([]*models.Shop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Shop, 0, len(s.shops))
	for _, shop := range s.shops {
		out = append(out, shop.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AddedDate.Equal(out[j].AddedDate) {
			return out[i].Name < out[j].Name
		}
		return out[i].AddedDate.After(out[j].AddedDate)
	})
	return out, nil
}

func (s *MemoryStore) Update(_ context.Context, shop *models.Shop) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.shops[shop.ID]; !ok {
		return fmt.Errorf("shop %s: %w", shop.ID, sentinel.ErrNotFound)
	}
	s.shops[shop.ID] = shop.Clone()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, shopID id.ShopID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.shops[shopID]; !ok {
		return fmt.Errorf("shop %s: %w", shopID, sentinel.ErrNotFound)
	}
	delete(s.shops, shopID)
	return nil
}

func (s *MemoryStore) Count(_ context.Context) (total, active int, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, shop := range s.shops {
		total++
		if shop.Status == models.ShopStatusActive {
			active++
		}
	}
	return total, active, nil
}

func (s *MemoryStore) CountByRegion(_ context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[string]int)
	for _, shop := range s.shops {
		counts[shop.Region]++
	}
	return counts, nil
}
