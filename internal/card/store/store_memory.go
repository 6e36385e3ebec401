package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"simtrack/internal/card/models"
	id "simtrack/pkg/domain"
	"simtrack/pkg/platform/sentinel"
)

// MemoryStore keeps cards in process memory. It hands out deep copies so
// callers can never mutate shared state behind the mutex.
type MemoryStore struct {
	mu    sync.RWMutex
	cards map[id.CardID]*models.SimCard
	codes map[string]id.CardID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cards: make(map[id.CardID]*models.SimCard),
		codes: make(map[string]id.CardID),
	}
}

func (s *MemoryStore) Create(_ context.Context, card *models.SimCard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.codes[card.Code]; exists {
		return fmt.Errorf("card code %q: %w", card.Code, sentinel.ErrAlreadyUsed)
	}
	s.cards[card.ID] = card.Clone()
	s.codes[card.Code] = card.ID
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, cardID id.CardID) (*models.SimCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	card, ok := s.cards[cardID]
	if !ok {
		return nil, fmt.Errorf("card %s: %w", cardID, sentinel.ErrNotFound)
	}
	return card.Clone(), nil
}

// FindByIDForUpdate has no row lock to take in memory. Callers that must
// hold the load-mutate-update window closed run under tx.SerialRunner.
func (s *MemoryStore) FindByIDForUpdate(ctx context.Context, cardID id.CardID) (*models.SimCard, error) {
	return s.FindByID(ctx, cardID)
}

func (s *MemoryStore) FindByCode(_ context.Context, code string) (*models.SimCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cardID, ok := s.codes[code]
	if !ok {
		return nil, fmt.Errorf("card code %q: %w", code, sentinel.ErrNotFound)
	}
	return s.cards[cardID].Clone(), nil
}

func (s *MemoryStore) List(_ context.Context, filter Filter) ([]*models.SimCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.SimCard, 0, len(s.cards))
	for _, card := range s.cards {
		if filter.Status != "" && card.Status != filter.Status {
			continue
		}
		if !filter.ShopID.IsNil() && (card.AssignedTo == nil || *card.AssignedTo != filter.ShopID) {
			continue
		}
		out = append(out, card.Clone())
	}
	sortByAddedDate(out)
	return out, nil
}

func (s *MemoryStore) ListAvailableForUpdate(_ context.Context, limit int) ([]*models.SimCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.SimCard, 0, limit)
	for _, card := range s.cards {
		if card.Status == id.CardStatusAvailable {
			out = append(out, card.Clone())
		}
	}
	sortByAddedDate(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Update(_ context.Context, card *models.SimCard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cards[card.ID]; !ok {
		return fmt.Errorf("card %s: %w", card.ID, sentinel.ErrNotFound)
	}
	s.cards[card.ID] = card.Clone()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, cardID id.CardID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	card, ok := s.cards[cardID]
	if !ok {
		return fmt.Errorf("card %s: %w", cardID, sentinel.ErrNotFound)
	}
	delete(s.codes, card.Code)
	delete(s.cards, cardID)
	return nil
}

func (s *MemoryStore) ReleaseByShop(_ context.Context, shopID id.ShopID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	released := 0
	for _, card := range s.cards {
		if card.AssignedTo != nil && *card.AssignedTo == shopID && card.Status != id.CardStatusSold {
			card.Release()
			released++
		}
	}
	return released, nil
}

func (s *MemoryStore) CountByStatus(_ context.Context) (map[id.CardStatus]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[id.CardStatus]int)
	for _, card := range s.cards {
		counts[card.Status]++
	}
	return counts, nil
}

func (s *MemoryStore) CountByShop(_ context.Context, shopID id.ShopID) (assigned, sold int, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, card := range s.cards {
		if card.AssignedTo == nil || *card.AssignedTo != shopID {
			continue
		}
		switch card.Status {
		case id.CardStatusAssigned:
			assigned++
		case id.CardStatusSold:
			sold++
		}
	}
	return assigned, sold, nil
}

func (s *MemoryStore) CountAllByShop(_ context.Context) (map[id.ShopID]ShopTally, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tallies := make(map[id.ShopID]ShopTally)
	for _, card := range s.cards {
		if card.AssignedTo == nil {
			continue
		}
		tally := tallies[*card.AssignedTo]
		switch card.Status {
		case id.CardStatusAssigned:
			tally.Assigned++
		case id.CardStatusSold:
			tally.Sold++
		}
		tallies[*card.AssignedTo] = tally
	}
	return tallies, nil
}

func (s *MemoryStore) SalesByDay(_ context.Context, since time.Time) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sales := make(map[string]int)
	day := since.Truncate(24 * time.Hour)
	for _, card := range s.cards {
		if card.SaleDate == nil || card.SaleDate.Before(day) {
			continue
		}
		sales[card.SaleDate.Format("2006-01-02")]++
	}
	return sales, nil
}

func sortByAddedDate(cards []*models.SimCard) {
	sort.Slice(cards, func(i, j int) bool {
		if cards[i].AddedDate.Equal(cards[j].AddedDate) {
			return cards[i].Code < cards[j].Code
		}
		return cards[i].AddedDate.Before(cards[j].AddedDate)
	})
}
