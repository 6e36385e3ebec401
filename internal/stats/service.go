// Package stats aggregates inventory counters for the dashboard endpoints.
// It reads across the card and shop stores; nothing here mutates state.
package stats

import (
	"context"
	"log/slog"
	"time"

	cardstore "simtrack/internal/card/store"
	shopstore "simtrack/internal/shop/store"
	id "simtrack/pkg/domain"
	dErrors "simtrack/pkg/domain-errors"
	"simtrack/pkg/requestcontext"
)

// salesWindowDays is the span of the sales-by-date series.
const salesWindowDays = 7

// Overview is the top-level statistics snapshot.
type Overview struct {
	TotalShops        int            `json:"totalShops"`
	ActiveShops       int            `json:"activeShops"`
	TotalSimCards     int            `json:"totalSimCards"`
	AvailableSimCards int            `json:"availableSimCards"`
	AssignedSimCards  int            `json:"assignedSimCards"`
	SoldSimCards      int            `json:"soldSimCards"`
	RegionStats       map[string]int `json:"regionStats"`
	SalesByDate       map[string]int `json:"salesByDate"`
}

// ShopSales is the per-shop card breakdown. Assigned cards are reported
// under "available" because from the shop's point of view they are the
// sellable stock on hand.
type ShopSales struct {
	Sold      int `json:"sold"`
	Available int `json:"available"`
	Total     int `json:"total"`
}

// Service computes statistics over the card and shop stores.
type Service struct {
	cards  cardstore.Store
	shops  shopstore.Store
	logger *slog.Logger
}

// New constructs a stats service.
func New(cards cardstore.Store, shops shopstore.Store, logger *slog.Logger) *Service {
	return &Service{cards: cards, shops: shops, logger: logger}
}

// Overview returns the dashboard snapshot. The sales series always spans
// the trailing week with zero-filled days so charts render a stable axis.
func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	totalShops, activeShops, err := s.shops.Count(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count shops")
	}
	regions, err := s.shops.CountByRegion(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count shops by region")
	}
	byStatus, err := s.cards.CountByStatus(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count cards")
	}

	now := requestcontext.Now(ctx)
	since := now.AddDate(0, 0, -(salesWindowDays - 1))
	sold, err := s.cards.SalesByDay(ctx, since.Truncate(24*time.Hour))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count sales")
	}

	salesByDate := make(map[string]int, salesWindowDays)
	for i := 0; i < salesWindowDays; i++ {
		day := now.AddDate(0, 0, -i).Format("2006-01-02")
		salesByDate[day] = sold[day]
	}

	total := 0
	for _, count := range byStatus {
		total += count
	}
	return &Overview{
		TotalShops:        totalShops,
		ActiveShops:       activeShops,
		TotalSimCards:     total,
		AvailableSimCards: byStatus[id.CardStatusAvailable],
		AssignedSimCards:  byStatus[id.CardStatusAssigned],
		SoldSimCards:      byStatus[id.CardStatusSold],
		RegionStats:       regions,
		SalesByDate:       salesByDate,
	}, nil
}

// ShopSales returns per-shop card counts keyed by shop id. Every shop
// appears, including those with no cards.
func (s *Service) ShopSales(ctx context.Context) (map[string]ShopSales, error) {
	shops, err := s.shops.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list shops")
	}
	tallies, err := s.cards.CountAllByShop(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count cards by shop")
	}

	out := make(map[string]ShopSales, len(shops))
	for _, shop := range shops {
		tally := tallies[shop.ID]
		out[shop.ID.String()] = ShopSales{
			Sold:      tally.Sold,
			Available: tally.Assigned,
			Total:     tally.Assigned + tally.Sold,
		}
	}
	return out, nil
}
