// Package service implements shop management: registration, edits, removal
// with card release, and per-shop inventory statistics.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"simtrack/internal/platform/metrics"
	"simtrack/internal/shop/models"
	"simtrack/internal/shop/store"
	id "simtrack/pkg/domain"
	dErrors "simtrack/pkg/domain-errors"
	"simtrack/pkg/platform/sentinel"
	"simtrack/pkg/platform/tx"
)

// CardInventory is the slice of the card store the shop service needs:
// releasing cards when a shop is removed and counting them for stats.
type CardInventory interface {
	ReleaseByShop(ctx context.Context, shopID id.ShopID) (int, error)
	CountByShop(ctx context.Context, shopID id.ShopID) (assigned, sold int, err error)
}

// Stats is the per-shop inventory summary.
type Stats struct {
	ShopID   id.ShopID `json:"shopId"`
	ShopName string    `json:"shopName"`
	Assigned int       `json:"assigned"`
	Sold     int       `json:"sold"`
	Total    int       `json:"total"`
}

// Service orchestrates shop lifecycle operations.
type Service struct {
	shops   store.Store
	cards   CardInventory
	runner  tx.Runner
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New constructs a Service.
func New(shops store.Store, cards CardInventory, runner tx.Runner, opts ...Option) *Service {
	s := &Service{
		shops:  shops,
		cards:  cards,
		runner: runner,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create registers a new shop in active status.
func (s *Service) Create(ctx context.Context, params models.NewShopParams) (*models.Shop, error) {
	shop, err := models.New(params, s.now())
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}
	if err := s.shops.Create(ctx, shop); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create shop")
	}
	s.metrics.IncrementShopsCreated()
	return shop, nil
}

// Get returns one shop by id.
func (s *Service) Get(ctx context.Context, shopID id.ShopID) (*models.Shop, error) {
	shop, err := s.shops.FindByID(ctx, shopID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "Shop not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load shop")
	}
	return shop, nil
}

// List returns all shops, newest first.
func (s *Service) List(ctx context.Context) ([]*models.Shop, error) {
	shops, err := s.shops.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list shops")
	}
	return shops, nil
}

// Update applies a partial update to one shop.
func (s *Service) Update(ctx context.Context, shopID id.ShopID, update models.ShopUpdate) (*models.Shop, error) {
	shop, err := s.Get(ctx, shopID)
	if err != nil {
		return nil, err
	}
	if err := update.ApplyTo(shop); err != nil {
		return nil, err
	}
	if err := s.shops.Update(ctx, shop); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "Shop not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update shop")
	}
	return shop, nil
}

// Delete removes a shop. Its assigned unsold cards return to the available
// pool in the same unit of work; sold cards keep their snapshot for the
// audit trail.
func (s *Service) Delete(ctx context.Context, shopID id.ShopID) error {
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		released, err := s.cards.ReleaseByShop(ctx, shopID)
		if err != nil {
			return err
		}
		if err := s.shops.Delete(ctx, shopID); err != nil {
			return err
		}
		s.logger.InfoContext(ctx, "shop deleted",
			"shop_id", shopID,
			"cards_released", released)
		return nil
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "Shop not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete shop")
	}
	return nil
}

// Stats summarizes the shop's card inventory.
func (s *Service) Stats(ctx context.Context, shopID id.ShopID) (*Stats, error) {
	shop, err := s.Get(ctx, shopID)
	if err != nil {
		return nil, err
	}
	assigned, sold, err := s.cards.CountByShop(ctx, shopID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count cards")
	}
	return &Stats{
		ShopID:   shopID,
		ShopName: shop.Name,
		Assigned: assigned,
		Sold:     sold,
		Total:    assigned + sold,
	}, nil
}

// ShopName resolves a shop's display name for snapshotting onto cards. It
// satisfies the card service's directory dependency.
func (s *Service) ShopName(ctx context.Context, shopID id.ShopID) (string, error) {
	shop, err := s.shops.FindByID(ctx, shopID)
	if err != nil {
		return "", err
	}
	return shop.Name, nil
}
