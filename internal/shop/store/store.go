// Package store persists shops, mirroring the card store split: an in-memory
// implementation for tests and a PostgreSQL one for production.
package store

import (
	"context"

	"simtrack/internal/shop/models"
	id "simtrack/pkg/domain"
)

// Store is the persistence boundary for shops.
type Store interface {
	Create(ctx context.Context, shop *models.Shop) error
	FindByID(ctx context.Context, shopID id.ShopID) (*models.Shop, error)
	// List returns shops newest first.
	List(ctx context.Context) ([]*models.Shop, error)
	Update(ctx context.Context, shop *models.Shop) error
	Delete(ctx context.Context, shopID id.ShopID) error
	Count(ctx context.Context) (total, active int, err error)
	CountByRegion(ctx context.Context) (map[string]int, error)
}
