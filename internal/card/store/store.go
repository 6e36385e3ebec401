// Package store persists SIM cards. Two implementations exist: an in-memory
// store for tests and a PostgreSQL store for production. Both return
// sentinel errors (wrapped) for infrastructure facts; the service layer
// translates those into domain errors.
package store

import (
	"context"
	"time"

	"simtrack/internal/card/models"
	id "simtrack/pkg/domain"
)

//go:generate mockgen -source=store.go -destination=mocks/store_mock.go -package=mocks

// Filter narrows List results. Zero values mean "no constraint".
type Filter struct {
	Status id.CardStatus
	ShopID id.ShopID
}

// ShopTally holds per-shop card counts.
type ShopTally struct {
	Assigned int
	Sold     int
}

// Store is the persistence boundary for SIM cards.
type Store interface {
	Create(ctx context.Context, card *models.SimCard) error
	FindByID(ctx context.Context, cardID id.CardID) (*models.SimCard, error)
	// FindByIDForUpdate locks the row for the duration of the surrounding
	// transaction so concurrent reconciliations of the same card serialize.
	// Outside a transaction it behaves like FindByID.
	FindByIDForUpdate(ctx context.Context, cardID id.CardID) (*models.SimCard, error)
	FindByCode(ctx context.Context, code string) (*models.SimCard, error)
	List(ctx context.Context, filter Filter) ([]*models.SimCard, error)
	// ListAvailableForUpdate returns up to limit available cards, oldest
	// first, locked for the surrounding transaction.
	ListAvailableForUpdate(ctx context.Context, limit int) ([]*models.SimCard, error)
	Update(ctx context.Context, card *models.SimCard) error
	Delete(ctx context.Context, cardID id.CardID) error
	// ReleaseByShop returns every unsold card assigned to the shop to the
	// available pool and reports how many were released.
	ReleaseByShop(ctx context.Context, shopID id.ShopID) (int, error)
	CountByStatus(ctx context.Context) (map[id.CardStatus]int, error)
	// CountByShop reports per-shop assigned and sold counts.
	CountByShop(ctx context.Context, shopID id.ShopID) (assigned, sold int, err error)
	// CountAllByShop groups assigned and sold counts across every shop that
	// has or had cards. Shops with no cards are absent from the result.
	CountAllByShop(ctx context.Context) (map[id.ShopID]ShopTally, error)
	// SalesByDay counts sold cards per calendar day of their sale date,
	// keyed "2006-01-02", for sales on or after since.
	SalesByDay(ctx context.Context, since time.Time) (map[string]int, error)
}
