//go:build integration

package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"simtrack/internal/card/models"
	"simtrack/internal/card/store"
	id "simtrack/pkg/domain"
	"simtrack/pkg/platform/sentinel"
	"simtrack/pkg/platform/tx"
	"simtrack/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	runner   *tx.SQLRunner
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgresStore(s.postgres.DB)
	s.runner = tx.NewSQLRunner(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.Truncate(context.Background()))
}

func (s *PostgresStoreSuite) newCard(code string) *models.SimCard {
	card, err := models.New(code, time.Now().UTC().Truncate(time.Millisecond))
	s.Require().NoError(err)
	return card
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	card := s.newCard("SIM-IT-001")
	card.AppendCheck(models.CheckEntry{
		Timestamp:      time.Now().UTC().Truncate(time.Millisecond),
		ExternalStatus: "active",
		Message:        "ok",
	})
	s.Require().NoError(s.store.Create(ctx, card))

	byID, err := s.store.FindByID(ctx, card.ID)
	s.Require().NoError(err)
	s.Equal(card.Code, byID.Code)
	s.Equal(id.CardStatusAvailable, byID.Status)
	s.Require().Len(byID.CheckHistory, 1)
	s.Equal("ok", byID.CheckHistory[0].Message)

	byCode, err := s.store.FindByCode(ctx, "SIM-IT-001")
	s.Require().NoError(err)
	s.Equal(card.ID, byCode.ID)
}

func (s *PostgresStoreSuite) TestDuplicateCode() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, s.newCard("SIM-IT-002")))

	err := s.store.Create(ctx, s.newCard("SIM-IT-002"))
	s.Require().Error(err)
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)
}

func (s *PostgresStoreSuite) TestUpdateRoundTrip() {
	ctx := context.Background()
	card := s.newCard("SIM-IT-003")
	s.Require().NoError(s.store.Create(ctx, card))

	shopID := id.NewShopID()
	s.Require().NoError(card.Assign(shopID, "Integration Shop"))
	now := time.Now().UTC().Truncate(time.Millisecond)
	card.MarkSold(nil, now)
	card.LastChecked = &now
	card.ExternalStatus = "sold"
	s.Require().NoError(s.store.Update(ctx, card))

	got, err := s.store.FindByID(ctx, card.ID)
	s.Require().NoError(err)
	s.Equal(id.CardStatusSold, got.Status)
	s.Require().NotNil(got.AssignedTo)
	s.Equal(shopID, *got.AssignedTo)
	s.Equal("Integration Shop", got.AssignedShopName)
	s.Require().NotNil(got.SaleDate)
	s.WithinDuration(now, *got.SaleDate, time.Second)
}

func (s *PostgresStoreSuite) TestConcurrentMergesSerialize() {
	ctx := context.Background()
	card := s.newCard("SIM-IT-004")
	s.Require().NoError(s.store.Create(ctx, card))

	// Each goroutine appends one history entry under FOR UPDATE. Without row
	// locking some appends would be lost to read-modify-write races.
	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
				locked, err := s.store.FindByIDForUpdate(ctx, card.ID)
				if err != nil {
					return err
				}
				locked.AppendCheck(models.CheckEntry{
					Timestamp:      time.Now().UTC(),
					ExternalStatus: "active",
				})
				return s.store.Update(ctx, locked)
			})
			s.NoError(err)
		}()
	}
	wg.Wait()

	got, err := s.store.FindByID(ctx, card.ID)
	s.Require().NoError(err)
	s.Len(got.CheckHistory, writers)
}

func (s *PostgresStoreSuite) TestReleaseByShop() {
	ctx := context.Background()
	shopID := id.NewShopID()

	assigned := s.newCard("SIM-IT-005")
	s.Require().NoError(assigned.Assign(shopID, "Shop"))
	sold := s.newCard("SIM-IT-006")
	s.Require().NoError(sold.Assign(shopID, "Shop"))
	sold.MarkSold(nil, time.Now().UTC())
	for _, c := range []*models.SimCard{assigned, sold} {
		s.Require().NoError(s.store.Create(ctx, c))
	}

	released, err := s.store.ReleaseByShop(ctx, shopID)
	s.Require().NoError(err)
	s.Equal(1, released)

	got, err := s.store.FindByID(ctx, sold.ID)
	s.Require().NoError(err)
	s.Equal(id.CardStatusSold, got.Status, "sold cards keep their snapshot")
}

func (s *PostgresStoreSuite) TestCounts() {
	ctx := context.Background()
	shopID := id.NewShopID()

	a := s.newCard("SIM-IT-007")
	s.Require().NoError(a.Assign(shopID, "Shop"))
	b := s.newCard("SIM-IT-008")
	s.Require().NoError(b.Assign(shopID, "Shop"))
	saleDate := time.Now().UTC()
	b.MarkSold(&saleDate, saleDate)
	c := s.newCard("SIM-IT-009")
	for _, card := range []*models.SimCard{a, b, c} {
		s.Require().NoError(s.store.Create(ctx, card))
	}

	byStatus, err := s.store.CountByStatus(ctx)
	s.Require().NoError(err)
	s.Equal(1, byStatus[id.CardStatusAvailable])
	s.Equal(1, byStatus[id.CardStatusAssigned])
	s.Equal(1, byStatus[id.CardStatusSold])

	tallies, err := s.store.CountAllByShop(ctx)
	s.Require().NoError(err)
	s.Equal(store.ShopTally{Assigned: 1, Sold: 1}, tallies[shopID])

	sales, err := s.store.SalesByDay(ctx, saleDate.AddDate(0, 0, -1))
	s.Require().NoError(err)
	s.Equal(1, sales[saleDate.Format("2006-01-02")])
}
