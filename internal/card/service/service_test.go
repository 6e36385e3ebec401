package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simtrack/internal/card/models"
	"simtrack/internal/card/store"
	id "simtrack/pkg/domain"
	dErrors "simtrack/pkg/domain-errors"
	"simtrack/pkg/platform/sentinel"
	"simtrack/pkg/platform/tx"
)

type stubShops struct {
	names map[id.ShopID]string
}

func (s *stubShops) ShopName(_ context.Context, shopID id.ShopID) (string, error) {
	name, ok := s.names[shopID]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	return name, nil
}

func newService(t *testing.T) (*Service, *store.MemoryStore, *stubShops) {
	t.Helper()
	cards := store.NewMemoryStore()
	shops := &stubShops{names: map[id.ShopID]string{}}
	svc := New(cards, shops, tx.PassThrough)
	return svc, cards, shops
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	t.Run("creates available card", func(t *testing.T) {
		card, err := svc.Create(ctx, "A1")
		require.NoError(t, err)
		assert.Equal(t, id.CardStatusAvailable, card.Status)
	})

	t.Run("duplicate code conflicts", func(t *testing.T) {
		_, err := svc.Create(ctx, "A1")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("empty code is a validation error", func(t *testing.T) {
		_, err := svc.Create(ctx, "  ")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestBulkCreate_PartialSuccess(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)
	_, err := svc.Create(ctx, "A1")
	require.NoError(t, err)

	result, err := svc.BulkCreate(ctx, []string{"A1", "A1", "A2"})
	require.NoError(t, err)

	require.Len(t, result.Created, 1)
	assert.Equal(t, "A2", result.Created[0].Code)
	require.Len(t, result.Failed, 2)
	for _, failed := range result.Failed {
		assert.Equal(t, "A1", failed.Code)
		assert.Equal(t, "Code already exists", failed.Reason)
	}
}

func TestGet(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)
	card, err := svc.Create(ctx, "A1")
	require.NoError(t, err)

	got, err := svc.Get(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, "A1", got.Code)

	_, err = svc.Get(ctx, id.NewCardID())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestList_RejectsUnknownStatus(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	_, err := svc.List(ctx, store.Filter{Status: id.CardStatus("broken")})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves shop name when assigning", func(t *testing.T) {
		svc, _, shops := newService(t)
		shopID := id.NewShopID()
		shops.names[shopID] = "Corner Shop"
		card, err := svc.Create(ctx, "A1")
		require.NoError(t, err)

		updated, err := svc.Update(ctx, card.ID, models.CardUpdate{AssignedTo: &shopID})
		require.NoError(t, err)
		assert.Equal(t, "Corner Shop", updated.AssignedShopName)
	})

	t.Run("unknown shop is not found", func(t *testing.T) {
		svc, _, _ := newService(t)
		card, err := svc.Create(ctx, "A1")
		require.NoError(t, err)

		missing := id.NewShopID()
		_, err = svc.Update(ctx, card.ID, models.CardUpdate{AssignedTo: &missing})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("unknown card is not found", func(t *testing.T) {
		svc, _, _ := newService(t)
		_, err := svc.Update(ctx, id.NewCardID(), models.CardUpdate{})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)
	card, err := svc.Create(ctx, "A1")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, card.ID))
	err = svc.Delete(ctx, card.ID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestAssign(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T, svc *Service, codes ...string) {
		t.Helper()
		for _, code := range codes {
			_, err := svc.Create(ctx, code)
			require.NoError(t, err)
		}
	}

	t.Run("assigns requested count oldest first", func(t *testing.T) {
		svc, cards, shops := newService(t)
		shopID := id.NewShopID()
		shops.names[shopID] = "Corner Shop"
		seed(t, svc, "A1", "B2", "C3")

		result, err := svc.Assign(ctx, shopID, 2)
		require.NoError(t, err)
		require.Len(t, result.Assigned, 2)
		assert.Equal(t, "Corner Shop", result.ShopName)

		remaining, err := cards.List(ctx, store.Filter{Status: id.CardStatusAvailable})
		require.NoError(t, err)
		require.Len(t, remaining, 1)
	})

	t.Run("insufficient stock mutates nothing", func(t *testing.T) {
		svc, cards, shops := newService(t)
		shopID := id.NewShopID()
		shops.names[shopID] = "Corner Shop"
		seed(t, svc, "A1", "B2", "C3")

		_, err := svc.Assign(ctx, shopID, 5)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		assert.Contains(t, err.Error(), "Only 3 simcards available")

		available, err := cards.List(ctx, store.Filter{Status: id.CardStatusAvailable})
		require.NoError(t, err)
		assert.Len(t, available, 3)
	})

	t.Run("unknown shop is not found", func(t *testing.T) {
		svc, _, _ := newService(t)
		seed(t, svc, "A1")
		_, err := svc.Assign(ctx, id.NewShopID(), 1)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("non-positive count rejected", func(t *testing.T) {
		svc, _, shops := newService(t)
		shopID := id.NewShopID()
		shops.names[shopID] = "Corner Shop"
		_, err := svc.Assign(ctx, shopID, 0)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}
