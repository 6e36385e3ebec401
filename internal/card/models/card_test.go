package models

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "simtrack/pkg/domain"
	dErrors "simtrack/pkg/domain-errors"
)

func TestNew(t *testing.T) {
	now := time.Now()

	t.Run("creates available card with empty history", func(t *testing.T) {
		card, err := New("A1", now)
		require.NoError(t, err)
		assert.Equal(t, "A1", card.Code)
		assert.Equal(t, id.CardStatusAvailable, card.Status)
		assert.False(t, card.ID.IsNil())
		assert.Nil(t, card.SaleDate)
		assert.Empty(t, card.CheckHistory)
	})

	t.Run("trims whitespace", func(t *testing.T) {
		card, err := New("  A1  ", now)
		require.NoError(t, err)
		assert.Equal(t, "A1", card.Code)
	})

	t.Run("rejects empty code", func(t *testing.T) {
		_, err := New("   ", now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func TestMarkSold_SaleDateMonotonic(t *testing.T) {
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	reported := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

	t.Run("uses authority-reported date when unset", func(t *testing.T) {
		card, _ := New("A1", now)
		card.MarkSold(&reported, now)
		require.NotNil(t, card.SaleDate)
		assert.Equal(t, reported, *card.SaleDate)
		assert.Equal(t, id.CardStatusSold, card.Status)
	})

	t.Run("falls back to wall clock when authority has no date", func(t *testing.T) {
		card, _ := New("A1", now)
		card.MarkSold(nil, now)
		require.NotNil(t, card.SaleDate)
		assert.Equal(t, now, *card.SaleDate)
	})

	t.Run("never overwrites an existing sale date", func(t *testing.T) {
		card, _ := New("A1", now)
		card.MarkSold(&reported, now)

		later := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
		card.MarkSold(&later, now.Add(time.Hour))

		assert.Equal(t, reported, *card.SaleDate)
	})
}

func TestAppendCheck_Bounded(t *testing.T) {
	now := time.Now()
	card, _ := New("A1", now)

	for i := 0; i < 25; i++ {
		card.AppendCheck(CheckEntry{
			Timestamp:      now.Add(time.Duration(i) * time.Minute),
			ExternalStatus: "active",
			Message:        fmt.Sprintf("check %d", i),
		})
		assert.LessOrEqual(t, len(card.CheckHistory), CheckHistoryLimit)
	}

	require.Len(t, card.CheckHistory, CheckHistoryLimit)
	// The 10 most recent survive, newest last.
	assert.Equal(t, "check 15", card.CheckHistory[0].Message)
	assert.Equal(t, "check 24", card.CheckHistory[CheckHistoryLimit-1].Message)
	for i := 1; i < len(card.CheckHistory); i++ {
		assert.False(t, card.CheckHistory[i].Timestamp.Before(card.CheckHistory[i-1].Timestamp),
			"history timestamps must be non-decreasing")
	}
}

func TestAssign(t *testing.T) {
	now := time.Now()
	shopID := id.NewShopID()

	t.Run("assigns available card", func(t *testing.T) {
		card, _ := New("A1", now)
		require.NoError(t, card.Assign(shopID, "Corner Shop"))
		assert.Equal(t, id.CardStatusAssigned, card.Status)
		assert.Equal(t, shopID, *card.AssignedTo)
		assert.Equal(t, "Corner Shop", card.AssignedShopName)
	})

	t.Run("rejects non-available card", func(t *testing.T) {
		card, _ := New("A1", now)
		require.NoError(t, card.Assign(shopID, "Corner Shop"))
		err := card.Assign(id.NewShopID(), "Other Shop")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func TestRelease(t *testing.T) {
	now := time.Now()
	shopID := id.NewShopID()

	t.Run("returns assigned card to pool", func(t *testing.T) {
		card, _ := New("A1", now)
		require.NoError(t, card.Assign(shopID, "Corner Shop"))
		card.Release()
		assert.Equal(t, id.CardStatusAvailable, card.Status)
		assert.Nil(t, card.AssignedTo)
		assert.Empty(t, card.AssignedShopName)
	})

	t.Run("sold cards keep their snapshot", func(t *testing.T) {
		card, _ := New("A1", now)
		require.NoError(t, card.Assign(shopID, "Corner Shop"))
		card.MarkSold(nil, now)
		card.Release()
		assert.Equal(t, id.CardStatusSold, card.Status)
		assert.Equal(t, "Corner Shop", card.AssignedShopName)
	})
}

func TestClone_NoAliasing(t *testing.T) {
	now := time.Now()
	card, _ := New("A1", now)
	card.AppendCheck(CheckEntry{Timestamp: now, ExternalStatus: "active"})

	clone := card.Clone()
	clone.AppendCheck(CheckEntry{Timestamp: now.Add(time.Minute), ExternalStatus: "sold"})
	clone.MarkSold(nil, now)

	assert.Len(t, card.CheckHistory, 1, "clone mutation must not leak into original")
	assert.Nil(t, card.SaleDate)
	assert.Equal(t, id.CardStatusAvailable, card.Status)
}

func TestCardUpdate_ApplyTo(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("unset fields leave card untouched", func(t *testing.T) {
		card, _ := New("A1", now)
		require.NoError(t, CardUpdate{}.ApplyTo(card, now))
		assert.Equal(t, id.CardStatusAvailable, card.Status)
		assert.Nil(t, card.AssignedTo)
	})

	t.Run("manual move to sold stamps sale date once", func(t *testing.T) {
		card, _ := New("A1", now)
		sold := id.CardStatusSold
		require.NoError(t, CardUpdate{Status: &sold}.ApplyTo(card, now))
		require.NotNil(t, card.SaleDate)
		assert.Equal(t, now, *card.SaleDate)

		// A later update must not move the stamp.
		require.NoError(t, CardUpdate{Status: &sold}.ApplyTo(card, now.Add(time.Hour)))
		assert.Equal(t, now, *card.SaleDate)
	})

	t.Run("clear assignment wins over assign", func(t *testing.T) {
		card, _ := New("A1", now)
		shopID := id.NewShopID()
		name := "Corner Shop"
		require.NoError(t, CardUpdate{AssignedTo: &shopID, AssignedShopName: &name}.ApplyTo(card, now))
		require.NotNil(t, card.AssignedTo)

		require.NoError(t, CardUpdate{AssignedTo: &shopID, ClearAssignment: true}.ApplyTo(card, now))
		assert.Nil(t, card.AssignedTo)
		assert.Empty(t, card.AssignedShopName)
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		card, _ := New("A1", now)
		bad := id.CardStatus("broken")
		err := CardUpdate{Status: &bad}.ApplyTo(card, now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}
