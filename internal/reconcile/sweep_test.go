package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simtrack/internal/authority"
	"simtrack/internal/card/models"
	cardstore "simtrack/internal/card/store"
	id "simtrack/pkg/domain"
)

type recordingReconciler struct {
	mu    sync.Mutex
	seen  []id.CardID
	fail  map[id.CardID]error
	panic map[id.CardID]bool
}

func (r *recordingReconciler) Reconcile(_ context.Context, cardID id.CardID) (*Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, cardID)
	if r.panic[cardID] {
		panic("reconciler blew up")
	}
	if err := r.fail[cardID]; err != nil {
		return nil, err
	}
	return &Outcome{Card: &models.SimCard{ID: cardID}, Result: authority.Result{Status: "active"}}, nil
}

func (r *recordingReconciler) seenIDs() []id.CardID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]id.CardID(nil), r.seen...)
}

func seedSweepCard(t *testing.T, store *cardstore.MemoryStore, code string, assign bool) *models.SimCard {
	t.Helper()
	card, err := models.New(code, time.Now())
	require.NoError(t, err)
	if assign {
		require.NoError(t, card.Assign(id.NewShopID(), "Sweep Shop"))
	}
	require.NoError(t, store.Create(context.Background(), card))
	return card
}

func TestSweep_ChecksOnlyAssignedCards(t *testing.T) {
	store := cardstore.NewMemoryStore()
	assigned := seedSweepCard(t, store, "SIM-3001", true)
	seedSweepCard(t, store, "SIM-3002", false)

	rec := &recordingReconciler{}
	sweep := NewSweep(store, rec, time.Hour, 0)
	sweep.iterate(context.Background())

	require.Len(t, rec.seenIDs(), 1)
	assert.Equal(t, assigned.ID, rec.seenIDs()[0])
}

func TestSweep_ContinuesPastFailingCard(t *testing.T) {
	store := cardstore.NewMemoryStore()
	first := seedSweepCard(t, store, "SIM-3003", true)
	second := seedSweepCard(t, store, "SIM-3004", true)

	rec := &recordingReconciler{fail: map[id.CardID]error{first.ID: errors.New("authority down")}}
	sweep := NewSweep(store, rec, time.Hour, 0)
	sweep.iterate(context.Background())

	assert.ElementsMatch(t, []id.CardID{first.ID, second.ID}, rec.seenIDs())
}

func TestSweep_IterationSurvivesPanic(t *testing.T) {
	store := cardstore.NewMemoryStore()
	card := seedSweepCard(t, store, "SIM-3005", true)

	rec := &recordingReconciler{panic: map[id.CardID]bool{card.ID: true}}
	sweep := NewSweep(store, rec, time.Hour, 0)

	assert.NotPanics(t, func() {
		sweep.iterate(context.Background())
	})
}

func TestSweep_SkipsIterationWithoutLeadership(t *testing.T) {
	store := cardstore.NewMemoryStore()
	seedSweepCard(t, store, "SIM-3006", true)

	rec := &recordingReconciler{}
	denied := LockerFunc(func(context.Context, string, time.Duration) (bool, error) {
		return false, nil
	})
	sweep := NewSweep(store, rec, time.Hour, 0, WithLocker(denied))
	sweep.iterate(context.Background())

	assert.Empty(t, rec.seenIDs())
}

func TestSweep_RunStopsOnCancel(t *testing.T) {
	store := cardstore.NewMemoryStore()
	seedSweepCard(t, store, "SIM-3007", true)

	rec := &recordingReconciler{}
	sweep := NewSweep(store, rec, 10*time.Millisecond, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- sweep.Run(ctx)
	}()

	assert.Eventually(t, func() bool {
		return len(rec.seenIDs()) >= 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("sweep did not stop after cancel")
	}
}
