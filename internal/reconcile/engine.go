// Package reconcile is the status reconciliation core: it fetches
// authoritative sale status for a card, merges it into the stored record
// without losing history, and logs the transition when the status changed.
// Three call sites drive it: the single-card check endpoint, the bulk check
// endpoint, and the periodic sweep.
package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"simtrack/internal/authority"
	"simtrack/internal/card/models"
	cardstore "simtrack/internal/card/store"
	"simtrack/internal/reconcile/metrics"
	"simtrack/internal/transition"
	transitionstore "simtrack/internal/transition/store"
	id "simtrack/pkg/domain"
	dErrors "simtrack/pkg/domain-errors"
	"simtrack/pkg/platform/sentinel"
	"simtrack/pkg/platform/tx"
)

var tracer = otel.Tracer("simtrack/reconcile")

// Publisher receives committed transition entries for out-of-band fan-out.
type Publisher interface {
	Emit(ctx context.Context, entry *transition.Entry) error
}

// Outcome is the result of one reconciliation.
type Outcome struct {
	Card          *models.SimCard  `json:"simcard"`
	StatusChanged bool             `json:"statusChanged"`
	Result        authority.Result `json:"externalData"`
}

// Engine merges authority results into stored cards. Per card, concurrent
// reconciliations serialize on the row lock taken inside the transaction;
// the card update and the transition log append commit together.
type Engine struct {
	cards     cardstore.Store
	log       transitionstore.Store
	authority authority.Client
	runner    tx.Runner
	publisher Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

type EngineOption func(e *Engine)

func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithPublisher attaches a fan-out publisher for committed transitions.
func WithPublisher(p Publisher) EngineOption {
	return func(e *Engine) {
		e.publisher = p
	}
}

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine constructs an Engine.
func NewEngine(cards cardstore.Store, log transitionstore.Store, client authority.Client, runner tx.Runner, opts ...EngineOption) *Engine {
	e := &Engine{
		cards:     cards,
		log:       log,
		authority: client,
		runner:    runner,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Reconcile checks one card against the authority and merges the result.
// Authority failures do not fail the reconciliation: the error event is
// recorded in the card's history and the status is left alone. The only
// error condition is the card not existing.
func (e *Engine) Reconcile(ctx context.Context, cardID id.CardID) (*Outcome, error) {
	ctx, span := tracer.Start(ctx, "reconcile.Reconcile")
	defer span.End()
	span.SetAttributes(attribute.String("simcard.id", cardID.String()))

	// Resolve the code before the network call so the row lock is never
	// held across authority I/O.
	card, err := e.cards.FindByID(ctx, cardID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			e.metrics.ObserveReconcile(metrics.OutcomeNotFound)
			return nil, dErrors.New(dErrors.CodeNotFound, "SimCard not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load card")
	}

	result := e.authority.CheckStatus(ctx, card.Code)
	outcome, entry, err := e.merge(ctx, cardID, result)
	if err != nil {
		return nil, err
	}

	if entry != nil && e.publisher != nil {
		_ = e.publisher.Emit(ctx, entry)
	}
	e.observe(ctx, outcome)
	return outcome, nil
}

// merge applies one authority result to the stored card. The re-read under
// the row lock closes the race with concurrent deletion and concurrent
// merges of the same card. Exactly one card update and at most one log
// append happen, committed together.
func (e *Engine) merge(ctx context.Context, cardID id.CardID, result authority.Result) (*Outcome, *transition.Entry, error) {
	var (
		outcome *Outcome
		entry   *transition.Entry
	)
	err := e.runner.RunInTx(ctx, func(ctx context.Context) error {
		card, err := e.cards.FindByIDForUpdate(ctx, cardID)
		if err != nil {
			return err
		}

		oldStatus := card.Status
		now := e.now()

		if result.IsSold {
			card.MarkSold(result.SaleDate, now)
		}
		card.AppendCheck(models.CheckEntry{
			Timestamp:      now,
			ExternalStatus: result.Status,
			IsSold:         result.IsSold,
			Message:        result.Message,
		})
		card.LastChecked = &now
		card.LastExternalCheck = &now
		card.ExternalStatus = result.Status

		if err := e.cards.Update(ctx, card); err != nil {
			return err
		}

		statusChanged := card.Status != oldStatus
		if statusChanged {
			details, err := json.Marshal(result)
			if err != nil {
				return err
			}
			entry = &transition.Entry{
				ID:        uuid.New(),
				CardID:    card.ID,
				CardCode:  card.Code,
				OldStatus: oldStatus,
				NewStatus: card.Status,
				Source:    transition.SourceExternalAPI,
				Timestamp: now,
				Details:   details,
			}
			if err := e.log.Append(ctx, entry); err != nil {
				return err
			}
			e.logger.InfoContext(ctx, "simcard status changed",
				"simcard_code", card.Code,
				"old_status", oldStatus,
				"new_status", card.Status)
		}

		outcome = &Outcome{Card: card, StatusChanged: statusChanged, Result: result}
		return nil
	})
	if err != nil {
		entry = nil
		if errors.Is(err, sentinel.ErrNotFound) {
			e.metrics.ObserveReconcile(metrics.OutcomeNotFound)
			return nil, nil, dErrors.New(dErrors.CodeNotFound, "SimCard not found")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to merge authority result")
	}
	return outcome, entry, nil
}

func (e *Engine) observe(ctx context.Context, outcome *Outcome) {
	switch {
	case outcome.Result.IsError():
		e.metrics.ObserveReconcile(metrics.OutcomeError)
	case outcome.StatusChanged:
		e.metrics.ObserveReconcile(metrics.OutcomeChanged)
	default:
		e.metrics.ObserveReconcile(metrics.OutcomeUnchanged)
	}
}
