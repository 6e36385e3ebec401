// Package service implements inventory intake and lifecycle operations for
// SIM cards: creation, bulk intake, edits, assignment to shops, and removal.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"simtrack/internal/card/models"
	"simtrack/internal/card/store"
	"simtrack/internal/platform/metrics"
	id "simtrack/pkg/domain"
	dErrors "simtrack/pkg/domain-errors"
	"simtrack/pkg/platform/sentinel"
	"simtrack/pkg/platform/tx"
)

// ShopDirectory resolves shop identity at assignment time. The shop name is
// snapshotted onto the card, not joined live.
type ShopDirectory interface {
	ShopName(ctx context.Context, shopID id.ShopID) (string, error)
}

// FailedCard is one rejected entry of a bulk intake.
type FailedCard struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// BulkCreateResult reports per-item success and failure of a bulk intake.
type BulkCreateResult struct {
	Created []*models.SimCard `json:"created"`
	Failed  []FailedCard      `json:"failed"`
}

// AssignResult reports an all-or-nothing assignment.
type AssignResult struct {
	ShopID   id.ShopID         `json:"shopId"`
	ShopName string            `json:"shopName"`
	Assigned []*models.SimCard `json:"assigned"`
}

// Service orchestrates card lifecycle operations.
type Service struct {
	cards   store.Store
	shops   ShopDirectory
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
func New(cards store.Store, shops ShopDirectory, runner tx.Runner, opts ...Option) *Service {
	s := &Service{
		cards:  cards,
		shops:  shops,
		runner: runner,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create registers one new card in available status.
func (s *Service) Create(ctx context.Context, code string) (*models.SimCard, error) {
	card, err := models.New(code, s.now())
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}

	if err := s.cards.Create(ctx, card); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "SimCard code already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create card")
	}
	s.metrics.IncrementCardsCreated(1)
	return card, nil
}

// BulkCreate registers many cards at once. Partial success is the contract:
// each rejected code is reported alongside the created cards instead of
// failing the whole batch.
func (s *Service) BulkCreate(ctx context.Context, codes []string) (*BulkCreateResult, error) {
	result := &BulkCreateResult{
		Created: []*models.SimCard{},
		Failed:  []FailedCard{},
	}
	for _, code := range codes {
		card, err := models.New(code, s.now())
		if err != nil {
			result.Failed = append(result.Failed, FailedCard{Code: code, Reason: err.Error()})
			continue
		}
		if err := s.cards.Create(ctx, card); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				result.Failed = append(result.Failed, FailedCard{Code: card.Code, Reason: "Code already exists"})
				continue
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create card")
		}
		result.Created = append(result.Created, card)
	}
	s.metrics.IncrementCardsCreated(len(result.Created))
	s.logger.InfoContext(ctx, "bulk card intake",
		"created", len(result.Created),
		"failed", len(result.Failed))
	return result, nil
}

// Get returns one card by id.
func (s *Service) Get(ctx context.Context, cardID id.CardID) (*models.SimCard, error) {
	card, err := s.cards.FindByID(ctx, cardID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "SimCard not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load card")
	}
	return card, nil
}

// List returns cards matching the filter, oldest first.
func (s *Service) List(ctx context.Context, filter store.Filter) ([]*models.SimCard, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown card status: %q", string(filter.Status))
	}
	cards, err := s.cards.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list cards")
	}
	return cards, nil
}

// Update applies a partial update to one card. Assigning through an update
// resolves and snapshots the shop name unless the caller supplied one.
func (s *Service) Update(ctx context.Context, cardID id.CardID, update models.CardUpdate) (*models.SimCard, error) {
	if update.AssignedTo != nil && update.AssignedShopName == nil && !update.ClearAssignment {
		name, err := s.shops.ShopName(ctx, *update.AssignedTo)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.New(dErrors.CodeNotFound, "Shop not found")
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load shop")
		}
		update.AssignedShopName = &name
	}

	var updated *models.SimCard
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		card, err := s.cards.FindByIDForUpdate(ctx, cardID)
		if err != nil {
			return err
		}
		if err := update.ApplyTo(card, s.now()); err != nil {
			return err
		}
		if err := s.cards.Update(ctx, card); err != nil {
			return err
		}
		updated = card
		return nil
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "SimCard not found")
		}
		if dErrors.CodeOf(err) != dErrors.CodeInternal {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update card")
	}
	return updated, nil
}

// Delete removes a card. Transition log entries for it are retained as an
// audit trail.
func (s *Service) Delete(ctx context.Context, cardID id.CardID) error {
	if err := s.cards.Delete(ctx, cardID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "SimCard not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete card")
	}
	return nil
}

// Assign hands count available cards to a shop, all or nothing. When fewer
// cards are available than requested, nothing is mutated and the error
// reports how many were available.
func (s *Service) Assign(ctx context.Context, shopID id.ShopID, count int) (*AssignResult, error) {
	if count <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "count must be positive")
	}

	shopName, err := s.shops.ShopName(ctx, shopID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "Shop not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load shop")
	}

	result := &AssignResult{ShopID: shopID, ShopName: shopName}
	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		available, err := s.cards.ListAvailableForUpdate(ctx, count)
		if err != nil {
			return err
		}
		if len(available) < count {
			return dErrors.Newf(dErrors.CodeInvalidInput, "Only %d simcards available", len(available))
		}
		for _, card := range available {
			if err := card.Assign(shopID, shopName); err != nil {
				return err
			}
			if err := s.cards.Update(ctx, card); err != nil {
				return err
			}
		}
		result.Assigned = available
		return nil
	})
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInvalidInput {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to assign cards")
	}

	s.logger.InfoContext(ctx, "cards assigned",
		"shop_id", shopID,
		"count", len(result.Assigned))
	return result, nil
}
