package reconcile

import (
	"context"
	"log/slog"
	"time"

	id "simtrack/pkg/domain"
	dErrors "simtrack/pkg/domain-errors"
	"simtrack/pkg/requestcontext"
)

// Reconciler is the engine surface the coordinator drives.
type Reconciler interface {
	Reconcile(ctx context.Context, cardID id.CardID) (*Outcome, error)
}

// UnitResult is the per-card outcome of a batch check.
type UnitResult struct {
	CardID         id.CardID     `json:"simCardId"`
	Status         id.CardStatus `json:"status"`
	IsSold         bool          `json:"isSold"`
	SaleDate       *time.Time    `json:"saleDate,omitempty"`
	LastChecked    time.Time     `json:"lastChecked"`
	ExternalStatus string        `json:"externalStatus"`
	StatusChanged  bool          `json:"statusChanged"`
}

// SoldCard identifies a card first observed as sold during this batch,
// with the shop name snapshot at check time.
type SoldCard struct {
	CardID   id.CardID `json:"id"`
	Code     string    `json:"code"`
	ShopName string    `json:"shopName"`
}

// Report summarizes a targeted batch check.
type Report struct {
	Results      []UnitResult `json:"results"`
	Timestamp    time.Time    `json:"timestamp"`
	NewlySold    []SoldCard   `json:"newlySold"`
	TotalChecked int          `json:"totalChecked"`
}

// Coordinator drives the engine across a collection of cards.
type Coordinator struct {
	engine Reconciler
	logger *slog.Logger
}

// NewCoordinator constructs a Coordinator.
func NewCoordinator(engine Reconciler, logger *slog.Logger) *Coordinator {
	return &Coordinator{engine: engine, logger: logger}
}

// CheckMany reconciles each card sequentially and collects the change
// report. Cards that vanished mid-batch are skipped; TotalChecked still
// counts them because the caller asked for them. Explicit batches are
// caller-sized, so no pacing is applied here.
func (c *Coordinator) CheckMany(ctx context.Context, cardIDs []id.CardID) (*Report, error) {
	report := &Report{
		Results:      []UnitResult{},
		NewlySold:    []SoldCard{},
		Timestamp:    requestcontext.Now(ctx),
		TotalChecked: len(cardIDs),
	}
	c.logger.InfoContext(ctx, "starting batch check", "count", len(cardIDs))

	for _, cardID := range cardIDs {
		outcome, err := c.engine.Reconcile(ctx, cardID)
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeNotFound) {
				continue
			}
			return nil, err
		}

		card := outcome.Card
		result := UnitResult{
			CardID:         card.ID,
			Status:         card.Status,
			IsSold:         card.Status == id.CardStatusSold,
			SaleDate:       card.SaleDate,
			ExternalStatus: outcome.Result.Status,
			StatusChanged:  outcome.StatusChanged,
		}
		if card.LastChecked != nil {
			result.LastChecked = *card.LastChecked
		}
		report.Results = append(report.Results, result)

		if outcome.StatusChanged && card.Status == id.CardStatusSold {
			report.NewlySold = append(report.NewlySold, SoldCard{
				CardID:   card.ID,
				Code:     card.Code,
				ShopName: card.AssignedShopName,
			})
		}
	}

	c.logger.InfoContext(ctx, "batch check completed",
		"total", report.TotalChecked,
		"newly_sold", len(report.NewlySold))
	return report, nil
}
