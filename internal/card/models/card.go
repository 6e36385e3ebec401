package models

import (
	"strings"
	"time"

	id "simtrack/pkg/domain"
	dErrors "simtrack/pkg/domain-errors"
)

// CheckHistoryLimit bounds the per-card reconciliation history. The history
// is a circular log: the newest entry is always last, the oldest is evicted
// first.
const CheckHistoryLimit = 10

// CheckEntry records one reconciliation attempt against the authority,
// including attempts that failed (ExternalStatus "error").
type CheckEntry struct {
	Timestamp      time.Time `json:"timestamp"`
	ExternalStatus string    `json:"external_status"`
	IsSold         bool      `json:"is_sold"`
	Message        string    `json:"message"`
}

// SimCard is a physical inventory unit distributed to shops. Its code is
// human-assigned, unique, and immutable once issued; its status only ever
// moves toward sold through reconciliation.
type SimCard struct {
	ID                id.CardID     `json:"id"`
	Code              string        `json:"code"`
	Status            id.CardStatus `json:"status"`
	AssignedTo        *id.ShopID    `json:"assignedTo,omitempty"`
	AssignedShopName  string        `json:"assignedShopName,omitempty"`
	AddedDate         time.Time     `json:"addedDate"`
	SaleDate          *time.Time    `json:"saleDate,omitempty"`
	LastChecked       *time.Time    `json:"lastChecked,omitempty"`
	LastExternalCheck *time.Time    `json:"lastExternalCheck,omitempty"`
	ExternalStatus    string        `json:"externalStatus,omitempty"`
	CheckHistory      []CheckEntry  `json:"checkHistory"`
}

// New constructs an available card with an empty history.
func New(code string, now time.Time) (*SimCard, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "card code cannot be empty")
	}
	if len(code) > 64 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "card code must be 64 characters or less")
	}
	return &SimCard{
		ID:        id.NewCardID(),
		Code:      code,
		Status:    id.CardStatusAvailable,
		AddedDate: now,
	}, nil
}

// MarkSold moves the card to sold. The sale date is monotonic: once set it is
// never overwritten, and a card never leaves sold again. saleDate is the
// authority-reported date; when the authority did not supply one, now is used.
func (c *SimCard) MarkSold(saleDate *time.Time, now time.Time) {
	c.Status = id.CardStatusSold
	if c.SaleDate == nil {
		if saleDate != nil {
			d := *saleDate
			c.SaleDate = &d
		} else {
			d := now
			c.SaleDate = &d
		}
	}
}

// AppendCheck appends one reconciliation event, evicting from the front past
// CheckHistoryLimit.
func (c *SimCard) AppendCheck(entry CheckEntry) {
	c.CheckHistory = append(c.CheckHistory, entry)
	if n := len(c.CheckHistory); n > CheckHistoryLimit {
		c.CheckHistory = append([]CheckEntry(nil), c.CheckHistory[n-CheckHistoryLimit:]...)
	}
}

// Assign attaches the card to a shop. Only available cards can be assigned.
func (c *SimCard) Assign(shopID id.ShopID, shopName string) error {
	if c.Status != id.CardStatusAvailable {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "card %s is not available", c.Code)
	}
	c.Status = id.CardStatusAssigned
	c.AssignedTo = &shopID
	c.AssignedShopName = shopName
	return nil
}

// Release returns an unsold card to the available pool. Used when its shop is
// deleted. Sold cards keep their assignment snapshot for the audit trail.
func (c *SimCard) Release() {
	if c.Status == id.CardStatusSold {
		return
	}
	c.Status = id.CardStatusAvailable
	c.AssignedTo = nil
	c.AssignedShopName = ""
}

// Clone returns a deep copy so in-memory stores never hand out aliased
// history slices.
func (c *SimCard) Clone() *SimCard {
	clone := *c
	if c.AssignedTo != nil {
		v := *c.AssignedTo
		clone.AssignedTo = &v
	}
	clone.SaleDate = cloneTime(c.SaleDate)
	clone.LastChecked = cloneTime(c.LastChecked)
	clone.LastExternalCheck = cloneTime(c.LastExternalCheck)
	if c.CheckHistory != nil {
		clone.CheckHistory = append([]CheckEntry(nil), c.CheckHistory...)
	}
	return &clone
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
