package models

import (
	"time"

	id "simtrack/pkg/domain"
	dErrors "simtrack/pkg/domain-errors"
)

// CardUpdate is a typed partial update: every optional field carries a
// set-if-present effect, applied through ApplyTo. This replaces ad-hoc
// per-field SQL assembly with one merge function the stores and service
// share.
type CardUpdate struct {
	Status           *id.CardStatus
	AssignedTo       *id.ShopID
	AssignedShopName *string
	// ClearAssignment releases the card from its shop; it wins over
	// AssignedTo when both are set.
	ClearAssignment bool
}

// ApplyTo merges the update into the card. The card code is immutable once
// issued and is deliberately not updatable. A manual move to sold stamps the
// sale date if it is still unset; an existing sale date is never changed.
func (u CardUpdate) ApplyTo(c *SimCard, now time.Time) error {
	if u.Status != nil {
		if !u.Status.IsValid() {
			return dErrors.Newf(dErrors.CodeInvalidInput, "unknown card status: %q", string(*u.Status))
		}
		c.Status = *u.Status
		if *u.Status == id.CardStatusSold && c.SaleDate == nil {
			d := now
			c.SaleDate = &d
		}
	}
	if u.ClearAssignment {
		c.AssignedTo = nil
		c.AssignedShopName = ""
	} else {
		if u.AssignedTo != nil {
			v := *u.AssignedTo
			c.AssignedTo = &v
		}
		if u.AssignedShopName != nil {
			c.AssignedShopName = *u.AssignedShopName
		}
	}
	return nil
}
