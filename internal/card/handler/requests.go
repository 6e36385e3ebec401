package handler

import (
	"errors"

	"simtrack/internal/card/models"
	id "simtrack/pkg/domain"
	dErrors "simtrack/pkg/domain-errors"
)

// CreateRequest is the body for POST /simcards.
type CreateRequest struct {
	Code string `json:"code"`
}

func (r CreateRequest) Validate() error {
	if r.Code == "" {
		return errors.New("code is required")
	}
	return nil
}

// BulkCreateRequest is the body for POST /simcards/bulk.
type BulkCreateRequest struct {
	Codes []string `json:"codes"`
}

func (r BulkCreateRequest) Validate() error {
	if len(r.Codes) == 0 {
		return errors.New("codes is required")
	}
	return nil
}

// UpdateRequest is the body for PUT /simcards/{cardID}. All fields are
// optional; absent fields leave the card untouched. Setting assigned_to to
// an empty string clears the assignment.
type UpdateRequest struct {
	Status           *string `json:"status,omitempty"`
	AssignedTo       *string `json:"assignedTo,omitempty"`
	AssignedShopName *string `json:"assignedShopName,omitempty"`
}

// ToCardUpdate translates the wire shape into the typed partial update.
func (r UpdateRequest) ToCardUpdate() (models.CardUpdate, error) {
	var update models.CardUpdate
	if r.Status != nil {
		status, err := id.ParseCardStatus(*r.Status)
		if err != nil {
			return models.CardUpdate{}, err
		}
		update.Status = &status
	}
	if r.AssignedTo != nil {
		if *r.AssignedTo == "" {
			update.ClearAssignment = true
		} else {
			shopID, err := id.ParseShopID(*r.AssignedTo)
			if err != nil {
				return models.CardUpdate{}, dErrors.New(dErrors.CodeBadRequest, "invalid assignedTo")
			}
			update.AssignedTo = &shopID
		}
	}
	update.AssignedShopName = r.AssignedShopName
	return update, nil
}

// AssignRequest is the body for POST /simcards/assign.
type AssignRequest struct {
	ShopID string `json:"shop_id"`
	Count  int    `json:"count"`
}

func (r AssignRequest) Validate() error {
	if r.ShopID == "" {
		return errors.New("shop_id is required")
	}
	if r.Count <= 0 {
		return errors.New("count must be positive")
	}
	return nil
}
