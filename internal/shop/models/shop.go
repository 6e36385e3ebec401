// Package models defines the retail outlets SIM cards are distributed to.
package models

import (
	"strings"
	"time"

	id "simtrack/pkg/domain"
	dErrors "simtrack/pkg/domain-errors"
)

// ShopStatus is the operational state of a shop.
type ShopStatus string

const (
	ShopStatusActive   ShopStatus = "active"
	ShopStatusInactive ShopStatus = "inactive"
)

// ParseShopStatus constructs a ShopStatus from external input.
func ParseShopStatus(s string) (ShopStatus, error) {
	status := ShopStatus(s)
	if status != ShopStatusActive && status != ShopStatusInactive {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown shop status: %q", s)
	}
	return status, nil
}

// Shop is a retail outlet. Cards reference it through their assignedTo field;
// the shop itself carries no card list.
type Shop struct {
	ID         id.ShopID  `json:"id"`
	Name       string     `json:"name"`
	OwnerName  string     `json:"ownerName"`
	OwnerPhone string     `json:"ownerPhone"`
	Address    string     `json:"address"`
	Latitude   *float64   `json:"latitude,omitempty"`
	Longitude  *float64   `json:"longitude,omitempty"`
	Status     ShopStatus `json:"status"`
	Region     string     `json:"region"`
	AddedDate  time.Time  `json:"addedDate"`
}

// NewShopParams carries the caller-supplied fields for New.
type NewShopParams struct {
	Name       string
	OwnerName  string
	OwnerPhone string
	Address    string
	Latitude   *float64
	Longitude  *float64
	Region     string
}

// New constructs an active shop.
func New(params NewShopParams, now time.Time) (*Shop, error) {
	shop := &Shop{
		ID:         id.NewShopID(),
		Name:       strings.TrimSpace(params.Name),
		OwnerName:  strings.TrimSpace(params.OwnerName),
		OwnerPhone: strings.TrimSpace(params.OwnerPhone),
		Address:    strings.TrimSpace(params.Address),
		Latitude:   params.Latitude,
		Longitude:  params.Longitude,
		Status:     ShopStatusActive,
		Region:     strings.TrimSpace(params.Region),
		AddedDate:  now,
	}
	if shop.Name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "shop name cannot be empty")
	}
	if shop.Region == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "shop region cannot be empty")
	}
	return shop, nil
}

// Clone returns a copy safe to hand out from in-memory stores.
func (s *Shop) Clone() *Shop {
	clone := *s
	clone.Latitude = cloneFloat(s.Latitude)
	clone.Longitude = cloneFloat(s.Longitude)
	return &clone
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

// ShopUpdate is a typed partial update; absent fields leave the shop
// untouched.
type ShopUpdate struct {
	Name       *string
	OwnerName  *string
	OwnerPhone *string
	Address    *string
	Latitude   *float64
	Longitude  *float64
	Status     *ShopStatus
	Region     *string
}

// ApplyTo merges the update into the shop.
func (u ShopUpdate) ApplyTo(s *Shop) error {
	if u.Name != nil {
		if strings.TrimSpace(*u.Name) == "" {
			return dErrors.New(dErrors.CodeValidation, "shop name cannot be empty")
		}
		s.Name = strings.TrimSpace(*u.Name)
	}
	if u.OwnerName != nil {
		s.OwnerName = strings.TrimSpace(*u.OwnerName)
	}
	if u.OwnerPhone != nil {
		s.OwnerPhone = strings.TrimSpace(*u.OwnerPhone)
	}
	if u.Address != nil {
		s.Address = strings.TrimSpace(*u.Address)
	}
	if u.Latitude != nil {
		s.Latitude = cloneFloat(u.Latitude)
	}
	if u.Longitude != nil {
		s.Longitude = cloneFloat(u.Longitude)
	}
	if u.Status != nil {
		if _, err := ParseShopStatus(string(*u.Status)); err != nil {
			return err
		}
		s.Status = *u.Status
	}
	if u.Region != nil {
		if strings.TrimSpace(*u.Region) == "" {
			return dErrors.New(dErrors.CodeValidation, "shop region cannot be empty")
		}
		s.Region = strings.TrimSpace(*u.Region)
	}
	return nil
}
