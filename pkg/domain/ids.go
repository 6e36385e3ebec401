package domain

import (
	"github.com/google/uuid"

	dErrors "simtrack/pkg/domain-errors"
)

// Typed identifiers keep card and shop IDs from being interchanged at compile
// time. Parsing enforces the invariant that IDs are valid, non-nil UUIDs at
// trust boundaries (HTTP handlers, batch payloads).

type CardID uuid.UUID

type ShopID uuid.UUID

// NewCardID returns a fresh random card ID.
func NewCardID() CardID { return CardID(uuid.New()) }

// NewShopID returns a fresh random shop ID.
func NewShopID() ShopID { return ShopID(uuid.New()) }

// ParseCardID validates and returns a CardID.
func ParseCardID(s string) (CardID, error) {
	u, err := parse(s, "card id")
	return CardID(u), err
}

// ParseShopID validates and returns a ShopID.
func ParseShopID(s string) (ShopID, error) {
	u, err := parse(s, "shop id")
	return ShopID(u), err
}

func parse(s, what string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is required", what)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "invalid %s", what)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s must not be nil", what)
	}
	return u, nil
}

func (c CardID) String() string { return uuid.UUID(c).String() }
func (c CardID) IsNil() bool    { return uuid.UUID(c) == uuid.Nil }

// MarshalText renders the ID as its canonical UUID string in JSON and logs.
func (c CardID) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *CardID) UnmarshalText(text []byte) error {
	parsed, err := ParseCardID(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func (s ShopID) String() string { return uuid.UUID(s).String() }
func (s ShopID) IsNil() bool    { return uuid.UUID(s) == uuid.Nil }

func (s ShopID) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *ShopID) UnmarshalText(text []byte) error {
	parsed, err := ParseShopID(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
