package domain

import dErrors "simtrack/pkg/domain-errors"

// CardStatus is the lifecycle state of a SIM card.
// Invariant: the value must be one of the supported statuses, and the
// reconciliation engine only ever moves a card toward CardStatusSold.
//
// Usage: construct via ParseCardStatus at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type CardStatus string

const (
	CardStatusAvailable CardStatus = "available"
	CardStatusAssigned  CardStatus = "assigned"
	CardStatusSold      CardStatus = "sold"
)

// validCardStatuses is the single source of truth for valid statuses.
var validCardStatuses = map[CardStatus]bool{
	CardStatusAvailable: true,
	CardStatusAssigned:  true,
	CardStatusSold:      true,
}

// ParseCardStatus constructs a CardStatus from external input.
func ParseCardStatus(s string) (CardStatus, error) {
	status := CardStatus(s)
	if !validCardStatuses[status] {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown card status: %q", s)
	}
	return status, nil
}

func (s CardStatus) String() string { return string(s) }

// IsValid reports whether the status is one of the supported values.
func (s CardStatus) IsValid() bool { return validCardStatuses[s] }
