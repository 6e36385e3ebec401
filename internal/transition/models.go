// Package transition holds the append-only log of card status changes. The
// reconcile engine is the only writer; entries are never mutated or deleted.
package transition

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	id "simtrack/pkg/domain"
)

// SourceExternalAPI marks entries produced by reconciliation against the
// authority.
const SourceExternalAPI = "external_api"

// Entry records one observed status change. Details carries the full
// structured authority result that caused the transition, opaque to this
// package.
type Entry struct {
	ID        uuid.UUID       `json:"id"`
	CardID    id.CardID       `json:"simcardId"`
	CardCode  string          `json:"simcardCode"`
	OldStatus id.CardStatus   `json:"oldStatus"`
	NewStatus id.CardStatus   `json:"newStatus"`
	Source    string          `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
	Details   json.RawMessage `json:"details,omitempty"`
}
