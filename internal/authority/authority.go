// Package authority talks to the external service that is the source of
// truth for whether a SIM card has been sold. Failures never propagate:
// every call produces a usable Result, degraded to a synthetic error shape
// when the authority is down or rejects the request.
package authority

import (
	"context"
	"time"
)

// StatusError is the status string carried by synthetic results for failed
// authority calls.
const StatusError = "error"

// Result is the normalized authority response for one card code.
type Result struct {
	Status   string     `json:"status"`
	IsSold   bool       `json:"is_sold"`
	SaleDate *time.Time `json:"sale_date,omitempty"`
	Message  string     `json:"message"`
}

// IsError reports whether the result is a synthetic failure shape rather
// than an authoritative answer.
func (r Result) IsError() bool { return r.Status == StatusError }

// ErrorResult builds the synthetic shape for a failed authority call.
func ErrorResult(message string) Result {
	return Result{Status: StatusError, Message: message}
}

// Client checks sale status for one card code. Implementations absorb all
// failures into the returned Result; they never return an error alongside
// it because the reconcile engine must keep operating when the authority is
// down.
type Client interface {
	CheckStatus(ctx context.Context, code string) Result
}
