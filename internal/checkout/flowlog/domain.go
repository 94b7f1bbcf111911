// Package flowlog defines the domain types for the checkout flow log.
//
// The flow log is a durable audit trail of every transition a checkout draft
// goes through. It serves two purposes:
//
//  1. Observability: you can query the DB to see exactly where a checkout is
//     (or was) and correlate it with a distributed trace via the trace_id
//     field.
//
//  2. Funnel analysis: abandoned checkouts leave their last reached step in
//     the log, so "how many carts die at address selection" is a single
//     query, with the backend rejection message preserved alongside.
package flowlog

import "time"

// Status represents the lifecycle state of a checkout draft.
type Status string

const (
	StatusStarted          Status = "STARTED"
	StatusStepDone         Status = "STEP_DONE"
	StatusStepRejected     Status = "STEP_REJECTED"
	StatusCouponApplied    Status = "COUPON_APPLIED"
	StatusPaymentInitiated Status = "PAYMENT_INITIATED"
	StatusSubmitted        Status = "SUBMITTED"
	StatusFailed           Status = "FAILED"
	StatusAbandoned        Status = "ABANDONED"
)

// Entry is a single row in the checkout_logs table, a point-in-time
// snapshot of a draft's progress through the flow.
type Entry struct {
	// DraftID identifies the checkout draft this entry belongs to.
	DraftID string

	// Status is the lifecycle state at the time this entry was written.
	Status Status

	// Step is the name of the flow step the draft was on.
	Step string

	// Detail carries the human-readable context for the entry: the backend
	// rejection message on STEP_REJECTED/FAILED, the coupon code on
	// COUPON_APPLIED, the persisted order ID on SUBMITTED.
	Detail string

	// TraceID is the W3C trace ID extracted from the OpenTelemetry span
	// active when this entry was written, so a log row can be joined with
	// the full distributed trace.
	TraceID string

	// SpanID pinpoints the exact span within the trace.
	SpanID string

	// UpdatedAt is the wall-clock time of this entry.
	UpdatedAt time.Time
}
