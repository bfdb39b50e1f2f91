/**
 * @description
 * This file defines the domain models for the fulfillment side of the
 * service: the provisioning request derived from a payment notification, the
 * outcome classification of a provisioning attempt, the tariff table used to
 * map payment amounts onto products, and the idempotency record that guards
 * against double fulfillment when Paystack redelivers a webhook.
 *
 * @dependencies
 * - time: Standard Go library for record timestamps.
 */

package domain

import "time"

// FulfillmentRequest describes one data bundle to provision. All fields are
// required; a request with an empty field never reaches the DataMart client.
type FulfillmentRequest struct {
	RecipientPhone  string
	Network         string
	Capacity        string
	SourceReference string
}

// FulfillmentOutcome is the classified result of a single provisioning
// attempt. Retryable distinguishes transient provider trouble (timeouts,
// 5xx) from explicit rejections that redelivery cannot fix.
type FulfillmentOutcome struct {
	Succeeded bool
	Message   string
	Retryable bool
}

// Product describes a purchasable data bundle in the tariff table.
type Product struct {
	Name     string `json:"name"`
	Network  string `json:"network"`
	Capacity string `json:"capacity"`
}

// TariffTable maps a payment amount in minor currency units (pesewas) to the
// product it purchases. Used when a notification carries no explicit product
// metadata.
type TariffTable map[int64]Product

// Idempotency record states.
const (
	RecordPending   = "pending"
	RecordCompleted = "completed"
	RecordFailed    = "failed"
)

// IdempotencyRecord tracks the fulfillment state of one transaction
// reference across webhook deliveries.
type IdempotencyRecord struct {
	Reference     string
	State         string
	ResultMessage string
	FirstSeenAt   time.Time
}

// Decision outcomes returned by IdempotencyStore.Begin.
const (
	DecisionProceed          = "proceed"
	DecisionAlreadyCompleted = "already_completed"
	DecisionAlreadyInFlight  = "already_in_flight"
	DecisionAlreadyFailed    = "already_failed"
)

// Decision is the verdict for one webhook delivery: either the caller owns
// fulfillment for the reference, or a previous delivery already does.
type Decision struct {
	Outcome string
	Message string
}
