/**
 * @description
 * This file defines the `IdempotencyStore` interface, the contract for the
 * duplicate-suppression state that guards fulfillment. Paystack redelivers a
 * webhook whenever its acknowledgment is slow or non-2xx, sometimes within
 * milliseconds, so Begin must atomically check for and claim a reference in
 * one step. Defining an interface decouples the pipeline from the backing
 * store: in-memory for a single instance, Redis or PostgreSQL when the
 * service runs replicated.
 *
 * @dependencies
 * - context: Standard Go library.
 * - internal/domain: Decision and outcome models.
 */

package store

import (
	"context"

	"github.com/isaacadu1245/MY-APP/internal/domain"
)

// IdempotencyStore guards each transaction reference so at most one webhook
// delivery ever drives fulfillment for it.
type IdempotencyStore interface {
	// Begin atomically claims the reference. Exactly one concurrent caller
	// receives DecisionProceed; the others learn what state the reference
	// is already in. A Pending record older than the pending timeout is
	// reclaimed, so a crash between Begin and Complete cannot wedge the
	// reference forever.
	Begin(ctx context.Context, reference string) (domain.Decision, error)

	// Complete records the outcome for a reference previously claimed via
	// Begin. A successful outcome stores the message for duplicate replays;
	// a retryable failure evicts the record so the next gateway delivery
	// gets a fresh Proceed; a permanent failure is kept so replays
	// short-circuit without another provider call.
	Complete(ctx context.Context, reference string, outcome domain.FulfillmentOutcome) error
}

// Sweeper is implemented by stores whose expired records must be removed by
// a periodic job rather than by the store itself.
type Sweeper interface {
	Sweep(ctx context.Context) error
}
