/**
 * @description
 * This file contains the core webhook pipeline of the service. It runs the
 * stages in a fixed order — signature verification, payload parsing,
 * purchase-intent resolution, the idempotency claim, the provisioning call —
 * and maps each terminal outcome onto the HTTP response the gateway sees.
 * The status code matters operationally: Paystack redelivers a webhook until
 * it receives a 2xx, so 5xx means "retry later" and 4xx means "permanently
 * handled", and the pipeline must choose accordingly.
 *
 * @dependencies
 * - context, errors, log, net/http, time: Standard Go libraries.
 * - internal/domain, internal/store: Models and the idempotency contract.
 * - pkg/rabbitmq: Fulfillment event publishing.
 */

package app

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/isaacadu1245/MY-APP/internal/domain"
	"github.com/isaacadu1245/MY-APP/internal/store"
	"github.com/isaacadu1245/MY-APP/pkg/rabbitmq"
)

// Routing keys for fulfillment lifecycle events.
const (
	RoutingKeyFulfillmentCompleted = "bundle.fulfillment.completed"
	RoutingKeyFulfillmentFailed    = "bundle.fulfillment.failed"
)

// Fulfiller issues one provisioning call and classifies its outcome.
type Fulfiller interface {
	PurchaseBundle(ctx context.Context, req domain.FulfillmentRequest) domain.FulfillmentOutcome
}

// Service orchestrates the webhook fulfillment pipeline.
type Service struct {
	webhookSecret string
	tariffs       domain.TariffTable
	receipts      store.IdempotencyStore
	fulfiller     Fulfiller
	events        rabbitmq.Publisher
	eventExchange string
}

// NewService creates a new pipeline Service. events may be nil when no
// broker is configured; publishing is advisory.
func NewService(
	webhookSecret string,
	tariffs domain.TariffTable,
	receipts store.IdempotencyStore,
	fulfiller Fulfiller,
	events rabbitmq.Publisher,
	eventExchange string,
) *Service {
	return &Service{
		webhookSecret: webhookSecret,
		tariffs:       tariffs,
		receipts:      receipts,
		fulfiller:     fulfiller,
		events:        events,
		eventExchange: eventExchange,
	}
}

// WebhookResult is the HTTP-level outcome of one webhook delivery.
type WebhookResult struct {
	Code    int
	Status  string
	Message string
}

// HandleWebhook runs the full pipeline for one raw webhook delivery. Any
// stage may short-circuit with a terminal result.
func (s *Service) HandleWebhook(ctx context.Context, body []byte, signature string) WebhookResult {
	// Authentication comes first: unauthenticated bytes are never decoded,
	// so attacker-controlled structure cannot reach the resolver.
	if !VerifySignature(body, signature, s.webhookSecret) {
		log.Printf("level=warn component=pipeline outcome=reject reason=invalid_signature")
		return WebhookResult{Code: http.StatusUnauthorized, Status: "error", Message: "Signature verification failed."}
	}

	notification, err := ParseEvent(body)
	if err != nil {
		if errors.Is(err, ErrMissingReference) {
			log.Printf("level=warn component=pipeline outcome=reject reason=missing_reference")
			return WebhookResult{Code: http.StatusBadRequest, Status: "error", Message: "Charge event is missing a transaction reference."}
		}
		log.Printf("level=warn component=pipeline outcome=reject reason=malformed_payload err=%v", err)
		return WebhookResult{Code: http.StatusBadRequest, Status: "error", Message: "Invalid JSON payload."}
	}

	// Unknown event kinds are acknowledged, not rejected: Paystack adds
	// kinds over time and a non-2xx would make it redeliver forever.
	if notification.EventKind != domain.EventChargeSuccess {
		log.Printf("level=info component=pipeline outcome=ignored event=%q", notification.EventKind)
		return WebhookResult{Code: http.StatusOK, Status: "ignored", Message: "Event type ignored."}
	}

	request, err := ResolveIntent(notification, s.tariffs)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnmappedAmount):
			log.Printf("level=error component=pipeline outcome=reject reason=unmapped_amount reference=%s amount=%d", notification.Reference, notification.Amount)
			return WebhookResult{Code: http.StatusNotFound, Status: "error", Message: "Paid amount does not match any configured plan."}
		case errors.Is(err, ErrMissingRecipient):
			log.Printf("level=error component=pipeline outcome=reject reason=missing_recipient reference=%s", notification.Reference)
			return WebhookResult{Code: http.StatusBadRequest, Status: "error", Message: "No recipient phone number in transaction metadata."}
		default:
			log.Printf("level=error component=pipeline outcome=reject reason=resolve_failed reference=%s err=%v", notification.Reference, err)
			return WebhookResult{Code: http.StatusBadRequest, Status: "error", Message: "Could not resolve purchase from transaction."}
		}
	}

	decision, err := s.receipts.Begin(ctx, request.SourceReference)
	if err != nil {
		// A 5xx keeps the gateway retrying, so a store outage loses nothing.
		log.Printf("level=error component=pipeline outcome=error reason=store_unavailable reference=%s err=%v", request.SourceReference, err)
		return WebhookResult{Code: http.StatusInternalServerError, Status: "error", Message: "Fulfillment state unavailable, please retry."}
	}

	switch decision.Outcome {
	case domain.DecisionAlreadyCompleted:
		log.Printf("level=info component=pipeline outcome=duplicate state=completed reference=%s", request.SourceReference)
		return WebhookResult{Code: http.StatusOK, Status: "success", Message: decision.Message}
	case domain.DecisionAlreadyInFlight:
		log.Printf("level=info component=pipeline outcome=duplicate state=in_flight reference=%s", request.SourceReference)
		return WebhookResult{Code: http.StatusOK, Status: "processing", Message: "Fulfillment already in progress."}
	case domain.DecisionAlreadyFailed:
		log.Printf("level=info component=pipeline outcome=duplicate state=failed reference=%s", request.SourceReference)
		return WebhookResult{Code: http.StatusInternalServerError, Status: "error", Message: decision.Message}
	}

	outcome := s.fulfiller.PurchaseBundle(ctx, request)

	if err := s.receipts.Complete(ctx, request.SourceReference, outcome); err != nil {
		// The bundle was (possibly) delivered; losing the receipt risks a
		// duplicate on redelivery, which is why this is logged loudly.
		log.Printf("level=error component=pipeline msg=\"failed to record fulfillment outcome\" reference=%s err=%v", request.SourceReference, err)
	}

	s.publishFulfillmentEvent(ctx, request, outcome)

	if outcome.Succeeded {
		log.Printf("level=info component=pipeline outcome=fulfilled reference=%s network=%s capacity=%s", request.SourceReference, request.Network, request.Capacity)
		return WebhookResult{Code: http.StatusOK, Status: "success", Message: outcome.Message}
	}

	log.Printf("level=error component=pipeline outcome=fulfillment_failed reference=%s retryable=%t detail=%q", request.SourceReference, outcome.Retryable, outcome.Message)
	return WebhookResult{Code: http.StatusInternalServerError, Status: "error", Message: outcome.Message}
}

func (s *Service) publishFulfillmentEvent(ctx context.Context, request domain.FulfillmentRequest, outcome domain.FulfillmentOutcome) {
	if s.events == nil {
		return
	}

	routingKey := RoutingKeyFulfillmentCompleted
	if !outcome.Succeeded {
		routingKey = RoutingKeyFulfillmentFailed
	}

	event := rabbitmq.FulfillmentEvent{
		Reference:      request.SourceReference,
		RecipientPhone: request.RecipientPhone,
		Network:        request.Network,
		Capacity:       request.Capacity,
		Succeeded:      outcome.Succeeded,
		Message:        outcome.Message,
		Timestamp:      time.Now().UTC(),
	}
	if err := s.events.Publish(ctx, s.eventExchange, routingKey, event); err != nil {
		log.Printf("level=warn component=pipeline msg=\"fulfillment event publish failed\" reference=%s routing_key=%s err=%v", request.SourceReference, routingKey, err)
	}
}
