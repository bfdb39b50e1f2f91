/**
 * @description
 * This file turns a verified charge notification into a concrete
 * FulfillmentRequest. Two resolution strategies run in a fixed order: first
 * the explicit product metadata attached at payment initialization, then a
 * lookup of the paid amount in the configured tariff table. The historical
 * payment-initialization variants used several different metadata keys for
 * the same fields, so each field is matched against a canonical key list.
 *
 * @dependencies
 * - errors: Standard Go library for sentinel errors.
 * - internal/domain: Fulfillment and tariff models.
 */

package app

import (
	"errors"

	"github.com/isaacadu1245/MY-APP/internal/domain"
)

var (
	// ErrMissingRecipient indicates no phone number was found under any
	// recognized metadata key. Fulfillment has no destination.
	ErrMissingRecipient = errors.New("no recipient phone number in transaction metadata")
	// ErrUnmappedAmount indicates the paid amount matches no configured
	// product and the metadata carried no explicit product either. This is
	// configuration drift between the storefront and the tariff table, not
	// a transient failure, and must never be retried.
	ErrUnmappedAmount = errors.New("paid amount does not map to any configured product")
)

// Recognized metadata keys, in lookup order. The initialization endpoint
// writes recipient_number / selected_plan / selected_network; the older
// variants used recipientNumber, selectedPlanName and phone.
var (
	recipientKeys = []string{"recipient_number", "recipientNumber", "phone", "recipient"}
	networkKeys   = []string{"selected_network", "network"}
	capacityKeys  = []string{"capacity", "selected_plan", "plan", "selectedPlanName"}
)

// ResolveIntent derives the FulfillmentRequest for a charge.success
// notification. It is deterministic and side-effect free: identical inputs
// always yield identical results.
func ResolveIntent(n *domain.ChargeNotification, tariffs domain.TariffTable) (domain.FulfillmentRequest, error) {
	recipient := firstMetadataValue(n.Metadata, recipientKeys)

	// Strategy 1: the transaction carries the full product description.
	network := firstMetadataValue(n.Metadata, networkKeys)
	capacity := firstMetadataValue(n.Metadata, capacityKeys)
	if network != "" && capacity != "" {
		if recipient == "" {
			return domain.FulfillmentRequest{}, ErrMissingRecipient
		}
		return domain.FulfillmentRequest{
			RecipientPhone:  recipient,
			Network:         network,
			Capacity:        capacity,
			SourceReference: n.Reference,
		}, nil
	}

	// Strategy 2: map the paid amount onto a configured product.
	product, ok := tariffs[n.Amount]
	if !ok {
		return domain.FulfillmentRequest{}, ErrUnmappedAmount
	}
	if recipient == "" {
		return domain.FulfillmentRequest{}, ErrMissingRecipient
	}

	return domain.FulfillmentRequest{
		RecipientPhone:  recipient,
		Network:         product.Network,
		Capacity:        product.Capacity,
		SourceReference: n.Reference,
	}, nil
}

func firstMetadataValue(metadata map[string]string, keys []string) string {
	for _, key := range keys {
		if value, ok := metadata[key]; ok && value != "" {
			return value
		}
	}
	return ""
}
