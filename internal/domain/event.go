/**
 * @description
 * This file defines the domain models for webhook notifications received from
 * Paystack. The raw payload carries the event kind plus a data object whose
 * metadata can arrive in two shapes (a flat object or a list of custom
 * fields), so the decoded form keeps metadata as raw JSON until the parser
 * normalizes it.
 *
 * @dependencies
 * - encoding/json: Standard Go library for deferred metadata decoding.
 */

package domain

import "encoding/json"

// EventChargeSuccess is the Paystack event kind that triggers fulfillment.
const EventChargeSuccess = "charge.success"

// PaystackEvent is the top-level webhook payload sent by Paystack.
type PaystackEvent struct {
	Event string    `json:"event"`
	Data  EventData `json:"data"`
}

// EventData carries the transaction details of a webhook event. Metadata is
// kept raw because Paystack delivers it either as a flat object or as a
// custom_fields array depending on how the transaction was initialized.
type EventData struct {
	Reference string          `json:"reference"`
	Amount    int64           `json:"amount"`
	Status    string          `json:"status"`
	Metadata  json.RawMessage `json:"metadata"`
}

// CustomField is one entry of the metadata.custom_fields representation used
// by transactions initialized through the hosted checkout flow.
type CustomField struct {
	DisplayName  string `json:"display_name"`
	VariableName string `json:"variable_name"`
	Value        string `json:"value"`
}

// ChargeNotification is a verified, decoded webhook notification. Metadata
// from either payload shape has been normalized into a single string map.
type ChargeNotification struct {
	EventKind string
	Reference string
	Amount    int64
	Metadata  map[string]string
}
