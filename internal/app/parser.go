/**
 * @description
 * This file decodes an authenticated webhook body into a ChargeNotification.
 * Paystack metadata arrives in two shapes depending on how the transaction
 * was initialized: a flat object of key/value pairs, or an object holding a
 * custom_fields array of {variable_name, value} entries. Both are normalized
 * into a single string map here so the rest of the pipeline only ever sees
 * one representation.
 *
 * @dependencies
 * - encoding/json, errors, fmt, strconv: Standard Go libraries.
 * - internal/domain: Webhook event models.
 */

package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/isaacadu1245/MY-APP/internal/domain"
)

var (
	// ErrMalformedPayload indicates the body was not a valid JSON event.
	ErrMalformedPayload = errors.New("malformed webhook payload")
	// ErrMissingReference indicates a charge.success event without a
	// transaction reference. Such an event cannot be deduplicated and must
	// be rejected rather than processed.
	ErrMissingReference = errors.New("charge event missing transaction reference")
)

// ParseEvent decodes a raw webhook body into a ChargeNotification. An absent
// event field yields an empty EventKind, which the pipeline acknowledges as
// ignored; Paystack introduces new event kinds without notice and they must
// not be rejected.
func ParseEvent(body []byte) (*domain.ChargeNotification, error) {
	var event domain.PaystackEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	notification := &domain.ChargeNotification{
		EventKind: event.Event,
		Reference: event.Data.Reference,
		Amount:    event.Data.Amount,
		Metadata:  map[string]string{},
	}

	if event.Event != domain.EventChargeSuccess {
		return notification, nil
	}

	if event.Data.Reference == "" {
		return nil, ErrMissingReference
	}

	notification.Metadata = normalizeMetadata(event.Data.Metadata)
	return notification, nil
}

// normalizeMetadata flattens both supported metadata shapes into one string
// map. Flat keys and custom_fields entries can coexist on one transaction;
// custom_fields values win on key collision because they are what the
// payment-initialization side writes deliberately.
func normalizeMetadata(raw json.RawMessage) map[string]string {
	normalized := map[string]string{}
	if len(raw) == 0 {
		return normalized
	}

	var flat map[string]interface{}
	if err := json.Unmarshal(raw, &flat); err != nil {
		// Paystack sends metadata: "" or metadata: null when none was
		// attached at initialization.
		return normalized
	}

	for key, value := range flat {
		if key == "custom_fields" {
			continue
		}
		if s := stringifyMetadataValue(value); s != "" {
			normalized[key] = s
		}
	}

	if rawFields, ok := flat["custom_fields"]; ok {
		fieldsJSON, err := json.Marshal(rawFields)
		if err != nil {
			return normalized
		}
		var fields []domain.CustomField
		if err := json.Unmarshal(fieldsJSON, &fields); err != nil {
			return normalized
		}
		for _, field := range fields {
			if field.VariableName != "" && field.Value != "" {
				normalized[field.VariableName] = field.Value
			}
		}
	}

	return normalized
}

func stringifyMetadataValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}
