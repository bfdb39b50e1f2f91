/**
 * @description
 * This package provides a client for the DataMart provisioning API, which
 * delivers purchased data bundles to recipient phone numbers. The client
 * makes exactly one attempt per call and classifies the result rather than
 * retrying: retry policy belongs to the webhook redelivery loop, not here.
 * The classification separates explicit provider rejections (an invalid
 * number will fail again no matter how often it is retried) from transient
 * trouble like timeouts and 5xx responses.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, io, log, net/http, strings, time:
 *   Standard Go libraries.
 * - internal/domain: FulfillmentRequest and FulfillmentOutcome models.
 */
package datamartclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/isaacadu1245/MY-APP/internal/domain"
)

// requestTimeout bounds a single provisioning attempt.
const requestTimeout = 10 * time.Second

// Client is a client for the DataMart purchase API.
type Client struct {
	Endpoint   string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new DataMart API client.
func NewClient(endpoint, apiKey string) *Client {
	return &Client{
		Endpoint: endpoint,
		APIKey:   apiKey,
		HTTPClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// purchaseRequest is the payload for the DataMart purchase endpoint. The
// gateway field is fixed: purchases settle against the prefunded wallet.
type purchaseRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	Network     string `json:"network"`
	Capacity    string `json:"capacity"`
	Gateway     string `json:"gateway"`
}

// purchaseResponse is the expected response from DataMart.
type purchaseResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// PurchaseBundle issues one provisioning call for the given request and
// classifies the outcome. It never retries.
func (c *Client) PurchaseBundle(ctx context.Context, req domain.FulfillmentRequest) domain.FulfillmentOutcome {
	payload := purchaseRequest{
		PhoneNumber: req.RecipientPhone,
		Network:     req.Network,
		Capacity:    req.Capacity,
		Gateway:     "wallet",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return domain.FulfillmentOutcome{Message: fmt.Sprintf("failed to encode purchase request: %v", err), Retryable: false}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewBuffer(body))
	if err != nil {
		return domain.FulfillmentOutcome{Message: fmt.Sprintf("failed to build purchase request: %v", err), Retryable: false}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		// Network error or timeout: the provider may never have seen the
		// request, so a redelivery is worth attempting.
		log.Printf("level=warn component=datamart_client op=purchase reference=%s msg=\"request failed\" err=%v", req.SourceReference, err)
		return domain.FulfillmentOutcome{Message: fmt.Sprintf("provisioning request failed: %v", err), Retryable: true}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("level=warn component=datamart_client op=purchase reference=%s msg=\"response read failed\" err=%v", req.SourceReference, err)
		return domain.FulfillmentOutcome{Message: fmt.Sprintf("provisioning response unreadable: %v", err), Retryable: true}
	}

	if resp.StatusCode >= 500 {
		log.Printf("level=warn component=datamart_client op=purchase reference=%s status=%d msg=\"provider unavailable\"", req.SourceReference, resp.StatusCode)
		return domain.FulfillmentOutcome{Message: fmt.Sprintf("provisioning provider unavailable (status %d)", resp.StatusCode), Retryable: true}
	}

	var parsed purchaseResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		log.Printf("level=warn component=datamart_client op=purchase reference=%s status=%d msg=\"unparsable response body\"", req.SourceReference, resp.StatusCode)
		return domain.FulfillmentOutcome{Message: fmt.Sprintf("unparsable provisioning response (status %d)", resp.StatusCode), Retryable: true}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 && strings.EqualFold(parsed.Status, "success") {
		message := parsed.Message
		if message == "" {
			message = fmt.Sprintf("%s %s bundle delivered to %s", req.Capacity, req.Network, req.RecipientPhone)
		}
		return domain.FulfillmentOutcome{Succeeded: true, Message: message}
	}

	// The provider answered and declined: surface its message verbatim and
	// do not mark retryable, a redelivery would be declined the same way.
	message := parsed.Message
	if message == "" {
		message = fmt.Sprintf("provisioning declined (status %d)", resp.StatusCode)
	}
	log.Printf("level=warn component=datamart_client op=purchase reference=%s status=%d msg=\"provider declined\" detail=%q", req.SourceReference, resp.StatusCode, message)
	return domain.FulfillmentOutcome{Message: message, Retryable: false}
}
