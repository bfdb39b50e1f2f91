/**
 * @description
 * This package provides a client for the Paystack API. It covers the two
 * calls the service makes: initializing a transaction with the purchase
 * intent attached as metadata custom fields, and verifying a transaction's
 * status by reference. The metadata keys written here are the same ones the
 * webhook pipeline's resolver recognizes, which is what lets the webhook
 * recover the purchase intent later.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, io, log, net/http, net/url, time:
 *   Standard Go libraries.
 */
package paystackclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"
)

// Client is a client for the Paystack API.
type Client struct {
	BaseURL    string
	SecretKey  string
	HTTPClient *http.Client
}

// NewClient creates a new Paystack API client.
func NewClient(baseURL, secretKey string) *Client {
	return &Client{
		BaseURL:   baseURL,
		SecretKey: secretKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// InitializeRequest is the payload for transaction initialization. Amount is
// in minor currency units (pesewas).
type InitializeRequest struct {
	Amount   int64    `json:"amount"`
	Email    string   `json:"email"`
	Metadata Metadata `json:"metadata"`
}

// Metadata carries the purchase intent as custom fields, the shape the
// hosted checkout preserves end to end.
type Metadata struct {
	CustomFields []CustomField `json:"custom_fields"`
}

// CustomField is one metadata entry on a Paystack transaction.
type CustomField struct {
	DisplayName  string `json:"display_name"`
	VariableName string `json:"variable_name"`
	Value        string `json:"value"`
}

// InitializeResponse is the response from transaction initialization.
type InitializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

// VerifyResponse is the response from transaction verification.
type VerifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status    string `json:"status"`
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
	} `json:"data"`
}

// APIError represents a non-2xx response from Paystack.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("paystack api error (status %d): %s", e.StatusCode, e.Message)
}

// InitializeTransaction creates a Paystack transaction and returns the
// checkout authorization details.
func (c *Client) InitializeTransaction(ctx context.Context, req InitializeRequest) (*InitializeResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal initialize request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/transaction/initialize", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create initialize request: %w", err)
	}
	c.setHeaders(httpReq)

	var initResp InitializeResponse
	if err := c.do(httpReq, "initialize", &initResp); err != nil {
		return nil, err
	}
	return &initResp, nil
}

// VerifyTransaction fetches the current status of a transaction by its
// reference.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*VerifyResponse, error) {
	endpoint := c.BaseURL + "/transaction/verify/" + url.PathEscape(reference)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create verify request: %w", err)
	}
	c.setHeaders(httpReq)

	var verifyResp VerifyResponse
	if err := c.do(httpReq, "verify", &verifyResp); err != nil {
		return nil, err
	}
	return &verifyResp, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
}

func (c *Client) do(req *http.Request, op string, out interface{}) error {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute %s request: %w", op, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errBody struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(bodyBytes, &errBody); err != nil || errBody.Message == "" {
			errBody.Message = "unexpected response"
		}
		log.Printf("level=warn component=paystack_client op=%s status=%d detail=%q", op, resp.StatusCode, errBody.Message)
		return &APIError{StatusCode: resp.StatusCode, Message: errBody.Message}
	}

	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return nil
}
