/**
 * @description
 * This file contains the HTTP handlers for the service's endpoints: the
 * Paystack webhook, payment initialization, and transaction verification.
 * Handlers parse incoming requests, call the pipeline service or the
 * Paystack client, and write the HTTP response. The webhook handler buffers
 * the raw body because the signature covers the exact bytes on the wire.
 *
 * @dependencies
 * - encoding/json, errors, io, log, math, net/http: Standard Go libraries.
 * - github.com/go-chi/chi/v5: URL parameter extraction.
 * - github.com/google/uuid: Request ids for webhook log correlation.
 * - internal/app: The webhook pipeline.
 * - pkg/paystackclient: Outbound Paystack calls.
 */

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/isaacadu1245/MY-APP/internal/app"
	"github.com/isaacadu1245/MY-APP/pkg/paystackclient"
)

// signatureHeader is the header Paystack signs webhook deliveries with.
const signatureHeader = "x-paystack-signature"

// Handlers holds the pipeline service and outbound clients the HTTP layer
// uses.
type Handlers struct {
	service     *app.Service
	payments    *paystackclient.Client
	emailDomain string
}

// NewHandlers creates a new instance of Handlers.
func NewHandlers(service *app.Service, payments *paystackclient.Client, emailDomain string) *Handlers {
	return &Handlers{service: service, payments: payments, emailDomain: emailDomain}
}

type statusResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, body statusResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("level=error component=api msg=\"response encode failed\" err=%v", err)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, statusResponse{Status: "error", Message: message})
}

// WebhookHandler processes incoming webhooks from Paystack.
func (h *Handlers) WebhookHandler(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Printf("level=warn component=api endpoint=webhook request_id=%s msg=\"body read failed\" err=%v", requestID, err)
		h.writeError(w, http.StatusBadRequest, "Cannot read request body.")
		return
	}

	result := h.service.HandleWebhook(r.Context(), body, r.Header.Get(signatureHeader))
	log.Printf("level=info component=api endpoint=webhook request_id=%s status=%d outcome=%s", requestID, result.Code, result.Status)
	writeJSON(w, result.Code, statusResponse{Status: result.Status, Message: result.Message})
}

// initializePaymentRequest is the payload sent by the storefront to start a
// checkout. Amount is in whole currency units (GHS); Paystack expects minor
// units, so it is scaled before forwarding.
type initializePaymentRequest struct {
	Amount          float64 `json:"amount"`
	BuyerNumber     string  `json:"buyerNumber"`
	RecipientNumber string  `json:"recipientNumber"`
	Plan            string  `json:"plan"`
	Network         string  `json:"network"`
}

// InitializePaymentHandler creates a Paystack transaction carrying the
// purchase intent as metadata custom fields, so the webhook can recover it
// after payment.
func (h *Handlers) InitializePaymentHandler(w http.ResponseWriter, r *http.Request) {
	var req initializePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=initialize_payment outcome=reject reason=invalid_json err=%v", err)
		h.writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	if req.Amount <= 0 {
		h.writeError(w, http.StatusBadRequest, "Amount must be greater than zero.")
		return
	}
	for field, value := range map[string]string{
		"buyerNumber":     req.BuyerNumber,
		"recipientNumber": req.RecipientNumber,
		"plan":            req.Plan,
		"network":         req.Network,
	} {
		if strings.TrimSpace(value) == "" {
			h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Missing required field: %s.", field))
			return
		}
	}

	initReq := paystackclient.InitializeRequest{
		Amount: int64(math.Round(req.Amount * 100)),
		Email:  fmt.Sprintf("%s@%s", req.BuyerNumber, h.emailDomain),
		Metadata: paystackclient.Metadata{
			CustomFields: []paystackclient.CustomField{
				{DisplayName: "Recipient Phone", VariableName: "recipient_number", Value: req.RecipientNumber},
				{DisplayName: "Selected Plan", VariableName: "selected_plan", Value: req.Plan},
				{DisplayName: "Selected Network", VariableName: "selected_network", Value: req.Network},
				{DisplayName: "Buyer Number", VariableName: "buyer_number", Value: req.BuyerNumber},
			},
		},
	}

	initResp, err := h.payments.InitializeTransaction(r.Context(), initReq)
	if err != nil {
		var apiErr *paystackclient.APIError
		if errors.As(err, &apiErr) {
			log.Printf("level=warn component=api endpoint=initialize_payment outcome=reject reason=gateway_rejected status=%d detail=%q", apiErr.StatusCode, apiErr.Message)
			h.writeError(w, http.StatusBadGateway, apiErr.Message)
			return
		}
		log.Printf("level=error component=api endpoint=initialize_payment outcome=error reason=gateway_unreachable err=%v", err)
		h.writeError(w, http.StatusBadGateway, "Could not reach the payment gateway.")
		return
	}

	log.Printf("level=info component=api endpoint=initialize_payment outcome=accepted reference=%s", initResp.Data.Reference)
	writeJSON(w, http.StatusOK, statusResponse{
		Status:  "success",
		Message: initResp.Message,
		Data: map[string]string{
			"authorization_url": initResp.Data.AuthorizationURL,
			"access_code":       initResp.Data.AccessCode,
			"reference":         initResp.Data.Reference,
		},
	})
}

// VerifyPaymentHandler proxies a transaction verification to Paystack and
// reports the gateway's view of the transaction.
func (h *Handlers) VerifyPaymentHandler(w http.ResponseWriter, r *http.Request) {
	reference := strings.TrimSpace(chi.URLParam(r, "reference"))
	if reference == "" {
		h.writeError(w, http.StatusBadRequest, "No transaction reference provided.")
		return
	}

	verifyResp, err := h.payments.VerifyTransaction(r.Context(), reference)
	if err != nil {
		var apiErr *paystackclient.APIError
		if errors.As(err, &apiErr) {
			log.Printf("level=warn component=api endpoint=verify_payment outcome=reject reference=%s status=%d detail=%q", reference, apiErr.StatusCode, apiErr.Message)
			h.writeError(w, http.StatusBadGateway, apiErr.Message)
			return
		}
		log.Printf("level=error component=api endpoint=verify_payment outcome=error reference=%s err=%v", reference, err)
		h.writeError(w, http.StatusBadGateway, "Could not contact the payment gateway for verification.")
		return
	}

	if verifyResp.Data.Status != "success" {
		writeJSON(w, http.StatusOK, statusResponse{
			Status:  "pending",
			Message: "Payment is not (yet) successful.",
			Data:    map[string]interface{}{"reference": reference, "gateway_status": verifyResp.Data.Status},
		})
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		Status:  "success",
		Message: "Payment verified.",
		Data: map[string]interface{}{
			"reference":      reference,
			"gateway_status": verifyResp.Data.Status,
			"amount":         verifyResp.Data.Amount,
		},
	})
}
