package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/isaacadu1245/MY-APP/internal/domain"
	"github.com/isaacadu1245/MY-APP/internal/store"
)

const testSecret = "sk_test_pipeline"

type fakeFulfiller struct {
	mu      sync.Mutex
	calls   int
	outcome domain.FulfillmentOutcome

	// When set, PurchaseBundle signals entered and then blocks until
	// release is closed. Used to hold a delivery in flight.
	entered chan struct{}
	release chan struct{}
}

func (f *fakeFulfiller) PurchaseBundle(ctx context.Context, req domain.FulfillmentRequest) domain.FulfillmentOutcome {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.release
	}
	return f.outcome
}

func (f *fakeFulfiller) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestService(fulfiller Fulfiller) *Service {
	receipts := store.NewMemoryStore(time.Hour, time.Minute)
	return NewService(testSecret, testTariffs(), receipts, fulfiller, nil, "fulfillment_events")
}

func signedChargeBody(t *testing.T, reference string, amount int64, metadata map[string]string) ([]byte, string) {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"event": "charge.success",
		"data": map[string]interface{}{
			"reference": reference,
			"amount":    amount,
			"metadata":  metadata,
		},
	})
	if err != nil {
		t.Fatalf("failed to build webhook body: %v", err)
	}
	return body, signBody(body, testSecret)
}

func TestHandleWebhookRejectsBadSignature(t *testing.T) {
	fulfiller := &fakeFulfiller{outcome: domain.FulfillmentOutcome{Succeeded: true, Message: "delivered"}}
	service := newTestService(fulfiller)

	body, _ := signedChargeBody(t, "ref_sig", 700, map[string]string{"phone": "0241234567"})

	result := service.HandleWebhook(context.Background(), body, "deadbeef")
	if result.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", result.Code)
	}
	if fulfiller.callCount() != 0 {
		t.Fatalf("expected no provisioning call, got %d", fulfiller.callCount())
	}
}

func TestHandleWebhookIgnoresOtherEventKinds(t *testing.T) {
	fulfiller := &fakeFulfiller{outcome: domain.FulfillmentOutcome{Succeeded: true, Message: "delivered"}}
	service := newTestService(fulfiller)

	body := []byte(`{"event": "subscription.create", "data": {"reference": "ref_sub", "amount": 700}}`)

	result := service.HandleWebhook(context.Background(), body, signBody(body, testSecret))
	if result.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", result.Code)
	}
	if result.Status != "ignored" {
		t.Fatalf("expected status ignored, got %q", result.Status)
	}
	if fulfiller.callCount() != 0 {
		t.Fatalf("expected no provisioning call, got %d", fulfiller.callCount())
	}
}

func TestHandleWebhookMalformedBody(t *testing.T) {
	service := newTestService(&fakeFulfiller{})
	body := []byte(`not json at all`)

	result := service.HandleWebhook(context.Background(), body, signBody(body, testSecret))
	if result.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", result.Code)
	}
}

func TestHandleWebhookFulfillsExactlyOnce(t *testing.T) {
	fulfiller := &fakeFulfiller{outcome: domain.FulfillmentOutcome{Succeeded: true, Message: "1GB MTN delivered"}}
	service := newTestService(fulfiller)

	body, sig := signedChargeBody(t, "ref_once", 700, map[string]string{"recipient_number": "0241234567"})

	first := service.HandleWebhook(context.Background(), body, sig)
	if first.Code != http.StatusOK || first.Status != "success" {
		t.Fatalf("expected first delivery to succeed, got %d %q", first.Code, first.Status)
	}

	second := service.HandleWebhook(context.Background(), body, sig)
	if second.Code != http.StatusOK || second.Status != "success" {
		t.Fatalf("expected duplicate delivery to be acknowledged, got %d %q", second.Code, second.Status)
	}
	if second.Message != "1GB MTN delivered" {
		t.Fatalf("expected duplicate to carry the stored message, got %q", second.Message)
	}
	if fulfiller.callCount() != 1 {
		t.Fatalf("expected exactly one provisioning call, got %d", fulfiller.callCount())
	}
}

func TestHandleWebhookUnmappedAmount(t *testing.T) {
	fulfiller := &fakeFulfiller{}
	service := newTestService(fulfiller)

	body, sig := signedChargeBody(t, "ref_999", 999, map[string]string{"recipient_number": "0241234567"})

	result := service.HandleWebhook(context.Background(), body, sig)
	if result.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", result.Code)
	}
	if fulfiller.callCount() != 0 {
		t.Fatalf("expected no provisioning call, got %d", fulfiller.callCount())
	}
}

func TestHandleWebhookMissingRecipient(t *testing.T) {
	service := newTestService(&fakeFulfiller{})

	body, sig := signedChargeBody(t, "ref_nophone", 700, map[string]string{})

	result := service.HandleWebhook(context.Background(), body, sig)
	if result.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", result.Code)
	}
}

func TestHandleWebhookRetryableFailureAllowsRedelivery(t *testing.T) {
	fulfiller := &fakeFulfiller{outcome: domain.FulfillmentOutcome{Message: "provisioning provider unavailable (status 503)", Retryable: true}}
	service := newTestService(fulfiller)

	body, sig := signedChargeBody(t, "ref_retry", 700, map[string]string{"recipient_number": "0241234567"})

	first := service.HandleWebhook(context.Background(), body, sig)
	if first.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 on retryable failure, got %d", first.Code)
	}

	// The provider recovers before the gateway redelivers.
	fulfiller.mu.Lock()
	fulfiller.outcome = domain.FulfillmentOutcome{Succeeded: true, Message: "delivered"}
	fulfiller.mu.Unlock()

	second := service.HandleWebhook(context.Background(), body, sig)
	if second.Code != http.StatusOK || second.Status != "success" {
		t.Fatalf("expected redelivery to fulfill, got %d %q", second.Code, second.Status)
	}
	if fulfiller.callCount() != 2 {
		t.Fatalf("expected two provisioning calls, got %d", fulfiller.callCount())
	}
}

func TestHandleWebhookPermanentFailureShortCircuitsReplay(t *testing.T) {
	fulfiller := &fakeFulfiller{outcome: domain.FulfillmentOutcome{Message: "invalid number", Retryable: false}}
	service := newTestService(fulfiller)

	body, sig := signedChargeBody(t, "ref_rejected", 700, map[string]string{"recipient_number": "0000"})

	first := service.HandleWebhook(context.Background(), body, sig)
	if first.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", first.Code)
	}
	if first.Message != "invalid number" {
		t.Fatalf("expected provider message surfaced verbatim, got %q", first.Message)
	}

	second := service.HandleWebhook(context.Background(), body, sig)
	if second.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 on replay, got %d", second.Code)
	}
	if second.Message != "invalid number" {
		t.Fatalf("expected stored failure message on replay, got %q", second.Message)
	}
	if fulfiller.callCount() != 1 {
		t.Fatalf("expected one provisioning call despite replay, got %d", fulfiller.callCount())
	}
}

func TestHandleWebhookInFlightDuplicate(t *testing.T) {
	fulfiller := &fakeFulfiller{
		outcome: domain.FulfillmentOutcome{Succeeded: true, Message: "delivered"},
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	service := newTestService(fulfiller)

	body, sig := signedChargeBody(t, "ref_race", 700, map[string]string{"recipient_number": "0241234567"})

	firstDone := make(chan WebhookResult, 1)
	go func() {
		firstDone <- service.HandleWebhook(context.Background(), body, sig)
	}()

	// Wait until the first delivery holds the Pending claim inside the
	// provisioning call, then deliver the duplicate.
	<-fulfiller.entered
	second := service.HandleWebhook(context.Background(), body, sig)
	if second.Code != http.StatusOK {
		t.Fatalf("expected 200 for in-flight duplicate, got %d", second.Code)
	}
	if second.Status != "processing" {
		t.Fatalf("expected status processing, got %q", second.Status)
	}

	close(fulfiller.release)
	first := <-firstDone
	if first.Code != http.StatusOK || first.Status != "success" {
		t.Fatalf("expected first delivery to succeed, got %d %q", first.Code, first.Status)
	}
	if fulfiller.callCount() != 1 {
		t.Fatalf("expected one provisioning call, got %d", fulfiller.callCount())
	}
}

type failingStore struct{}

func (failingStore) Begin(ctx context.Context, reference string) (domain.Decision, error) {
	return domain.Decision{}, errors.New("store unreachable")
}

func (failingStore) Complete(ctx context.Context, reference string, outcome domain.FulfillmentOutcome) error {
	return fmt.Errorf("store unreachable")
}

func TestHandleWebhookStoreFailureKeepsGatewayRetrying(t *testing.T) {
	fulfiller := &fakeFulfiller{outcome: domain.FulfillmentOutcome{Succeeded: true, Message: "delivered"}}
	service := NewService(testSecret, testTariffs(), failingStore{}, fulfiller, nil, "fulfillment_events")

	body, sig := signedChargeBody(t, "ref_outage", 700, map[string]string{"recipient_number": "0241234567"})

	result := service.HandleWebhook(context.Background(), body, sig)
	if result.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 while the store is down, got %d", result.Code)
	}
	if fulfiller.callCount() != 0 {
		t.Fatalf("expected no provisioning call while the store is down, got %d", fulfiller.callCount())
	}
}
