package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"miam_back_end/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v83/webhook"
)

const testWebhookSecret = "whsec_test"

func signedPayload(t *testing.T, payload string) ([]byte, string) {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
	})
	return signed.Payload, signed.Header
}

func TestParseWebhookPaymentFailed(t *testing.T) {
	g := NewStripeGateway(Config{SecretKey: "sk_test", WebhookSecret: testWebhookSecret})
	payload, header := signedPayload(t, `{
		"id": "evt_1",
		"object": "event",
		"type": "payment_intent.payment_failed",
		"data": {"object": {"id": "pi_123", "object": "payment_intent",
			"last_payment_error": {"message": "Carte refusée"}}}
	}`)

	ev, err := g.ParseWebhook(payload, header)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", ev.ID)
	assert.Equal(t, services.EventPaymentFailed, ev.Type)
	assert.Equal(t, "pi_123", ev.IntentID)
	assert.Equal(t, "Carte refusée", ev.ErrorMessage)
}

func TestParseWebhookChargeRefunded(t *testing.T) {
	g := NewStripeGateway(Config{WebhookSecret: testWebhookSecret})
	payload, header := signedPayload(t, `{
		"id": "evt_2",
		"object": "event",
		"type": "charge.refunded",
		"data": {"object": {"id": "ch_1", "object": "charge", "payment_intent": "pi_456", "amount_refunded": 4000}}
	}`)

	ev, err := g.ParseWebhook(payload, header)
	require.NoError(t, err)
	assert.Equal(t, services.EventChargeRefunded, ev.Type)
	assert.Equal(t, "pi_456", ev.IntentID)
	assert.Equal(t, int64(4000), ev.AmountRefundedCents)
}

func TestParseWebhookBadSignature(t *testing.T) {
	g := NewStripeGateway(Config{WebhookSecret: testWebhookSecret})
	_, err := g.ParseWebhook([]byte(`{"id":"evt_3","type":"charge.refunded"}`), "t=1,v1=deadbeef")
	assert.Error(t, err)
}

func TestParseWebhookWithoutSecret(t *testing.T) {
	g := NewStripeGateway(Config{})
	payload, header := signedPayload(t, `{"id":"evt_4","object":"event","type":"charge.refunded"}`)
	_, err := g.ParseWebhook(payload, header)
	assert.Error(t, err)
}

func TestCreateIntentAndRefund(t *testing.T) {
	var gotAmount, gotIdempotency, gotRefundKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/payment_intents":
			gotAmount = r.PostForm.Get("amount")
			gotIdempotency = r.Header.Get("Idempotency-Key")
			fmt.Fprint(w, `{"id":"pi_789","object":"payment_intent","client_secret":"pi_789_secret"}`)
		case "/v1/refunds":
			assert.Equal(t, "pi_789", r.PostForm.Get("payment_intent"))
			assert.Equal(t, "500", r.PostForm.Get("amount"))
			gotRefundKey = r.Header.Get("Idempotency-Key")
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "re_1", "object": "refund"})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	g := NewStripeGateway(Config{SecretKey: "sk_test", URL: srv.URL, Timeout: 2 * time.Second})

	intent, err := g.CreateIntent(context.Background(), services.IntentRequest{
		AmountCents: 1850,
		Currency:    "eur",
		Metadata:    map[string]string{"order_id": "o-1", "order_number": "ORD1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "pi_789", intent.ID)
	assert.Equal(t, "pi_789_secret", intent.ClientSecret)
	assert.Equal(t, "1850", gotAmount)
	assert.Equal(t, "intent:o-1:1850", gotIdempotency)

	refundID, err := g.Refund(context.Background(), services.RefundRequest{
		IntentID:       "pi_789",
		AmountCents:    500,
		Reason:         "article manquant",
		IdempotencyKey: "refund:o-1:0:500",
	})
	require.NoError(t, err)
	assert.Equal(t, "re_1", refundID)
	assert.Equal(t, "refund:o-1:0:500", gotRefundKey)
}

func TestGatewayCallsAreSingleAttempt(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, `{"error":{"type":"api_error","message":"indisponible"}}`)
	}))
	defer srv.Close()

	g := NewStripeGateway(Config{SecretKey: "sk_test", URL: srv.URL, Timeout: 2 * time.Second})
	_, err := g.Refund(context.Background(), services.RefundRequest{IntentID: "pi_789", AmountCents: 500})
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}
