package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"miam_back_end/internal/services"

	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/paymentintent"
	"github.com/stripe/stripe-go/v83/refund"
	"github.com/stripe/stripe-go/v83/webhook"
)

// Config de la passerelle Stripe; URL ne sert qu'à pointer vers un faux serveur
type Config struct {
	SecretKey     string
	WebhookSecret string
	Timeout       time.Duration
	URL           string
}

// StripeGateway implémente services.Gateway
type StripeGateway struct {
	intents       *paymentintent.Client
	refunds       *refund.Client
	webhookSecret string
}

func NewStripeGateway(cfg Config) *StripeGateway {
	if cfg.SecretKey == "" {
		log.Println("⚠️ STRIPE_SECRET_KEY non défini, les paiements par carte échoueront")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	backendCfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: cfg.Timeout},
		MaxNetworkRetries: stripe.Int64(0), // un seul essai, l'appelant décide de relancer
	}
	if cfg.URL != "" {
		backendCfg.URL = stripe.String(cfg.URL)
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg)

	return &StripeGateway{
		intents:       &paymentintent.Client{B: backend, Key: cfg.SecretKey},
		refunds:       &refund.Client{B: backend, Key: cfg.SecretKey},
		webhookSecret: cfg.WebhookSecret,
	}
}

func (g *StripeGateway) CreateIntent(ctx context.Context, req services.IntentRequest) (*services.Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.AmountCents),
		Currency: stripe.String(req.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: req.Metadata,
	}
	params.Context = ctx
	// Un double clic sur "payer" ne crée pas deux intents pour le même montant
	if orderID := req.Metadata["order_id"]; orderID != "" {
		params.SetIdempotencyKey("intent:" + orderID + ":" + strconv.FormatInt(req.AmountCents, 10))
	}

	intent, err := g.intents.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: création PaymentIntent: %w", err)
	}
	log.Printf("💳 PaymentIntent créé : %s (%d %s)", intent.ID, req.AmountCents, req.Currency)
	return &services.Intent{ID: intent.ID, ClientSecret: intent.ClientSecret}, nil
}

func (g *StripeGateway) Refund(ctx context.Context, req services.RefundRequest) (string, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(req.IntentID),
		Amount:        stripe.Int64(req.AmountCents),
		Reason:        stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	params.Context = ctx
	if req.Reason != "" {
		params.AddMetadata("reason", req.Reason)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	r, err := g.refunds.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe: remboursement %s: %w", req.IntentID, err)
	}
	log.Printf("💸 Remboursement Stripe %s créé pour %s (%d)", r.ID, req.IntentID, req.AmountCents)
	return r.ID, nil
}

// ParseWebhook vérifie la signature puis extrait l'intent concerné
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*services.WebhookEvent, error) {
	if g.webhookSecret == "" {
		return nil, errors.New("STRIPE_WEBHOOK_SECRET non configuré")
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, err
	}
	return decodeEvent(event)
}

func decodeEvent(event stripe.Event) (*services.WebhookEvent, error) {
	ev := &services.WebhookEvent{ID: event.ID, Type: string(event.Type)}
	if event.Data == nil {
		return ev, nil
	}

	switch ev.Type {
	case services.EventPaymentSucceeded, services.EventPaymentFailed:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("PaymentIntent illisible: %w", err)
		}
		ev.IntentID = pi.ID
		if pi.LastPaymentError != nil {
			ev.ErrorMessage = pi.LastPaymentError.Msg
		}
	case services.EventChargeRefunded:
		var ch stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
			return nil, fmt.Errorf("Charge illisible: %w", err)
		}
		if ch.PaymentIntent != nil {
			ev.IntentID = ch.PaymentIntent.ID
		}
		ev.AmountRefundedCents = ch.AmountRefunded
	}
	return ev, nil
}
