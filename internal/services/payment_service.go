package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"miam_back_end/internal/apperr"
	"miam_back_end/internal/models"
	"miam_back_end/internal/utils"

	"github.com/gocql/gocql"
)

// Types d'événements webhook traités
const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
	EventChargeRefunded   = "charge.refunded"
)

type IntentRequest struct {
	AmountCents int64
	Currency    string
	Metadata    map[string]string
}

type RefundRequest struct {
	IntentID       string
	AmountCents    int64
	Reason         string
	IdempotencyKey string
}

type Intent struct {
	ID           string
	ClientSecret string
}

// WebhookEvent est un événement de la passerelle, déjà vérifié et décodé
type WebhookEvent struct {
	ID           string
	Type         string
	IntentID     string
	ErrorMessage string
	// AmountRefundedCents est le total remboursé sur la charge (charge.refunded)
	AmountRefundedCents int64
}

// Gateway est la passerelle de paiement externe
type Gateway interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	// Refund rembourse une seule fois par clé d'idempotence
	Refund(ctx context.Context, req RefundRequest) (string, error)
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}

type PaymentIntentResult struct {
	ClientSecret    string  `json:"clientSecret"`
	PaymentIntentID string  `json:"paymentIntentId"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
}

// Actor est l'utilisateur authentifié à l'origine d'une action
type Actor struct {
	UserID string
	Role   models.Role
}

type PaymentService struct {
	orders   OrderRepository
	gateway  Gateway
	notifier *NotificationService
	tasks    Enqueuer
	currency string
	now      func() time.Time
}

func NewPaymentService(orders OrderRepository, gateway Gateway, notifier *NotificationService, tasks Enqueuer, currency string) *PaymentService {
	if currency == "" {
		currency = "eur"
	}
	return &PaymentService{
		orders:   orders,
		gateway:  gateway,
		notifier: notifier,
		tasks:    tasks,
		currency: currency,
		now:      time.Now,
	}
}

func (s *PaymentService) CreatePaymentIntent(ctx context.Context, orderID gocql.UUID, buyerID string) (*PaymentIntentResult, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != buyerID {
		return nil, apperr.ErrUnauthorized
	}
	if order.PaymentMethod != models.PaymentCard {
		return nil, apperr.Validation("Cette commande est payée en espèces")
	}
	if order.PaymentStatus == models.PaymentCompleted {
		return nil, apperr.New(apperr.KindConflict, "Commande déjà payée")
	}
	if order.Status.Terminal() {
		return nil, apperr.ErrInvalidTransition
	}

	amount := order.PayableAmount()
	cents := utils.ToMinorUnits(amount)
	if cents <= 0 {
		return nil, apperr.Validation("Montant à payer nul")
	}

	intent, err := s.gateway.CreateIntent(ctx, IntentRequest{
		AmountCents: cents,
		Currency:    s.currency,
		Metadata: map[string]string{
			"order_id":     order.ID.String(),
			"order_number": order.OrderNumber,
		},
	})
	if err != nil {
		log.Printf("❌ Création PaymentIntent échouée pour %s: %v", order.OrderNumber, err)
		return nil, apperr.Wrap(apperr.KindPaymentGateway, "Erreur de la passerelle de paiement", err)
	}

	order.PaymentIntentID = intent.ID
	order.AmountCharged = utils.FromMinorUnits(cents)
	order.PaymentStatus = models.PaymentPending
	order.PaymentError = ""
	order.UpdatedAt = s.now()
	err = s.orders.Update(ctx, order,
		models.FieldPaymentIntentID, models.FieldAmountCharged, models.FieldPaymentStatus, models.FieldPaymentError)
	if err != nil {
		return nil, err
	}

	log.Printf("💳 PaymentIntent %s créé pour %s (%d %s)", intent.ID, order.OrderNumber, cents, s.currency)
	return &PaymentIntentResult{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
		Amount:          order.AmountCharged,
		Currency:        s.currency,
	}, nil
}

// HandleWebhook vérifie la signature avant toute lecture du contenu
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	ev, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		log.Printf("⚠️ Webhook rejeté: %v", err)
		return apperr.Validation("Signature du webhook invalide")
	}
	return s.HandleEvent(ctx, ev)
}

func (s *PaymentService) HandleEvent(ctx context.Context, ev *WebhookEvent) error {
	switch ev.Type {
	case EventPaymentSucceeded, EventPaymentFailed, EventChargeRefunded:
	default:
		log.Printf("ℹ️ Webhook %s ignoré", ev.Type)
		return nil
	}
	if ev.IntentID == "" {
		return apperr.Validation("Événement %s sans PaymentIntent", ev.Type)
	}

	order, err := s.orders.GetByPaymentIntent(ctx, ev.IntentID)
	if err != nil {
		return err
	}
	now := s.now()

	var (
		notif  NotificationRequest
		fields []models.OrderField
	)
	switch ev.Type {
	case EventPaymentSucceeded:
		order.PaymentStatus = models.PaymentCompleted
		order.PaymentError = ""
		order.PaidAt = &now
		fields = []models.OrderField{models.FieldPaymentStatus, models.FieldPaymentError, models.FieldPaidAt}
		notif = NotificationRequest{
			Type:     models.NotifPaymentSucceeded,
			Title:    "Paiement confirmé",
			Message:  "Le paiement de la commande " + order.OrderNumber + " a été accepté.",
			Priority: models.PriorityNormal,
		}
	case EventPaymentFailed:
		// Stripe ne garantit pas l'ordre des événements
		if order.PaymentStatus == models.PaymentCompleted {
			log.Printf("ℹ️ Échec de paiement tardif ignoré pour %s (déjà payée)", order.OrderNumber)
			return nil
		}
		order.PaymentStatus = models.PaymentFailed
		order.PaymentError = ev.ErrorMessage
		fields = []models.OrderField{models.FieldPaymentStatus, models.FieldPaymentError}
		notif = NotificationRequest{
			Type:     models.NotifPaymentFailed,
			Title:    "Paiement refusé",
			Message:  "Le paiement de la commande " + order.OrderNumber + " a échoué.",
			Priority: models.PriorityHigh,
		}
	case EventChargeRefunded:
		order.RefundStatus = models.RefundCompleted
		order.RefundedAt = &now
		fields = []models.OrderField{models.FieldRefundStatus, models.FieldRefundedAt}
		// le total Stripe fait foi si l'initiation n'a pas pu être enregistrée
		if refunded := utils.FromMinorUnits(ev.AmountRefundedCents); refunded > order.RefundedAmount {
			order.RefundedAmount = refunded
			fields = append(fields, models.FieldRefundedAmount)
		}
		notif = NotificationRequest{
			Type:     models.NotifRefundCompleted,
			Title:    "Remboursement effectué",
			Message:  "Le remboursement de la commande " + order.OrderNumber + " a été effectué.",
			Priority: models.PriorityNormal,
		}
	}
	order.UpdatedAt = now

	if err := s.orders.Update(ctx, order, fields...); err != nil {
		return err
	}
	log.Printf("💳 Webhook %s appliqué à %s", ev.Type, order.OrderNumber)

	notif.UserID = order.BuyerID
	notif.Data = models.NotificationData{
		OrderID:     order.ID.String(),
		OrderNumber: order.OrderNumber,
		Amount:      order.AmountCharged,
		Status:      string(order.Status),
	}
	s.notifyAsync(notif)
	return nil
}

// RequestRefund est la variante authentifiée de InitiateRefund (admin ou restaurant propriétaire)
func (s *PaymentService) RequestRefund(ctx context.Context, actor Actor, orderID gocql.UUID, amount float64, reason string) (*models.Order, error) {
	if actor.Role != models.RoleAdmin {
		order, err := s.orders.Get(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if actor.Role != models.RoleVendor || order.VendorID != actor.UserID {
			return nil, apperr.ErrUnauthorized
		}
	}
	return s.InitiateRefund(ctx, orderID, amount, reason)
}

// InitiateRefund rembourse tout ou partie du montant encaissé. Le statut passe à
// "pending"; seul le webhook charge.refunded le fait passer à "completed".
func (s *PaymentService) InitiateRefund(ctx context.Context, orderID gocql.UUID, amount float64, reason string) (*models.Order, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentIntentID == "" || order.PaymentStatus != models.PaymentCompleted {
		return nil, apperr.ErrNotPaid
	}

	amount = utils.Round2(amount)
	remaining := utils.SubAmounts(order.AmountCharged, order.RefundedAmount)
	if amount <= 0 || amount > remaining {
		return nil, apperr.Validation("Montant de remboursement invalide (max %.2f)", remaining)
	}

	startedAt := s.now()
	cents := utils.ToMinorUnits(amount)
	refundID, err := s.gateway.Refund(ctx, RefundRequest{
		IntentID:       order.PaymentIntentID,
		AmountCents:    cents,
		Reason:         reason,
		IdempotencyKey: refundKey(order, cents),
	})
	if err != nil {
		log.Printf("❌ Remboursement échoué pour %s: %v", order.OrderNumber, err)
		return nil, apperr.Wrap(apperr.KindPaymentGateway, "Erreur de la passerelle de paiement", err)
	}

	// relecture: le webhook a pu arriver pendant l'appel à la passerelle
	order, err = s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	settled := order.RefundStatus == models.RefundCompleted && order.RefundedAt != nil && !order.RefundedAt.Before(startedAt)
	if !settled {
		order.RefundStatus = models.RefundPending
	}
	order.RefundID = refundID
	order.RefundReason = reason
	order.RefundedAmount = utils.SumAmounts(order.RefundedAmount, amount)
	fields := []models.OrderField{
		models.FieldRefundStatus, models.FieldRefundID, models.FieldRefundReason, models.FieldRefundedAmount,
	}
	if order.RefundAmount < order.RefundedAmount {
		order.RefundAmount = order.RefundedAmount
		fields = append(fields, models.FieldRefundAmount)
	}
	order.UpdatedAt = s.now()

	if err := s.orders.Update(ctx, order, fields...); err != nil {
		log.Printf("❌ Remboursement %s accepté par Stripe mais non enregistré pour %s: %v", refundID, order.OrderNumber, err)
		return nil, err
	}
	log.Printf("💰 Remboursement %s de %.2f initié pour %s", refundID, amount, order.OrderNumber)

	s.notifyAsync(NotificationRequest{
		UserID:   order.BuyerID,
		Type:     models.NotifRefundInitiated,
		Title:    "Remboursement en cours",
		Message:  "Un remboursement a été initié pour la commande " + order.OrderNumber + ".",
		Priority: models.PriorityNormal,
		Data: models.NotificationData{
			OrderID:     order.ID.String(),
			OrderNumber: order.OrderNumber,
			Amount:      amount,
			Status:      string(order.Status),
		},
	})
	return order, nil
}

// refundKey identifie un remboursement par commande, montant déjà remboursé et montant demandé:
// rejouer la même demande ne rembourse pas deux fois.
func refundKey(order *models.Order, cents int64) string {
	return fmt.Sprintf("refund:%s:%d:%d", order.ID, utils.ToMinorUnits(order.RefundedAmount), cents)
}

func (s *PaymentService) notifyAsync(req NotificationRequest) {
	if s.notifier == nil || s.tasks == nil {
		return
	}
	if !s.tasks.Enqueue("notification:"+string(req.Type), func(ctx context.Context) error {
		_, err := s.notifier.Dispatch(ctx, req)
		return err
	}) {
		log.Printf("⚠️ File pleine, notification %s perdue pour %s", req.Type, req.UserID)
	}
}
