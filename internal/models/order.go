package models

import (
	"time"

	"github.com/gocql/gocql"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending           OrderStatus = "pending"
	StatusAccepted          OrderStatus = "accepted"
	StatusPreparing         OrderStatus = "preparing"
	StatusOutForDelivery    OrderStatus = "out_for_delivery"
	StatusDelivered         OrderStatus = "delivered"
	StatusCancelled         OrderStatus = "cancelled"
	StatusRejected          OrderStatus = "rejected"
	StatusPartiallyRejected OrderStatus = "partially_rejected"
)

// transitions décrit la machine à états des commandes
var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:           {StatusAccepted, StatusCancelled, StatusRejected, StatusPartiallyRejected},
	StatusAccepted:          {StatusPreparing, StatusCancelled, StatusRejected, StatusPartiallyRejected},
	StatusPartiallyRejected: {StatusPreparing, StatusCancelled},
	StatusPreparing:         {StatusOutForDelivery},
	StatusOutForDelivery:    {StatusDelivered},
}

// ParseOrderStatus accepte "confirmed" comme synonyme de "accepted"
func ParseOrderStatus(raw string) OrderStatus {
	if raw == "confirmed" {
		return StatusAccepted
	}
	return OrderStatus(raw)
}

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusPreparing, StatusOutForDelivery, StatusDelivered,
		StatusCancelled, StatusRejected, StatusPartiallyRejected:
		return true
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled || s == StatusRejected
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

type PaymentMethod string

const (
	PaymentCard PaymentMethod = "card"
	PaymentCash PaymentMethod = "cash"
)

type RefundStatus string

const (
	RefundNone      RefundStatus = "none"
	RefundRequested RefundStatus = "requested"
	RefundPending   RefundStatus = "pending"
	RefundCompleted RefundStatus = "completed"
)

// Instruction est un supplément ou une modification choisie par le client
type Instruction struct {
	Name          string  `json:"name"`
	PriceModifier float64 `json:"priceModifier"`
}

// OrderLineItem est une ligne de commande, avec le prix figé au moment de la commande
type OrderLineItem struct {
	MenuItemID   string        `json:"menuItemId"`
	Name         string        `json:"name"`
	Category     string        `json:"category,omitempty"`
	Quantity     int           `json:"quantity"`
	UnitPrice    float64       `json:"unitPrice"`
	Instructions []Instruction `json:"instructions,omitempty"`
	Note         string        `json:"note,omitempty"`
	LineTotal    float64       `json:"lineTotal"`
	Rejected     bool          `json:"rejected,omitempty"`
}

type Order struct {
	ID              gocql.UUID      `json:"id"`
	OrderNumber     string          `json:"orderNumber"`
	BuyerID         string          `json:"buyerId"`
	VendorID        string          `json:"vendorId"`
	Items           []OrderLineItem `json:"items"`
	TotalAmount     float64         `json:"totalAmount"`
	Status          OrderStatus     `json:"status"`
	PaymentStatus   PaymentStatus   `json:"paymentStatus"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod"`
	PaymentIntentID string          `json:"paymentIntentId,omitempty"`
	PaymentError    string          `json:"paymentError,omitempty"`
	AmountCharged   float64         `json:"amountCharged,omitempty"`
	RefundedAmount  float64         `json:"refundedAmount,omitempty"`
	PromoCode       string          `json:"promoCode,omitempty"`
	DiscountAmount  float64         `json:"discountAmount"`
	RefundStatus    RefundStatus    `json:"refundStatus"`
	RefundID        string          `json:"refundId,omitempty"`
	RefundAmount    float64         `json:"refundAmount"`
	RefundReason    string          `json:"refundReason,omitempty"`
	RejectionReason string          `json:"rejectionReason,omitempty"`
	Rating          int             `json:"rating,omitempty"`
	PaidAt          *time.Time      `json:"paidAt,omitempty"`
	CancelledAt     *time.Time      `json:"cancelledAt,omitempty"`
	DeliveredAt     *time.Time      `json:"deliveredAt,omitempty"`
	RefundedAt      *time.Time      `json:"refundedAt,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// OrderField nomme une colonne modifiable d'une commande. Chaque opération n'écrit
// que ses propres champs: le webhook reste seul à écrire l'état terminal du paiement.
type OrderField string

const (
	FieldStatus          OrderField = "status"
	FieldItems           OrderField = "items"
	FieldTotalAmount     OrderField = "total_amount"
	FieldRefundAmount    OrderField = "refund_amount"
	FieldRejectionReason OrderField = "rejection_reason"
	FieldRating          OrderField = "rating"
	FieldCancelledAt     OrderField = "cancelled_at"
	FieldDeliveredAt     OrderField = "delivered_at"
	FieldPaymentStatus   OrderField = "payment_status"
	FieldPaymentIntentID OrderField = "payment_intent_id"
	FieldPaymentError    OrderField = "payment_error"
	FieldAmountCharged   OrderField = "amount_charged"
	FieldPaidAt          OrderField = "paid_at"
	FieldRefundStatus    OrderField = "refund_status"
	FieldRefundID        OrderField = "refund_id"
	FieldRefundedAmount  OrderField = "refunded_amount"
	FieldRefundReason    OrderField = "refund_reason"
	FieldRefundedAt      OrderField = "refunded_at"
)

// PayableAmount est le montant à encaisser (total moins la remise)
func (o *Order) PayableAmount() float64 {
	p := decimal.NewFromFloat(o.TotalAmount).Sub(decimal.NewFromFloat(o.DiscountAmount))
	if p.IsNegative() {
		return 0
	}
	return p.Round(2).InexactFloat64()
}

// ActiveItems retourne les lignes qui n'ont pas été refusées par le restaurant
func (o *Order) ActiveItems() []OrderLineItem {
	items := make([]OrderLineItem, 0, len(o.Items))
	for _, it := range o.Items {
		if !it.Rejected {
			items = append(items, it)
		}
	}
	return items
}

// CartLine est une ligne du panier envoyée par le client
type CartLine struct {
	MenuItemID   string   `json:"menuItemId" binding:"required"`
	Quantity     int      `json:"quantity" binding:"required,min=1,max=99"`
	Instructions []string `json:"instructions" binding:"omitempty,max=20,dive,required"`
	Note         string   `json:"note" binding:"max=500"`
}
